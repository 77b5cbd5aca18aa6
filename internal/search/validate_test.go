package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateQueryAcceptsSelect(t *testing.T) {
	q, err := ValidateQuery("SELECT name, role FROM people", 0)
	require.NoError(t, err)
	assert.Equal(t, "SELECT name, role FROM people LIMIT 50", q)
}

func TestValidateQueryRespectsExistingLimit(t *testing.T) {
	q, err := ValidateQuery("SELECT name FROM people LIMIT 3", 0)
	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM people LIMIT 3", q)
}

func TestValidateQueryClampsLimitHint(t *testing.T) {
	q, err := ValidateQuery("SELECT name FROM people", 5000)
	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM people LIMIT 200", q)
}

func TestValidateQueryAllowsLeadingWith(t *testing.T) {
	q, err := ValidateQuery("WITH t AS (SELECT name FROM people) SELECT * FROM t", 10)
	require.NoError(t, err)
	assert.Contains(t, q, "LIMIT 10")
}

func TestValidateQueryRejectsMutations(t *testing.T) {
	rejected := []string{
		"DELETE FROM people",
		"SELECT name FROM people; DROP TABLE people",
		"INSERT INTO people (name) VALUES ('x')",
		"SELECT * FROM people WHERE name = 'a' UNION SELECT sql FROM sqlite_master; PRAGMA journal_mode=DELETE",
		"UPDATE tasks SET status = 'done'",
		"WITH t AS (SELECT 1) DELETE FROM people",
		"",
		"   ;  ",
	}
	for _, q := range rejected {
		_, err := ValidateQuery(q, 0)
		assert.Error(t, err, "query %q should be rejected", q)
	}
}

func TestValidateQueryWordBoundaries(t *testing.T) {
	// Column names that merely contain a denied keyword are fine.
	q, err := ValidateQuery("SELECT updated_at, created_at FROM meetings", 0)
	require.NoError(t, err)
	assert.Contains(t, q, "LIMIT")

	_, err = ValidateQuery("SELECT * FROM people WHERE name = 'x' OR (SELECT count(*) FROM pragma_table_info('people')) > 0 PRAGMA foo", 0)
	assert.Error(t, err)
}

func TestValidateQueryIgnoresLimitInsideStringLiteral(t *testing.T) {
	q, err := ValidateQuery("SELECT title FROM topics WHERE title = 'LIMIT break'", 0)
	require.NoError(t, err)
	assert.Equal(t, "SELECT title FROM topics WHERE title = 'LIMIT break' LIMIT 50", q)

	// An escaped quote inside the literal must not leak it into the scan.
	q, err = ValidateQuery("SELECT title FROM topics WHERE title = 'it''s the LIMIT'", 0)
	require.NoError(t, err)
	assert.Contains(t, q, "LIMIT 50")

	// A real trailing clause still suppresses the appended cap.
	q, err = ValidateQuery("SELECT title FROM topics WHERE title = 'LIMIT break' LIMIT 7", 0)
	require.NoError(t, err)
	assert.Equal(t, "SELECT title FROM topics WHERE title = 'LIMIT break' LIMIT 7", q)
}

func TestValidateQueryTrimsTrailingSemicolon(t *testing.T) {
	q, err := ValidateQuery("SELECT name FROM people;", 0)
	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM people LIMIT 50", q)
}
