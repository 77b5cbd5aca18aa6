package session

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("team-standup_2026"))
	assert.Error(t, ValidateID(""))
	assert.Error(t, ValidateID("../escape"))
	assert.Error(t, ValidateID("has space"))
	assert.Error(t, ValidateID("-leading"))
}

func TestManagerLazyOpenAndList(t *testing.T) {
	m := NewManager(t.TempDir(), 4, zerolog.Nop())
	defer m.Close()

	ids, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, ids)

	sess, err := m.Get("alpha")
	require.NoError(t, err)
	require.NotNil(t, sess.Store)

	// Same id returns the same session.
	again, err := m.Get("alpha")
	require.NoError(t, err)
	assert.Same(t, sess, again)

	_, err = m.Get("beta")
	require.NoError(t, err)

	ids, err = m.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, ids)
}

func TestManagerResetDropsData(t *testing.T) {
	m := NewManager(t.TempDir(), 4, zerolog.Nop())
	defer m.Close()

	sess, err := m.Get("alpha")
	require.NoError(t, err)
	_, err = sess.Store.CreateMeeting("Standup", "2026-01-05", "")
	require.NoError(t, err)

	require.NoError(t, m.Reset("alpha"))

	fresh, err := m.Get("alpha")
	require.NoError(t, err)
	assert.NotSame(t, sess, fresh)
	meetings, err := fresh.Store.Meetings("", 0)
	require.NoError(t, err)
	assert.Empty(t, meetings)
}

func TestScopedIsolationBetweenDatasets(t *testing.T) {
	m := NewManager(t.TempDir(), 4, zerolog.Nop())
	defer m.Close()

	for _, id := range []string{"one", "two"} {
		sess, err := m.Get(id)
		require.NoError(t, err)
		mid, err := sess.Store.CreateMeeting("Planning", "2026-02-10", "")
		require.NoError(t, err)
		require.NoError(t, sess.Store.IngestExtraction(mid, analysisWithTopic("Budget")))
	}

	one, _ := m.Get("one")
	two, _ := m.Get("two")
	t1, err := one.Store.Topics("", 0)
	require.NoError(t, err)
	t2, err := two.Store.Topics("", 0)
	require.NoError(t, err)
	require.Len(t, t1, 1)
	require.Len(t, t2, 1)
	assert.Equal(t, t1[0].Title, t2[0].Title)
	assert.NotEqual(t, t1[0].ID, t2[0].ID)
}
