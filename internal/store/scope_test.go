package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopedKeyRoundTrip(t *testing.T) {
	key := EncodeScopedKey("m_abc123", "Budget Review")
	assert.Equal(t, "m_abc123::Budget Review", key)
	assert.Equal(t, "Budget Review", DecodeScopedKey(key))
	assert.Equal(t, "m_abc123", ExtractScope(key))
}

func TestScopedKeyUnscopedPassThrough(t *testing.T) {
	assert.Equal(t, "Budget Review", DecodeScopedKey("Budget Review"))
	assert.Equal(t, "", ExtractScope("Budget Review"))
	assert.Equal(t, "Budget Review", EncodeScopedKey("", "Budget Review"))
}

func TestScopedKeyEmptyValue(t *testing.T) {
	assert.Equal(t, "", EncodeScopedKey("m_abc123", ""))
	assert.Equal(t, "", EncodeScopedKey("m_abc123", "   "))
}

func TestExtractScopeRequiresMeetingPrefix(t *testing.T) {
	// A separator without a meeting-shaped prefix is legacy data, not a scope.
	assert.Equal(t, "", ExtractScope("weird::value"))
	assert.Equal(t, "value", DecodeScopedKey("weird::value"))
}

func TestNormalizeTaskStatus(t *testing.T) {
	cases := map[string]string{
		"pending":     "pending",
		"In Progress": "in_progress",
		"in_progress": "in_progress",
		"done":        "done",
		"Completed":   "done",
		"complete":    "done",
		"todo":        "pending",
		"To Do":       "pending",
		"blocked":     "blocked",
		"":            "pending",
		"garbage":     "pending",
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeTaskStatus(raw), "raw=%q", raw)
	}
}
