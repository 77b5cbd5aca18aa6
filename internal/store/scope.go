package store

import "strings"

// ScopedValueSeparator joins a meeting id and a naturally occurring text
// value into a storage key that cannot collide across meetings.
const ScopedValueSeparator = "::"

// meetingIDPrefix is the recognizable prefix every generated meeting id
// carries. A scope that does not start with it is treated as unscoped
// legacy data.
const meetingIDPrefix = "m_"

// EncodeScopedKey prefixes value with the owning meeting's id. An empty
// meeting id or an empty value leaves the input unscoped.
func EncodeScopedKey(meetingID, value string) string {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return ""
	}
	if meetingID == "" {
		return clean
	}
	return meetingID + ScopedValueSeparator + clean
}

// DecodeScopedKey recovers the original display value from a scoped key.
// Unscoped values pass through unchanged.
func DecodeScopedKey(value string) string {
	if !strings.Contains(value, ScopedValueSeparator) {
		return value
	}
	_, plain, _ := strings.Cut(value, ScopedValueSeparator)
	return plain
}

// ExtractScope returns the meeting id embedded in a scoped key, or "" when
// the key is unscoped or its prefix does not look like a meeting id.
func ExtractScope(value string) string {
	if !strings.Contains(value, ScopedValueSeparator) {
		return ""
	}
	scope, _, _ := strings.Cut(value, ScopedValueSeparator)
	if !strings.HasPrefix(scope, meetingIDPrefix) {
		return ""
	}
	return scope
}
