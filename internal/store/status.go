package store

import "strings"

// AllowedTaskStatuses is the closed set of task states the store accepts.
var AllowedTaskStatuses = map[string]bool{
	"pending":     true,
	"in_progress": true,
	"done":        true,
	"blocked":     true,
}

var taskStatusAliases = map[string]string{
	"to do":       "pending",
	"todo":        "pending",
	"in progress": "in_progress",
	"complete":    "done",
	"completed":   "done",
}

// NormalizeTaskStatus maps free-form status text onto the allowed set.
// Anything unrecognized becomes "pending".
func NormalizeTaskStatus(raw string) string {
	status := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := taskStatusAliases[status]; ok {
		status = alias
	}
	if !AllowedTaskStatuses[status] {
		return "pending"
	}
	return status
}
