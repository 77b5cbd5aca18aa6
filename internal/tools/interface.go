// Package tools defines the operations the agent can invoke on a dataset
// and the registry that dispatches them.
package tools

import (
	"context"
	"fmt"

	"github.com/Kinder1203/SpeakNode/internal/search"
	"github.com/Kinder1203/SpeakNode/internal/store"
)

// Tool represents a single executable operation in the system. Execute
// returns rendered text for the synthesizer; errors are reported to the
// caller, which converts them into failure strings rather than aborting
// the conversation.
type Tool interface {
	// Name returns the unique identifier for this tool
	Name() string

	// Description returns a human-readable description of what this tool does
	Description() string

	// Execute runs the tool against one conversation's dataset
	Execute(ctx context.Context, args map[string]any, deps Deps) (string, error)
}

// Deps carries the per-conversation handles a tool runs against. The
// registry itself is dataset-agnostic.
type Deps struct {
	Store  *store.Store
	Search *search.Engine
}

// ToolError represents an error that occurred during tool execution
type ToolError struct {
	Tool    string // Name of the tool that failed
	Message string // Error message
	Cause   error  // Underlying error if any
}

func (e *ToolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s tool error: %s (caused by: %v)", e.Tool, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s tool error: %s", e.Tool, e.Message)
}

func (e *ToolError) Unwrap() error {
	return e.Cause
}

// NewToolError creates a new tool error
func NewToolError(tool, message string, cause error) error {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Cause:   cause,
	}
}

// GetString extracts a string parameter from args
func GetString(args map[string]any, key string, defaultValue string) string {
	if val, ok := args[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultValue
}

// GetInt extracts an integer parameter from args
func GetInt(args map[string]any, key string, defaultValue int) int {
	if val, ok := args[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case float64:
			return int(v)
		case float32:
			return int(v)
		}
	}
	return defaultValue
}

// GetBool extracts a boolean parameter from args
func GetBool(args map[string]any, key string, defaultValue bool) bool {
	if val, ok := args[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return defaultValue
}
