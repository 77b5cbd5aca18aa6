package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Registry manages all available tools in the system. Registration order
// is preserved so tool listings shown to the router are stable.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	order  []string
	logger Logger
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		logger: &NullLogger{}, // Default to no logging
	}
}

// SetLogger sets the logger for the registry
func (r *Registry) SetLogger(logger Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds a tool to the registry. Registering a name twice replaces
// the earlier tool; the last registration wins.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool '%s' not found", name)
	}
	return tool, nil
}

// List returns all registered tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Execute runs a tool by name and always produces text. An unknown tool
// or a tool error comes back as a failure message the synthesizer can
// explain to the user; the conversation never aborts on a tool failure.
func (r *Registry) Execute(ctx context.Context, toolName string, args map[string]any, deps Deps) string {
	r.logger.LogToolCall(toolName, args)
	startTime := time.Now()

	tool, err := r.Get(toolName)
	if err != nil {
		r.logger.LogToolError(toolName, err)
		return fmt.Sprintf("tool %q is not available", toolName)
	}

	result, err := tool.Execute(ctx, args, deps)
	r.logger.LogToolResult(toolName, result, err, time.Since(startTime))
	if err != nil {
		return fmt.Sprintf("tool %q failed: %v", toolName, err)
	}
	return result
}

// DescribeAll renders a numbered catalog of every tool, in registration
// order, for the router prompt.
func (r *Registry) DescribeAll() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	for i, name := range r.order {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, name, r.tools[name].Description())
	}
	return strings.TrimRight(b.String(), "\n")
}
