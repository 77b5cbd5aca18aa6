// Package agent orchestrates one conversation turn: route the question to
// a tool, execute it against the session's dataset, then synthesize an
// answer from the evidence. The three stages run strictly in order and the
// turn always terminates after synthesis.
package agent

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Kinder1203/SpeakNode/internal/llm"
	"github.com/Kinder1203/SpeakNode/internal/tools"
)

const (
	// historyWindow bounds how many prior turns the router and
	// synthesizer see.
	historyWindow = 6
	// resultRuneBudget caps how much tool output reaches the synthesizer.
	resultRuneBudget = 8000

	fallbackTool = "hybrid_search"
)

// State carries one turn through the pipeline.
type State struct {
	Messages    []llm.Message
	ToolName    string
	ToolArgs    map[string]any
	ToolResult  string
	Context     string
	FinalAnswer string
}

// Orchestrator is shared across sessions; per-dataset handles arrive via
// tools.Deps on each call.
type Orchestrator struct {
	completer        llm.Completer
	registry         *tools.Registry
	routerModel      string
	synthesizerModel string
	synthesizerTemp  float32
	log              zerolog.Logger
}

func New(completer llm.Completer, registry *tools.Registry, routerModel, synthesizerModel string, synthesizerTemp float32, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		completer:        completer,
		registry:         registry,
		routerModel:      routerModel,
		synthesizerModel: synthesizerModel,
		synthesizerTemp:  synthesizerTemp,
		log:              logger,
	}
}

// Answer runs one full turn. history must end with the user's latest
// message; the final answer is appended to the returned state's Messages.
func (o *Orchestrator) Answer(ctx context.Context, deps tools.Deps, history []llm.Message) (*State, error) {
	state := &State{Messages: append([]llm.Message(nil), history...)}

	o.route(ctx, state)
	o.log.Debug().Str("tool", state.ToolName).Interface("args", state.ToolArgs).Msg("routed")

	state.ToolResult = o.registry.Execute(ctx, state.ToolName, state.ToolArgs, deps)
	state.Context = truncateRunes(state.ToolResult, resultRuneBudget)

	if err := o.synthesize(ctx, state); err != nil {
		return state, err
	}
	state.Messages = append(state.Messages, llm.Message{Role: "assistant", Content: state.FinalAnswer})
	return state, nil
}

func lastUserMessage(history []llm.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" {
			return history[i].Content
		}
	}
	return ""
}

func windowed(history []llm.Message) []llm.Message {
	if len(history) > historyWindow {
		return history[len(history)-historyWindow:]
	}
	return history
}

func truncateRunes(s string, budget int) string {
	runes := []rune(s)
	if len(runes) <= budget {
		return s
	}
	return string(runes[:budget]) + "\n[truncated]"
}
