package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Kinder1203/SpeakNode/internal/llm"
)

const routerPromptTemplate = `You route questions about recorded meetings to exactly one tool.

Available tools:
%s

Routing rules, in priority order:
1. Greetings, small talk, and questions answerable from the conversation alone go to direct_answer.
2. Requests to write or draft an email go to draft_email.
3. Questions about one specific meeting's content go to get_meeting_summary.
4. Precise questions (counts, filters, "how many", "list all X where...") go to search_by_query.
5. Questions naming a node type (tasks, decisions, people, entities) go to search_by_structure.
6. Questions about what was said or discussed go to search_by_meaning.
7. Anything else, or any doubt, goes to hybrid_search.

Respond with a JSON object: {"tool": "<name>", "args": {...}} and nothing else.`

type routeDecision struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// route picks the tool for this turn. Any routing failure falls back to
// hybrid_search with the user's last message; routing never errors.
func (o *Orchestrator) route(ctx context.Context, state *State) {
	fallbackArgs := map[string]any{"query": lastUserMessage(state.Messages)}

	system := fmt.Sprintf(routerPromptTemplate, o.registry.DescribeAll())
	raw, err := o.completer.CompleteWithJSONMode(ctx, system, renderHistory(windowed(state.Messages)), o.routerModel)
	if err != nil {
		o.log.Warn().Err(err).Msg("router completion failed, falling back to hybrid search")
		state.ToolName, state.ToolArgs = fallbackTool, fallbackArgs
		return
	}

	var decision routeDecision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil || decision.Tool == "" {
		o.log.Warn().Str("response", raw).Msg("router returned malformed decision, falling back to hybrid search")
		state.ToolName, state.ToolArgs = fallbackTool, fallbackArgs
		return
	}
	if _, err := o.registry.Get(decision.Tool); err != nil {
		o.log.Warn().Str("tool", decision.Tool).Msg("router picked unknown tool, falling back to hybrid search")
		state.ToolName, state.ToolArgs = fallbackTool, fallbackArgs
		return
	}

	if decision.Args == nil {
		decision.Args = map[string]any{}
	}
	state.ToolName, state.ToolArgs = decision.Tool, decision.Args
}

func renderHistory(history []llm.Message) string {
	var b strings.Builder
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
