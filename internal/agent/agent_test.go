package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kinder1203/SpeakNode/internal/llm"
	"github.com/Kinder1203/SpeakNode/internal/tools"
)

type fakeCompleter struct {
	jsonResponse string
	jsonErr      error
	answer       string
	answerErr    error

	lastSystem  string
	lastHistory []llm.Message
}

func (f *fakeCompleter) CompleteWithSystem(ctx context.Context, system, user, model string) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func (f *fakeCompleter) CompleteWithJSONMode(ctx context.Context, system, user, model string) (string, error) {
	return f.jsonResponse, f.jsonErr
}

func (f *fakeCompleter) CompleteMessages(ctx context.Context, system string, history []llm.Message, model string, temperature float32) (string, error) {
	f.lastSystem = system
	f.lastHistory = history
	return f.answer, f.answerErr
}

func (f *fakeCompleter) CompleteWithStructuredOutput(ctx context.Context, system, user string, result any, model string) error {
	return fmt.Errorf("not implemented")
}

type recordingTool struct {
	name     string
	result   string
	lastArgs map[string]any
	called   bool
}

func (t *recordingTool) Name() string        { return t.name }
func (t *recordingTool) Description() string { return "test tool " + t.name }
func (t *recordingTool) Execute(ctx context.Context, args map[string]any, deps tools.Deps) (string, error) {
	t.called = true
	t.lastArgs = args
	return t.result, nil
}

func testRegistry(hybrid *recordingTool, extra ...tools.Tool) *tools.Registry {
	r := tools.NewRegistry()
	r.Register(hybrid)
	for _, t := range extra {
		r.Register(t)
	}
	return r
}

func TestRouterFallsBackOnMalformedJSON(t *testing.T) {
	completer := &fakeCompleter{jsonResponse: "this is not json", answer: "here is what I found"}
	hybrid := &recordingTool{name: "hybrid_search", result: "evidence"}
	o := New(completer, testRegistry(hybrid), "", "", 0, zerolog.Nop())

	history := []llm.Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
		{Role: "user", Content: "what did we decide about budget?"},
	}
	state, err := o.Answer(context.Background(), tools.Deps{}, history)
	require.NoError(t, err)

	assert.True(t, hybrid.called)
	assert.Equal(t, "hybrid_search", state.ToolName)
	assert.Equal(t, "what did we decide about budget?", hybrid.lastArgs["query"])
	assert.Equal(t, "here is what I found", state.FinalAnswer)
}

func TestRouterFallsBackOnCompleterError(t *testing.T) {
	completer := &fakeCompleter{jsonErr: fmt.Errorf("model offline"), answer: "answer"}
	hybrid := &recordingTool{name: "hybrid_search", result: "evidence"}
	o := New(completer, testRegistry(hybrid), "", "", 0, zerolog.Nop())

	state, err := o.Answer(context.Background(), tools.Deps{},
		[]llm.Message{{Role: "user", Content: "anything new?"}})
	require.NoError(t, err)
	assert.Equal(t, "hybrid_search", state.ToolName)
	assert.Equal(t, "anything new?", hybrid.lastArgs["query"])
}

func TestRouterFallsBackOnUnknownTool(t *testing.T) {
	completer := &fakeCompleter{jsonResponse: `{"tool": "no_such_tool", "args": {}}`, answer: "answer"}
	hybrid := &recordingTool{name: "hybrid_search", result: "evidence"}
	o := New(completer, testRegistry(hybrid), "", "", 0, zerolog.Nop())

	state, err := o.Answer(context.Background(), tools.Deps{},
		[]llm.Message{{Role: "user", Content: "hm"}})
	require.NoError(t, err)
	assert.Equal(t, "hybrid_search", state.ToolName)
	_ = state
}

func TestRouterRulesPutDirectAnswerFirst(t *testing.T) {
	rules := map[string]string{}
	for _, line := range strings.Split(routerPromptTemplate, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 2 && line[0] >= '1' && line[0] <= '9' && line[1] == '.' {
			rules[line[:2]] = line
		}
	}
	require.Len(t, rules, 7)
	assert.Contains(t, rules["1."], "direct_answer")
	assert.Contains(t, rules["2."], "draft_email")
	assert.Contains(t, rules["7."], "hybrid_search")
}

func TestRouterDispatchesDecision(t *testing.T) {
	completer := &fakeCompleter{
		jsonResponse: `{"tool": "get_summary", "args": {"meeting_id": "m_1"}}`,
		answer:       "summary answer",
	}
	hybrid := &recordingTool{name: "hybrid_search"}
	summary := &recordingTool{name: "get_summary", result: "{}"}
	o := New(completer, testRegistry(hybrid, summary), "", "", 0, zerolog.Nop())

	state, err := o.Answer(context.Background(), tools.Deps{},
		[]llm.Message{{Role: "user", Content: "summarize m_1"}})
	require.NoError(t, err)
	assert.True(t, summary.called)
	assert.False(t, hybrid.called)
	assert.Equal(t, "m_1", summary.lastArgs["meeting_id"])
	assert.Equal(t, "summary answer", state.FinalAnswer)
}

func TestAnswerAppendsAssistantTurn(t *testing.T) {
	completer := &fakeCompleter{jsonResponse: `{"tool": "hybrid_search", "args": {"query": "x"}}`, answer: "final"}
	hybrid := &recordingTool{name: "hybrid_search", result: "evidence"}
	o := New(completer, testRegistry(hybrid), "", "", 0, zerolog.Nop())

	state, err := o.Answer(context.Background(), tools.Deps{},
		[]llm.Message{{Role: "user", Content: "q"}})
	require.NoError(t, err)
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "assistant", state.Messages[1].Role)
	assert.Equal(t, "final", state.Messages[1].Content)
}

func TestSynthesizerPromptSelection(t *testing.T) {
	// Empty tool output means no evidence: the direct template is used.
	completer := &fakeCompleter{jsonResponse: `{"tool": "direct_answer", "args": {}}`, answer: "hi there"}
	direct := &recordingTool{name: "direct_answer", result: ""}
	hybrid := &recordingTool{name: "hybrid_search"}
	o := New(completer, testRegistry(hybrid, direct), "", "", 0, zerolog.Nop())

	_, err := o.Answer(context.Background(), tools.Deps{},
		[]llm.Message{{Role: "user", Content: "hello!"}})
	require.NoError(t, err)
	assert.NotContains(t, completer.lastSystem, "Evidence retrieved")

	// Evidence present: the cite-the-evidence template is used.
	completer.jsonResponse = `{"tool": "hybrid_search", "args": {"query": "x"}}`
	hybrid.result = "## Tasks\n- do the thing"
	_, err = o.Answer(context.Background(), tools.Deps{},
		[]llm.Message{{Role: "user", Content: "tasks?"}})
	require.NoError(t, err)
	assert.Contains(t, completer.lastSystem, "do the thing")
}

func TestHistoryWindowBoundsSynthesizerInput(t *testing.T) {
	completer := &fakeCompleter{jsonResponse: "bad json", answer: "ok"}
	hybrid := &recordingTool{name: "hybrid_search", result: "evidence"}
	o := New(completer, testRegistry(hybrid), "", "", 0, zerolog.Nop())

	var history []llm.Message
	for i := 0; i < 20; i++ {
		history = append(history, llm.Message{Role: "user", Content: fmt.Sprintf("turn %d", i)})
	}
	_, err := o.Answer(context.Background(), tools.Deps{}, history)
	require.NoError(t, err)
	assert.Len(t, completer.lastHistory, historyWindow)
}

func TestTruncateRunes(t *testing.T) {
	long := strings.Repeat("日", resultRuneBudget+10)
	out := truncateRunes(long, resultRuneBudget)
	assert.Contains(t, out, "[truncated]")
	assert.Equal(t, "short", truncateRunes("short", resultRuneBudget))
}
