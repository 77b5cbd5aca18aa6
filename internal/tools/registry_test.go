package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kinder1203/SpeakNode/internal/config"
	"github.com/Kinder1203/SpeakNode/internal/embed"
	"github.com/Kinder1203/SpeakNode/internal/llm"
	"github.com/Kinder1203/SpeakNode/internal/search"
	"github.com/Kinder1203/SpeakNode/internal/store"
)

type stubTool struct {
	name   string
	desc   string
	result string
	err    error
}

func (t *stubTool) Name() string        { return t.name }
func (t *stubTool) Description() string { return t.desc }
func (t *stubTool) Execute(ctx context.Context, args map[string]any, deps Deps) (string, error) {
	return t.result, t.err
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "probe", desc: "first", result: "one"})
	r.Register(&stubTool{name: "probe", desc: "second", result: "two"})

	out := r.Execute(context.Background(), "probe", nil, Deps{})
	assert.Equal(t, "two", out)
	assert.Len(t, r.List(), 1)
}

func TestRegistryExecuteNeverPropagatesErrors(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "broken", desc: "always fails", err: fmt.Errorf("boom")})

	out := r.Execute(context.Background(), "broken", nil, Deps{})
	assert.Contains(t, out, "broken")
	assert.Contains(t, out, "boom")

	out = r.Execute(context.Background(), "missing", nil, Deps{})
	assert.Contains(t, out, "not available")
}

func TestRegistryDescribeAllNumberedInOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "alpha", desc: "does a"})
	r.Register(&stubTool{name: "beta", desc: "does b"})

	desc := r.DescribeAll()
	lines := strings.Split(desc, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1. alpha: does a", lines[0])
	assert.Equal(t, "2. beta: does b", lines[1])
}

type noJSONCompleter struct{}

func (noJSONCompleter) CompleteWithSystem(ctx context.Context, s, u, m string) (string, error) {
	return "", fmt.Errorf("offline")
}
func (noJSONCompleter) CompleteWithJSONMode(ctx context.Context, s, u, m string) (string, error) {
	return "", fmt.Errorf("offline")
}
func (noJSONCompleter) CompleteMessages(ctx context.Context, s string, h []llm.Message, m string, temp float32) (string, error) {
	return "", fmt.Errorf("offline")
}
func (noJSONCompleter) CompleteWithStructuredOutput(ctx context.Context, s, u string, r any, m string) error {
	return fmt.Errorf("offline")
}

func testDeps(t *testing.T) Deps {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), 4, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cache := embed.NewCache(func() (embed.Provider, error) {
		return nil, fmt.Errorf("provider offline")
	})
	eng := search.NewEngine(cache, noJSONCompleter{}, config.Default().Search, "", zerolog.Nop())
	return Deps{Store: st, Search: eng}
}

func TestStructureSearchSniffsNodeType(t *testing.T) {
	deps := testDeps(t)
	id, err := deps.Store.CreateMeeting("Planning", "2026-02-10", "")
	require.NoError(t, err)
	require.NoError(t, deps.Store.IngestExtraction(id, store.AnalysisResult{
		Tasks: []store.TaskInput{{Description: "Write task report", Assignee: "Eve"}},
	}))

	out := DefaultRegistry().Execute(context.Background(), "search_by_structure",
		map[string]any{"keyword": "task"}, deps)
	assert.Contains(t, out, "Write task report")
}

func TestMeetingSummaryToolListsWithoutID(t *testing.T) {
	deps := testDeps(t)
	_, err := deps.Store.CreateMeeting("Standup", "2026-01-05", "")
	require.NoError(t, err)

	out := DefaultRegistry().Execute(context.Background(), "get_meeting_summary", nil, deps)
	assert.Contains(t, out, "Available meetings")
	assert.Contains(t, out, "Standup")
}

func TestDirectAnswerToolIsNoOp(t *testing.T) {
	out := DefaultRegistry().Execute(context.Background(), "direct_answer", nil, testDeps(t))
	assert.Equal(t, "", out)
}

func TestEmailDraftToolPackagesContext(t *testing.T) {
	deps := testDeps(t)
	id, err := deps.Store.CreateMeeting("Planning", "2026-02-10", "")
	require.NoError(t, err)
	require.NoError(t, deps.Store.IngestExtraction(id, store.AnalysisResult{
		Decisions: []store.DecisionInput{{Description: "Ship on Friday"}},
	}))

	out := DefaultRegistry().Execute(context.Background(), "draft_email",
		map[string]any{"recipient": "team@example.com", "subject": "Decisions", "topic": "what was decided"}, deps)
	assert.Contains(t, out, "team@example.com")
	assert.Contains(t, out, "Ship on Friday")
}
