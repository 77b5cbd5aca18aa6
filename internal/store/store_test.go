package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDims = 4

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), testDims, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func vec(vals ...float32) []float32 {
	v := make([]float32, testDims)
	copy(v, vals)
	return v
}

func TestSchemaInitIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, testDims, zerolog.Nop())
	require.NoError(t, err)
	_, err = s.CreateMeeting("Standup", "2026-01-05", "standup.json")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening an existing dataset must not disturb its contents.
	s2, err := Open(path, testDims, zerolog.Nop())
	require.NoError(t, err)
	defer s2.Close()
	meetings, err := s2.Meetings("", 0)
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, "Standup", meetings[0].Title)
}

func TestIngestTranscriptMismatchWritesNothing(t *testing.T) {
	s := openTestStore(t)
	id, err := s.CreateMeeting("Standup", "2026-01-05", "")
	require.NoError(t, err)

	segments := []Segment{
		{Start: 0, End: 1, Text: "hello", Speaker: "Alice"},
		{Start: 1, End: 2, Text: "hi", Speaker: "Bob"},
		{Start: 2, End: 3, Text: "ok", Speaker: "Alice"},
	}
	_, err = s.IngestTranscript(id, segments, [][]float32{vec(1), vec(0, 1)})
	require.Error(t, err)

	_, rows, err := s.Execute("SELECT COUNT(*) FROM utterances", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows[0][0])
}

func TestIngestTranscriptSpeakersBecomePeople(t *testing.T) {
	s := openTestStore(t)
	id, err := s.CreateMeeting("Standup", "2026-01-05", "")
	require.NoError(t, err)

	segments := []Segment{
		{Start: 0, End: 1.5, Text: "morning everyone", Speaker: "Alice"},
		{Start: 1.5, End: 3, Text: "morning", Speaker: "Bob"},
		{Start: 3, End: 5, Text: "let's start", Speaker: "Alice"},
	}
	count, err := s.IngestTranscript(id, segments, [][]float32{vec(1), vec(0, 1), vec(0, 0, 1)})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	people, err := s.People("", 0)
	require.NoError(t, err)
	require.Len(t, people, 2)
	for _, p := range people {
		assert.Equal(t, "Member", p.Role)
	}

	// Consecutive utterances are chained.
	_, rows, err := s.Execute("SELECT COUNT(*) FROM next_utterances", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, rows[0][0])
}

func TestIngestExtractionAndMeetingSummary(t *testing.T) {
	s := openTestStore(t)
	id, err := s.CreateMeeting("Planning", "2026-02-10", "planning.json")
	require.NoError(t, err)

	res := AnalysisResult{
		Topics: []TopicInput{
			{Title: "Search latency", Summary: "Latency regressions in the Atlas rollout", Proposer: "Carol"},
		},
		Decisions: []DecisionInput{
			{Description: "Roll back the index change", RelatedTopic: "Search latency"},
		},
		Tasks: []TaskInput{
			{Description: "Profile the query planner", Assignee: "Dan", Deadline: "2026-02-14", Status: "In Progress"},
		},
		People: []PersonInput{
			{Name: "Carol", Role: "Tech Lead"},
		},
		Entities: []EntityInput{
			{Name: "Atlas", EntityType: "technology", Description: "search cluster"},
		},
		Relations: []RelationInput{
			{Source: "Atlas", Target: "Atlas", RelationType: "self"},
		},
	}
	require.NoError(t, s.IngestExtraction(id, res))

	sum, err := s.MeetingSummary(id)
	require.NoError(t, err)
	require.Len(t, sum.Topics, 1)
	assert.Equal(t, "Search latency", sum.Topics[0].Title)
	assert.Equal(t, id, sum.Topics[0].MeetingID)
	require.Len(t, sum.Decisions, 1)
	assert.Equal(t, "Roll back the index change", sum.Decisions[0].Description)
	require.Len(t, sum.Tasks, 1)
	assert.Equal(t, "in_progress", sum.Tasks[0].Status)
	assert.Equal(t, "Dan", sum.Tasks[0].Assignee)
	require.Len(t, sum.Entities, 1)
	assert.Equal(t, "Atlas", sum.Entities[0].Name)

	// Proposer counts as a participant even without a speaking turn.
	var names []string
	for _, p := range sum.People {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, "Carol")

	// "Atlas" appears in the topic summary, so a mention edge exists.
	_, rows, err := s.Execute("SELECT COUNT(*) FROM mentions", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows[0][0])

	decisions, err := s.TopicDecisions("Search latency")
	require.NoError(t, err)
	require.Len(t, decisions, 1)

	tasks, err := s.PersonTasks("Dan")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Profile the query planner", tasks[0].Description)
}

func TestScopedIsolationAcrossMeetings(t *testing.T) {
	s := openTestStore(t)
	m1, err := s.CreateMeeting("Sprint 1", "2026-03-01", "")
	require.NoError(t, err)
	m2, err := s.CreateMeeting("Sprint 2", "2026-03-08", "")
	require.NoError(t, err)

	for _, id := range []string{m1, m2} {
		require.NoError(t, s.IngestExtraction(id, AnalysisResult{
			Topics: []TopicInput{{Title: "Budget", Summary: "quarterly budget"}},
		}))
	}

	topics, err := s.Topics("budget", 0)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.NotEqual(t, topics[0].ID, topics[1].ID)
	assert.Equal(t, "Budget", topics[0].Title)
	assert.Equal(t, "Budget", topics[1].Title)
	scopes := map[string]bool{topics[0].MeetingID: true, topics[1].MeetingID: true}
	assert.True(t, scopes[m1] && scopes[m2])
}

func TestUpdateNodeField(t *testing.T) {
	s := openTestStore(t)
	id, err := s.CreateMeeting("Planning", "2026-02-10", "")
	require.NoError(t, err)
	require.NoError(t, s.IngestExtraction(id, AnalysisResult{
		Tasks: []TaskInput{{Description: "Ship the report", Assignee: "Eve"}},
	}))

	// Plain-text key resolves through the scoped fallback.
	require.NoError(t, s.UpdateNodeField("Task", "Ship the report", "status", "Completed"))
	tasks, err := s.PersonTasks("Eve")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "done", tasks[0].Status)

	// Primary keys are never patchable.
	err = s.UpdateNodeField("Task", "Ship the report", "description", "something else")
	assert.ErrorIs(t, err, ErrFieldNotAllowed)

	err = s.UpdateNodeField("Task", "No such task", "status", "done")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	// A second meeting with the same task text makes the plain key ambiguous.
	id2, err := s.CreateMeeting("Planning 2", "2026-02-17", "")
	require.NoError(t, err)
	require.NoError(t, s.IngestExtraction(id2, AnalysisResult{
		Tasks: []TaskInput{{Description: "Ship the report"}},
	}))
	err = s.UpdateNodeField("Task", "Ship the report", "status", "done")
	assert.ErrorIs(t, err, ErrAmbiguousNode)

	// Fully scoped keys stay unambiguous.
	require.NoError(t, s.UpdateNodeField("Task", EncodeScopedKey(id2, "Ship the report"), "status", "blocked"))
}

func TestDumpRoundTrip(t *testing.T) {
	src := openTestStore(t)
	id, err := src.CreateMeeting("Planning", "2026-02-10", "planning.json")
	require.NoError(t, err)
	_, err = src.IngestTranscript(id, []Segment{
		{Start: 0, End: 2, Text: "we need to fix latency", Speaker: "Alice"},
		{Start: 2, End: 4, Text: "agreed", Speaker: "Bob"},
	}, [][]float32{vec(1), vec(0, 1)})
	require.NoError(t, err)
	require.NoError(t, src.IngestExtraction(id, AnalysisResult{
		Topics:    []TopicInput{{Title: "Latency", Summary: "fix latency", Proposer: "Alice"}},
		Decisions: []DecisionInput{{Description: "Fix it this sprint", RelatedTopic: "Latency"}},
		Tasks:     []TaskInput{{Description: "Profile hot paths", Assignee: "Bob", Status: "todo"}},
		Entities:  []EntityInput{{Name: "Latency", EntityType: "concept"}},
	}))

	dump, err := src.ExportDump(true)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, dump.SchemaVersion)

	dst, err := Open(filepath.Join(t.TempDir(), "restored.db"), testDims, zerolog.Nop())
	require.NoError(t, err)
	defer dst.Close()
	require.NoError(t, dst.RestoreDump(dump))

	dump2, err := dst.ExportDump(true)
	require.NoError(t, err)
	assert.Equal(t, dump, dump2)
}

func TestDumpCarriesEveryMeetingAndPerson(t *testing.T) {
	src := openTestStore(t)

	var firstID string
	for i := 0; i < 250; i++ {
		id, err := src.CreateMeeting(fmt.Sprintf("Standup %03d", i), "2026-02-10", "")
		require.NoError(t, err)
		if i == 0 {
			firstID = id
		}
	}
	people := make([]PersonInput, 250)
	for i := range people {
		people[i] = PersonInput{Name: fmt.Sprintf("Person %03d", i)}
	}
	require.NoError(t, src.IngestExtraction(firstID, AnalysisResult{People: people}))

	dump, err := src.ExportDump(true)
	require.NoError(t, err)
	assert.Len(t, dump.Meetings, 250)
	assert.Len(t, dump.People, 250)

	dst, err := Open(filepath.Join(t.TempDir(), "restored.db"), testDims, zerolog.Nop())
	require.NoError(t, err)
	defer dst.Close()
	require.NoError(t, dst.RestoreDump(dump))

	dump2, err := dst.ExportDump(true)
	require.NoError(t, err)
	assert.Equal(t, dump, dump2)
}

func TestDumpWithoutEmbeddingsRestoresZeroVectors(t *testing.T) {
	src := openTestStore(t)
	id, err := src.CreateMeeting("Planning", "2026-02-10", "")
	require.NoError(t, err)
	_, err = src.IngestTranscript(id, []Segment{
		{Start: 0, End: 2, Text: "hello", Speaker: "Alice"},
	}, [][]float32{vec(1)})
	require.NoError(t, err)

	dump, err := src.ExportDump(false)
	require.NoError(t, err)
	require.Len(t, dump.Utterances, 1)
	assert.Empty(t, dump.Utterances[0].Embedding)

	dst, err := Open(filepath.Join(t.TempDir(), "restored.db"), testDims, zerolog.Nop())
	require.NoError(t, err)
	defer dst.Close()
	require.NoError(t, dst.RestoreDump(dump))

	// Zero vectors never score above zero, so semantic search degrades to
	// empty rather than failing.
	hits, err := dst.SimilarUtterances(vec(1), 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSimilarUtterances(t *testing.T) {
	s := openTestStore(t)
	id, err := s.CreateMeeting("Standup", "2026-01-05", "")
	require.NoError(t, err)
	_, err = s.IngestTranscript(id, []Segment{
		{Start: 0, End: 1, Text: "talking about budget", Speaker: "Alice"},
		{Start: 1, End: 2, Text: "unrelated chatter", Speaker: "Bob"},
	}, [][]float32{vec(1, 0.2), vec(0, 0, 1)})
	require.NoError(t, err)

	hits, err := s.SimilarUtterances(vec(1), 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "talking about budget", hits[0].Text)
	assert.Greater(t, hits[0].Score, 0.9)
}
