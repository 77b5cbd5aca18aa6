package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Kinder1203/SpeakNode/internal/search"
)

// MeaningSearchTool ranks stored utterances against the question by
// embedding similarity.
type MeaningSearchTool struct{}

func (t *MeaningSearchTool) Name() string { return "search_by_meaning" }

func (t *MeaningSearchTool) Description() string {
	return "Find transcript passages whose meaning matches the question, even with different wording. Args: query (required), top_k."
}

func (t *MeaningSearchTool) Execute(ctx context.Context, args map[string]any, deps Deps) (string, error) {
	query := GetString(args, "query", "")
	if query == "" {
		return "", NewToolError(t.Name(), "query argument is required", nil)
	}
	hits := deps.Search.SemanticSearch(ctx, deps.Store, query, GetInt(args, "top_k", 0))
	if len(hits) == 0 {
		return search.NoResults, nil
	}
	var b strings.Builder
	for _, u := range hits {
		fmt.Fprintf(&b, "[%.2f] (%.1fs-%.1fs) %s\n", u.Score, u.Start, u.End, u.Text)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// StructureSearchTool walks the graph by node type. When the caller does
// not name a type, the keyword is sniffed for one.
type StructureSearchTool struct{}

func (t *StructureSearchTool) Name() string { return "search_by_structure" }

func (t *StructureSearchTool) Description() string {
	return "Look up graph nodes by type: topics, tasks, decisions, people, meetings, entities or relations. Args: entity_type, keyword, limit."
}

func (t *StructureSearchTool) Execute(ctx context.Context, args map[string]any, deps Deps) (string, error) {
	keyword := GetString(args, "keyword", "")
	limit := GetInt(args, "limit", 0)
	entityType := strings.ToLower(GetString(args, "entity_type", ""))
	if entityType == "" {
		entityType = sniffNodeType(keyword)
	}

	var result any
	var err error
	switch entityType {
	case "topics", "topic":
		result, err = deps.Search.Topics(deps.Store, keyword, limit)
	case "tasks", "task":
		result, err = deps.Store.Tasks(keyword, limit)
	case "decisions", "decision":
		result, err = deps.Store.Decisions(keyword, limit)
	case "people", "person":
		result, err = deps.Search.People(deps.Store, keyword, limit)
	case "meetings", "meeting":
		result, err = deps.Store.Meetings(keyword, limit)
	case "entities", "entity":
		result, err = deps.Store.Entities(keyword, "", limit)
	case "relations", "relation":
		result, err = deps.Store.EntityRelations(keyword, limit)
	default:
		return "", NewToolError(t.Name(), fmt.Sprintf("unknown entity_type %q", entityType), nil)
	}
	if err != nil {
		return "", NewToolError(t.Name(), "lookup failed", err)
	}
	return renderJSON(result)
}

func sniffNodeType(keyword string) string {
	lower := strings.ToLower(keyword)
	switch {
	case strings.Contains(lower, "task") || strings.Contains(lower, "action item"):
		return "tasks"
	case strings.Contains(lower, "decision"):
		return "decisions"
	case strings.Contains(lower, "person") || strings.Contains(lower, "people") || strings.Contains(lower, "who"):
		return "people"
	case strings.Contains(lower, "meeting"):
		return "meetings"
	case strings.Contains(lower, "relation"):
		return "relations"
	case strings.Contains(lower, "entity") || strings.Contains(lower, "technology") || strings.Contains(lower, "organization"):
		return "entities"
	default:
		return "topics"
	}
}

// HybridSearchTool fuses semantic and structural retrieval into one
// evidence block. It is also the router's fallback when intent is unclear.
type HybridSearchTool struct{}

func (t *HybridSearchTool) Name() string { return "hybrid_search" }

func (t *HybridSearchTool) Description() string {
	return "Combine meaning-based transcript search with graph lookups for a broad evidence sweep. Args: query (required)."
}

func (t *HybridSearchTool) Execute(ctx context.Context, args map[string]any, deps Deps) (string, error) {
	query := GetString(args, "query", "")
	if query == "" {
		return "", NewToolError(t.Name(), "query argument is required", nil)
	}
	return deps.Search.Fuse(ctx, deps.Store, query), nil
}

// QuerySearchTool answers precise questions by translating them into a
// validated read-only query.
type QuerySearchTool struct{}

func (t *QuerySearchTool) Name() string { return "search_by_query" }

func (t *QuerySearchTool) Description() string {
	return "Translate a precise question (counts, filters, joins) into a read-only database query and run it. Args: question (required), limit."
}

func (t *QuerySearchTool) Execute(ctx context.Context, args map[string]any, deps Deps) (string, error) {
	question := GetString(args, "question", GetString(args, "query", ""))
	if question == "" {
		return "", NewToolError(t.Name(), "question argument is required", nil)
	}
	result := deps.Search.Translate(ctx, deps.Store, question, GetInt(args, "limit", 0))
	return renderJSON(result)
}

// MeetingSummaryTool aggregates everything linked to one meeting. Without
// a meeting id it lists what is available instead of guessing.
type MeetingSummaryTool struct{}

func (t *MeetingSummaryTool) Name() string { return "get_meeting_summary" }

func (t *MeetingSummaryTool) Description() string {
	return "Summarize one meeting: topics, decisions, tasks, people and entities. Args: meeting_id."
}

func (t *MeetingSummaryTool) Execute(ctx context.Context, args map[string]any, deps Deps) (string, error) {
	meetingID := GetString(args, "meeting_id", "")
	if meetingID == "" {
		meetings, err := deps.Store.Meetings("", 0)
		if err != nil {
			return "", NewToolError(t.Name(), "listing meetings failed", err)
		}
		if len(meetings) == 0 {
			return "No meetings have been ingested yet.", nil
		}
		var b strings.Builder
		b.WriteString("No meeting_id given. Available meetings:\n")
		for _, m := range meetings {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", m.ID, m.Title, m.Date)
		}
		return strings.TrimRight(b.String(), "\n"), nil
	}

	sum, err := deps.Store.MeetingSummary(meetingID)
	if err != nil {
		return "", NewToolError(t.Name(), "summary failed", err)
	}
	return renderJSON(sum)
}

func renderJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("rendering result: %w", err)
	}
	return string(data), nil
}
