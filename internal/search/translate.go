package search

import (
	"context"
	"encoding/json"

	"github.com/Kinder1203/SpeakNode/internal/store"
)

// QueryResult is the structured outcome of a natural-language query. A
// failed translation or execution is reported in Error; the call itself
// never fails, so the agent can always show the user what happened.
type QueryResult struct {
	OK      bool     `json:"ok"`
	Error   string   `json:"error,omitempty"`
	Query   string   `json:"query,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Rows    [][]any  `json:"rows,omitempty"`
}

// schemaDescription is what the translator model sees. Keys in topics,
// tasks, decisions and entities are meeting-scoped ("m_<id>::<text>");
// queries should match them with instr() on the text part or join through
// the edge tables.
const schemaDescription = `The database is SQLite. Node tables:
  meetings(id, title, date, source_file)
  people(name, role)
  topics(title, summary)            -- title is "m_<meeting>::<text>"
  tasks(description, deadline, status)  -- description is scoped like topics
  decisions(description)            -- scoped
  entities(name, entity_type, description)  -- name is scoped
  utterances(id, text, start_time, end_time, speaker)
Edge tables:
  proposed(person_name, topic_title)
  assigned_to(task_description, person_name)
  resulted_in(topic_title, decision_description)
  spoke(person_name, utterance_id)
  discussed(meeting_id, topic_title)
  contains(meeting_id, utterance_id)
  has_tasks(meeting_id, task_description)
  has_decisions(meeting_id, decision_description)
  has_entities(meeting_id, entity_name)
  mentions(topic_title, entity_name)
  entity_relations(source_name, target_name, relation_type)
Task status is one of: pending, in_progress, done, blocked.`

const translatorSystemPrompt = `You translate questions about recorded meetings into a single read-only SQLite query.

` + schemaDescription + `

Respond with a JSON object: {"query": "<sql>", "params": {"<name>": <value>, ...}}.
Use named parameters (:name) for user-supplied values. The query must be one
SELECT (or WITH ... SELECT) statement. Never modify data.`

type translatedQuery struct {
	Query  string         `json:"query"`
	Params map[string]any `json:"params"`
}

// Translate turns a natural-language question into a validated query,
// executes it, and reports the outcome. Every failure mode lands in the
// returned QueryResult rather than an error.
func (e *Engine) Translate(ctx context.Context, st *store.Store, question string, limitHint int) QueryResult {
	raw, err := e.completer.CompleteWithJSONMode(ctx, translatorSystemPrompt, question, e.translatorModel)
	if err != nil {
		e.log.Warn().Err(err).Msg("query translation failed")
		return QueryResult{Error: "could not translate the question into a query: " + err.Error()}
	}

	var tq translatedQuery
	if err := json.Unmarshal([]byte(raw), &tq); err != nil {
		return QueryResult{Error: "translator returned malformed JSON: " + err.Error()}
	}

	if limitHint <= 0 {
		limitHint = e.cfg.QueryRowLimit
	}
	query, err := ValidateQuery(tq.Query, limitHint)
	if err != nil {
		e.log.Warn().Err(err).Str("query", tq.Query).Msg("generated query rejected")
		return QueryResult{Error: "generated query rejected: " + err.Error(), Query: tq.Query}
	}

	cols, rows, err := st.Execute(query, tq.Params)
	if err != nil {
		return QueryResult{Error: "query execution failed: " + err.Error(), Query: query}
	}
	return QueryResult{OK: true, Query: query, Columns: cols, Rows: rows}
}
