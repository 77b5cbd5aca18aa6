// Package search implements hybrid retrieval over a dataset: semantic
// ranking of utterances, structural graph lookups, their fusion into a
// single evidence block, and a guarded natural-language query path.
package search

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Kinder1203/SpeakNode/internal/config"
	"github.com/Kinder1203/SpeakNode/internal/embed"
	"github.com/Kinder1203/SpeakNode/internal/llm"
	"github.com/Kinder1203/SpeakNode/internal/store"
)

// Engine is stateless with respect to datasets: every call takes the
// store handle of the conversation it serves, so one engine serves all
// sessions.
type Engine struct {
	embedder        *embed.Cache
	completer       llm.Completer
	cfg             config.SearchConfig
	translatorModel string
	log             zerolog.Logger
}

// NewEngine builds the shared search engine.
func NewEngine(embedder *embed.Cache, completer llm.Completer, cfg config.SearchConfig, translatorModel string, logger zerolog.Logger) *Engine {
	return &Engine{
		embedder:        embedder,
		completer:       completer,
		cfg:             cfg,
		translatorModel: translatorModel,
		log:             logger,
	}
}

// SemanticSearch embeds the query and ranks stored utterances against it.
// Retrieval is best-effort: an embedding or store failure logs and yields
// no hits rather than failing the conversation turn.
func (e *Engine) SemanticSearch(ctx context.Context, st *store.Store, query string, topK int) []store.Utterance {
	if topK <= 0 {
		topK = e.cfg.SemanticTopK
	}
	provider, err := e.embedder.Get()
	if err != nil {
		e.log.Warn().Err(err).Msg("embedding provider unavailable, skipping semantic search")
		return nil
	}
	vec, err := provider.Embed(ctx, query)
	if err != nil {
		e.log.Warn().Err(err).Msg("query embedding failed, skipping semantic search")
		return nil
	}
	hits, err := st.SimilarUtterances(vec, topK)
	if err != nil {
		e.log.Warn().Err(err).Msg("vector scan failed, skipping semantic search")
		return nil
	}
	return hits
}

// TopicDetails is a topic plus the context hanging off it.
type TopicDetails struct {
	Topic     store.Topic      `json:"topic"`
	Proposers []store.Person   `json:"proposers,omitempty"`
	Decisions []store.Decision `json:"decisions,omitempty"`
}

// Topics lists topics with proposers and resulting decisions attached.
// Enrichment fails soft: a broken edge loses detail, not the topic.
func (e *Engine) Topics(st *store.Store, keyword string, limit int) ([]TopicDetails, error) {
	topics, err := st.Topics(keyword, limit)
	if err != nil {
		return nil, err
	}
	out := make([]TopicDetails, 0, len(topics))
	for _, t := range topics {
		d := TopicDetails{Topic: t}
		if ps, err := st.TopicProposers(t.ID); err == nil {
			d.Proposers = ps
		} else {
			e.log.Warn().Err(err).Str("topic", t.ID).Msg("proposer lookup failed")
		}
		if ds, err := st.TopicDecisions(t.Title); err == nil {
			for _, dec := range ds {
				if dec.MeetingID == "" || dec.MeetingID == t.MeetingID {
					d.Decisions = append(d.Decisions, dec)
				}
			}
		} else {
			e.log.Warn().Err(err).Str("topic", t.ID).Msg("decision lookup failed")
		}
		out = append(out, d)
	}
	return out, nil
}

// PersonDetails is a person plus what they proposed and own.
type PersonDetails struct {
	Person store.Person  `json:"person"`
	Topics []store.Topic `json:"topics,omitempty"`
	Tasks  []store.Task  `json:"tasks,omitempty"`
}

// People lists people with their proposed topics and assigned tasks.
func (e *Engine) People(st *store.Store, keyword string, limit int) ([]PersonDetails, error) {
	people, err := st.People(keyword, limit)
	if err != nil {
		return nil, err
	}
	out := make([]PersonDetails, 0, len(people))
	for _, p := range people {
		d := PersonDetails{Person: p}
		if ts, err := st.PersonTopics(p.Name); err == nil {
			d.Topics = ts
		} else {
			e.log.Warn().Err(err).Str("person", p.Name).Msg("topic lookup failed")
		}
		if ts, err := st.PersonTasks(p.Name); err == nil {
			d.Tasks = ts
		} else {
			e.log.Warn().Err(err).Str("person", p.Name).Msg("task lookup failed")
		}
		out = append(out, d)
	}
	return out, nil
}
