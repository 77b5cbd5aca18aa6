// Package extract distills a raw transcript into the structured knowledge
// the graph stores: topics, decisions, tasks, people, entities, relations.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Kinder1203/SpeakNode/internal/llm"
	"github.com/Kinder1203/SpeakNode/internal/store"
)

const extractorSystemPrompt = `You analyze meeting transcripts and extract structured knowledge.

From the transcript, extract:
- topics: each with a short title, a one-paragraph summary, and the proposer's name if clear
- decisions: concluded outcomes, each tied to its topic title where possible
- tasks: action items with assignee, deadline and status where stated
- people: every participant mentioned, with role if stated
- entities: named technologies, organizations, concepts, projects or events, each with a type and one-line description
- relations: directed links between entities, like {"source": "Atlas", "target": "Search team", "relation_type": "owned_by"}

Use names exactly as they appear in the transcript. Extract only what the
transcript supports; leave lists empty rather than inventing content.`

// Extractor runs transcript analysis through the language model.
type Extractor struct {
	completer llm.Completer
	model     string
	log       zerolog.Logger
}

func NewExtractor(completer llm.Completer, model string, logger zerolog.Logger) *Extractor {
	return &Extractor{completer: completer, model: model, log: logger}
}

// Analyze extracts structured knowledge from transcript segments. Task
// statuses are normalized before the result is handed to ingestion.
func (e *Extractor) Analyze(ctx context.Context, segments []store.Segment) (store.AnalysisResult, error) {
	var result store.AnalysisResult
	transcript := renderTranscript(segments)
	if transcript == "" {
		return result, nil
	}

	err := e.completer.CompleteWithStructuredOutput(ctx, extractorSystemPrompt, transcript, &result, e.model)
	if err != nil {
		return result, fmt.Errorf("analyzing transcript: %w", err)
	}

	for i := range result.Tasks {
		result.Tasks[i].Status = store.NormalizeTaskStatus(result.Tasks[i].Status)
	}
	e.log.Info().
		Int("topics", len(result.Topics)).Int("tasks", len(result.Tasks)).
		Int("decisions", len(result.Decisions)).Int("entities", len(result.Entities)).
		Msg("transcript analyzed")
	return result, nil
}

func renderTranscript(segments []store.Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if seg.Speaker != "" {
			fmt.Fprintf(&b, "%s: %s\n", seg.Speaker, text)
		} else {
			b.WriteString(text + "\n")
		}
	}
	return b.String()
}
