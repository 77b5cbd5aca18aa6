package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kinder1203/SpeakNode/internal/store"
)

// NoResults is the sentinel rendered when neither retrieval mode found
// anything, so the synthesizer can say so instead of hallucinating.
const NoResults = "(no results)"

func containsAny(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Fuse combines semantic hits with intent-selected structural groups into
// one rendered evidence block. Output is deterministic for a fixed
// dataset: utterances first by score, then structural sections in a fixed
// order, each deduplicated.
func (e *Engine) Fuse(ctx context.Context, st *store.Store, query string) string {
	var b strings.Builder
	lower := strings.ToLower(query)

	hits := e.SemanticSearch(ctx, st, query, e.cfg.SemanticTopK)
	if len(hits) > 0 {
		b.WriteString("## Relevant discussion\n")
		for _, u := range hits {
			fmt.Fprintf(&b, "- [%.2f] %s\n", u.Score, u.Text)
		}
	}

	wantTasks := containsAny(lower, e.cfg.TaskKeywords)
	wantDecisions := containsAny(lower, e.cfg.DecisionKeywords)
	wantPeople := containsAny(lower, e.cfg.PeopleKeywords)
	wantMeetings := containsAny(lower, e.cfg.MeetingKeywords)
	wantEntities := containsAny(lower, e.cfg.EntityKeywords)

	// With no intent signal at all, fall back to the groups most likely to
	// hold an answer about meeting content.
	if !wantTasks && !wantDecisions && !wantPeople && !wantMeetings && !wantEntities {
		wantEntities, wantTasks, wantDecisions = true, true, true
	}

	if wantTasks {
		if tasks, err := st.Tasks("", 0); err == nil && len(tasks) > 0 {
			b.WriteString("## Tasks\n")
			seen := map[string]bool{}
			for _, t := range tasks {
				line := fmt.Sprintf("- %s [%s]", t.Description, t.Status)
				if t.Assignee != "" {
					line += " (assignee: " + t.Assignee + ")"
				}
				if t.Deadline != "" {
					line += " (due: " + t.Deadline + ")"
				}
				if !seen[line] {
					seen[line] = true
					b.WriteString(line + "\n")
				}
			}
		} else if err != nil {
			e.log.Warn().Err(err).Msg("task retrieval failed during fusion")
		}
	}
	if wantDecisions {
		if decisions, err := st.Decisions("", 0); err == nil && len(decisions) > 0 {
			b.WriteString("## Decisions\n")
			seen := map[string]bool{}
			for _, d := range decisions {
				line := "- " + d.Description
				if !seen[line] {
					seen[line] = true
					b.WriteString(line + "\n")
				}
			}
		} else if err != nil {
			e.log.Warn().Err(err).Msg("decision retrieval failed during fusion")
		}
	}
	if wantPeople {
		if people, err := st.People("", 0); err == nil && len(people) > 0 {
			b.WriteString("## People\n")
			for _, p := range people {
				fmt.Fprintf(&b, "- %s (%s)\n", p.Name, p.Role)
			}
		} else if err != nil {
			e.log.Warn().Err(err).Msg("people retrieval failed during fusion")
		}
	}
	if wantMeetings {
		if meetings, err := st.Meetings("", 0); err == nil && len(meetings) > 0 {
			b.WriteString("## Meetings\n")
			for _, m := range meetings {
				fmt.Fprintf(&b, "- %s (%s) [%s]\n", m.Title, m.Date, m.ID)
			}
		} else if err != nil {
			e.log.Warn().Err(err).Msg("meeting retrieval failed during fusion")
		}
	}
	if wantEntities {
		if entities, err := st.Entities("", "", 0); err == nil && len(entities) > 0 {
			b.WriteString("## Entities\n")
			seen := map[string]bool{}
			for _, en := range entities {
				line := fmt.Sprintf("- %s (%s)", en.Name, en.EntityType)
				if en.Description != "" {
					line += ": " + en.Description
				}
				if !seen[line] {
					seen[line] = true
					b.WriteString(line + "\n")
				}
			}
		} else if err != nil {
			e.log.Warn().Err(err).Msg("entity retrieval failed during fusion")
		}
	}

	if b.Len() == 0 {
		return NoResults
	}
	return strings.TrimRight(b.String(), "\n")
}
