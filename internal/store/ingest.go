package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewMeetingID mints a fresh meeting id with the recognizable m_ prefix.
func NewMeetingID() string {
	return meetingIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// CreateMeeting inserts the meeting root node and returns its id. An empty
// date defaults to today.
func (s *Store) CreateMeeting(title, date, sourceFile string) (string, error) {
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	id := NewMeetingID()
	_, err := s.db.Exec(
		`INSERT INTO meetings (id, title, date, source_file) VALUES (?, ?, ?, ?)`,
		id, title, date, sourceFile,
	)
	if err != nil {
		return "", fmt.Errorf("creating meeting: %w", err)
	}
	s.log.Info().Str("meeting_id", id).Str("title", title).Msg("meeting created")
	return id, nil
}

// IngestTranscript stores one transcript's segments as utterance nodes in a
// single transaction, wiring CONTAINS, SPOKE and NEXT edges and upserting
// speakers as people. Embeddings must line up one-to-one with segments;
// a mismatch fails before anything is written. Returns the number of
// utterances stored.
func (s *Store) IngestTranscript(meetingID string, segments []Segment, embeddings [][]float32) (int, error) {
	if len(embeddings) != len(segments) {
		return 0, fmt.Errorf("ingesting transcript: %d segments but %d embeddings", len(segments), len(embeddings))
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("ingesting transcript: %w", err)
	}
	defer tx.Rollback()

	prevID := ""
	for i, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		uttID := fmt.Sprintf("u_%s_%06d_%010d", meetingID, i, int64(seg.Start*1000))
		_, err := tx.Exec(
			`INSERT INTO utterances (id, text, start_time, end_time, speaker, embedding)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET text = excluded.text, embedding = excluded.embedding`,
			uttID, text, seg.Start, seg.End, seg.Speaker, encodeEmbedding(embeddings[i]),
		)
		if err != nil {
			return 0, fmt.Errorf("storing utterance %s: %w", uttID, err)
		}
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO contains (meeting_id, utterance_id) VALUES (?, ?)`,
			meetingID, uttID,
		); err != nil {
			return 0, fmt.Errorf("linking utterance %s: %w", uttID, err)
		}
		if prevID != "" {
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO next_utterances (from_id, to_id) VALUES (?, ?)`,
				prevID, uttID,
			); err != nil {
				return 0, fmt.Errorf("chaining utterance %s: %w", uttID, err)
			}
		}
		if seg.Speaker != "" {
			if err := upsertSpeaker(tx, seg.Speaker, uttID); err != nil {
				return 0, err
			}
		}
		prevID = uttID
	}

	// Count inside the tx so the caller sees what actually committed.
	var count int
	if err := tx.QueryRow(
		`SELECT COUNT(*) FROM contains WHERE meeting_id = ?`, meetingID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting utterances: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("ingesting transcript: %w", err)
	}
	s.log.Info().Str("meeting_id", meetingID).Int("utterances", count).Msg("transcript ingested")
	return count, nil
}

func upsertSpeaker(tx *sql.Tx, name, uttID string) error {
	if _, err := tx.Exec(
		`INSERT INTO people (name, role) VALUES (?, 'Member')
		 ON CONFLICT (name) DO NOTHING`,
		name,
	); err != nil {
		return fmt.Errorf("upserting speaker %q: %w", name, err)
	}
	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO spoke (person_name, utterance_id) VALUES (?, ?)`,
		name, uttID,
	); err != nil {
		return fmt.Errorf("linking speaker %q: %w", name, err)
	}
	return nil
}

// IngestExtraction stores an analysis result for a meeting in a single
// transaction. Topic titles, task descriptions, decision descriptions and
// entity names are scoped to the meeting before use as keys; person names
// stay global.
func (s *Store) IngestExtraction(meetingID string, res AnalysisResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("ingesting extraction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range res.People {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		if p.Role != "" {
			_, err = tx.Exec(
				`INSERT INTO people (name, role) VALUES (?, ?)
				 ON CONFLICT (name) DO UPDATE SET role = excluded.role`,
				name, p.Role,
			)
		} else {
			_, err = tx.Exec(
				`INSERT INTO people (name, role) VALUES (?, 'Member')
				 ON CONFLICT (name) DO NOTHING`,
				name,
			)
		}
		if err != nil {
			return fmt.Errorf("upserting person %q: %w", name, err)
		}
	}

	for _, t := range res.Topics {
		key := EncodeScopedKey(meetingID, t.Title)
		if key == "" {
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO topics (title, summary) VALUES (?, ?)
			 ON CONFLICT (title) DO UPDATE SET summary = excluded.summary`,
			key, t.Summary,
		); err != nil {
			return fmt.Errorf("upserting topic %q: %w", t.Title, err)
		}
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO discussed (meeting_id, topic_title) VALUES (?, ?)`,
			meetingID, key,
		); err != nil {
			return fmt.Errorf("linking topic %q: %w", t.Title, err)
		}
		if proposer := strings.TrimSpace(t.Proposer); proposer != "" {
			if _, err := tx.Exec(
				`INSERT INTO people (name, role) VALUES (?, 'Member')
				 ON CONFLICT (name) DO NOTHING`,
				proposer,
			); err != nil {
				return fmt.Errorf("upserting proposer %q: %w", proposer, err)
			}
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO proposed (person_name, topic_title) VALUES (?, ?)`,
				proposer, key,
			); err != nil {
				return fmt.Errorf("linking proposer %q: %w", proposer, err)
			}
		}
	}

	for _, d := range res.Decisions {
		key := EncodeScopedKey(meetingID, d.Description)
		if key == "" {
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO decisions (description) VALUES (?)
			 ON CONFLICT (description) DO NOTHING`,
			key,
		); err != nil {
			return fmt.Errorf("upserting decision: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO has_decisions (meeting_id, decision_description) VALUES (?, ?)`,
			meetingID, key,
		); err != nil {
			return fmt.Errorf("linking decision: %w", err)
		}
		if topic := strings.TrimSpace(d.RelatedTopic); topic != "" {
			topicKey := EncodeScopedKey(meetingID, topic)
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO resulted_in (topic_title, decision_description)
				 SELECT title, ? FROM topics WHERE title = ?`,
				key, topicKey,
			); err != nil {
				return fmt.Errorf("linking decision to topic %q: %w", topic, err)
			}
		}
	}

	for _, t := range res.Tasks {
		key := EncodeScopedKey(meetingID, t.Description)
		if key == "" {
			continue
		}
		status := NormalizeTaskStatus(t.Status)
		if _, err := tx.Exec(
			`INSERT INTO tasks (description, deadline, status) VALUES (?, ?, ?)
			 ON CONFLICT (description) DO UPDATE SET deadline = excluded.deadline, status = excluded.status`,
			key, t.Deadline, status,
		); err != nil {
			return fmt.Errorf("upserting task: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO has_tasks (meeting_id, task_description) VALUES (?, ?)`,
			meetingID, key,
		); err != nil {
			return fmt.Errorf("linking task: %w", err)
		}
		if assignee := strings.TrimSpace(t.Assignee); assignee != "" {
			if _, err := tx.Exec(
				`INSERT INTO people (name, role) VALUES (?, 'Member')
				 ON CONFLICT (name) DO NOTHING`,
				assignee,
			); err != nil {
				return fmt.Errorf("upserting assignee %q: %w", assignee, err)
			}
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO assigned_to (task_description, person_name) VALUES (?, ?)`,
				key, assignee,
			); err != nil {
				return fmt.Errorf("linking assignee %q: %w", assignee, err)
			}
		}
	}

	for _, e := range res.Entities {
		key := EncodeScopedKey(meetingID, e.Name)
		if key == "" {
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO entities (name, entity_type, description) VALUES (?, ?, ?)
			 ON CONFLICT (name) DO UPDATE SET entity_type = excluded.entity_type, description = excluded.description`,
			key, e.EntityType, e.Description,
		); err != nil {
			return fmt.Errorf("upserting entity %q: %w", e.Name, err)
		}
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO has_entities (meeting_id, entity_name) VALUES (?, ?)`,
			meetingID, key,
		); err != nil {
			return fmt.Errorf("linking entity %q: %w", e.Name, err)
		}
		// Mention edges: the entity name appearing in a topic's title or
		// summary links the two.
		lowerName := strings.ToLower(strings.TrimSpace(e.Name))
		for _, t := range res.Topics {
			haystack := strings.ToLower(t.Title + " " + t.Summary)
			if lowerName == "" || !strings.Contains(haystack, lowerName) {
				continue
			}
			topicKey := EncodeScopedKey(meetingID, t.Title)
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO mentions (topic_title, entity_name) VALUES (?, ?)`,
				topicKey, key,
			); err != nil {
				return fmt.Errorf("linking mention %q: %w", e.Name, err)
			}
		}
	}

	for _, r := range res.Relations {
		src := EncodeScopedKey(meetingID, r.Source)
		dst := EncodeScopedKey(meetingID, r.Target)
		rel := strings.TrimSpace(r.RelationType)
		if src == "" || dst == "" || rel == "" {
			continue
		}
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO entity_relations (source_name, target_name, relation_type)
			 SELECT a.name, b.name, ?
			 FROM entities a, entities b WHERE a.name = ? AND b.name = ?`,
			rel, src, dst,
		); err != nil {
			return fmt.Errorf("linking relation %q: %w", rel, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ingesting extraction: %w", err)
	}
	s.log.Info().Str("meeting_id", meetingID).
		Int("topics", len(res.Topics)).Int("tasks", len(res.Tasks)).
		Int("decisions", len(res.Decisions)).Int("entities", len(res.Entities)).
		Msg("extraction ingested")
	return nil
}
