package store

import (
	"fmt"
)

// SchemaVersion is the current dump format. Version 2 dumps (written
// before entity extraction existed) restore cleanly with empty entity
// sections.
const SchemaVersion = 3

// Dump is the portable snapshot of one dataset. Keys stay raw (scoped)
// so a restore reproduces the graph byte for byte.
type Dump struct {
	SchemaVersion int               `json:"schema_version"`
	Meetings      []Meeting         `json:"meetings"`
	People        []Person          `json:"people"`
	Topics        []TopicRecord     `json:"topics"`
	Decisions     []DecisionRecord  `json:"decisions"`
	Tasks         []TaskRecord      `json:"tasks"`
	Entities      []EntityRecord    `json:"entities"`
	Relations     []Relation        `json:"relations"`
	Mentions      []MentionRecord   `json:"mentions"`
	Utterances    []UtteranceRecord `json:"utterances"`
}

// TopicRecord is one topic row plus its edges.
type TopicRecord struct {
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	MeetingID string   `json:"meeting_id"`
	Proposers []string `json:"proposers,omitempty"`
}

// DecisionRecord is one decision row plus its edges.
type DecisionRecord struct {
	Description string `json:"description"`
	MeetingID   string `json:"meeting_id"`
	Topic       string `json:"topic,omitempty"`
}

// TaskRecord is one task row plus its edges.
type TaskRecord struct {
	Description string `json:"description"`
	Deadline    string `json:"deadline"`
	Status      string `json:"status"`
	MeetingID   string `json:"meeting_id"`
	Assignees   []string `json:"assignees,omitempty"`
}

// EntityRecord is one entity row plus its meeting edge.
type EntityRecord struct {
	Name        string `json:"name"`
	EntityType  string `json:"entity_type"`
	Description string `json:"description"`
	MeetingID   string `json:"meeting_id"`
}

// MentionRecord links a topic to an entity it mentions, by raw keys.
type MentionRecord struct {
	Topic  string `json:"topic"`
	Entity string `json:"entity"`
}

// UtteranceRecord is one utterance row plus its meeting edge. Embedding is
// omitted when the dump was exported without vectors.
type UtteranceRecord struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Start     float64   `json:"start"`
	End       float64   `json:"end"`
	Speaker   string    `json:"speaker,omitempty"`
	MeetingID string    `json:"meeting_id"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// ExportDump snapshots the whole dataset. includeEmbeddings controls
// whether utterance vectors ride along; dumps without them restore with
// zero vectors.
func (s *Store) ExportDump(includeEmbeddings bool) (*Dump, error) {
	d := &Dump{SchemaVersion: SchemaVersion}

	if err := s.exportMeetings(d); err != nil {
		return nil, err
	}
	if err := s.exportPeople(d); err != nil {
		return nil, err
	}
	if err := s.exportTopics(d); err != nil {
		return nil, err
	}
	if err := s.exportDecisions(d); err != nil {
		return nil, err
	}
	if err := s.exportTasks(d); err != nil {
		return nil, err
	}
	if err := s.exportEntities(d); err != nil {
		return nil, err
	}
	if err := s.exportUtterances(d, includeEmbeddings); err != nil {
		return nil, err
	}
	return d, nil
}

// Export queries bypass the clamped list getters so a snapshot always
// carries every row, however large the dataset.
func (s *Store) exportMeetings(d *Dump) error {
	rows, err := s.db.Query(`SELECT id, title, date, source_file FROM meetings ORDER BY id`)
	if err != nil {
		return fmt.Errorf("exporting meetings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m Meeting
		if err := rows.Scan(&m.ID, &m.Title, &m.Date, &m.SourceFile); err != nil {
			return fmt.Errorf("exporting meetings: %w", err)
		}
		d.Meetings = append(d.Meetings, m)
	}
	return rows.Err()
}

func (s *Store) exportPeople(d *Dump) error {
	rows, err := s.db.Query(`SELECT name, role FROM people ORDER BY name`)
	if err != nil {
		return fmt.Errorf("exporting people: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.Name, &p.Role); err != nil {
			return fmt.Errorf("exporting people: %w", err)
		}
		d.People = append(d.People, p)
	}
	return rows.Err()
}

func (s *Store) exportTopics(d *Dump) error {
	rows, err := s.db.Query(`SELECT title, summary FROM topics ORDER BY title`)
	if err != nil {
		return fmt.Errorf("exporting topics: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec TopicRecord
		if err := rows.Scan(&rec.Title, &rec.Summary); err != nil {
			return fmt.Errorf("exporting topics: %w", err)
		}
		rec.MeetingID = ExtractScope(rec.Title)
		ps, err := s.TopicProposers(rec.Title)
		if err != nil {
			return err
		}
		for _, p := range ps {
			rec.Proposers = append(rec.Proposers, p.Name)
		}
		d.Topics = append(d.Topics, rec)
	}
	return rows.Err()
}

func (s *Store) exportDecisions(d *Dump) error {
	rows, err := s.db.Query(
		`SELECT dc.description, COALESCE(r.topic_title, '')
		 FROM decisions dc LEFT JOIN resulted_in r ON r.decision_description = dc.description
		 ORDER BY dc.description`,
	)
	if err != nil {
		return fmt.Errorf("exporting decisions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec DecisionRecord
		if err := rows.Scan(&rec.Description, &rec.Topic); err != nil {
			return fmt.Errorf("exporting decisions: %w", err)
		}
		rec.MeetingID = ExtractScope(rec.Description)
		d.Decisions = append(d.Decisions, rec)
	}
	return rows.Err()
}

func (s *Store) exportTasks(d *Dump) error {
	rows, err := s.db.Query(`SELECT description, deadline, status FROM tasks ORDER BY description`)
	if err != nil {
		return fmt.Errorf("exporting tasks: %w", err)
	}
	defer rows.Close()
	var recs []TaskRecord
	for rows.Next() {
		var rec TaskRecord
		if err := rows.Scan(&rec.Description, &rec.Deadline, &rec.Status); err != nil {
			return fmt.Errorf("exporting tasks: %w", err)
		}
		rec.MeetingID = ExtractScope(rec.Description)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range recs {
		arows, err := s.db.Query(
			`SELECT person_name FROM assigned_to WHERE task_description = ? ORDER BY person_name`,
			recs[i].Description,
		)
		if err != nil {
			return fmt.Errorf("exporting task assignees: %w", err)
		}
		for arows.Next() {
			var name string
			if err := arows.Scan(&name); err != nil {
				arows.Close()
				return fmt.Errorf("exporting task assignees: %w", err)
			}
			recs[i].Assignees = append(recs[i].Assignees, name)
		}
		if err := arows.Err(); err != nil {
			arows.Close()
			return err
		}
		arows.Close()
	}
	d.Tasks = recs
	return nil
}

func (s *Store) exportEntities(d *Dump) error {
	rows, err := s.db.Query(`SELECT name, entity_type, description FROM entities ORDER BY name`)
	if err != nil {
		return fmt.Errorf("exporting entities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec EntityRecord
		if err := rows.Scan(&rec.Name, &rec.EntityType, &rec.Description); err != nil {
			return fmt.Errorf("exporting entities: %w", err)
		}
		rec.MeetingID = ExtractScope(rec.Name)
		d.Entities = append(d.Entities, rec)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	rrows, err := s.db.Query(
		`SELECT source_name, target_name, relation_type FROM entity_relations ORDER BY source_name, target_name`,
	)
	if err != nil {
		return fmt.Errorf("exporting relations: %w", err)
	}
	defer rrows.Close()
	for rrows.Next() {
		var r Relation
		if err := rrows.Scan(&r.Source, &r.Target, &r.RelationType); err != nil {
			return fmt.Errorf("exporting relations: %w", err)
		}
		d.Relations = append(d.Relations, r)
	}
	if err := rrows.Err(); err != nil {
		return err
	}

	mrows, err := s.db.Query(`SELECT topic_title, entity_name FROM mentions ORDER BY topic_title, entity_name`)
	if err != nil {
		return fmt.Errorf("exporting mentions: %w", err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var m MentionRecord
		if err := mrows.Scan(&m.Topic, &m.Entity); err != nil {
			return fmt.Errorf("exporting mentions: %w", err)
		}
		d.Mentions = append(d.Mentions, m)
	}
	return mrows.Err()
}

func (s *Store) exportUtterances(d *Dump, includeEmbeddings bool) error {
	rows, err := s.db.Query(
		`SELECT u.id, u.text, u.start_time, u.end_time, u.speaker, u.embedding, COALESCE(c.meeting_id, '')
		 FROM utterances u LEFT JOIN contains c ON c.utterance_id = u.id
		 ORDER BY u.id`,
	)
	if err != nil {
		return fmt.Errorf("exporting utterances: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec UtteranceRecord
		var blob []byte
		if err := rows.Scan(&rec.ID, &rec.Text, &rec.Start, &rec.End, &rec.Speaker, &blob, &rec.MeetingID); err != nil {
			return fmt.Errorf("exporting utterances: %w", err)
		}
		if includeEmbeddings {
			rec.Embedding = decodeEmbedding(blob)
		}
		d.Utterances = append(d.Utterances, rec)
	}
	return rows.Err()
}

// RestoreDump replaces the dataset's contents with the dump's, in one
// transaction. Utterances without vectors get a zero vector so semantic
// search stays well-defined, with a warning per substitution batch.
func (s *Store) RestoreDump(d *Dump) error {
	if d.SchemaVersion > SchemaVersion {
		return fmt.Errorf("restoring dump: schema version %d is newer than supported %d", d.SchemaVersion, SchemaVersion)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("restoring dump: %w", err)
	}
	defer tx.Rollback()

	tables := []string{
		"entity_relations", "mentions", "has_entities", "has_decisions", "has_tasks",
		"contains", "discussed", "next_utterances", "spoke", "resulted_in",
		"assigned_to", "proposed", "utterances", "entities", "decisions",
		"tasks", "topics", "people", "meetings",
	}
	for _, t := range tables {
		if _, err := tx.Exec("DELETE FROM " + t); err != nil {
			return fmt.Errorf("clearing %s: %w", t, err)
		}
	}

	for _, m := range d.Meetings {
		if _, err := tx.Exec(
			`INSERT INTO meetings (id, title, date, source_file) VALUES (?, ?, ?, ?)`,
			m.ID, m.Title, m.Date, m.SourceFile,
		); err != nil {
			return fmt.Errorf("restoring meeting %s: %w", m.ID, err)
		}
	}
	for _, p := range d.People {
		if _, err := tx.Exec(
			`INSERT INTO people (name, role) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`,
			p.Name, p.Role,
		); err != nil {
			return fmt.Errorf("restoring person %q: %w", p.Name, err)
		}
	}
	for _, t := range d.Topics {
		if _, err := tx.Exec(
			`INSERT INTO topics (title, summary) VALUES (?, ?)
			 ON CONFLICT (title) DO UPDATE SET summary = excluded.summary`,
			t.Title, t.Summary,
		); err != nil {
			return fmt.Errorf("restoring topic: %w", err)
		}
		if t.MeetingID != "" {
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO discussed (meeting_id, topic_title) VALUES (?, ?)`,
				t.MeetingID, t.Title,
			); err != nil {
				return fmt.Errorf("restoring topic edge: %w", err)
			}
		}
		for _, name := range t.Proposers {
			if _, err := tx.Exec(
				`INSERT INTO people (name, role) VALUES (?, 'Member') ON CONFLICT (name) DO NOTHING`,
				name,
			); err != nil {
				return fmt.Errorf("restoring proposer: %w", err)
			}
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO proposed (person_name, topic_title) VALUES (?, ?)`,
				name, t.Title,
			); err != nil {
				return fmt.Errorf("restoring proposer edge: %w", err)
			}
		}
	}
	for _, dc := range d.Decisions {
		if _, err := tx.Exec(
			`INSERT INTO decisions (description) VALUES (?) ON CONFLICT (description) DO NOTHING`,
			dc.Description,
		); err != nil {
			return fmt.Errorf("restoring decision: %w", err)
		}
		if dc.MeetingID != "" {
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO has_decisions (meeting_id, decision_description) VALUES (?, ?)`,
				dc.MeetingID, dc.Description,
			); err != nil {
				return fmt.Errorf("restoring decision edge: %w", err)
			}
		}
		if dc.Topic != "" {
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO resulted_in (topic_title, decision_description) VALUES (?, ?)`,
				dc.Topic, dc.Description,
			); err != nil {
				return fmt.Errorf("restoring decision topic edge: %w", err)
			}
		}
	}
	for _, t := range d.Tasks {
		if _, err := tx.Exec(
			`INSERT INTO tasks (description, deadline, status) VALUES (?, ?, ?)
			 ON CONFLICT (description) DO UPDATE SET deadline = excluded.deadline, status = excluded.status`,
			t.Description, t.Deadline, NormalizeTaskStatus(t.Status),
		); err != nil {
			return fmt.Errorf("restoring task: %w", err)
		}
		if t.MeetingID != "" {
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO has_tasks (meeting_id, task_description) VALUES (?, ?)`,
				t.MeetingID, t.Description,
			); err != nil {
				return fmt.Errorf("restoring task edge: %w", err)
			}
		}
		for _, name := range t.Assignees {
			if _, err := tx.Exec(
				`INSERT INTO people (name, role) VALUES (?, 'Member') ON CONFLICT (name) DO NOTHING`,
				name,
			); err != nil {
				return fmt.Errorf("restoring assignee: %w", err)
			}
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO assigned_to (task_description, person_name) VALUES (?, ?)`,
				t.Description, name,
			); err != nil {
				return fmt.Errorf("restoring assignee edge: %w", err)
			}
		}
	}
	for _, e := range d.Entities {
		if _, err := tx.Exec(
			`INSERT INTO entities (name, entity_type, description) VALUES (?, ?, ?)
			 ON CONFLICT (name) DO UPDATE SET entity_type = excluded.entity_type, description = excluded.description`,
			e.Name, e.EntityType, e.Description,
		); err != nil {
			return fmt.Errorf("restoring entity: %w", err)
		}
		if e.MeetingID != "" {
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO has_entities (meeting_id, entity_name) VALUES (?, ?)`,
				e.MeetingID, e.Name,
			); err != nil {
				return fmt.Errorf("restoring entity edge: %w", err)
			}
		}
	}
	for _, r := range d.Relations {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO entity_relations (source_name, target_name, relation_type) VALUES (?, ?, ?)`,
			r.Source, r.Target, r.RelationType,
		); err != nil {
			return fmt.Errorf("restoring relation: %w", err)
		}
	}
	for _, m := range d.Mentions {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO mentions (topic_title, entity_name) VALUES (?, ?)`,
			m.Topic, m.Entity,
		); err != nil {
			return fmt.Errorf("restoring mention: %w", err)
		}
	}

	zeroed := 0
	var prevID string
	var prevMeeting string
	for _, u := range d.Utterances {
		vec := u.Embedding
		if len(vec) == 0 && s.dims > 0 {
			vec = make([]float32, s.dims)
			zeroed++
		}
		if _, err := tx.Exec(
			`INSERT INTO utterances (id, text, start_time, end_time, speaker, embedding)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET text = excluded.text, embedding = excluded.embedding`,
			u.ID, u.Text, u.Start, u.End, u.Speaker, encodeEmbedding(vec),
		); err != nil {
			return fmt.Errorf("restoring utterance %s: %w", u.ID, err)
		}
		if u.MeetingID != "" {
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO contains (meeting_id, utterance_id) VALUES (?, ?)`,
				u.MeetingID, u.ID,
			); err != nil {
				return fmt.Errorf("restoring utterance edge: %w", err)
			}
		}
		if u.Speaker != "" {
			if err := upsertSpeaker(tx, u.Speaker, u.ID); err != nil {
				return err
			}
		}
		if prevID != "" && prevMeeting == u.MeetingID {
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO next_utterances (from_id, to_id) VALUES (?, ?)`,
				prevID, u.ID,
			); err != nil {
				return fmt.Errorf("restoring utterance chain: %w", err)
			}
		}
		prevID, prevMeeting = u.ID, u.MeetingID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("restoring dump: %w", err)
	}
	if zeroed > 0 {
		s.log.Warn().Int("utterances", zeroed).
			Msg("dump carried no embeddings; zero vectors substituted, semantic search will be degraded")
	}
	s.log.Info().Int("meetings", len(d.Meetings)).Int("utterances", len(d.Utterances)).Msg("dump restored")
	return nil
}
