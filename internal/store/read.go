package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const (
	defaultListLimit = 25
	maxListLimit     = 200
)

// ErrNodeNotFound reports a lookup whose key matched nothing.
var ErrNodeNotFound = errors.New("node not found")

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// Topics lists topics, optionally filtered by a case-insensitive keyword
// against the decoded title or summary.
func (s *Store) Topics(keyword string, limit int) ([]Topic, error) {
	rows, err := s.db.Query(
		`SELECT title, summary FROM topics
		 WHERE ? = '' OR instr(lower(title), lower(?)) > 0 OR instr(lower(summary), lower(?)) > 0
		 ORDER BY title LIMIT ?`,
		keyword, keyword, keyword, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("listing topics: %w", err)
	}
	defer rows.Close()

	var out []Topic
	for rows.Next() {
		var key, summary string
		if err := rows.Scan(&key, &summary); err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		out = append(out, Topic{
			ID:        key,
			Title:     DecodeScopedKey(key),
			Summary:   summary,
			MeetingID: ExtractScope(key),
		})
	}
	return out, rows.Err()
}

// Tasks lists tasks with their assignees, optionally keyword-filtered
// against the decoded description.
func (s *Store) Tasks(keyword string, limit int) ([]Task, error) {
	rows, err := s.db.Query(
		`SELECT t.description, t.deadline, t.status, COALESCE(a.person_name, '')
		 FROM tasks t LEFT JOIN assigned_to a ON a.task_description = t.description
		 WHERE ? = '' OR instr(lower(t.description), lower(?)) > 0
		 ORDER BY t.description LIMIT ?`,
		keyword, keyword, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func scanTasks(rows *sql.Rows) ([]Task, error) {
	var out []Task
	for rows.Next() {
		var key, deadline, status, assignee string
		if err := rows.Scan(&key, &deadline, &status, &assignee); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		out = append(out, Task{
			ID:          key,
			Description: DecodeScopedKey(key),
			Deadline:    deadline,
			Status:      status,
			Assignee:    assignee,
			MeetingID:   ExtractScope(key),
		})
	}
	return out, rows.Err()
}

// People lists people, optionally keyword-filtered by name or role.
func (s *Store) People(keyword string, limit int) ([]Person, error) {
	rows, err := s.db.Query(
		`SELECT name, role FROM people
		 WHERE ? = '' OR instr(lower(name), lower(?)) > 0 OR instr(lower(role), lower(?)) > 0
		 ORDER BY name LIMIT ?`,
		keyword, keyword, keyword, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("listing people: %w", err)
	}
	defer rows.Close()

	var out []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.Name, &p.Role); err != nil {
			return nil, fmt.Errorf("scanning person: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Meetings lists meetings newest first, optionally keyword-filtered by
// title or source file.
func (s *Store) Meetings(keyword string, limit int) ([]Meeting, error) {
	rows, err := s.db.Query(
		`SELECT id, title, date, source_file FROM meetings
		 WHERE ? = '' OR instr(lower(title), lower(?)) > 0 OR instr(lower(source_file), lower(?)) > 0
		 ORDER BY date DESC, id LIMIT ?`,
		keyword, keyword, keyword, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("listing meetings: %w", err)
	}
	defer rows.Close()

	var out []Meeting
	for rows.Next() {
		var m Meeting
		if err := rows.Scan(&m.ID, &m.Title, &m.Date, &m.SourceFile); err != nil {
			return nil, fmt.Errorf("scanning meeting: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Decisions lists decisions, optionally keyword-filtered against the
// decoded description.
func (s *Store) Decisions(keyword string, limit int) ([]Decision, error) {
	rows, err := s.db.Query(
		`SELECT description FROM decisions
		 WHERE ? = '' OR instr(lower(description), lower(?)) > 0
		 ORDER BY description LIMIT ?`,
		keyword, keyword, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("listing decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		out = append(out, Decision{
			ID:          key,
			Description: DecodeScopedKey(key),
			MeetingID:   ExtractScope(key),
		})
	}
	return out, rows.Err()
}

// Entities lists entities, optionally filtered by keyword (name or
// description) and by entity type.
func (s *Store) Entities(keyword, entityType string, limit int) ([]Entity, error) {
	rows, err := s.db.Query(
		`SELECT name, entity_type, description FROM entities
		 WHERE (? = '' OR instr(lower(name), lower(?)) > 0 OR instr(lower(description), lower(?)) > 0)
		   AND (? = '' OR lower(entity_type) = lower(?))
		 ORDER BY name LIMIT ?`,
		keyword, keyword, keyword, entityType, entityType, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		var key, typ, desc string
		if err := rows.Scan(&key, &typ, &desc); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		out = append(out, Entity{
			ID:          key,
			Name:        DecodeScopedKey(key),
			EntityType:  typ,
			Description: desc,
			MeetingID:   ExtractScope(key),
		})
	}
	return out, rows.Err()
}

// EntityRelations lists typed edges between entities, decoded for display.
func (s *Store) EntityRelations(keyword string, limit int) ([]Relation, error) {
	rows, err := s.db.Query(
		`SELECT source_name, target_name, relation_type FROM entity_relations
		 WHERE ? = '' OR instr(lower(source_name), lower(?)) > 0
		   OR instr(lower(target_name), lower(?)) > 0
		   OR instr(lower(relation_type), lower(?)) > 0
		 ORDER BY source_name, target_name LIMIT ?`,
		keyword, keyword, keyword, keyword, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("listing relations: %w", err)
	}
	defer rows.Close()

	var out []Relation
	for rows.Next() {
		var r Relation
		if err := rows.Scan(&r.Source, &r.Target, &r.RelationType); err != nil {
			return nil, fmt.Errorf("scanning relation: %w", err)
		}
		r.Source = DecodeScopedKey(r.Source)
		r.Target = DecodeScopedKey(r.Target)
		out = append(out, r)
	}
	return out, rows.Err()
}

// PersonTasks returns the tasks assigned to one person by exact name.
func (s *Store) PersonTasks(name string) ([]Task, error) {
	rows, err := s.db.Query(
		`SELECT t.description, t.deadline, t.status, a.person_name
		 FROM tasks t JOIN assigned_to a ON a.task_description = t.description
		 WHERE lower(a.person_name) = lower(?)
		 ORDER BY t.description`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("listing tasks for %q: %w", name, err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// TopicDecisions returns the decisions a topic resulted in. The topic is
// named by plain text; scoped keys are matched by their decoded value, so
// the same title in two meetings yields both meetings' decisions.
func (s *Store) TopicDecisions(topicTitle string) ([]Decision, error) {
	rows, err := s.db.Query(
		`SELECT r.topic_title, r.decision_description FROM resulted_in r`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing decisions for topic %q: %w", topicTitle, err)
	}
	defer rows.Close()

	want := strings.ToLower(strings.TrimSpace(topicTitle))
	var out []Decision
	for rows.Next() {
		var topicKey, decisionKey string
		if err := rows.Scan(&topicKey, &decisionKey); err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		if strings.ToLower(DecodeScopedKey(topicKey)) != want {
			continue
		}
		out = append(out, Decision{
			ID:          decisionKey,
			Description: DecodeScopedKey(decisionKey),
			MeetingID:   ExtractScope(decisionKey),
		})
	}
	return out, rows.Err()
}

// TopicProposers returns the people who proposed a topic, matched by its
// raw scoped key.
func (s *Store) TopicProposers(topicKey string) ([]Person, error) {
	rows, err := s.db.Query(
		`SELECT p.name, p.role FROM people p
		 JOIN proposed pr ON pr.person_name = p.name
		 WHERE pr.topic_title = ? ORDER BY p.name`,
		topicKey,
	)
	if err != nil {
		return nil, fmt.Errorf("listing proposers: %w", err)
	}
	defer rows.Close()

	var out []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.Name, &p.Role); err != nil {
			return nil, fmt.Errorf("scanning proposer: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PersonTopics returns the topics one person proposed.
func (s *Store) PersonTopics(name string) ([]Topic, error) {
	rows, err := s.db.Query(
		`SELECT t.title, t.summary FROM topics t
		 JOIN proposed pr ON pr.topic_title = t.title
		 WHERE lower(pr.person_name) = lower(?) ORDER BY t.title`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("listing topics for %q: %w", name, err)
	}
	defer rows.Close()

	var out []Topic
	for rows.Next() {
		var key, summary string
		if err := rows.Scan(&key, &summary); err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		out = append(out, Topic{
			ID:        key,
			Title:     DecodeScopedKey(key),
			Summary:   summary,
			MeetingID: ExtractScope(key),
		})
	}
	return out, rows.Err()
}

// MeetingSummary aggregates everything linked to one meeting. Datasets
// written before the meeting-level edges existed are handled by falling
// back through the DISCUSSED and SPOKE chains.
func (s *Store) MeetingSummary(meetingID string) (*MeetingSummary, error) {
	sum := &MeetingSummary{MeetingID: meetingID}
	err := s.db.QueryRow(
		`SELECT title, date, source_file FROM meetings WHERE id = ?`, meetingID,
	).Scan(&sum.Title, &sum.Date, &sum.SourceFile)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("meeting %s: %w", meetingID, ErrNodeNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading meeting %s: %w", meetingID, err)
	}

	topics, err := s.queryTopicsByMeeting(meetingID)
	if err != nil {
		return nil, err
	}
	sum.Topics = topics

	sum.Decisions, err = s.meetingDecisions(meetingID, topics)
	if err != nil {
		return nil, err
	}
	sum.People, err = s.meetingPeople(meetingID, topics)
	if err != nil {
		return nil, err
	}
	sum.Tasks, err = s.meetingTasks(meetingID, sum.People)
	if err != nil {
		return nil, err
	}
	sum.Entities, err = s.meetingEntities(meetingID)
	if err != nil {
		return nil, err
	}
	return sum, nil
}

func (s *Store) queryTopicsByMeeting(meetingID string) ([]Topic, error) {
	rows, err := s.db.Query(
		`SELECT t.title, t.summary FROM topics t
		 JOIN discussed d ON d.topic_title = t.title
		 WHERE d.meeting_id = ? ORDER BY t.title`,
		meetingID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading meeting topics: %w", err)
	}
	defer rows.Close()

	var out []Topic
	for rows.Next() {
		var key, summary string
		if err := rows.Scan(&key, &summary); err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		out = append(out, Topic{ID: key, Title: DecodeScopedKey(key), Summary: summary, MeetingID: meetingID})
	}
	return out, rows.Err()
}

func (s *Store) meetingDecisions(meetingID string, topics []Topic) ([]Decision, error) {
	rows, err := s.db.Query(
		`SELECT decision_description FROM has_decisions WHERE meeting_id = ? ORDER BY decision_description`,
		meetingID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading meeting decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		out = append(out, Decision{ID: key, Description: DecodeScopedKey(key), MeetingID: meetingID})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) > 0 {
		return out, nil
	}

	// Legacy path: decisions reachable only through the meeting's topics.
	seen := map[string]bool{}
	for _, t := range topics {
		ds, err := s.topicDecisionsByKey(t.ID)
		if err != nil {
			return nil, err
		}
		for _, d := range ds {
			if !seen[d.ID] {
				seen[d.ID] = true
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func (s *Store) topicDecisionsByKey(topicKey string) ([]Decision, error) {
	rows, err := s.db.Query(
		`SELECT decision_description FROM resulted_in WHERE topic_title = ? ORDER BY decision_description`,
		topicKey,
	)
	if err != nil {
		return nil, fmt.Errorf("loading topic decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		out = append(out, Decision{ID: key, Description: DecodeScopedKey(key), MeetingID: ExtractScope(key)})
	}
	return out, rows.Err()
}

func (s *Store) meetingPeople(meetingID string, topics []Topic) ([]Person, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT p.name, p.role FROM people p
		 JOIN spoke sp ON sp.person_name = p.name
		 JOIN contains c ON c.utterance_id = sp.utterance_id
		 WHERE c.meeting_id = ? ORDER BY p.name`,
		meetingID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading meeting people: %w", err)
	}
	defer rows.Close()

	seen := map[string]bool{}
	var out []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.Name, &p.Role); err != nil {
			return nil, fmt.Errorf("scanning person: %w", err)
		}
		seen[p.Name] = true
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Proposers count as participants even without a speaking turn.
	for _, t := range topics {
		ps, err := s.TopicProposers(t.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range ps {
			if !seen[p.Name] {
				seen[p.Name] = true
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (s *Store) meetingTasks(meetingID string, people []Person) ([]Task, error) {
	rows, err := s.db.Query(
		`SELECT t.description, t.deadline, t.status, COALESCE(a.person_name, '')
		 FROM tasks t
		 JOIN has_tasks h ON h.task_description = t.description
		 LEFT JOIN assigned_to a ON a.task_description = t.description
		 WHERE h.meeting_id = ? ORDER BY t.description`,
		meetingID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading meeting tasks: %w", err)
	}
	defer rows.Close()

	out, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}
	if len(out) > 0 {
		return out, nil
	}

	// Legacy path: tasks assigned to this meeting's participants, kept
	// only when the task's scope matches or is absent.
	seen := map[string]bool{}
	for _, p := range people {
		ts, err := s.PersonTasks(p.Name)
		if err != nil {
			return nil, err
		}
		for _, t := range ts {
			if t.MeetingID != "" && t.MeetingID != meetingID {
				continue
			}
			if !seen[t.ID] {
				seen[t.ID] = true
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (s *Store) meetingEntities(meetingID string) ([]Entity, error) {
	rows, err := s.db.Query(
		`SELECT e.name, e.entity_type, e.description FROM entities e
		 JOIN has_entities h ON h.entity_name = e.name
		 WHERE h.meeting_id = ? ORDER BY e.name`,
		meetingID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading meeting entities: %w", err)
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		var key, typ, desc string
		if err := rows.Scan(&key, &typ, &desc); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		out = append(out, Entity{ID: key, Name: DecodeScopedKey(key), EntityType: typ, Description: desc, MeetingID: meetingID})
	}
	return out, rows.Err()
}
