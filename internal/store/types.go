package store

// Meeting is the root node of one ingested document. Every scoped entity
// in the store carries this id inside its key.
type Meeting struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Date       string `json:"date"`
	SourceFile string `json:"source_file"`
}

// Person is a global node: the same name across meetings refers to the
// same person.
type Person struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Topic is a discussion subject. ID is the raw scoped key; Title is the
// decoded display value.
type Topic struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	MeetingID string `json:"meeting_id"`
}

// Task is an action item extracted from a meeting.
type Task struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Deadline    string `json:"deadline"`
	Status      string `json:"status"`
	Assignee    string `json:"assignee,omitempty"`
	MeetingID   string `json:"meeting_id"`
}

// Decision is a concluded outcome, optionally linked to the topic that
// produced it.
type Decision struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	MeetingID   string `json:"meeting_id"`
}

// Entity is a named concept surfaced by content analysis. Distinct from
// Person: it can be a technology, organization, concept, or event as well.
type Entity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	EntityType  string `json:"entity_type"`
	Description string `json:"description"`
	MeetingID   string `json:"meeting_id"`
}

// Relation is a typed directed edge between two entities.
type Relation struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	RelationType string `json:"relation_type"`
}

// Utterance is a single timestamped transcript segment. Score is only set
// on semantic search results.
type Utterance struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Score float64 `json:"score,omitempty"`
}

// Segment is the speech-to-text collaborator's output shape: one
// timestamped, optionally speaker-tagged chunk of transcript.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// MeetingSummary aggregates everything linked to one meeting.
type MeetingSummary struct {
	MeetingID  string     `json:"meeting_id"`
	Title      string     `json:"title"`
	Date       string     `json:"date"`
	SourceFile string     `json:"source_file"`
	Topics     []Topic    `json:"topics"`
	Decisions  []Decision `json:"decisions"`
	People     []Person   `json:"people"`
	Tasks      []Task     `json:"tasks"`
	Entities   []Entity   `json:"entities"`
}

// AnalysisResult is the knowledge-extraction collaborator's output and the
// input to IngestExtraction.
type AnalysisResult struct {
	Topics    []TopicInput    `json:"topics"`
	Decisions []DecisionInput `json:"decisions"`
	Tasks     []TaskInput     `json:"tasks"`
	People    []PersonInput   `json:"people"`
	Entities  []EntityInput   `json:"entities"`
	Relations []RelationInput `json:"relations"`
}

// TopicInput is one extracted topic with its proposer, if known.
type TopicInput struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Proposer string `json:"proposer,omitempty"`
}

// DecisionInput is one extracted decision, optionally tied to a topic by
// its plain-text title.
type DecisionInput struct {
	Description  string `json:"description"`
	RelatedTopic string `json:"related_topic,omitempty"`
}

// TaskInput is one extracted action item.
type TaskInput struct {
	Description string `json:"description"`
	Assignee    string `json:"assignee,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
	Status      string `json:"status,omitempty"`
}

// PersonInput is one extracted participant.
type PersonInput struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// EntityInput is one extracted named concept.
type EntityInput struct {
	Name        string `json:"name"`
	EntityType  string `json:"entity_type"`
	Description string `json:"description,omitempty"`
}

// RelationInput is one extracted entity-to-entity relation.
type RelationInput struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	RelationType string `json:"relation_type"`
}
