package tools

import (
	"context"
)

// EmailDraftTool gathers the evidence an email needs and packages it as a
// draft request. It never sends anything; the synthesizer writes the
// actual email text from this request.
type EmailDraftTool struct{}

func (t *EmailDraftTool) Name() string { return "draft_email" }

func (t *EmailDraftTool) Description() string {
	return "Prepare an email draft about meeting content. Args: recipient, subject, topic (what the email should cover)."
}

type emailDraftRequest struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Topic     string `json:"topic"`
	Context   string `json:"context"`
}

func (t *EmailDraftTool) Execute(ctx context.Context, args map[string]any, deps Deps) (string, error) {
	topic := GetString(args, "topic", GetString(args, "query", ""))
	req := emailDraftRequest{
		Recipient: GetString(args, "recipient", ""),
		Subject:   GetString(args, "subject", ""),
		Topic:     topic,
	}
	if topic != "" {
		req.Context = deps.Search.Fuse(ctx, deps.Store, topic)
	}
	return renderJSON(req)
}

// DirectAnswerTool is the no-op the router picks for greetings and
// questions answerable from conversation history alone.
type DirectAnswerTool struct{}

func (t *DirectAnswerTool) Name() string { return "direct_answer" }

func (t *DirectAnswerTool) Description() string {
	return "Answer directly from the conversation, without consulting the knowledge graph. No args."
}

func (t *DirectAnswerTool) Execute(ctx context.Context, args map[string]any, deps Deps) (string, error) {
	return "", nil
}

// DefaultRegistry builds the standard tool set in its canonical order.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&MeaningSearchTool{})
	r.Register(&StructureSearchTool{})
	r.Register(&HybridSearchTool{})
	r.Register(&QuerySearchTool{})
	r.Register(&MeetingSummaryTool{})
	r.Register(&EmailDraftTool{})
	r.Register(&DirectAnswerTool{})
	return r
}
