package agent

import (
	"context"
	"fmt"
)

const emailSynthesisPrompt = `You write professional, concise emails from meeting evidence.

The previous step prepared this draft request (recipient, subject, topic
and supporting context from the meeting knowledge graph):

%s

Write the full email body. Stay factual: only state what the context
supports. If the context is "(no results)" or empty, say the meetings hold
nothing on the subject instead of inventing content.`

const evidenceSynthesisPrompt = `You are SpeakNode, an assistant that answers questions about recorded meetings.

Evidence retrieved from the meeting knowledge graph:

%s

Answer the user's question from this evidence only. Cite speakers,
meetings or timestamps when they appear in the evidence. If the evidence
is "(no results)" or does not cover the question, say so plainly; never
invent meeting content.`

const directSynthesisPrompt = `You are SpeakNode, an assistant that answers questions about recorded meetings.

Answer conversationally from the dialogue so far. No meeting evidence was
retrieved for this turn, so do not claim knowledge of meeting content.`

// synthesize produces the final answer with a tool-specific template.
func (o *Orchestrator) synthesize(ctx context.Context, state *State) error {
	var system string
	switch {
	case state.ToolName == "draft_email":
		system = fmt.Sprintf(emailSynthesisPrompt, state.Context)
	case state.Context == "":
		system = directSynthesisPrompt
	default:
		system = fmt.Sprintf(evidenceSynthesisPrompt, state.Context)
	}

	answer, err := o.completer.CompleteMessages(ctx, system, windowed(state.Messages), o.synthesizerModel, o.synthesizerTemp)
	if err != nil {
		return fmt.Errorf("synthesizing answer: %w", err)
	}
	state.FinalAnswer = answer
	return nil
}
