package extract

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Kinder1203/SpeakNode/internal/embed"
	"github.com/Kinder1203/SpeakNode/internal/store"
)

const embedBatchSize = 64

// Pipeline is the full transcript ingestion path: embed segments, create
// the meeting, store the transcript, then analyze and store the extracted
// knowledge.
type Pipeline struct {
	embedder  *embed.Cache
	extractor *Extractor
	log       zerolog.Logger
}

func NewPipeline(embedder *embed.Cache, extractor *Extractor, logger zerolog.Logger) *Pipeline {
	return &Pipeline{embedder: embedder, extractor: extractor, log: logger}
}

// IngestTranscript runs the pipeline against one dataset. The transcript
// commits before analysis starts, so an extraction failure leaves the raw
// transcript searchable; the error still surfaces to the caller.
func (p *Pipeline) IngestTranscript(ctx context.Context, st *store.Store, title, date, sourceFile string, segments []store.Segment) (string, int, error) {
	if len(segments) == 0 {
		return "", 0, fmt.Errorf("ingesting transcript: no segments")
	}

	provider, err := p.embedder.Get()
	if err != nil {
		return "", 0, fmt.Errorf("ingesting transcript: %w", err)
	}

	embeddings := make([][]float32, 0, len(segments))
	for start := 0; start < len(segments); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(segments) {
			end = len(segments)
		}
		texts := make([]string, 0, end-start)
		for _, seg := range segments[start:end] {
			texts = append(texts, seg.Text)
		}
		vecs, err := provider.EmbedBatch(ctx, texts)
		if err != nil {
			return "", 0, fmt.Errorf("embedding segments %d-%d: %w", start, end, err)
		}
		embeddings = append(embeddings, vecs...)
	}

	meetingID, err := st.CreateMeeting(title, date, sourceFile)
	if err != nil {
		return "", 0, err
	}
	count, err := st.IngestTranscript(meetingID, segments, embeddings)
	if err != nil {
		return meetingID, 0, err
	}

	analysis, err := p.extractor.Analyze(ctx, segments)
	if err != nil {
		p.log.Warn().Err(err).Str("meeting_id", meetingID).
			Msg("knowledge extraction failed; transcript stored without graph enrichment")
		return meetingID, count, err
	}
	if err := st.IngestExtraction(meetingID, analysis); err != nil {
		return meetingID, count, err
	}
	return meetingID, count, nil
}
