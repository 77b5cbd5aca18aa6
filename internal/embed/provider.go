// Package embed turns text into vectors via an OpenAI-compatible
// embeddings endpoint and caches the heavyweight client process-wide.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider produces embedding vectors. All vectors from one provider share
// a single dimensionality.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// HTTPProvider calls an OpenAI-compatible /v1/embeddings endpoint, such as
// a local Ollama or TEI server.
type HTTPProvider struct {
	endpoint string
	model    string
	dims     int
	client   *http.Client
}

// NewHTTPProvider builds a provider for the given endpoint and model. dims
// is the expected vector length; a response with a different length is an
// error, since silently mixing dimensionalities corrupts search.
func NewHTTPProvider(endpoint, model string, dims int) *HTTPProvider {
	return &HTTPProvider{
		endpoint: endpoint,
		model:    model,
		dims:     dims,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Dimensions returns the vector length this provider was configured for.
func (p *HTTPProvider) Dimensions() int {
	return p.dims
}

// Embed returns the vector for a single text.
func (p *HTTPProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch returns one vector per input text, in input order.
func (p *HTTPProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embeddingRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("encoding embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling embedding endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("embedding endpoint returned %d: %s", resp.StatusCode, msg)
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding embedding response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embedding endpoint returned %d vectors for %d inputs", len(parsed.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding endpoint returned out-of-range index %d", d.Index)
		}
		if len(d.Embedding) != p.dims {
			return nil, fmt.Errorf("embedding dimensionality mismatch: got %d, want %d", len(d.Embedding), p.dims)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
