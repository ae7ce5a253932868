package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// CustomEndpoint is a provider backed by a self-hosted embedding service
// speaking a minimal JSON contract: POST {"model": ..., "texts": [...]}
// returns {"embeddings": [[...], ...]}.
type CustomEndpoint struct {
	name   string
	url    string
	model  string
	dim    int
	client *http.Client
}

// NewCustomEndpoint creates a custom-endpoint provider registered under name.
func NewCustomEndpoint(name, url, model string, dim int) *CustomEndpoint {
	if name == "" {
		name = "custom"
	}
	return &CustomEndpoint{
		name:  name,
		url:   url,
		model: model,
		dim:   dim,
		client: &http.Client{
			Timeout:   60 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *CustomEndpoint) Name() string   { return c.name }
func (c *CustomEndpoint) Model() string  { return c.model }
func (c *CustomEndpoint) Dimension() int { return c.dim }

type customRequest struct {
	Model string   `json:"model,omitempty"`
	Texts []string `json:"texts"`
}

type customResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EmbedOne embeds a single text.
func (c *CustomEndpoint) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embed: custom endpoint returned no vectors")
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one call. The endpoint's response order is the
// contract; a count mismatch fails the batch.
func (c *CustomEndpoint) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(customRequest{Model: c.model, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("embed: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: custom endpoint: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed: custom endpoint status %d", resp.StatusCode)
	}

	var out customResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embed: decode response: %w", err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed: custom endpoint returned %d vectors for %d texts", len(out.Embeddings), len(texts))
	}
	return out.Embeddings, nil
}
