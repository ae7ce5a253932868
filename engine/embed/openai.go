package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ArchonAI/archon-engine/pkg/resilience"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// openAIModelDimensions maps known hosted embedding models to their output
// dimension.
var openAIModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Hosted is an OpenAI-compatible embedding API provider. Outbound calls are
// rate limited and wrapped in a circuit breaker; transport is instrumented
// with otelhttp.
type Hosted struct {
	apiKey  string
	model   string
	baseURL string
	dim     int
	client  *http.Client
	limiter *resilience.Limiter
	breaker *resilience.Breaker
}

// HostedOpts configures the hosted provider.
type HostedOpts struct {
	APIKey  string
	Model   string
	BaseURL string
	// Dimension overrides the model lookup; needed for unknown models.
	Dimension int
	// RatePerSec caps request rate; 0 means no limit.
	RatePerSec float64
}

// NewHosted creates a hosted provider. APIKey is required.
func NewHosted(opts HostedOpts) (*Hosted, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("embed: hosted provider requires an API key")
	}
	if opts.Model == "" {
		opts.Model = "text-embedding-3-small"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	dim := opts.Dimension
	if dim == 0 {
		var ok bool
		if dim, ok = openAIModelDimensions[opts.Model]; !ok {
			dim = 1536
		}
	}

	var limiter *resilience.Limiter
	if opts.RatePerSec > 0 {
		limiter = resilience.NewLimiter(resilience.LimiterOpts{Rate: opts.RatePerSec, Burst: int(opts.RatePerSec) + 1})
	}

	return &Hosted{
		apiKey:  opts.APIKey,
		model:   opts.Model,
		baseURL: opts.BaseURL,
		dim:     dim,
		client: &http.Client{
			Timeout:   60 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: limiter,
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
	}, nil
}

func (h *Hosted) Name() string   { return "openai" }
func (h *Hosted) Model() string  { return h.model }
func (h *Hosted) Dimension() int { return h.dim }

type embeddingRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// EmbedOne embeds a single text.
func (h *Hosted) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := h.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embed: no embedding returned")
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one API call. The response is re-ordered by the
// API's index field so output order always matches input order.
func (h *Hosted) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var resp *embeddingResponse
	err := h.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		resp, err = h.doRequest(ctx, embeddingRequest{
			Input:          texts,
			Model:          h.model,
			EncodingFormat: "float",
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("embed: missing vector for input %d", i)
		}
	}
	return out, nil
}

func (h *Hosted) doRequest(ctx context.Context, reqBody embeddingRequest) (*embeddingResponse, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("embed: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.apiKey)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embed: read response: %w", err)
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("embed: parse response: %w", err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("embed: API error: %s (type=%s code=%s)",
			embResp.Error.Message, embResp.Error.Type, embResp.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed: API status %d", resp.StatusCode)
	}
	return &embResp, nil
}
