// Package embed defines the embedding provider abstraction, the provider
// registry with deterministic fallback, and the batched embedding generator
// used by the ingestion pipeline.
package embed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ArchonAI/archon-engine/engine/domain"
)

// Provider generates embeddings for texts. EmbedBatch must return exactly one
// vector per input text, in input order, or fail for the whole batch.
// Implementations must be safe for concurrent use.
type Provider interface {
	Name() string
	Model() string
	Dimension() int
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// OfflineName is the registry name of the always-available local provider.
const OfflineName = "offline"

// Registry holds named providers. It is constructed once at startup and
// injected; there is no ambient global registry.
type Registry struct {
	providers map[string]Provider
	log       *slog.Logger
}

// NewRegistry creates a registry from the given providers.
func NewRegistry(log *slog.Logger, providers ...Provider) *Registry {
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{providers: make(map[string]Provider, len(providers)), log: log}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Register adds a provider, replacing any prior registration with that name.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Names returns the registered provider names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	return names
}

// Resolve returns the named provider, falling back to the offline provider
// when the name is unknown (e.g. credentials were never configured). When
// neither is registered it fails with ErrNoProviderAvailable.
func (r *Registry) Resolve(name string) (Provider, error) {
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	if p, ok := r.providers[OfflineName]; ok {
		if name != "" && name != OfflineName {
			r.log.Warn("embed: provider unavailable, falling back", "requested", name, "using", OfflineName)
		}
		return p, nil
	}
	return nil, fmt.Errorf("embed: resolve %q: %w", name, domain.ErrNoProviderAvailable)
}
