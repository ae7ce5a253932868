package embed

import (
	"context"
	"hash/fnv"
	"math"
)

// Offline is a local provider producing deterministic pseudo-vectors from a
// text hash. It never fails and needs no credentials, which makes it the
// fallback of last resort and the provider of choice in tests.
type Offline struct {
	dim int
}

// NewOffline creates an offline provider emitting unit vectors of dim.
func NewOffline(dim int) *Offline {
	if dim <= 0 {
		dim = 768
	}
	return &Offline{dim: dim}
}

func (o *Offline) Name() string   { return OfflineName }
func (o *Offline) Model() string  { return "deterministic-fnv" }
func (o *Offline) Dimension() int { return o.dim }

// EmbedOne returns the deterministic vector for text.
func (o *Offline) EmbedOne(_ context.Context, text string) ([]float32, error) {
	return deterministicVector(text, o.dim), nil
}

// EmbedBatch returns one vector per text, in input order.
func (o *Offline) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = deterministicVector(t, o.dim)
	}
	return out, nil
}

// deterministicVector expands an FNV hash of the text through an LCG and
// normalizes to a unit vector, so identical texts always embed identically.
func deterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vec := make([]float32, dim)
	var sumSquares float64
	for i := range vec {
		seed = seed*1664525 + 1013904223
		v := float32(seed%2000)/1000.0 - 1.0
		vec[i] = v
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(1.0 / math.Sqrt(sumSquares))
		for i := range vec {
			vec[i] *= norm
		}
	}
	return vec
}
