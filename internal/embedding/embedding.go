// Package embedding provides a pluggable interface for text embedding providers.
package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/rcliao/mindtrace/internal/config"
)

// Vector is a float32 embedding vector.
type Vector = []float32

// Embedder generates embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dims() int
}

// Similarity scores two vectors in [-1, 1].
type Similarity func(a, b Vector) float64

// CosineSimilarity computes cosine similarity between two vectors.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// NewFromConfig builds the configured embedder. Every provider is wrapped in
// Pooled so long session text is segmented before embedding.
func NewFromConfig(c config.Embed) (Embedder, error) {
	var base Embedder
	switch c.Provider {
	case "", "hash":
		base = NewHashEmbedder(c.Dims)
	case "ollama":
		model := c.Model
		if model == "" {
			model = "nomic-embed-text"
		}
		base = NewOllamaEmbedder(HTTPOptions{BaseURL: c.URL, Model: model, Dims: c.Dims, RatePerSecond: c.RatePerSecond})
	case "openai":
		base = NewOpenAIEmbedder(HTTPOptions{BaseURL: c.URL, APIKey: c.APIKey, Model: c.Model, Dims: c.Dims, RatePerSecond: c.RatePerSecond})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", c.Provider)
	}
	return NewPooled(base, c.SegmentChars), nil
}
