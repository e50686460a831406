package embedding

import (
	"context"
	"fmt"

	"github.com/rcliao/mindtrace/internal/segment"
)

// Pooled embeds long text segment by segment and mean-pools the vectors.
type Pooled struct {
	inner    Embedder
	maxChars int
}

// NewPooled wraps inner. maxChars <= 0 uses segment.DefaultMaxChars.
func NewPooled(inner Embedder, maxChars int) *Pooled {
	return &Pooled{inner: inner, maxChars: maxChars}
}

func (p *Pooled) Embed(ctx context.Context, text string) (Vector, error) {
	parts := segment.Split(text, p.maxChars)
	if len(parts) <= 1 {
		return p.inner.Embed(ctx, text)
	}

	var pooled Vector
	for i, part := range parts {
		v, err := p.inner.Embed(ctx, part)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		if pooled == nil {
			pooled = make(Vector, len(v))
		}
		if len(v) != len(pooled) {
			return nil, fmt.Errorf("segment %d: dimension %d, want %d", i, len(v), len(pooled))
		}
		for j := range v {
			pooled[j] += v[j]
		}
	}
	n := float32(len(parts))
	for j := range pooled {
		pooled[j] /= n
	}
	return pooled, nil
}

func (p *Pooled) Dims() int { return p.inner.Dims() }
