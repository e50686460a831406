package embedding

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Text is one item to embed.
type Text struct {
	ID   string
	Text string
}

// EmbedAll embeds every item with at most concurrency requests in flight.
// The first failure cancels the rest.
func EmbedAll(ctx context.Context, e Embedder, items []Text, concurrency int) (map[string]Vector, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	out := make(map[string]Vector, len(items))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, it := range items {
		g.Go(func() error {
			v, err := e.Embed(ctx, it.Text)
			if err != nil {
				return fmt.Errorf("embed %s: %w", it.ID, err)
			}
			mu.Lock()
			out[it.ID] = v
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
