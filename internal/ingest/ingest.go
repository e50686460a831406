// Package ingest turns raw user input into episodic and behavioral memory.
package ingest

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/mindtrace/internal/embedding"
	"github.com/rcliao/mindtrace/internal/log"
	"github.com/rcliao/mindtrace/internal/model"
)

var (
	negativeWords   = []string{"bad", "stuck", "tired", "hate", "nothing"}
	positiveWords   = []string{"good", "better", "calm", "happy", "progress"}
	absolutistTerms = []string{"always", "never", "nothing", "everything"}
)

// EpisodeSource supplies a user's most recent episodic memory, newest first.
type EpisodeSource interface {
	RecentEpisodes(ctx context.Context, userID string, n int) ([]model.EpisodicMemory, error)
}

// Ingestor derives memory records. It does not persist anything.
type Ingestor struct {
	Embedder embedding.Embedder // optional; repetition is 0 without it
	Episodes EpisodeSource      // optional
	Lookback int
	Now      func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

// New returns an ingestor using the wall clock.
func New(e embedding.Embedder, episodes EpisodeSource, lookback int) *Ingestor {
	return &Ingestor{Embedder: e, Episodes: episodes, Lookback: lookback, Now: time.Now}
}

// Ingest creates the episodic record for text and the behavioral record
// derived from it.
func (in *Ingestor) Ingest(ctx context.Context, userID, text, sessionID string) (model.EpisodicMemory, model.BehavioralMemory, error) {
	ts := in.now()
	ep := model.EpisodicMemory{
		ID:        in.newID(ts),
		UserID:    userID,
		Timestamp: ts,
		Text:      text,
		SessionID: sessionID,
	}

	repetition, err := in.repetition(ctx, userID, text)
	if err != nil {
		return model.EpisodicMemory{}, model.BehavioralMemory{}, fmt.Errorf("repetition: %w", err)
	}

	lower := strings.ToLower(text)
	bm := model.BehavioralMemory{
		EntryID:    ep.ID,
		UserID:     userID,
		Timestamp:  ts,
		Sentiment:  Sentiment(lower),
		Repetition: repetition,
		Absolutist: Absolutist(lower),
		TimeBucket: TimeBucket(ts),
	}

	log.FromCtx(ctx).Debug().
		Str("entry", ep.ID).
		Float64("sentiment", bm.Sentiment).
		Float64("repetition", bm.Repetition).
		Bool("absolutist", bm.Absolutist).
		Msg("entry ingested")
	return ep, bm, nil
}

// repetition is the highest non-negative similarity between text and the
// user's recent entries.
func (in *Ingestor) repetition(ctx context.Context, userID, text string) (float64, error) {
	if in.Embedder == nil || in.Episodes == nil || in.Lookback <= 0 {
		return 0, nil
	}
	recent, err := in.Episodes.RecentEpisodes(ctx, userID, in.Lookback)
	if err != nil {
		return 0, err
	}
	if len(recent) == 0 {
		return 0, nil
	}

	current, err := in.Embedder.Embed(ctx, text)
	if err != nil {
		return 0, err
	}

	items := make([]embedding.Text, len(recent))
	for i, ep := range recent {
		items[i] = embedding.Text{ID: ep.ID, Text: ep.Text}
	}
	vecs, err := embedding.EmbedAll(ctx, in.Embedder, items, len(items))
	if err != nil {
		return 0, err
	}

	best := 0.0
	for _, v := range vecs {
		best = math.Max(best, embedding.CosineSimilarity(current, v))
	}
	return math.Min(best, 1), nil
}

func (in *Ingestor) now() time.Time {
	if in.Now == nil {
		return time.Now().UTC()
	}
	return in.Now().UTC()
}

func (in *Ingestor) newID(ts time.Time) string {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.entropy == nil {
		in.entropy = ulid.Monotonic(rand.Reader, 0)
	}
	return ulid.MustNew(ulid.Timestamp(ts), in.entropy).String()
}

// Sentiment scores lowercase text in [-1, 1] by word-list hits, 0.2 per hit.
func Sentiment(lower string) float64 {
	score := 0.0
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			score -= 0.2
		}
	}
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			score += 0.2
		}
	}
	return math.Max(-1, math.Min(1, score))
}

// Absolutist reports whether lowercase text uses an absolutist term.
func Absolutist(lower string) bool {
	for _, t := range absolutistTerms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// TimeBucket classifies the hour of ts.
func TimeBucket(ts time.Time) string {
	switch h := ts.Hour(); {
	case h < 12:
		return model.BucketMorning
	case h < 18:
		return model.BucketEvening
	default:
		return model.BucketLateNight
	}
}
