// Package store provides the storage interfaces and SQLite implementation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rcliao/mindtrace/internal/embedding"
	"github.com/rcliao/mindtrace/internal/model"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when saving a session whose ID is taken.
	ErrExists = errors.New("already exists")
)

// SessionFilter narrows LoadSessions. The zero value matches everything.
type SessionFilter struct {
	Tag   string
	Query string // substring of session text
	Since time.Time
	Limit int
}

// SessionStore holds sessions and their embeddings.
type SessionStore interface {
	// SaveSession stores a new session. Sessions are immutable once saved.
	SaveSession(ctx context.Context, s model.Session) (*model.Session, error)

	// GetSession retrieves one session by ID.
	GetSession(ctx context.Context, id string) (*model.Session, error)

	// LoadSessions returns sessions ordered by start time.
	LoadSessions(ctx context.Context, f SessionFilter) ([]model.Session, error)

	// UpdateSessionTags replaces the confirmed tags of a session.
	UpdateSessionTags(ctx context.Context, id string, tags []string) (*model.Session, error)

	SaveEmbedding(ctx context.Context, sessionID, embedder string, v embedding.Vector) error
	LoadEmbeddings(ctx context.Context, embedder string, ids []string) (map[string]embedding.Vector, error)
}

// MemoryStore holds per-user episodic, behavioral and pattern memory.
type MemoryStore interface {
	// AddEntry stores an episodic record with its derived behavioral record.
	AddEntry(ctx context.Context, ep model.EpisodicMemory, bm model.BehavioralMemory) error

	// AddReflection stores an entry and the user's patterns atomically.
	AddReflection(ctx context.Context, ep model.EpisodicMemory, bm model.BehavioralMemory, set model.PatternSet) error

	// RecentEpisodes returns up to n episodic records, newest first.
	RecentEpisodes(ctx context.Context, userID string, n int) ([]model.EpisodicMemory, error)

	// BehaviorHistory returns up to n of the latest behavioral records,
	// oldest first.
	BehaviorHistory(ctx context.Context, userID string, n int) ([]model.BehavioralMemory, error)

	Users(ctx context.Context) ([]string, error)

	LoadPatterns(ctx context.Context, userID string) (model.PatternSet, error)
	SavePatterns(ctx context.Context, userID string, set model.PatternSet) error
}

// Store is everything the engine needs from storage.
type Store interface {
	SessionStore
	MemoryStore

	// Close closes the store.
	Close() error
}
