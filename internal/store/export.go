package store

import (
	"context"
	"time"

	"github.com/rcliao/mindtrace/internal/model"
)

// ExportVersion is bumped when the Export layout changes.
const ExportVersion = 1

// Export is a full dump of stored records. Embeddings are not included;
// they are recomputed on demand.
type Export struct {
	Version    int                      `json:"version" yaml:"version"`
	ExportedAt time.Time                `json:"exported_at" yaml:"exported_at"`
	Sessions   []model.Session          `json:"sessions" yaml:"sessions"`
	Episodes   []model.EpisodicMemory   `json:"episodes" yaml:"episodes"`
	Behavior   []model.BehavioralMemory `json:"behavior" yaml:"behavior"`
	Patterns   []model.CognitivePattern `json:"patterns" yaml:"patterns"`
}

// ImportResult counts the records written by Import.
type ImportResult struct {
	Sessions int `json:"sessions" yaml:"sessions"`
	Entries  int `json:"entries" yaml:"entries"`
	Patterns int `json:"patterns" yaml:"patterns"`
}

// ExportAll returns every stored record, optionally limited to one user's
// memory. Sessions are always included.
func (s *SQLiteStore) ExportAll(ctx context.Context, userID string) (*Export, error) {
	sessions, err := s.LoadSessions(ctx, SessionFilter{})
	if err != nil {
		return nil, err
	}
	out := &Export{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		Sessions:   sessions,
		Episodes:   []model.EpisodicMemory{},
		Behavior:   []model.BehavioralMemory{},
		Patterns:   []model.CognitivePattern{},
	}

	where, args := "", []interface{}{}
	if userID != "" {
		where = " WHERE user_id = ?"
		args = append(args, userID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, timestamp, text, COALESCE(session_id, '') FROM episodic_memories`+where+
			` ORDER BY user_id, timestamp, id`, args...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out.Episodes = append(out.Episodes, ep)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx,
		`SELECT entry_id, user_id, timestamp, sentiment, repetition, absolutist, time_bucket FROM behavioral_memories`+where+
			` ORDER BY user_id, timestamp, entry_id`, args...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		bm, err := scanBehavior(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out.Behavior = append(out.Behavior, bm)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx,
		`SELECT id, user_id, pattern_type, description, recurrence_level, first_detected, last_detected FROM cognitive_patterns`+where+
			` ORDER BY user_id, pattern_type`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		out.Patterns = append(out.Patterns, p)
	}
	return out, rows.Err()
}

// Import stores records from an export in one transaction. Sessions and
// entries whose ID already exists are skipped; patterns are upserted.
func (s *SQLiteStore) Import(ctx context.Context, e *Export) (*ImportResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res := &ImportResult{}
	for _, sess := range e.Sessions {
		ok, _, err := s.insertSession(ctx, tx, sess, true)
		if err != nil {
			return res, err
		}
		if ok {
			res.Sessions++
		}
	}

	behavior := make(map[string]model.BehavioralMemory, len(e.Behavior))
	for _, bm := range e.Behavior {
		behavior[bm.EntryID] = bm
	}
	for _, ep := range e.Episodes {
		bm, found := behavior[ep.ID]
		if !found {
			bm = model.BehavioralMemory{UserID: ep.UserID, Timestamp: ep.Timestamp}
		}
		ok, err := s.insertEntry(ctx, tx, ep, bm, true)
		if err != nil {
			return res, err
		}
		if ok {
			res.Entries++
		}
	}

	for i := range e.Patterns {
		p := e.Patterns[i]
		if err := s.upsertPattern(ctx, tx, p.UserID, &p); err != nil {
			return res, err
		}
		res.Patterns++
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}
