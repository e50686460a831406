package store

import (
	"context"
	"fmt"

	"github.com/rcliao/mindtrace/internal/model"
)

func (s *SQLiteStore) AddEntry(ctx context.Context, ep model.EpisodicMemory, bm model.BehavioralMemory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := s.insertEntry(ctx, tx, ep, bm, false); err != nil {
		return err
	}
	return tx.Commit()
}

// AddReflection stores an entry together with the user's patterns in one
// transaction, so a failed pattern write leaves no entry behind. An empty set
// writes only the entry.
func (s *SQLiteStore) AddReflection(ctx context.Context, ep model.EpisodicMemory, bm model.BehavioralMemory, set model.PatternSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := s.insertEntry(ctx, tx, ep, bm, false); err != nil {
		return err
	}
	for _, t := range set.Types() {
		if err := s.upsertPattern(ctx, tx, ep.UserID, set[t]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// insertEntry writes both halves of an entry. With ignore set an entry whose
// ID exists is skipped.
func (s *SQLiteStore) insertEntry(ctx context.Context, db execer, ep model.EpisodicMemory, bm model.BehavioralMemory, ignore bool) (bool, error) {
	if ep.ID == "" {
		ep.ID = s.newID()
	}
	bm.EntryID = ep.ID
	if bm.UserID == "" {
		bm.UserID = ep.UserID
	}
	if bm.Timestamp.IsZero() {
		bm.Timestamp = ep.Timestamp
	}

	verb := "INSERT"
	if ignore {
		verb = "INSERT OR IGNORE"
	}

	var sessionID interface{}
	if ep.SessionID != "" {
		sessionID = ep.SessionID
	}
	res, err := db.ExecContext(ctx,
		verb+` INTO episodic_memories (id, user_id, timestamp, text, session_id) VALUES (?, ?, ?, ?, ?)`,
		ep.ID, ep.UserID, formatTime(ep.Timestamp), ep.Text, sessionID)
	if err != nil {
		return false, fmt.Errorf("insert episodic memory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	_, err = db.ExecContext(ctx,
		verb+` INTO behavioral_memories (entry_id, user_id, timestamp, sentiment, repetition, absolutist, time_bucket)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		bm.EntryID, bm.UserID, formatTime(bm.Timestamp), bm.Sentiment, bm.Repetition, bm.Absolutist, bm.TimeBucket)
	if err != nil {
		return false, fmt.Errorf("insert behavioral memory: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) RecentEpisodes(ctx context.Context, userID string, n int) ([]model.EpisodicMemory, error) {
	if n <= 0 {
		return []model.EpisodicMemory{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, timestamp, text, COALESCE(session_id, '')
		 FROM episodic_memories WHERE user_id = ?
		 ORDER BY timestamp DESC, id DESC LIMIT ?`, userID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.EpisodicMemory{}
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) BehaviorHistory(ctx context.Context, userID string, n int) ([]model.BehavioralMemory, error) {
	if n <= 0 {
		return []model.BehavioralMemory{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_id, user_id, timestamp, sentiment, repetition, absolutist, time_bucket
		 FROM behavioral_memories WHERE user_id = ?
		 ORDER BY timestamp DESC, entry_id DESC LIMIT ?`, userID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.BehavioralMemory{}
	for rows.Next() {
		bm, err := scanBehavior(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, bm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Oldest first for the windowed detectors.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *SQLiteStore) Users(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM episodic_memories
		 UNION SELECT user_id FROM cognitive_patterns
		 ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []string{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanEpisode(row scanner) (model.EpisodicMemory, error) {
	var ep model.EpisodicMemory
	var ts string
	if err := row.Scan(&ep.ID, &ep.UserID, &ts, &ep.Text, &ep.SessionID); err != nil {
		return ep, err
	}
	ep.Timestamp = parseTime(ts)
	return ep, nil
}

func scanBehavior(row scanner) (model.BehavioralMemory, error) {
	var bm model.BehavioralMemory
	var ts string
	if err := row.Scan(&bm.EntryID, &bm.UserID, &ts, &bm.Sentiment, &bm.Repetition, &bm.Absolutist, &bm.TimeBucket); err != nil {
		return bm, err
	}
	bm.Timestamp = parseTime(ts)
	return bm, nil
}
