package store

import (
	"context"
	"fmt"

	"github.com/rcliao/mindtrace/internal/model"
)

func (s *SQLiteStore) LoadPatterns(ctx context.Context, userID string) (model.PatternSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, pattern_type, description, recurrence_level, first_detected, last_detected
		 FROM cognitive_patterns WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := model.PatternSet{}
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		set[p.PatternType] = &p
	}
	return set, rows.Err()
}

// SavePatterns upserts every pattern in set, one row per (user_id, pattern_type).
// Patterns without an ID get one. The first-detected time of an existing row
// is never moved.
func (s *SQLiteStore) SavePatterns(ctx context.Context, userID string, set model.PatternSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range set.Types() {
		p := set[t]
		if err := s.upsertPattern(ctx, tx, userID, p); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) upsertPattern(ctx context.Context, db execer, userID string, p *model.CognitivePattern) error {
	if p.ID == "" {
		p.ID = s.newID()
	}
	p.UserID = userID

	_, err := db.ExecContext(ctx,
		`INSERT INTO cognitive_patterns (id, user_id, pattern_type, description, recurrence_level, first_detected, last_detected)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO UPDATE SET
		   description = excluded.description,
		   recurrence_level = excluded.recurrence_level,
		   last_detected = excluded.last_detected`,
		p.ID, userID, p.PatternType, p.Description, p.RecurrenceLevel,
		formatTime(p.FirstDetected), formatTime(p.LastDetected))
	if err != nil {
		return fmt.Errorf("upsert pattern %s: %w", p.PatternType, err)
	}
	return nil
}

func scanPattern(row scanner) (model.CognitivePattern, error) {
	var p model.CognitivePattern
	var first, last string
	if err := row.Scan(&p.ID, &p.UserID, &p.PatternType, &p.Description, &p.RecurrenceLevel, &first, &last); err != nil {
		return p, err
	}
	p.FirstDetected = parseTime(first)
	p.LastDetected = parseTime(last)
	return p, nil
}
