package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rcliao/mindtrace/internal/model"
)

const sessionColumns = `id, started_at, ended_at, text, tags`

func (s *SQLiteStore) SaveSession(ctx context.Context, sess model.Session) (*model.Session, error) {
	inserted, out, err := s.insertSession(ctx, s.db, sess, false)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, fmt.Errorf("session %s: %w", sess.ID, ErrExists)
	}
	return out, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertSession reports whether a row was written. With ignore set a
// duplicate ID is skipped instead of failing.
func (s *SQLiteStore) insertSession(ctx context.Context, db execer, sess model.Session, ignore bool) (bool, *model.Session, error) {
	if sess.ID == "" {
		sess.ID = s.newID()
	}
	if sess.EndedAt.IsZero() {
		sess.EndedAt = sess.StartedAt
	}
	sess.ConfirmedTags = normalizeTags(sess.ConfirmedTags)

	tags, err := json.Marshal(sess.ConfirmedTags)
	if err != nil {
		return false, nil, err
	}

	verb := "INSERT"
	if ignore {
		verb = "INSERT OR IGNORE"
	}
	res, err := db.ExecContext(ctx,
		verb+` INTO sessions (id, started_at, ended_at, text, tags, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, formatTime(sess.StartedAt), formatTime(sess.EndedAt), sess.Text, string(tags),
		formatTime(time.Now()))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("insert session: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, &sess, nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SQLiteStore) LoadSessions(ctx context.Context, f SessionFilter) ([]model.Session, error) {
	where := []string{"1 = 1"}
	var args []interface{}

	if f.Tag != "" {
		where = append(where, "tags LIKE ?")
		args = append(args, "%\""+f.Tag+"\"%")
	}
	if f.Query != "" {
		where = append(where, "text LIKE ?")
		args = append(args, "%"+f.Query+"%")
	}
	if !f.Since.IsZero() {
		where = append(where, "started_at >= ?")
		args = append(args, formatTime(f.Since))
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY started_at, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []model.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		// LIKE matches substrings of other tags' JSON; confirm the exact tag.
		if f.Tag != "" && !sess.HasTag(f.Tag) {
			continue
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) UpdateSessionTags(ctx context.Context, id string, tags []string) (*model.Session, error) {
	tags = normalizeTags(tags)
	b, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET tags = ?, updated_at = ? WHERE id = ?`,
		string(b), formatTime(time.Now()), id)
	if err != nil {
		return nil, fmt.Errorf("update tags: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return s.GetSession(ctx, id)
}

func scanSession(row scanner) (model.Session, error) {
	var sess model.Session
	var startedAt, endedAt, tags string
	if err := row.Scan(&sess.ID, &startedAt, &endedAt, &sess.Text, &tags); err != nil {
		return sess, err
	}
	sess.StartedAt = parseTime(startedAt)
	sess.EndedAt = parseTime(endedAt)
	if err := json.Unmarshal([]byte(tags), &sess.ConfirmedTags); err != nil {
		return sess, fmt.Errorf("session %s tags: %w", sess.ID, err)
	}
	return sess, nil
}

// normalizeTags trims, drops blanks and duplicates, and sorts.
func normalizeTags(tags []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
