package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath      string     `json:"db_path" yaml:"db_path"`
	DBSizeBytes int64      `json:"db_size_bytes" yaml:"db_size_bytes"`
	Sessions    int        `json:"sessions" yaml:"sessions"`
	Embeddings  int        `json:"embeddings" yaml:"embeddings"`
	Entries     int        `json:"entries" yaml:"entries"`
	Patterns    int        `json:"patterns" yaml:"patterns"`
	Users       int        `json:"users" yaml:"users"`
	Tags        []TagStats `json:"tags" yaml:"tags"`
}

// TagStats holds per-tag session counts.
type TagStats struct {
	Tag      string `json:"tag" yaml:"tag"`
	Sessions int    `json:"sessions" yaml:"sessions"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: s.path, Tags: []TagStats{}}

	if info, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = info.Size()
	}

	counts := []struct {
		dst   *int
		query string
	}{
		{&st.Sessions, `SELECT COUNT(*) FROM sessions`},
		{&st.Embeddings, `SELECT COUNT(*) FROM session_embeddings`},
		{&st.Entries, `SELECT COUNT(*) FROM episodic_memories`},
		{&st.Patterns, `SELECT COUNT(*) FROM cognitive_patterns`},
		{&st.Users, `SELECT COUNT(DISTINCT user_id) FROM episodic_memories`},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return st, err
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT j.value AS tag, COUNT(*) AS cnt
		FROM sessions, json_each(sessions.tags) j
		GROUP BY tag ORDER BY cnt DESC, tag`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var ts TagStats
		if err := rows.Scan(&ts.Tag, &ts.Sessions); err != nil {
			return st, err
		}
		st.Tags = append(st.Tags, ts)
	}
	return st, rows.Err()
}
