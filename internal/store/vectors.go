package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rcliao/mindtrace/internal/embedding"
)

// SaveEmbedding stores v for a session under the given embedder key,
// replacing any previous vector for that pair.
func (s *SQLiteStore) SaveEmbedding(ctx context.Context, sessionID, embedder string, v embedding.Vector) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_embeddings (session_id, embedder, dims, vector, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, embedder) DO UPDATE SET
		   dims = excluded.dims, vector = excluded.vector, created_at = excluded.created_at`,
		sessionID, embedder, len(v), encodeVector(v), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("save embedding %s: %w", sessionID, err)
	}
	return nil
}

// LoadEmbeddings returns the stored vectors for ids. Sessions without a
// vector for embedder are absent from the map.
func (s *SQLiteStore) LoadEmbeddings(ctx context.Context, embedder string, ids []string) (map[string]embedding.Vector, error) {
	out := make(map[string]embedding.Vector, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, embedder)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, dims, vector FROM session_embeddings
		 WHERE embedder = ? AND session_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var dims int
		var blob []byte
		if err := rows.Scan(&id, &dims, &blob); err != nil {
			return nil, err
		}
		v, err := decodeVector(blob, dims)
		if err != nil {
			return nil, fmt.Errorf("embedding %s: %w", id, err)
		}
		out[id] = v
	}
	return out, rows.Err()
}

func encodeVector(v embedding.Vector) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}

func decodeVector(b []byte, dims int) (embedding.Vector, error) {
	if len(b) != 4*dims {
		return nil, fmt.Errorf("vector has %d bytes, want %d", len(b), 4*dims)
	}
	v := make(embedding.Vector, dims)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
