package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rcliao/mindtrace/internal/config"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Vector
		expected float64
		delta    float64
	}{
		{"identical", Vector{1, 0, 0}, Vector{1, 0, 0}, 1.0, 0.001},
		{"orthogonal", Vector{1, 0, 0}, Vector{0, 1, 0}, 0.0, 0.001},
		{"opposite", Vector{1, 0, 0}, Vector{-1, 0, 0}, -1.0, 0.001},
		{"similar", Vector{1, 1, 0}, Vector{1, 0, 0}, 0.707, 0.01},
		{"empty", Vector{}, Vector{}, 0.0, 0.001},
		{"different lengths", Vector{1, 0}, Vector{1, 0, 0}, 0.0, 0.001},
		{"zero vector", Vector{0, 0, 0}, Vector{1, 0, 0}, 0.0, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.expected) > tt.delta {
				t.Errorf("CosineSimilarity(%v, %v) = %f, want %f (±%f)", tt.a, tt.b, got, tt.expected, tt.delta)
			}
		})
	}
}

func TestHashEmbedderDeterministic(t *testing.T) {
	ctx := context.Background()
	h := NewHashEmbedder(64)

	a, _ := h.Embed(ctx, "I keep thinking about the deadline")
	b, _ := h.Embed(ctx, "I keep thinking about the deadline")
	c, _ := h.Embed(ctx, "Lunch by the river was lovely")

	if len(a) != 64 {
		t.Fatalf("expected 64 dims, got %d", len(a))
	}
	if got := CosineSimilarity(a, b); math.Abs(got-1) > 1e-6 {
		t.Errorf("identical text should score 1, got %f", got)
	}
	if CosineSimilarity(a, c) >= CosineSimilarity(a, b) {
		t.Error("unrelated text should score below identical text")
	}
}

func TestHashEmbedderEmptyText(t *testing.T) {
	v, err := NewHashEmbedder(8).Embed(context.Background(), "")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if CosineSimilarity(v, v) != 0 {
		t.Error("empty text should produce a zero vector")
	}
}

type countingEmbedder struct {
	calls atomic.Int32
	fail  string
}

func (c *countingEmbedder) Embed(_ context.Context, text string) (Vector, error) {
	c.calls.Add(1)
	if c.fail != "" && strings.Contains(text, c.fail) {
		return nil, errors.New("boom")
	}
	return Vector{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) Dims() int { return 2 }

func TestPooledMeanPools(t *testing.T) {
	inner := &countingEmbedder{}
	p := NewPooled(inner, 100)

	text := strings.Repeat("a", 80) + "\n\n" + strings.Repeat("b", 40)
	v, err := p.Embed(context.Background(), text)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if inner.calls.Load() != 2 {
		t.Fatalf("expected 2 segment calls, got %d", inner.calls.Load())
	}
	if v[0] != 60 || v[1] != 1 {
		t.Errorf("expected mean vector [60 1], got %v", v)
	}
}

func TestPooledShortTextSingleCall(t *testing.T) {
	inner := &countingEmbedder{}
	if _, err := NewPooled(inner, 100).Embed(context.Background(), "short"); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if inner.calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", inner.calls.Load())
	}
}

func TestEmbedAll(t *testing.T) {
	items := []Text{{ID: "s1", Text: "one"}, {ID: "s2", Text: "three"}, {ID: "s3", Text: "sixteen"}}

	got, err := EmbedAll(context.Background(), &countingEmbedder{}, items, 2)
	if err != nil {
		t.Fatalf("embed all: %v", err)
	}
	if len(got) != 3 || got["s2"][0] != 5 {
		t.Errorf("unexpected vectors: %v", got)
	}

	_, err = EmbedAll(context.Background(), &countingEmbedder{fail: "three"}, items, 2)
	if err == nil || !strings.Contains(err.Error(), "s2") {
		t.Errorf("expected failure naming s2, got %v", err)
	}
}

func TestOllamaEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req ollamaRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "all-minilm" {
			t.Errorf("unexpected model %q", req.Model)
		}
		json.NewEncoder(w).Encode(ollamaResponse{Embedding: []float32{0.1, 0.2}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(HTTPOptions{BaseURL: srv.URL, Model: "all-minilm"})
	v, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(v) != 2 || e.Dims() != 384 {
		t.Errorf("unexpected result %v dims %d", v, e.Dims())
	}
}

func TestOpenAIEmbedderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("missing auth header")
		}
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewOpenAIEmbedder(HTTPOptions{BaseURL: srv.URL, APIKey: "k"}).Embed(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("expected 429 error, got %v", err)
	}
}

func TestNewFromConfig(t *testing.T) {
	c := config.Default().Embed
	e, err := NewFromConfig(c)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if e.Dims() != c.Dims {
		t.Errorf("expected %d dims, got %d", c.Dims, e.Dims())
	}

	c.Provider = "telepathy"
	if _, err := NewFromConfig(c); err == nil {
		t.Error("expected error for unknown provider")
	}
}
