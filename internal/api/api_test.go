package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rcliao/mindtrace/internal/config"
	"github.com/rcliao/mindtrace/internal/embedding"
	"github.com/rcliao/mindtrace/internal/metrics"
	"github.com/rcliao/mindtrace/internal/model"
	"github.com/rcliao/mindtrace/internal/pipeline"
	"github.com/rcliao/mindtrace/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type testAPI struct {
	router  http.Handler
	store   *store.SQLiteStore
	metrics *metrics.Manager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	s, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "mindtrace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	m := metrics.NewManager()
	eng, err := pipeline.New(config.Default(), pipeline.Deps{
		Store:    s,
		Embedder: embedding.NewHashEmbedder(256),
		Metrics:  m,
		Now:      func() time.Time { return t0 },
	})
	require.NoError(t, err)

	return &testAPI{
		router:  NewRouter(zerolog.Nop(), NewHandlers(eng, s), m),
		store:   s,
		metrics: m,
	}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	a := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
}

func TestCreateSessionAndRetag(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/v1/sessions", map[string]any{
		"session_id":     "s1",
		"started_at":     t0,
		"text":           "Thinking about work again.",
		"confirmed_tags": []string{"work"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sess := decodeBody[model.Session](t, rec)
	assert.Equal(t, "s1", sess.ID)
	assert.Equal(t, []string{"work"}, sess.ConfirmedTags)

	rec = a.do(t, http.MethodPost, "/v1/sessions", map[string]any{
		"session_id": "s1",
		"started_at": t0,
		"text":       "duplicate",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPut, "/v1/sessions/s1/tags", map[string]any{
		"confirmed_tags": []string{"sleep", "work"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sess = decodeBody[model.Session](t, rec)
	assert.ElementsMatch(t, []string{"sleep", "work"}, sess.ConfirmedTags)
	assert.Equal(t, "Thinking about work again.", sess.Text)

	rec = a.do(t, http.MethodPut, "/v1/sessions/missing/tags", map[string]any{
		"confirmed_tags": []string{"work"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSessionValidation(t *testing.T) {
	a := newTestAPI(t)

	tests := []struct {
		name string
		body any
		code string
	}{
		{"malformed json", `{"text":`, codeBadRequest},
		{"unknown field", `{"text":"x","started_at":"2026-03-02T08:00:00Z","mood":"ok"}`, codeBadRequest},
		{"missing text", map[string]any{"started_at": t0}, codeValidationFailed},
		{"missing start", map[string]any{"text": "x"}, codeValidationFailed},
		{"empty tag", map[string]any{"text": "x", "started_at": t0, "confirmed_tags": []string{""}}, codeValidationFailed},
		{"end before start", map[string]any{"text": "x", "started_at": t0, "ended_at": t0.Add(-time.Hour)}, codeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, http.MethodPost, "/v1/sessions", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			resp := decodeBody[ErrorResponse](t, rec)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.RequestID)
		})
	}
}

func TestAnalyzeEmptyStore(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/v1/analyze", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[pipeline.Analysis](t, rec)
	assert.Empty(t, got.Observations)
	assert.Nil(t, got.Primary)
	assert.Empty(t, got.Text)
}

func TestAnalyzeRendersObservation(t *testing.T) {
	a := newTestAPI(t)
	ctx := context.Background()
	sessions := []model.Session{
		{ID: "s1", StartedAt: t0, Text: "I worry about work deadlines every day and work keeps me up.", ConfirmedTags: []string{"work"}},
		{ID: "s2", StartedAt: t0.Add(72 * time.Hour), Text: "I worry about work deadlines and work keeps me up at night.", ConfirmedTags: []string{"work"}},
		{ID: "s3", StartedAt: t0.Add(240 * time.Hour), Text: "Do I worry about work deadlines? Work keeps me up? Always, never, nothing changes?", ConfirmedTags: []string{"work"}},
	}
	for _, s := range sessions {
		_, err := a.store.SaveSession(ctx, s)
		require.NoError(t, err)
	}

	rec := a.do(t, http.MethodPost, "/v1/analyze", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[pipeline.Analysis](t, rec)
	require.NotNil(t, got.Primary)
	assert.Equal(t, "work", got.Primary.Tag)
	assert.False(t, got.Suppressed)
	assert.Contains(t, got.Text, "A similar concern appears across multiple sessions.")

	rec = a.do(t, http.MethodPost, "/v1/analyze", map[string]any{"skip_render": true})
	require.Equal(t, http.StatusOK, rec.Code)
	got = decodeBody[pipeline.Analysis](t, rec)
	assert.NotNil(t, got.Payload)
	assert.Empty(t, got.Text)
}

func TestReflectPlanAndPatterns(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/v1/users/u1/reflections", map[string]any{
		"text": "Had a calm morning walk.",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ref := decodeBody[pipeline.Reflection](t, rec)
	assert.Equal(t, "u1", ref.Entry.UserID)
	assert.Equal(t, model.ModeReflective, ref.Plan.Mode)
	assert.NotEmpty(t, ref.Prompt)

	rec = a.do(t, http.MethodGet, "/v1/users/u1/plan", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeBody[pipeline.PlanView](t, rec)
	assert.Equal(t, model.ModeReflective, view.Plan.Mode)

	rec = a.do(t, http.MethodGet, "/v1/users/u1/patterns", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pats := decodeBody[patternsResponse](t, rec)
	assert.Equal(t, "u1", pats.UserID)
	assert.Empty(t, pats.Patterns)

	rec = a.do(t, http.MethodPost, "/v1/users/u1/reflections", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGuard(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/v1/guard", map[string]any{"text": "Work came up again. It shows up often."})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"allowed":true,"sentences":2}`, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/v1/guard", map[string]any{"text": "This means you are stuck."})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, codeRejected, resp.Error.Code)
	assert.Equal(t, "forbidden_phrase", resp.Error.Details["reason"])

	rec = a.do(t, http.MethodPost, "/v1/guard", map[string]any{"text": "One. Two. Three. Four. Five."})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp = decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "too_many_sentences", resp.Error.Details["reason"])
	assert.EqualValues(t, 5, resp.Error.Details["sentences"])
}

func TestMetricsByRoutePattern(t *testing.T) {
	a := newTestAPI(t)
	a.do(t, http.MethodGet, "/v1/users/u1/plan", nil)
	a.do(t, http.MethodGet, "/v1/users/u2/plan", nil)

	rec := a.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/v1/users/{user}/plan"`)

	n, err := testutil.GatherAndCount(a.metrics.Registry(), "mindtrace_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "both users share one series")
}

func TestUnknownRoute(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/v2/nothing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, codeNotFound, resp.Error.Code)
}

func TestRecoveryReturns500(t *testing.T) {
	h := RequestID(Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, codeInternal, resp.Error.Code)
}

func TestServerShutsDownOnCancel(t *testing.T) {
	a := newTestAPI(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(ln.Addr().String(), a.router)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
