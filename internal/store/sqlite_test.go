package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/mindtrace/internal/embedding"
	"github.com/rcliao/mindtrace/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var t0 = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func day(n int) time.Time { return t0.Add(time.Duration(n) * 24 * time.Hour) }

func TestSaveAndGetSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	saved, err := s.SaveSession(ctx, model.Session{
		StartedAt:     day(1),
		EndedAt:       day(1).Add(time.Hour),
		Text:          "thinking about work",
		ConfirmedTags: []string{"work", " sleep ", "work", ""},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := s.GetSession(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Text != "thinking about work" {
		t.Errorf("text = %q", got.Text)
	}
	if !got.StartedAt.Equal(day(1)) || !got.EndedAt.Equal(day(1).Add(time.Hour)) {
		t.Errorf("times = %v - %v", got.StartedAt, got.EndedAt)
	}
	if len(got.ConfirmedTags) != 2 || got.ConfirmedTags[0] != "sleep" || got.ConfirmedTags[1] != "work" {
		t.Errorf("tags = %v, want [sleep work]", got.ConfirmedTags)
	}
}

func TestSessionsAreImmutable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.SaveSession(ctx, model.Session{ID: "s1", StartedAt: day(0), Text: "a"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, err := s.SaveSession(ctx, model.Session{ID: "s1", StartedAt: day(0), Text: "b"})
	if !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	got, _ := s.GetSession(ctx, "s1")
	if got.Text != "a" {
		t.Errorf("session text changed to %q", got.Text)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSession(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadSessionsFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.SaveSession(ctx, model.Session{ID: "c", StartedAt: day(3), Text: "deadline again", ConfirmedTags: []string{"work"}})
	s.SaveSession(ctx, model.Session{ID: "a", StartedAt: day(1), Text: "slept badly", ConfirmedTags: []string{"sleep", "work"}})
	s.SaveSession(ctx, model.Session{ID: "b", StartedAt: day(2), Text: "a deadline moved", ConfirmedTags: []string{"workshop"}})

	all, err := s.LoadSessions(ctx, SessionFilter{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ids := sessionIDs(all); ids != "a,b,c" {
		t.Errorf("all = %s, want a,b,c", ids)
	}

	byTag, _ := s.LoadSessions(ctx, SessionFilter{Tag: "work"})
	if ids := sessionIDs(byTag); ids != "a,c" {
		t.Errorf("tag work = %s, want a,c", ids)
	}

	byQuery, _ := s.LoadSessions(ctx, SessionFilter{Query: "deadline"})
	if ids := sessionIDs(byQuery); ids != "b,c" {
		t.Errorf("query deadline = %s, want b,c", ids)
	}

	since, _ := s.LoadSessions(ctx, SessionFilter{Since: day(2), Limit: 1})
	if ids := sessionIDs(since); ids != "b" {
		t.Errorf("since day 2 limit 1 = %s, want b", ids)
	}
}

func sessionIDs(ss []model.Session) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ","
		}
		out += s.ID
	}
	return out
}

func TestUpdateSessionTags(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.SaveSession(ctx, model.Session{ID: "s1", StartedAt: day(0), Text: "x", ConfirmedTags: []string{"work"}})

	got, err := s.UpdateSessionTags(ctx, "s1", []string{"family", "work"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(got.ConfirmedTags) != 2 || !got.HasTag("family") {
		t.Errorf("tags = %v", got.ConfirmedTags)
	}

	if _, err := s.UpdateSessionTags(ctx, "nope", []string{"x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEmbeddings(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.SaveSession(ctx, model.Session{ID: "s1", StartedAt: day(0), Text: "x"})
	s.SaveSession(ctx, model.Session{ID: "s2", StartedAt: day(1), Text: "y"})

	if err := s.SaveEmbedding(ctx, "s1", "hash:384", embedding.Vector{0.5, -1.25, 3}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveEmbedding(ctx, "s1", "hash:384", embedding.Vector{1, 2, 3}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	s.SaveEmbedding(ctx, "s2", "other", embedding.Vector{9})

	got, err := s.LoadEmbeddings(ctx, "hash:384", []string{"s1", "s2", "s3"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(got))
	}
	v := got["s1"]
	if len(v) != 3 || v[0] != 1 || v[1] != 2 || v[2] != 3 {
		t.Errorf("vector = %v", v)
	}

	empty, _ := s.LoadEmbeddings(ctx, "hash:384", nil)
	if len(empty) != 0 {
		t.Errorf("expected empty map, got %v", empty)
	}
}

func addEntry(t *testing.T, s *SQLiteStore, user string, at time.Time, sentiment float64) model.EpisodicMemory {
	t.Helper()
	ep := model.EpisodicMemory{UserID: user, Timestamp: at, Text: "entry"}
	ep.ID = s.newID()
	bm := model.BehavioralMemory{Sentiment: sentiment, TimeBucket: model.BucketMorning}
	if err := s.AddEntry(context.Background(), ep, bm); err != nil {
		t.Fatalf("add entry: %v", err)
	}
	return ep
}

func TestMemoryOrdering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		addEntry(t, s, "u1", day(i), float64(i)/10)
	}
	addEntry(t, s, "u2", day(9), -1)

	recent, err := s.RecentEpisodes(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || !recent[0].Timestamp.Equal(day(4)) || !recent[1].Timestamp.Equal(day(3)) {
		t.Errorf("recent episodes not newest first: %+v", recent)
	}

	history, err := s.BehaviorHistory(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3, got %d", len(history))
	}
	want := []float64{0.2, 0.3, 0.4}
	for i, bm := range history {
		if bm.Sentiment != want[i] {
			t.Errorf("history[%d].Sentiment = %v, want %v", i, bm.Sentiment, want[i])
		}
		if bm.UserID != "u1" || bm.TimeBucket != model.BucketMorning {
			t.Errorf("history[%d] = %+v", i, bm)
		}
	}

	users, _ := s.Users(ctx)
	if len(users) != 2 || users[0] != "u1" || users[1] != "u2" {
		t.Errorf("users = %v", users)
	}
}

func TestPatternsUpsertByType(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	set := model.PatternSet{
		model.PatternSpiral: {PatternType: model.PatternSpiral, Description: "d", RecurrenceLevel: model.RiskLow, FirstDetected: day(0), LastDetected: day(0)},
	}
	if err := s.SavePatterns(ctx, "u1", set); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := s.LoadPatterns(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p := loaded[model.PatternSpiral]
	if p == nil || p.ID == "" {
		t.Fatalf("expected stored spiral with ID, got %+v", p)
	}

	p.RecurrenceLevel = model.RiskMedium
	p.LastDetected = day(5)
	loaded[model.PatternRumination] = &model.CognitivePattern{PatternType: model.PatternRumination, Description: "r", RecurrenceLevel: model.RiskLow, FirstDetected: day(5), LastDetected: day(5)}
	if err := s.SavePatterns(ctx, "u1", loaded); err != nil {
		t.Fatalf("save again: %v", err)
	}

	again, _ := s.LoadPatterns(ctx, "u1")
	if len(again) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(again))
	}
	sp := again[model.PatternSpiral]
	if sp.ID != p.ID || sp.RecurrenceLevel != model.RiskMedium || !sp.LastDetected.Equal(day(5)) || !sp.FirstDetected.Equal(day(0)) {
		t.Errorf("spiral not updated in place: %+v", sp)
	}

	other, _ := s.LoadPatterns(ctx, "u2")
	if len(other) != 0 {
		t.Errorf("patterns leaked across users: %v", other)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.SaveSession(ctx, model.Session{ID: "a", StartedAt: day(0), Text: "x", ConfirmedTags: []string{"work", "sleep"}})
	s.SaveSession(ctx, model.Session{ID: "b", StartedAt: day(1), Text: "y", ConfirmedTags: []string{"work"}})
	addEntry(t, s, "u1", day(0), 0)

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Sessions != 2 || st.Entries != 1 || st.Users != 1 {
		t.Errorf("stats = %+v", st)
	}
	if len(st.Tags) != 2 || st.Tags[0].Tag != "work" || st.Tags[0].Sessions != 2 {
		t.Errorf("tag stats = %+v", st.Tags)
	}
	if st.DBSizeBytes == 0 {
		t.Error("expected non-zero db size")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	src.SaveSession(ctx, model.Session{ID: "a", StartedAt: day(0), Text: "x", ConfirmedTags: []string{"work"}})
	addEntry(t, src, "u1", day(0), -0.4)
	addEntry(t, src, "u2", day(1), 0.2)
	src.SavePatterns(ctx, "u1", model.PatternSet{
		model.PatternSpiral: {PatternType: model.PatternSpiral, Description: "d", RecurrenceLevel: model.RiskLow, FirstDetected: day(0), LastDetected: day(0)},
	})

	dump, err := src.ExportAll(ctx, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(dump.Sessions) != 1 || len(dump.Episodes) != 2 || len(dump.Behavior) != 2 || len(dump.Patterns) != 1 {
		t.Fatalf("export counts = %d/%d/%d/%d", len(dump.Sessions), len(dump.Episodes), len(dump.Behavior), len(dump.Patterns))
	}

	onlyU1, _ := src.ExportAll(ctx, "u1")
	if len(onlyU1.Episodes) != 1 || onlyU1.Episodes[0].UserID != "u1" {
		t.Errorf("user filter failed: %+v", onlyU1.Episodes)
	}

	dst := newTestStore(t)
	res, err := dst.Import(ctx, dump)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Sessions != 1 || res.Entries != 2 || res.Patterns != 1 {
		t.Errorf("import result = %+v", res)
	}

	res, err = dst.Import(ctx, dump)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if res.Sessions != 0 || res.Entries != 0 {
		t.Errorf("duplicates were imported: %+v", res)
	}

	history, _ := dst.BehaviorHistory(ctx, "u1", 10)
	if len(history) != 1 || history[0].Sentiment != -0.4 {
		t.Errorf("imported history = %+v", history)
	}
	patterns, _ := dst.LoadPatterns(ctx, "u1")
	if len(patterns) != 1 {
		t.Errorf("imported patterns = %v", patterns)
	}
}

func TestAddReflectionIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ep := model.EpisodicMemory{ID: s.newID(), UserID: "u1", Timestamp: day(0), Text: "entry"}
	bm := model.BehavioralMemory{Sentiment: -0.4, TimeBucket: model.BucketMorning}
	set := model.PatternSet{
		model.PatternSpiral: {PatternType: model.PatternSpiral, Description: "d", RecurrenceLevel: model.RiskLow, FirstDetected: day(0), LastDetected: day(0)},
	}
	if err := s.AddReflection(ctx, ep, bm, set); err != nil {
		t.Fatalf("add reflection: %v", err)
	}
	if set[model.PatternSpiral].ID == "" {
		t.Error("expected the stored pattern to get an ID")
	}

	// Reusing the entry ID fails the transaction, so the rumination pattern
	// sent with it must not be stored.
	dup := model.PatternSet{
		model.PatternRumination: {PatternType: model.PatternRumination, Description: "r", RecurrenceLevel: model.RiskLow, FirstDetected: day(1), LastDetected: day(1)},
	}
	if err := s.AddReflection(ctx, ep, bm, dup); err == nil {
		t.Fatal("expected duplicate entry to fail")
	}

	loaded, err := s.LoadPatterns(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 || loaded[model.PatternSpiral] == nil {
		t.Errorf("expected only the spiral pattern, got %v", loaded.Types())
	}
	recent, _ := s.RecentEpisodes(ctx, "u1", 10)
	if len(recent) != 1 {
		t.Errorf("expected 1 entry, got %d", len(recent))
	}
}
