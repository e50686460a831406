package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRecords(t *testing.T) {
	m := NewManager()

	m.RecordObservations(2)
	m.RecordChainRejection("too_short")
	m.RecordChainRejection("too_short")
	m.RecordGuardRejection("forbidden_phrase")
	m.RecordSuppressed()
	m.RecordPlan("reflective")
	m.RecordPatternSignals([]string{"rumination", "absolutist_language"})
	m.ObserveAnalysis(20 * time.Millisecond)
	m.RecordHTTPRequest("GET", "/healthz", "200", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.observations))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.chainRejections.WithLabelValues("too_short")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.guardRejections.WithLabelValues("forbidden_phrase")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.suppressed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.plans.WithLabelValues("reflective")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.patternDetections.WithLabelValues("rumination")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.analysisDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/healthz", "200")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewManager()
	m.RecordPlan("grounding_prompt")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `mindtrace_plans_total{mode="grounding_prompt"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}

func TestNoOpManager(t *testing.T) {
	m := NoOpManager()
	assert.False(t, m.Enabled())
	assert.Nil(t, m.Registry())

	m.RecordObservations(1)
	m.RecordPlan("reflective")
	m.ObserveAnalysis(time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var nilManager *Manager
	assert.False(t, nilManager.Enabled())
	nilManager.RecordSuppressed()
}
