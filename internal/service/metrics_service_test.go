package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceRosterCounters(t *testing.T) {
	m := NewMetricsService()

	m.RecordImport(true, "ok", 3, 1)
	m.RecordImport(false, "ok", 2, 0)
	m.RecordExport("csv")
	m.RecordExport("csv")

	assert.Equal(t, float64(5), testutil.ToFloat64(m.importRows.WithLabelValues("accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.importRows.WithLabelValues("rejected")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.importRuns.WithLabelValues("dry_run", "ok")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.exports.WithLabelValues("csv")))
}

func TestMetricsServiceCacheRatio(t *testing.T) {
	m := NewMetricsService()
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)

	assert.InDelta(t, 0.75, testutil.ToFloat64(m.cacheHitRatio), 0.0001)
}

func TestMetricsServiceHandler(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/students", http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")

	var nilMetrics *MetricsService
	rec = httptest.NewRecorder()
	nilMetrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
