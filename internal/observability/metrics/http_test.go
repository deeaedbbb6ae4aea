package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetrics(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	m, err := NewHTTPMetrics(registry)
	require.NoError(t, err)

	m.RecordRequest(http.MethodGet, "/api/v2/plots/:id", http.StatusOK, 5*time.Millisecond)
	m.RecordRequest(http.MethodGet, "/api/v2/plots/:id", http.StatusNotFound, time.Millisecond)
	m.RecordRateLimited()
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)

	assert.InDelta(t, 1, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/api/v2/plots/:id", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/api/v2/plots/:id", "404")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.rateLimited), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")), 0)
}

func TestStorageMetrics(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	m, err := NewStorageMetrics(registry)
	require.NoError(t, err)

	var rec Recorder = m
	rec.RecordOperation(OpBlobPut, StatusSuccess)
	rec.RecordDuration(OpBlobPut, 0.02)
	rec.RecordError(OpBlobGet, "not_found")

	assert.InDelta(t, 1, testutil.ToFloat64(m.operationsTotal.WithLabelValues(OpBlobPut, StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.errorsTotal.WithLabelValues(OpBlobGet, "not_found")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.operationDuration))
}

func TestErrorMetrics(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	m, err := NewErrorMetrics(registry)
	require.NoError(t, err)

	m.RecordError("validation", "fieldtrial")
	m.RecordError("validation", "fieldtrial")

	assert.InDelta(t, 2, testutil.ToFloat64(m.errorsTotal.WithLabelValues("validation", "fieldtrial")), 0)
}

func TestNopRecorder(t *testing.T) {
	t.Parallel()
	var rec Recorder = NopRecorder{}
	assert.NotPanics(t, func() {
		rec.RecordOperation(OpBlobDelete, StatusError)
		rec.RecordDuration(OpBlobDelete, 1)
		rec.RecordError(OpBlobDelete, "timeout")
	})
}
