package monitoring

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRefresh(t *testing.T) {
	m := NewMetrics()
	built := time.Unix(1717200000, 0)

	m.ObserveRefresh(200*time.Millisecond, nil, 120, 3, built)
	m.ObserveRefresh(time.Second, errors.New("upstream down"), 0, 0, time.Time{})
	m.ObserveCoalesced()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshTotal.WithLabelValues("coalesced")))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.snapshotClients), "failed refresh keeps the last good gauge")
	assert.Equal(t, 3.0, testutil.ToFloat64(m.snapshotSkipped))
	assert.Equal(t, float64(built.Unix()), testutil.ToFloat64(m.snapshotAge))
}

func TestObserveRequestAndCache(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest("/v1/resolve", 200, 5*time.Millisecond)
	m.ObserveRequest("/v1/resolve", 200, 5*time.Millisecond)
	m.ObserveRequest("/v1/resolve", 404, time.Millisecond)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("/v1/resolve", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("/v1/resolve", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.ObserveRefresh(time.Millisecond, nil, 7, 0, time.Now())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "account_intel_snapshot_clients 7")
	assert.Contains(t, string(body), "account_intel_snapshot_refresh_total")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRefresh(time.Second, nil, 1, 1, time.Now())
		m.ObserveCoalesced()
		m.ObserveRequest("/health", 200, time.Millisecond)
		m.ObserveCache(true)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
