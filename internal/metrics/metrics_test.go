package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.ObserveOracle("term", OutcomeOK, 20*time.Millisecond)
	m.ObserveOracle("term", OutcomeOK, 30*time.Millisecond)
	m.ObserveOracle("date", OutcomeUnavailable, time.Second)
	m.Search(OutcomeNoMatch)
	m.Reservation("committed")
	m.SetCatalogSize(12)
	m.ObserveHTTP("GET", "/api/properties/{id}", 200, 5*time.Millisecond)
	m.ObserveHTTP("GET", "/api/properties/{id}", 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.oracleCalls.WithLabelValues("term", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.oracleCalls.WithLabelValues("date", OutcomeUnavailable)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searches.WithLabelValues(OutcomeNoMatch)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reservations.WithLabelValues("committed")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.catalogSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/properties/{id}", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpLatency))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOracle("term", OutcomeOK, time.Millisecond)
		m.Search(OutcomeMatched)
		m.Reservation("cancelled")
		m.SetCatalogSize(1)
		m.ObserveHTTP("GET", "/", 200, time.Millisecond)
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Search(OutcomeMatched)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `staymatch_search_requests_total{outcome="matched"} 1`)
}
