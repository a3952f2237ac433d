package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/staymatch/backend/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogging_RequestID(t *testing.T) {
	var seen string
	h := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestErrorRecovery(t *testing.T) {
	h := Logging(ErrorRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrInternalError)
}

func TestInstrument_RouteTemplate(t *testing.T) {
	m := metrics.New()
	r := mux.NewRouter()
	r.Use(Logging)
	r.Use(Instrument(m))
	r.HandleFunc("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, ErrNotFound, "no such item")
	}).Methods("GET")

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("GET", "/items/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `staymatch_http_requests_total{method="GET",route="/items/{id}",status="404"} 2`)
	assert.Equal(t, 1, mustCount(t, m))
}

func mustCount(t *testing.T, m *metrics.Metrics) int {
	t.Helper()
	n, err := testutil.GatherAndCount(m.Registry(), "staymatch_http_request_duration_seconds")
	require.NoError(t, err)
	return n
}
