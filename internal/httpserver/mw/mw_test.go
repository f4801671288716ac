package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/mindhaven/internal/logger"
	"github.com/MrSnakeDoc/mindhaven/internal/metrics"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestAllowOnlyCIDRS(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"10.0.0.0/8"}, false, logger.Nop())(okHandler)

	r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.RemoteAddr = "10.1.2.3:4000"
	assert.Equal(t, http.StatusOK, serve(h, r).Code)

	r.RemoteAddr = "192.168.0.1:4000"
	assert.Equal(t, http.StatusForbidden, serve(h, r).Code)
}

func TestAllowOnlyCIDRSEmptyIsPassthrough(t *testing.T) {
	h := AllowOnlyCIDRS(nil, false, logger.Nop())(okHandler)
	r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.RemoteAddr = "203.0.113.9:1"
	assert.Equal(t, http.StatusOK, serve(h, r).Code)
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"journal.example.com", "*.lan"}, logger.Nop())(okHandler)

	tests := []struct {
		host string
		want int
	}{
		{"journal.example.com", http.StatusOK},
		{"JOURNAL.example.com:8080", http.StatusOK},
		{"box.lan", http.StatusOK},
		{"lan", http.StatusForbidden},
		{".lan", http.StatusForbidden},
		{"evil.com", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Host = tt.host
			assert.Equal(t, tt.want, serve(h, r).Code)
		})
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{Burst: 2, PerMinute: 1})(okHandler)

	r := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	r.RemoteAddr = "10.0.0.1:1"

	assert.Equal(t, http.StatusOK, serve(h, r).Code)
	rec := serve(h, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))

	rec = serve(h, r)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// another client has its own bucket
	other := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	other.RemoteAddr = "10.0.0.2:1"
	assert.Equal(t, http.StatusOK, serve(h, other).Code)
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example.com"})(okHandler)

	r := httptest.NewRequest(http.MethodOptions, "/api/entries", nil)
	r.Header.Set("Origin", "https://app.example.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(h, r)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/api/entries", nil)
	r.Header.Set("Origin", "https://other.example.com")
	rec = serve(h, r)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSDisabled(t *testing.T) {
	h := CORS(nil)(okHandler)
	r := httptest.NewRequest(http.MethodGet, "/api/entries", nil)
	r.Header.Set("Origin", "https://app.example.com")
	assert.Empty(t, serve(h, r).Header().Get("Access-Control-Allow-Origin"))
}

func TestLogRecordsRoutePattern(t *testing.T) {
	m := metrics.New("test")
	r := chi.NewRouter()
	r.Use(Log(logger.Nop(), m))
	r.Delete("/api/entries/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, id := range []string{"a", "b"} {
		rec := serve(r, httptest.NewRequest(http.MethodDelete, "/api/entries/"+id, nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
	serve(r, httptest.NewRequest(http.MethodGet, "/nope", nil))

	n, err := testutil.GatherAndCount(m.Registry(), "test_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one series per route pattern and status")
}
