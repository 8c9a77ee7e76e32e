package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/time/rate"

	"github.com/filmorate/backend/internal/logging"
	"github.com/filmorate/backend/internal/metrics"
)

func TestIPRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Minute, 2, time.Minute).(*ipRateLimiter)
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if !limiter.Allow("10.0.0.1") || !limiter.Allow("10.0.0.1") {
		t.Fatal("expected burst of two to be allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("expected third request to be blocked")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("expected other keys to have their own budget")
	}

	now = now.Add(time.Minute)
	if !limiter.Allow("10.0.0.1") {
		t.Fatal("expected token to be replenished after the window")
	}
}

func TestIPRateLimiterHighRateStaysFinite(t *testing.T) {
	// Three requests per two nanoseconds would truncate to a zero interval.
	limiter := NewIPRateLimiter(3, 2*time.Nanosecond, 1, time.Minute).(*ipRateLimiter)
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if limiter.limit == rate.Inf {
		t.Fatal("expected a finite limit")
	}
	if !limiter.Allow("10.0.0.1") {
		t.Fatal("expected first request to be allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("expected burst of one to block a second request at the same instant")
	}
}

func TestIPRateLimiterEvictsIdleVisitors(t *testing.T) {
	limiter := NewIPRateLimiter(10, time.Second, 1, time.Minute).(*ipRateLimiter)
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.Allow("a")
	now = now.Add(2 * time.Minute)
	limiter.Allow("b")

	if _, ok := limiter.visitors["a"]; ok {
		t.Fatal("expected idle visitor to be evicted")
	}
	if _, ok := limiter.visitors["b"]; !ok {
		t.Fatal("expected active visitor to be kept")
	}
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func TestRateLimitMiddleware(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	before := testutil.ToFloat64(metrics.APIRateLimitHits)

	rec := httptest.NewRecorder()
	RateLimit(denyAll{})(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/films", nil))

	if called {
		t.Fatal("expected handler not to be called")
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), MsgTooManyRequests) {
		t.Fatalf("expected rate limit message got %s", rec.Body.String())
	}
	if got := testutil.ToFloat64(metrics.APIRateLimitHits); got != before+1 {
		t.Fatalf("expected rate limit counter %v got %v", before+1, got)
	}

	rec = httptest.NewRecorder()
	RateLimit(nil)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/films", nil))
	if !called || rec.Code != http.StatusNoContent {
		t.Fatalf("expected nil limiter to pass through got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	if got := ClientIP(req); got != "192.0.2.10" {
		t.Fatalf("expected host only got %q", got)
	}

	req.RemoteAddr = "192.0.2.11"
	if got := ClientIP(req); got != "192.0.2.11" {
		t.Fatalf("expected bare address got %q", got)
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var seen string
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFromContext(r.Context())
		logging.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/films", nil))

	if seen == "" {
		t.Fatal("expected request id on context")
	}
	if got := rec.Header().Get(RequestIDHeader); got != seen {
		t.Fatalf("expected response header %q got %q", seen, got)
	}
	if !strings.Contains(buf.String(), `"request_id":"`+seen+`"`) {
		t.Fatalf("expected logs to carry request id: %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"status":201`) {
		t.Fatalf("expected completion log with status: %s", buf.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/films", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "abc-123" {
		t.Fatalf("expected incoming request id to be reused got %q", seen)
	}
}

func TestRequestLoggerRecoversPanics(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	handler := RequestLogger(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/films", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "message") {
		t.Fatalf("expected json error body got %s", rec.Body.String())
	}
}

func TestPrometheusMetricsUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/films/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/films/{id}", "404")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/films/17", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 got %d", rec.Code)
	}
	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Fatalf("expected counter %v got %v", before+1, got)
	}
}
