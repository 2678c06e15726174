package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/biogene/stockdash/internal/config"
	"github.com/biogene/stockdash/internal/core"
	"github.com/biogene/stockdash/internal/ingest"
)

// newTestServer builds a Server with no database behind it. Only routes that
// never touch the pool may be exercised.
func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.RequestTimeout = 30 * time.Second
	cfg.Upload.MaxFileSize = 1 << 20
	cfg.Security.EnableCSP = true
	if mutate != nil {
		mutate(cfg)
	}

	service := core.NewService(nil, ingest.Options{}, core.NewUploadLimiter(1, time.Second))
	return NewServer(cfg, service)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("expected CSP header when enabled")
	}
}

func TestSecurityHeaders_CSPDisabled(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Security.EnableCSP = false
	})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Header().Get("Content-Security-Policy") != "" {
		t.Error("CSP header should be absent when disabled")
	}
}

func TestAPIKeyRequired(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Security.RequireAPIKey = true
		cfg.Security.APIKeys = []string{"secret-key"}
	})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/uploads/status", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("without key: status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest("GET", "/api/uploads/status", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("with bad key: status = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest("GET", "/api/uploads/status", nil)
	req.Header.Set("X-API-Key", "secret-key")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("with good key: status = %d, want 200", rec.Code)
	}
}

func TestUpload_NoFile(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest("POST", "/api/datasets", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadProgress_UnknownUpload(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/uploads/nope/progress", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestUploadQueueStatus(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/uploads/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     2,
		window:   time.Minute,
	}

	if !rl.allow("1.2.3.4") {
		t.Fatal("first request should pass")
	}
	if !rl.allow("1.2.3.4") {
		t.Fatal("second request should pass")
	}
	if rl.allow("1.2.3.4") {
		t.Fatal("third request should be limited")
	}
	if !rl.allow("5.6.7.8") {
		t.Fatal("other IPs should not be affected")
	}
}

func TestRateLimiter_WindowReset(t *testing.T) {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     1,
		window:   10 * time.Millisecond,
	}

	if !rl.allow("1.2.3.4") {
		t.Fatal("first request should pass")
	}
	if rl.allow("1.2.3.4") {
		t.Fatal("second request should be limited")
	}

	time.Sleep(20 * time.Millisecond)
	if !rl.allow("1.2.3.4") {
		t.Fatal("request after window reset should pass")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Rate.Enabled = true
		cfg.Rate.RequestsPerMinute = 2
		cfg.Rate.UploadLimit = 2
	})

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/healthz", nil)
		req.Header.Set("X-Real-IP", "9.9.9.9")
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		last = rec.Code
	}

	if last != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", last)
	}
}

func TestRateLimiter_CleanupEvictsStale(t *testing.T) {
	rl := newRateLimiter(1, 10*time.Millisecond)
	defer rl.Close()

	rl.allow("1.2.3.4")

	// Stale after 2x the window; give the janitor a few ticks.
	time.Sleep(60 * time.Millisecond)

	rl.mu.Lock()
	remaining := len(rl.visitors)
	rl.mu.Unlock()

	if remaining != 0 {
		t.Errorf("visitors after cleanup = %d, want 0", remaining)
	}
}

func TestRateLimiter_CloseIsIdempotent(t *testing.T) {
	rl := newRateLimiter(1, time.Minute)

	rl.Close()
	rl.Close()

	// Limiting still works after the janitor stops.
	if !rl.allow("1.2.3.4") {
		t.Error("first request should pass after Close")
	}
	if rl.allow("1.2.3.4") {
		t.Error("second request should be limited after Close")
	}
}

func TestServerShutdown_StopsLimiters(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Rate.Enabled = true
		cfg.Rate.RequestsPerMinute = 100
		cfg.Rate.UploadLimit = 10
	})

	if len(s.limiters) != 2 {
		t.Fatalf("limiters = %d, want 2", len(s.limiters))
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	// Stop channels are closed; a second shutdown must not panic.
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	if got := sanitizeErrorMessage(500, "pq: connection refused at 10.0.0.1"); got != "internal server error" {
		t.Errorf("5xx message leaked: %q", got)
	}
	if got := sanitizeErrorMessage(404, "dataset not found: abc"); got != "dataset not found: abc" {
		t.Errorf("4xx message altered: %q", got)
	}
}
