package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/signboard/internal/config"
	"github.com/friendsincode/signboard/internal/events"
	"github.com/friendsincode/signboard/internal/timeline"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:      "test",
		HTTPBind:         "127.0.0.1",
		HTTPPort:         0,
		DBBackend:        config.DatabaseSQLite,
		DBDSN:            "file::memory:",
		JWTSigningKey:    "test-key",
		JWTTTL:           time.Hour,
		StacksBaseURL:    "http://127.0.0.1:1",
		StacksUsername:   "user",
		StacksPassword:   "pass",
		StacksTimeout:    time.Second,
		FetchConcurrency: 2,
		SlotFetchTimeout: time.Second,
		LeaderOrder:      timeline.OrderFetch,
		EventBus:         config.EventBusMemory,
	}
}

func TestSecurityHeadersMiddleware_BaselineHeaders(t *testing.T) {
	h := securityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options=%q, want nosniff", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("X-Frame-Options=%q, want DENY", got)
	}
	if got := rr.Header().Get("Referrer-Policy"); got != "strict-origin-when-cross-origin" {
		t.Fatalf("Referrer-Policy=%q, want strict-origin-when-cross-origin", got)
	}
	if got := rr.Header().Get("Content-Security-Policy"); !strings.Contains(got, "frame-ancestors 'none'") {
		t.Fatalf("Content-Security-Policy=%q, want frame-ancestors 'none'", got)
	}
	if got := rr.Header().Get("Strict-Transport-Security"); got != "" {
		t.Fatalf("expected no HSTS on non-HTTPS request, got %q", got)
	}
}

func TestSecurityHeadersMiddleware_SetsHSTSOnHTTPS(t *testing.T) {
	h := securityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Fatalf("Strict-Transport-Security=%q, want max-age=31536000; includeSubDomains", got)
	}
}

func TestNewServesHealthAndProtectsAPI(t *testing.T) {
	srv, err := New(testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer srv.Close()

	if srv.MetricsServer() != nil {
		t.Fatal("expected metrics on the main router when no metrics bind is set")
	}

	tests := []struct {
		path   string
		status int
	}{
		{"/healthz", http.StatusOK},
		{"/api/v1/health", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/v1/campaigns", http.StatusUnauthorized},
		{"/api/v1/sequences", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			srv.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rr.Code != tt.status {
				t.Fatalf("GET %s = %d, want %d", tt.path, rr.Code, tt.status)
			}
		})
	}
}

func TestNewRejectsMissingStacksCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.StacksPassword = ""
	if _, err := New(cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected error without stacks credentials")
	}
}

func TestNewBrokerMemory(t *testing.T) {
	bus, closeFn := NewBroker(testConfig(), zerolog.Nop())
	defer closeFn()
	if _, ok := bus.(*events.Bus); !ok {
		t.Fatalf("expected in-process bus, got %T", bus)
	}
}

func TestAggregatorOptions(t *testing.T) {
	cfg := testConfig()
	cfg.LeaderOrder = timeline.OrderStartAsc
	opts := AggregatorOptions(cfg)
	if opts.Concurrency != 2 || opts.SlotTimeout != time.Second || opts.LeaderOrder != timeline.OrderStartAsc {
		t.Fatalf("unexpected options %+v", opts)
	}
}
