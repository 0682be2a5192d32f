package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/homeready/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func memoryConfig() AppConfig {
	return AppConfig{
		StoreBackend:    BackendMemory,
		SessionKey:      "test-session-key-for-testing-only",
		SessionName:     "test-session",
		SessionMaxAge:   time.Hour,
		BaseURL:         "http://localhost:3000",
		InviteReconcile: "ledger",
		SeedNewHomes:    true,
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"memory backend", "dev", func(*AppConfig) {}, false},
		{"mongo backend", "dev", func(c *AppConfig) {
			c.StoreBackend = BackendMongo
			c.MongoURI = "mongodb://localhost:27017"
			c.MongoDatabase = "homeready"
		}, false},
		{"bad mongo uri", "dev", func(c *AppConfig) {
			c.StoreBackend = BackendMongo
			c.MongoURI = "postgres://localhost"
			c.MongoDatabase = "homeready"
		}, true},
		{"unknown backend", "dev", func(c *AppConfig) { c.StoreBackend = "sqlite" }, true},
		{"unknown strategy", "dev", func(c *AppConfig) { c.InviteReconcile = "broadcast" }, true},
		{"push strategy", "dev", func(c *AppConfig) { c.InviteReconcile = "push" }, false},
		{"missing session key", "dev", func(c *AppConfig) { c.SessionKey = "" }, true},
		{"dev key in prod", "prod", func(c *AppConfig) { c.SessionKey = devSessionKey }, true},
		{"trusted proxies", "dev", func(c *AppConfig) { c.TrustedProxies = "10.0.0.0/8, 192.0.2.1" }, false},
		{"bad trusted proxy", "dev", func(c *AppConfig) { c.TrustedProxies = "lb.internal" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(&config.CoreConfig{Env: tt.env}, cfg, testLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStartup_ConfiguresTimeouts(t *testing.T) {
	t.Cleanup(timeouts.Reset)

	cfg := memoryConfig()
	cfg.TimeoutShort = 3 * time.Second
	if err := Startup(context.Background(), &config.CoreConfig{}, cfg, DBDeps{}, testLogger()); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	if timeouts.Short() != 3*time.Second {
		t.Errorf("Short() = %v, want 3s", timeouts.Short())
	}
	if timeouts.Long() != timeouts.DefaultLong {
		t.Errorf("Long() = %v, want default", timeouts.Long())
	}
}

// TestBuildHandler_MemoryBackend runs the lifecycle hooks against the memory
// backend and checks the route layout.
func TestBuildHandler_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	core := &config.CoreConfig{Env: "dev"}
	cfg := memoryConfig()

	deps, err := ConnectDB(ctx, core, cfg, testLogger())
	if err != nil {
		t.Fatalf("ConnectDB: %v", err)
	}
	if deps.MongoClient != nil || deps.Store == nil || deps.Metrics == nil || deps.Limiters == nil {
		t.Fatalf("unexpected deps %+v", deps)
	}
	if err := EnsureSchema(ctx, core, cfg, deps, testLogger()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	// Idempotent.
	if err := EnsureSchema(ctx, core, cfg, deps, testLogger()); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}

	h, err := BuildHandler(core, cfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}

	tests := []struct {
		method, path string
		want         int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/api/userinfo", http.StatusOK},
		{"GET", "/api/homes", http.StatusUnauthorized},
		{"POST", "/api/homes/abc/shares", http.StatusUnauthorized},
		{"GET", "/public/shares/unknown", http.StatusNotFound},
		{"GET", "/no/such/route", http.StatusNotFound},
		{"POST", "/logout", http.StatusUnauthorized},
		{"GET", "/auth/google", http.StatusSeeOther},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "homeready_http_requests_total") {
		t.Errorf("/metrics = %d, missing request counter", rec.Code)
	}
}

// TestSignInLimit_KeysOnPeer checks that a client cannot dodge the sign-in
// limit by rotating X-Forwarded-For unless its peer is a trusted proxy.
func TestSignInLimit_KeysOnPeer(t *testing.T) {
	signIn := func(h http.Handler, forwarded string) int {
		req := httptest.NewRequest("GET", "/auth/google", nil)
		req.RemoteAddr = "192.0.2.1:40000"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	build := func(proxies string) http.Handler {
		core := &config.CoreConfig{Env: "dev"}
		cfg := memoryConfig()
		cfg.SignInRateLimit = 1
		cfg.TrustedProxies = proxies
		deps, err := ConnectDB(context.Background(), core, cfg, testLogger())
		if err != nil {
			t.Fatalf("ConnectDB: %v", err)
		}
		t.Cleanup(deps.Limiters.Stop)
		h, err := BuildHandler(core, cfg, deps, testLogger())
		if err != nil {
			t.Fatalf("BuildHandler: %v", err)
		}
		return h
	}

	h := build("")
	if code := signIn(h, "203.0.113.1"); code != http.StatusSeeOther {
		t.Fatalf("first sign-in = %d", code)
	}
	if code := signIn(h, "203.0.113.2"); code != http.StatusTooManyRequests {
		t.Errorf("rotated X-Forwarded-For = %d, want 429", code)
	}

	h = build("192.0.2.1")
	if code := signIn(h, "203.0.113.1"); code != http.StatusSeeOther {
		t.Fatalf("first client behind proxy = %d", code)
	}
	if code := signIn(h, "203.0.113.2"); code != http.StatusSeeOther {
		t.Errorf("second client behind proxy = %d, want 303", code)
	}
	if code := signIn(h, "203.0.113.1"); code != http.StatusTooManyRequests {
		t.Errorf("repeat client behind proxy = %d, want 429", code)
	}
}

func TestShutdown_StopsLimiters(t *testing.T) {
	ctx := context.Background()
	core := &config.CoreConfig{Env: "dev"}
	cfg := memoryConfig()
	cfg.SignInRateLimit = 5
	cfg.InviteRateLimit = 5

	deps, err := ConnectDB(ctx, core, cfg, testLogger())
	if err != nil {
		t.Fatalf("ConnectDB: %v", err)
	}
	if _, err := BuildHandler(core, cfg, deps, testLogger()); err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}
	if n := deps.Limiters.Len(); n != 2 {
		t.Fatalf("limiters = %d, want 2", n)
	}

	if err := Shutdown(ctx, core, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	late := deps.Limiters.New(1, time.Minute)
	select {
	case <-late.Done():
	default:
		t.Error("limiter group still running after Shutdown")
	}
}
