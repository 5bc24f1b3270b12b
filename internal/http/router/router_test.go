package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apphttp "converzia_backend/internal/http"
	"converzia_backend/platform/config"
	"converzia_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type recordingModule struct{ registered bool }

func (m *recordingModule) Name() string { return "recording" }

func (m *recordingModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.registered = true
	ctx.Protected.GET("/whoami", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func newTestEngine(health apphttp.HealthChecker, modules ...apphttp.Module) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWTAccessSecret: "secret", CORSOrigins: []string{"https://app.example.com"}}
	return New(&apphttp.App{Config: cfg, Logger: logger.Nop(), Health: health, Modules: modules})
}

func TestHealthAndReadiness(t *testing.T) {
	engine := newTestEngine(pingFunc(func(context.Context) error { return errors.New("down") }))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready: expected 503 when the database is down, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	engine := newTestEngine(nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatalf("expected prometheus exposition, got %d", rec.Code)
	}
}

func TestModuleRoutesAreProtected(t *testing.T) {
	module := &recordingModule{}
	engine := newTestEngine(nil, module)
	if !module.registered {
		t.Fatal("module routes were not registered")
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	engine := newTestEngine(nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}
