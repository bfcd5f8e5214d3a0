package health

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bytescript/bytescript-rtc/internal/relay"
	"github.com/bytescript/bytescript-rtc/internal/token"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

func newTestHandler(t *testing.T, rdb *redis.Client) *Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer, err := token.NewIssuer("test-secret", time.Minute)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}

	presence := relay.NewPresence(rdb, logger)
	registry := relay.NewRegistry(presence, logger)
	router := relay.NewRouter(registry, logger)
	server := relay.NewServer(issuer, registry, router, relay.Config{}, logger)

	return NewHandler(server, registry, presence, rdb)
}

func TestHandler_Liveness(t *testing.T) {
	h := newTestHandler(t, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Liveness(c); err != nil {
		t.Fatalf("Liveness returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.OK || resp.Service != ServiceName {
		t.Errorf("unexpected body: %+v", resp)
	}
}

func TestHandler_Readiness(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := newTestHandler(t, rdb)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/health/ready", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Readiness(c); err != nil {
		t.Fatalf("Readiness returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp ReadinessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", resp.Status)
	}
	if resp.Components["redis"].Status != StatusHealthy {
		t.Errorf("expected healthy redis component, got %+v", resp.Components["redis"])
	}
}

func TestHandler_Readiness_WithoutRedis(t *testing.T) {
	h := newTestHandler(t, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/health/ready", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Readiness(c); err != nil {
		t.Fatalf("Readiness returned error: %v", err)
	}

	var resp ReadinessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != StatusDegraded {
		t.Errorf("expected degraded without redis, got %s", resp.Status)
	}
}
