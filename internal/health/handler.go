package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/bytescript/bytescript-rtc/internal/relay"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const ServiceName = "bytescript-rtc"

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
}

type ComponentStatus struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type RelayStats struct {
	Connections int              `json:"connections"`
	Rooms       int              `json:"rooms"`
	Occupancy   map[string]int64 `json:"occupancy,omitempty"`
}

type RuntimeStats struct {
	Goroutines    int    `json:"goroutines"`
	MemoryAllocMB uint64 `json:"memory_alloc_mb"`
	NumGC         uint32 `json:"num_gc"`
}

type ReadinessResponse struct {
	Status        Status                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Relay         RelayStats                 `json:"relay"`
	Runtime       RuntimeStats               `json:"runtime"`
	Components    map[string]ComponentStatus `json:"components"`
}

type Handler struct {
	relayServer *relay.Server
	registry    *relay.Registry
	presence    *relay.Presence
	redis       *redis.Client
	startTime   time.Time
}

func NewHandler(relayServer *relay.Server, registry *relay.Registry, presence *relay.Presence, rdb *redis.Client) *Handler {
	return &Handler{
		relayServer: relayServer,
		registry:    registry,
		presence:    presence,
		redis:       rdb,
		startTime:   time.Now(),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/health", h.Liveness)
	g.GET("/health/ready", h.Readiness)
}

func (h *Handler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true, Service: ServiceName})
}

func (h *Handler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	components := map[string]ComponentStatus{
		"redis": h.checkRedis(ctx),
	}

	status := StatusHealthy
	for _, component := range components {
		if component.Status != StatusHealthy {
			status = StatusDegraded
		}
	}

	occupancy, _ := h.presence.RoomOccupancy(ctx)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return c.JSON(http.StatusOK, ReadinessResponse{
		Status:        status,
		Timestamp:     time.Now().UTC(),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Relay: RelayStats{
			Connections: h.relayServer.ConnCount(),
			Rooms:       h.registry.RoomCount(),
			Occupancy:   occupancy,
		},
		Runtime: RuntimeStats{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: memStats.Alloc / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Components: components,
	})
}

func (h *Handler) checkRedis(ctx context.Context) ComponentStatus {
	start := time.Now()
	if h.redis == nil {
		return ComponentStatus{
			Status:    StatusDegraded,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "redis not configured",
		}
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "ping failed",
		}
	}

	return ComponentStatus{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}
