package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"incident-map/domain/services"
)

// Pinger is any dependency that can report its own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db             *gorm.DB
	clusterService services.ClusterService
	// optional components, keyed by name; nil entries are reported unavailable
	components map[string]Pinger
	liveUsers  func() int
}

func NewHealthHandler(db *gorm.DB, clusterService services.ClusterService, components map[string]Pinger, liveUsers func() int) *HealthHandler {
	return &HealthHandler{
		db:             db,
		clusterService: clusterService,
		components:     components,
		liveUsers:      liveUsers,
	}
}

// ComponentHealth represents health status of a component
type ComponentHealth struct {
	Status  string `json:"status"` // "ok", "error", "unavailable"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// DetailedHealthResponse represents detailed health check response
type DetailedHealthResponse struct {
	Status     string                     `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
	Metrics    *HealthMetrics             `json:"metrics,omitempty"`
}

type HealthMetrics struct {
	Clusters       int  `json:"clusters"`
	RegionMapStale bool `json:"region_map_stale"`
	LiveUsers      int  `json:"live_users"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"message": "Server is running",
		"service": "Incident Map API",
	})
}

// DetailedHealth godoc
// @Summary Get detailed system health
// @Tags Health
// @Produce json
// @Success 200 {object} DetailedHealthResponse
// @Router /health/detailed [get]
func (h *HealthHandler) DetailedHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 10*time.Second)
	defer cancel()

	response := DetailedHealthResponse{
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}

	allHealthy := true

	dbHealth := h.checkDatabase(ctx)
	response.Components["database"] = dbHealth

	for name, p := range h.components {
		health := check(ctx, p)
		response.Components[name] = health
		if health.Status == "error" {
			allHealthy = false
		}
	}

	if dbHealth.Status == "ok" && h.clusterService != nil {
		metrics := &HealthMetrics{}
		if maps, err := h.clusterService.GetRegionMaps(ctx); err == nil {
			metrics.Clusters = len(maps.Clusters)
			metrics.RegionMapStale = maps.Stale
		}
		if h.liveUsers != nil {
			metrics.LiveUsers = h.liveUsers()
		}
		response.Metrics = metrics
	}

	switch {
	case dbHealth.Status != "ok":
		response.Status = "unhealthy"
	case !allHealthy:
		response.Status = "degraded"
	default:
		response.Status = "healthy"
	}

	statusCode := fiber.StatusOK
	if response.Status == "unhealthy" {
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(response)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) ComponentHealth {
	start := time.Now()

	if h.db == nil {
		return ComponentHealth{Status: "error", Message: "Database not configured"}
	}

	sqlDB, err := h.db.DB()
	if err != nil {
		return ComponentHealth{Status: "error", Message: "Failed to get database connection: " + err.Error()}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return ComponentHealth{Status: "error", Message: "Database ping failed: " + err.Error()}
	}

	return ComponentHealth{Status: "ok", Message: "Connected", Latency: time.Since(start).String()}
}

func check(ctx context.Context, p Pinger) ComponentHealth {
	if p == nil {
		return ComponentHealth{Status: "unavailable", Message: "Not configured"}
	}

	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		return ComponentHealth{Status: "error", Message: err.Error()}
	}
	return ComponentHealth{Status: "ok", Latency: time.Since(start).String()}
}
