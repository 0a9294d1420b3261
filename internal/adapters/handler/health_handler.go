package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const healthCheckTimeout = 5 * time.Second

// Pinger is any dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisPinger is the slice of *redis.Client the readiness probe needs.
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

type HealthHandler struct {
	database    Pinger
	redisClient RedisPinger
	startTime   time.Time
	version     string
	log         *zap.Logger
}

// NewHealthHandler builds the probes. redisClient may be nil when sessions
// are kept in memory; the readiness check then skips Redis.
func NewHealthHandler(database Pinger, redisClient RedisPinger, version string, log *zap.Logger) *HealthHandler {
	if version == "" {
		version = "unknown"
	}
	return &HealthHandler{
		database:    database,
		redisClient: redisClient,
		startTime:   time.Now(),
		version:     version,
		log:         log,
	}
}

// HealthResponse follows Kubernetes/OpenShift health check conventions
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health is a simple liveness check - just confirms the Go process is running
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.log, http.StatusOK, HealthResponse{
		Status:    "UP",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		Checks:    map[string]Check{"process": {Status: "UP"}},
	})
}

// Ready checks if the service is ready to accept traffic (readiness probe)
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]Check{"database": h.checkDatabase(ctx)}
	if h.redisClient != nil {
		checks["redis"] = h.checkRedis(ctx)
	}

	status, httpStatus := "UP", http.StatusOK
	for name, c := range checks {
		if c.Status != "UP" {
			h.log.Warn("readiness check failed", zap.String("check", name), zap.String("message", c.Message))
			status, httpStatus = "DOWN", http.StatusServiceUnavailable
		}
	}

	writeJSON(w, h.log, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		Checks:    checks,
	})
}

// Live is an alias for Health - simple liveness check
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	h.Health(w, r)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	if h.database == nil {
		return Check{Status: "DOWN", Message: "Database connection is not initialized"}
	}
	if err := h.database.Ping(ctx); err != nil {
		return Check{Status: "DOWN", Message: "Cannot connect to database"}
	}
	return Check{Status: "UP"}
}

func (h *HealthHandler) checkRedis(ctx context.Context) Check {
	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		return Check{Status: "DOWN", Message: "Cannot connect to Redis"}
	}
	return Check{Status: "UP"}
}
