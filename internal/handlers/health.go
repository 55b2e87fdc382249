package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/adventure-console/internal/services"
)

type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Service    string            `json:"service"`
	Components map[string]string `json:"components"`
}

// HealthCheck names one dependency to ping.
type HealthCheck struct {
	Name   string
	Pinger services.Pinger
}

type HealthHandler struct {
	checks  []HealthCheck
	timeout time.Duration
	logger  *slog.Logger
}

// NewHealthHandler reports healthy only when every check pings. Checks
// with a nil Pinger are skipped.
func NewHealthHandler(logger *slog.Logger, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	components := make(map[string]string)
	overallStatus := "healthy"

	for _, c := range h.checks {
		if c.Pinger == nil {
			continue
		}
		if err := c.Pinger.Ping(ctx); err != nil {
			h.logger.Warn("Health check failed", "component", c.Name, "error", err)
			components[c.Name] = "unhealthy"
			overallStatus = "degraded"
			continue
		}
		components[c.Name] = "healthy"
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, h.logger, statusCode, HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "adventure-console",
		Components: components,
	})
}
