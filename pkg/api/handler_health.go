package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

const (
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"
)

// HealthCheck is one component's entry in the GET /healthz response.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned by GET /healthz, grounded on the teacher's
// healthHandler (pkg/api/handler_health.go). Unauthenticated by design: it
// reports only the orchestrator's own worker pool, never the event bus or
// downstream generation providers.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]HealthCheck `json:"checks"`
}

// healthHandler handles GET /healthz.
func (s *Server) healthHandler(c *echo.Context) error {
	checks := make(map[string]HealthCheck)
	status := healthStatusHealthy

	if s.pool != nil {
		poolHealth := s.pool.Health()
		if poolHealth.TotalWorkers == 0 {
			status = healthStatusDegraded
			checks["worker_pool"] = HealthCheck{Status: healthStatusDegraded, Message: "no workers running"}
		} else {
			checks["worker_pool"] = HealthCheck{Status: healthStatusHealthy}
		}
	}

	return c.JSON(http.StatusOK, &HealthResponse{Status: status, Checks: checks})
}
