package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"database": s.checkDatabase(),
		"photos":   s.checkPhotoStorage(),
	}

	overall := "healthy"
	for _, c := range components {
		switch c.Status {
		case "unhealthy":
			overall = "unhealthy"
		case "degraded":
			if overall == "healthy" {
				overall = "degraded"
			}
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// checkDatabase verifies Badger is accessible.
func (s *Server) checkDatabase() ComponentHealth {
	if s.store == nil {
		return ComponentHealth{
			Status:  "degraded",
			Message: "database not configured",
		}
	}

	start := time.Now()
	err := s.store.Ping()
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "database read failed",
		}
	}
	return ComponentHealth{
		Status:  "healthy",
		Latency: latency.String(),
	}
}

// checkPhotoStorage reports whether photo grants can be issued. Visits and
// friendships keep working without it, so it never makes the server unhealthy.
func (s *Server) checkPhotoStorage() ComponentHealth {
	if s.opts.PhotoStorage == nil || !s.opts.PhotoStorage.Configured() {
		return ComponentHealth{
			Status:  "degraded",
			Message: "photo storage not configured",
		}
	}
	return ComponentHealth{Status: "healthy"}
}
