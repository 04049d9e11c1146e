package api

import (
	"errors"
	"net/http"
	"time"

	"flow-orchestrator/backend/internal/auth"
	"flow-orchestrator/backend/internal/engine"
	"flow-orchestrator/backend/internal/repository"
	"flow-orchestrator/backend/internal/routing"
	"flow-orchestrator/backend/internal/services"

	"github.com/labstack/echo/v4"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Store     string    `json:"store"`
}

// HandleHealth returns basic health status (always returns 200 OK). The
// store field reports whether persistence answered a ping.
// (GET /api/v1/health)
func (s *Server) HandleHealth(c echo.Context) error {
	store := "ok"
	if err := s.Repo.Ping(c.Request().Context()); err != nil {
		s.Logger.Warn("health ping failed", "error", err)
		store = "unavailable"
	}
	return c.JSON(http.StatusOK, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Service:   "flow-orchestrator",
		Version:   Version,
		Store:     store,
	})
}

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
	// Reason and NodeID extend the problem for rejected flow graphs.
	Reason string `json:"reason,omitempty"`
	NodeID string `json:"node_id,omitempty"`
}

// problemFor maps an error to its Problem Details body.
func problemFor(err error) ProblemDetails {
	var (
		verr *engine.ValidationError
		herr *echo.HTTPError
	)
	p := ProblemDetails{Type: "about:blank", Detail: err.Error()}
	switch {
	case errors.As(err, &verr):
		p.Status, p.Title = http.StatusBadRequest, "Invalid Flow"
		p.Reason, p.NodeID, p.Detail = string(verr.Reason), verr.NodeID, verr.Detail
	case errors.Is(err, auth.ErrUnauthenticated):
		p.Status, p.Title = http.StatusUnauthorized, "Unauthenticated"
	case errors.Is(err, auth.ErrScopeMissing):
		p.Status, p.Title = http.StatusBadRequest, "Client Scope Required"
	case errors.Is(err, auth.ErrScopeNotOwned),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, routing.ErrAgentNotFound):
		p.Status, p.Title = http.StatusNotFound, "Not Found"
	case errors.Is(err, routing.ErrEmptyTask),
		errors.Is(err, services.ErrClientNameRequired):
		p.Status, p.Title = http.StatusBadRequest, "Bad Request"
	case errors.Is(err, services.ErrPersistence):
		p.Status, p.Title = http.StatusInternalServerError, "Execution Not Saved"
	case errors.As(err, &herr):
		p.Status, p.Title = herr.Code, http.StatusText(herr.Code)
		if msg, ok := herr.Message.(string); ok {
			p.Detail = msg
		}
	default:
		p.Status, p.Title = http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
		p.Detail = "internal server error"
	}
	return p
}

// ErrorHandler renders every handler error as RFC 7807 Problem Details.
func ErrorHandler(logger Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		p := problemFor(err)
		p.Instance = c.Request().URL.Path
		if p.Status >= http.StatusInternalServerError {
			logger.Error("request failed", "path", p.Instance, "status", p.Status, "error", err)
		}

		c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(p.Status)
			return
		}
		if werr := c.JSON(p.Status, p); werr != nil {
			logger.Error("failed to write error response", "error", werr)
		}
	}
}
