// Package api contains the HTTP handlers for the flow orchestration service
package api

import (
	"net/http"

	"flow-orchestrator/backend/internal/auth"
	"flow-orchestrator/backend/internal/repository"
	"flow-orchestrator/backend/internal/routing"
	"flow-orchestrator/backend/internal/services"
	"flow-orchestrator/backend/pkg/models"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Server holds the dependencies for the API server.
type Server struct {
	Repo         repository.Repository
	Flows        *services.FlowService
	Orchestrator *services.OrchestratorService
	Clients      *services.ClientService
	Router       *routing.Router
	Logger       Logger
}

// NewServer creates a new Server.
func NewServer(repo repository.Repository, flows *services.FlowService, orchestrator *services.OrchestratorService,
	clients *services.ClientService, router *routing.Router, logger Logger) *Server {
	return &Server{
		Repo:         repo,
		Flows:        flows,
		Orchestrator: orchestrator,
		Clients:      clients,
		Router:       router,
		Logger:       logger,
	}
}

// NewEcho creates the echo instance with the service middleware stack and
// the Problem Details error handler.
func NewEcho(logger Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("flow-orchestrator"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				args = append(args, "error", v.Error)
			}
			if v.Status >= http.StatusInternalServerError {
				logger.Error("request", args...)
			} else {
				logger.Info("request", args...)
			}
			return nil
		},
	}))
	return e
}

// RegisterHandlers mounts every REST route on g, which is expected to be
// the /api/v1 group.
func RegisterHandlers(g *echo.Group, s *Server, scope *auth.Resolver) {
	browse := scope.Middleware(auth.BrowsePolicy)
	history := scope.Middleware(auth.HistoryPolicy)
	resource := scope.Middleware(auth.ResourcePolicy)
	owner := scope.Middleware(auth.OwnerPolicy)

	g.GET("/health", s.HandleHealth)

	g.GET("/flows/templates", s.ListTemplates, browse)
	g.GET("/flows", s.ListFlows, browse)
	g.POST("/flows", s.CreateFlow, resource)
	g.GET("/flows/:id", s.GetFlow, resource)
	g.PUT("/flows/:id", s.UpdateFlow, resource)
	g.POST("/flows/:id/duplicate", s.DuplicateFlow, resource)
	g.DELETE("/flows/:id", s.DeleteFlow, resource)

	g.POST("/orchestrator/execute", s.Execute, resource)
	g.GET("/orchestrator/history", s.ListHistory, history)
	g.GET("/orchestrator/history/:id", s.GetHistory, resource)
	g.POST("/orchestrator/route", s.RouteTask)
	g.GET("/orchestrator/agent-brief/:slug", s.AgentBrief)
	g.GET("/orchestrator/agents", s.ListAgents)
	g.GET("/orchestrator/templates", s.ListTemplates, browse)

	g.POST("/clients", s.CreateClient, owner)
	g.GET("/clients", s.ListClients, owner)
}

// scopeOf returns the scope resolved by the auth middleware.
func scopeOf(c echo.Context) (models.Scope, error) {
	sc, ok := auth.ScopeFrom(c)
	if !ok {
		return models.Scope{}, auth.ErrUnauthenticated
	}
	return sc, nil
}
