package api

import (
	"net/http"

	"flow-orchestrator/backend/internal/auth"
	"flow-orchestrator/backend/internal/repository"
	"flow-orchestrator/backend/internal/services"
	"flow-orchestrator/backend/pkg/models"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// ExecuteRequest is the body of POST /orchestrator/execute.
type ExecuteRequest struct {
	Flow   models.FlowGraph `json:"flow"`
	FlowID string           `json:"flow_id"`
	Name   string           `json:"name"`
}

// ExecutionResponse wraps a trace with the fields older consumers read.
// ClientID shadows the trace field so the resolved scope is always echoed.
type ExecutionResponse struct {
	*models.ExecutionTrace
	Success          bool                  `json:"success"`
	ClientID         string                `json:"client_id"`
	NodesTotal       int                   `json:"nodes_total"`
	Results          []models.LegacyResult `json:"results"`
	ElapsedMS        float64               `json:"elapsed_ms"`
	ExecutionID      string                `json:"execution_id"`
	TraceExecutionID string                `json:"trace_execution_id"`
}

func executionResponse(t *models.ExecutionTrace) ExecutionResponse {
	return ExecutionResponse{
		ExecutionTrace:   t,
		Success:          true,
		ClientID:         t.ClientID,
		NodesTotal:       len(t.Steps),
		Results:          t.LegacyResults(),
		ElapsedMS:        t.TotalDurationMS,
		ExecutionID:      t.ID,
		TraceExecutionID: t.ID,
	}
}

// RouteRequest is the body of POST /orchestrator/route.
type RouteRequest struct {
	Task string `json:"task"`
	TopK int    `json:"top_k"`
}

// Execute validates and runs a flow, then records its trace.
// (POST /api/v1/orchestrator/execute)
func (s *Server) Execute(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req ExecuteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if len(req.Flow.Nodes) == 0 && req.FlowID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "flow or flow_id is required")
	}

	trace, err := s.Orchestrator.Execute(c.Request().Context(), scope, services.ExecuteRequest{
		Graph:  req.Flow,
		FlowID: req.FlowID,
		Name:   req.Name,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, executionResponse(trace))
}

// ListHistory returns execution summaries for the caller's scope, newest
// first. An unowned client scope gets an empty list.
// (GET /api/v1/orchestrator/history)
func (s *Server) ListHistory(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}

	var (
		limit    *int
		flowName *string
	)
	if err := runtime.BindQueryParameter("form", true, false, "limit", c.QueryParams(), &limit); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid format for parameter limit: "+err.Error())
	}
	if err := runtime.BindQueryParameter("form", true, false, "flow_name", c.QueryParams(), &flowName); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid format for parameter flow_name: "+err.Error())
	}
	filter := repository.ExecutionFilter{Limit: defaultHistoryLimit}
	if limit != nil && *limit > 0 {
		filter.Limit = min(*limit, maxHistoryLimit)
	}
	if flowName != nil {
		filter.FlowName = *flowName
	}

	if auth.IsUnowned(c) {
		return c.JSON(http.StatusOK, []models.ExecutionSummary{})
	}
	items, err := s.Orchestrator.History(c.Request().Context(), scope, filter)
	if err != nil {
		return err
	}
	if items == nil {
		items = []models.ExecutionSummary{}
	}
	return c.JSON(http.StatusOK, items)
}

// GetHistory returns one trace with its legacy results view.
// (GET /api/v1/orchestrator/history/{id})
func (s *Server) GetHistory(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	trace, err := s.Orchestrator.Detail(c.Request().Context(), scope, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, executionResponse(trace))
}

// RouteTask scores a free-text task against the agent catalog.
// (POST /api/v1/orchestrator/route)
func (s *Server) RouteTask(c echo.Context) error {
	var req RouteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	result, err := s.Router.Route(c.Request().Context(), req.Task, req.TopK)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// AgentBrief returns one agent with its connector summaries.
// (GET /api/v1/orchestrator/agent-brief/{slug})
func (s *Server) AgentBrief(c echo.Context) error {
	slug, err := pathID(c, "slug")
	if err != nil {
		return err
	}
	brief, err := s.Router.Brief(c.Request().Context(), slug)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, brief)
}

// ListAgents returns the agent catalog.
// (GET /api/v1/orchestrator/agents)
func (s *Server) ListAgents(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Router.Agents())
}
