package services

import (
	"context"
	"fmt"
	"strings"

	"flow-orchestrator/backend/internal/engine"
	"flow-orchestrator/backend/internal/repository"
	"flow-orchestrator/backend/pkg/models"

	"github.com/google/uuid"
)

// ExecuteRequest describes one execution. When Graph has no nodes and
// FlowID is set, the stored flow's graph is run.
type ExecuteRequest struct {
	Graph  models.FlowGraph
	FlowID string
	Name   string
}

// OrchestratorService runs flows and records their traces.
type OrchestratorService struct {
	engine     *engine.Engine
	flows      repository.FlowStore
	executions repository.ExecutionStore
	logger     Logger
}

// NewOrchestratorService creates an OrchestratorService. A nil logger
// discards output.
func NewOrchestratorService(e *engine.Engine, flows repository.FlowStore, executions repository.ExecutionStore, logger Logger) *OrchestratorService {
	if logger == nil {
		logger = nopLogger{}
	}
	return &OrchestratorService{engine: e, flows: flows, executions: executions, logger: logger}
}

// Execute validates and runs a graph under scope and saves the trace. A
// referenced flow must belong to scope. Validation errors are returned
// before anything is written; a failed write returns ErrPersistence.
func (s *OrchestratorService) Execute(ctx context.Context, scope models.Scope, req ExecuteRequest) (*models.ExecutionTrace, error) {
	graph := req.Graph
	name := strings.TrimSpace(req.Name)
	var flowID *string

	if id := strings.TrimSpace(req.FlowID); id != "" {
		stored, err := s.flows.GetFlow(ctx, scope, id)
		if err != nil {
			return nil, err
		}
		flowID = &stored.ID
		if len(graph.Nodes) == 0 {
			graph = stored.Graph
		}
		if name == "" {
			name = stored.Name
		}
	}
	if name == "" {
		name = UntitledFlow
	}

	trace, err := s.engine.Run(ctx, graph)
	if err != nil {
		return nil, err
	}
	trace.ID = uuid.New().String()
	trace.UserID = scope.UserID
	trace.ClientID = scope.ClientID
	trace.FlowID = flowID
	trace.FlowName = name

	if err := s.executions.SaveExecution(ctx, trace); err != nil {
		s.logger.Error("failed to save execution", "execution_id", trace.ID, "flow_name", name, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.logger.Info("flow executed", "execution_id", trace.ID, "flow_name", name,
		"outcome", trace.Outcome, "steps", trace.StepsExecuted, "total_ms", trace.TotalDurationMS)
	return trace, nil
}

// History lists execution summaries recorded under scope, newest first.
func (s *OrchestratorService) History(ctx context.Context, scope models.Scope, filter repository.ExecutionFilter) ([]models.ExecutionSummary, error) {
	return s.executions.ListExecutions(ctx, scope, filter)
}

// Detail returns one trace recorded under scope.
func (s *OrchestratorService) Detail(ctx context.Context, scope models.Scope, id string) (*models.ExecutionTrace, error) {
	return s.executions.GetExecution(ctx, scope, id)
}
