package repository

import (
	"context"
	"errors"

	"flow-orchestrator/backend/pkg/models"
)

// ErrNotFound is returned for missing records and for records owned by a
// different scope; callers cannot tell the two apart.
var ErrNotFound = errors.New("not found")

// FlowFilter narrows a flow listing.
type FlowFilter struct {
	Category      string
	TemplatesOnly bool
}

// ExecutionFilter narrows a history listing. Limit <= 0 means no limit.
type ExecutionFilter struct {
	FlowName string
	Limit    int
}

// FlowStore persists flow definitions. Every read and write matches the
// full scope: user and client.
type FlowStore interface {
	CreateFlow(ctx context.Context, flow *models.Flow) error
	GetFlow(ctx context.Context, scope models.Scope, id string) (*models.Flow, error)
	UpdateFlow(ctx context.Context, flow *models.Flow) error
	DeleteFlow(ctx context.Context, scope models.Scope, id string) error
	ListFlows(ctx context.Context, scope models.Scope, filter FlowFilter) ([]*models.Flow, error)
}

// ExecutionStore persists execution traces. Traces are written once and
// never updated.
type ExecutionStore interface {
	SaveExecution(ctx context.Context, trace *models.ExecutionTrace) error
	GetExecution(ctx context.Context, scope models.Scope, id string) (*models.ExecutionTrace, error)
	ListExecutions(ctx context.Context, scope models.Scope, filter ExecutionFilter) ([]models.ExecutionSummary, error)
}

// ClientStore persists the sub-tenants registered by each owner.
type ClientStore interface {
	CreateClient(ctx context.Context, client *models.Client) error
	GetClient(ctx context.Context, ownerID, id string) (*models.Client, error)
	ListClients(ctx context.Context, ownerID string) ([]*models.Client, error)
}

// Repository is the full persistence surface used by the services.
type Repository interface {
	FlowStore
	ExecutionStore
	ClientStore
	Ping(ctx context.Context) error
}
