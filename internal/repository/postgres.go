package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flow-orchestrator/backend/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the tables used by PostgresStore. Execution rows keep
// their flow_id after the flow is deleted, so there is no foreign key.
const Schema = `
CREATE TABLE IF NOT EXISTS clients (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_clients_owner ON clients (owner_id);

CREATE TABLE IF NOT EXISTS flows (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	client_id TEXT,
	name TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT 'Uncategorized',
	description TEXT NOT NULL DEFAULT '',
	is_template BOOLEAN NOT NULL DEFAULT FALSE,
	thumbnail TEXT,
	graph JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_flows_scope ON flows (user_id, client_id);

CREATE TABLE IF NOT EXISTS executions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	client_id TEXT,
	flow_id TEXT,
	flow_name TEXT NOT NULL,
	status TEXT NOT NULL,
	outcome TEXT NOT NULL,
	steps JSONB NOT NULL,
	steps_executed INT NOT NULL,
	success_steps INT NOT NULL,
	warning_steps INT NOT NULL,
	failed_steps INT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	total_duration_ms DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_executions_scope ON executions (user_id, client_id, started_at DESC);
`

const flowColumns = `id, user_id, client_id, name, category, description, is_template, thumbnail, graph, created_at, updated_at`

const summaryColumns = `id, client_id, flow_id, flow_name, status, outcome, steps_executed,
	success_steps, warning_steps, failed_steps, started_at, finished_at, total_duration_ms`

// PostgresStore is a PostgreSQL implementation of Repository.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates any missing tables and indexes.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Ping implements Repository.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// nullable maps the empty string to SQL NULL.
func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func scanFlow(row pgx.Row) (*models.Flow, error) {
	var (
		f                   models.Flow
		clientID, thumbnail *string
	)
	err := row.Scan(&f.ID, &f.UserID, &clientID, &f.Name, &f.Category, &f.Description,
		&f.IsTemplate, &thumbnail, &f.Graph, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	f.ClientID = deref(clientID)
	f.Thumbnail = deref(thumbnail)
	f.CreatedAt = f.CreatedAt.UTC()
	f.UpdatedAt = f.UpdatedAt.UTC()
	return &f, nil
}

// CreateFlow implements FlowStore.
func (s *PostgresStore) CreateFlow(ctx context.Context, flow *models.Flow) error {
	_, err := s.db.Exec(ctx,
		"INSERT INTO flows ("+flowColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
		flow.ID, flow.UserID, nullable(flow.ClientID), flow.Name, flow.Category, flow.Description,
		flow.IsTemplate, nullable(flow.Thumbnail), flow.Graph, flow.CreatedAt, flow.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert flow: %w", err)
	}
	return nil
}

// GetFlow implements FlowStore.
func (s *PostgresStore) GetFlow(ctx context.Context, scope models.Scope, id string) (*models.Flow, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+flowColumns+" FROM flows WHERE id = $1 AND user_id = $2 AND client_id IS NOT DISTINCT FROM $3",
		id, scope.UserID, nullable(scope.ClientID))
	f, err := scanFlow(row)
	if err != nil {
		return nil, notFound(err)
	}
	return f, nil
}

// UpdateFlow implements FlowStore.
func (s *PostgresStore) UpdateFlow(ctx context.Context, flow *models.Flow) error {
	tag, err := s.db.Exec(ctx, `UPDATE flows SET name = $1, category = $2, description = $3,
		is_template = $4, thumbnail = $5, graph = $6, updated_at = $7
		WHERE id = $8 AND user_id = $9 AND client_id IS NOT DISTINCT FROM $10`,
		flow.Name, flow.Category, flow.Description, flow.IsTemplate, nullable(flow.Thumbnail),
		flow.Graph, flow.UpdatedAt, flow.ID, flow.UserID, nullable(flow.ClientID))
	if err != nil {
		return fmt.Errorf("update flow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFlow implements FlowStore.
func (s *PostgresStore) DeleteFlow(ctx context.Context, scope models.Scope, id string) error {
	tag, err := s.db.Exec(ctx,
		"DELETE FROM flows WHERE id = $1 AND user_id = $2 AND client_id IS NOT DISTINCT FROM $3",
		id, scope.UserID, nullable(scope.ClientID))
	if err != nil {
		return fmt.Errorf("delete flow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFlows implements FlowStore. Newest flows come first.
func (s *PostgresStore) ListFlows(ctx context.Context, scope models.Scope, filter FlowFilter) ([]*models.Flow, error) {
	rows, err := s.db.Query(ctx, `SELECT `+flowColumns+` FROM flows
		WHERE user_id = $1 AND client_id IS NOT DISTINCT FROM $2
		AND ($3 = '' OR lower(category) = lower($3))
		AND (NOT $4 OR is_template)
		ORDER BY created_at DESC, id`,
		scope.UserID, nullable(scope.ClientID), filter.Category, filter.TemplatesOnly)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	defer rows.Close()

	flows := make([]*models.Flow, 0)
	for rows.Next() {
		f, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		flows = append(flows, f)
	}
	return flows, rows.Err()
}

// SaveExecution implements ExecutionStore. The whole trace is written in a
// single statement, so a failed save leaves nothing behind.
func (s *PostgresStore) SaveExecution(ctx context.Context, t *models.ExecutionTrace) error {
	steps := t.Steps
	if steps == nil {
		steps = []models.StepResult{}
	}
	_, err := s.db.Exec(ctx, `INSERT INTO executions (id, user_id, client_id, flow_id, flow_name,
		status, outcome, steps, steps_executed, success_steps, warning_steps, failed_steps,
		started_at, finished_at, total_duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		t.ID, t.UserID, nullable(t.ClientID), t.FlowID, t.FlowName, t.Status, string(t.Outcome),
		steps, t.StepsExecuted, t.SuccessSteps, t.WarningSteps, t.FailedSteps,
		t.StartedAt, t.FinishedAt, t.TotalDurationMS)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetExecution implements ExecutionStore.
func (s *PostgresStore) GetExecution(ctx context.Context, scope models.Scope, id string) (*models.ExecutionTrace, error) {
	var (
		t        models.ExecutionTrace
		clientID *string
		outcome  string
	)
	err := s.db.QueryRow(ctx, `SELECT id, user_id, client_id, flow_id, flow_name, status, outcome,
		steps, steps_executed, success_steps, warning_steps, failed_steps,
		started_at, finished_at, total_duration_ms
		FROM executions WHERE id = $1 AND user_id = $2 AND client_id IS NOT DISTINCT FROM $3`,
		id, scope.UserID, nullable(scope.ClientID)).Scan(
		&t.ID, &t.UserID, &clientID, &t.FlowID, &t.FlowName, &t.Status, &outcome,
		&t.Steps, &t.StepsExecuted, &t.SuccessSteps, &t.WarningSteps, &t.FailedSteps,
		&t.StartedAt, &t.FinishedAt, &t.TotalDurationMS)
	if err != nil {
		return nil, notFound(err)
	}
	t.ClientID = deref(clientID)
	t.Outcome = models.StepStatus(outcome)
	t.StartedAt = t.StartedAt.UTC()
	t.FinishedAt = t.FinishedAt.UTC()
	return &t, nil
}

// ListExecutions implements ExecutionStore. Newest executions come first.
func (s *PostgresStore) ListExecutions(ctx context.Context, scope models.Scope, filter ExecutionFilter) ([]models.ExecutionSummary, error) {
	var limit *int
	if filter.Limit > 0 {
		limit = &filter.Limit
	}
	rows, err := s.db.Query(ctx, `SELECT `+summaryColumns+` FROM executions
		WHERE user_id = $1 AND client_id IS NOT DISTINCT FROM $2
		AND ($3 = '' OR flow_name = $3)
		ORDER BY started_at DESC, id
		LIMIT $4`,
		scope.UserID, nullable(scope.ClientID), filter.FlowName, limit)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	out := make([]models.ExecutionSummary, 0)
	for rows.Next() {
		var (
			e                 models.ExecutionSummary
			clientID          *string
			outcome           string
			started, finished time.Time
		)
		err := rows.Scan(&e.ID, &clientID, &e.FlowID, &e.FlowName, &e.Status, &outcome,
			&e.StepsExecuted, &e.SuccessSteps, &e.WarningSteps, &e.FailedSteps,
			&started, &finished, &e.TotalDurationMS)
		if err != nil {
			return nil, err
		}
		e.ClientID = deref(clientID)
		e.Outcome = models.StepStatus(outcome)
		e.StartedAt = started.UTC()
		e.FinishedAt = finished.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateClient implements ClientStore.
func (s *PostgresStore) CreateClient(ctx context.Context, c *models.Client) error {
	_, err := s.db.Exec(ctx, "INSERT INTO clients (id, owner_id, name, created_at) VALUES ($1, $2, $3, $4)",
		c.ID, c.OwnerID, c.Name, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

// GetClient implements ClientStore.
func (s *PostgresStore) GetClient(ctx context.Context, ownerID, id string) (*models.Client, error) {
	var c models.Client
	err := s.db.QueryRow(ctx, "SELECT id, owner_id, name, created_at FROM clients WHERE id = $1 AND owner_id = $2",
		id, ownerID).Scan(&c.ID, &c.OwnerID, &c.Name, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

// ListClients implements ClientStore.
func (s *PostgresStore) ListClients(ctx context.Context, ownerID string) ([]*models.Client, error) {
	rows, err := s.db.Query(ctx, "SELECT id, owner_id, name, created_at FROM clients WHERE owner_id = $1 ORDER BY created_at, id", ownerID)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]*models.Client, 0)
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		clients = append(clients, &c)
	}
	return clients, rows.Err()
}
