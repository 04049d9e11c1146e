package services

import (
	"context"
	"errors"
	"testing"

	"flow-orchestrator/backend/internal/agents"
	"flow-orchestrator/backend/internal/connectors"
	"flow-orchestrator/backend/internal/engine"
	"flow-orchestrator/backend/internal/repository"
	"flow-orchestrator/backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	owner  = models.Scope{UserID: "u1"}
	client = models.Scope{UserID: "u1", ClientID: "acme"}
)

func adsGraph() models.FlowGraph {
	return models.FlowGraph{
		Version: "1.0",
		Nodes: []models.Node{
			{ID: "t", Type: models.NodeTrigger, Label: "Start"},
			{ID: "c", Type: models.NodeConnector, Label: "Google Ads", Slug: "google-ads"},
			{ID: "a", Type: models.NodeAgent, Label: "PPC", Slug: "ppc-specialist"},
			{ID: "k", Type: models.NodeCondition, Label: "ROAS > 1000"},
			{ID: "o", Type: models.NodeOutput, Label: "Report"},
		},
		Connections: []models.Connection{
			{From: "t", To: "c"}, {From: "c", To: "a"}, {From: "c", To: "k"},
			{From: "a", To: "o"}, {From: "k", To: "o"},
		},
	}
}

func newEngine() *engine.Engine {
	return engine.New(connectors.NewCatalog(), agents.NewCatalogResponder(agents.NewCatalog()))
}

func TestBuiltinTemplates(t *testing.T) {
	catalog, err := BuiltinTemplates()
	require.NoError(t, err)
	require.GreaterOrEqual(t, catalog.Len(), 10)

	categories := map[string]int{}
	for _, tpl := range catalog.List("") {
		categories[tpl.Category]++
		assert.True(t, tpl.IsTemplate)
		assert.True(t, tpl.Builtin)
		assert.NoError(t, engine.Validate(tpl.Graph), tpl.Name)
	}
	for _, want := range []string{"Marketing", "Engineering", "Finance", "Sales", "E-commerce", "Operations"} {
		assert.Positive(t, categories[want], want)
	}

	eng := catalog.List("engineering")
	require.NotEmpty(t, eng)
	found := false
	for _, tpl := range eng {
		for _, n := range tpl.Graph.Nodes {
			if n.ResolveSlug() == "devops-infra" {
				found = true
			}
		}
	}
	assert.True(t, found, "an engineering template should use the devops agent")
}

func TestBuiltinTemplatesExecute(t *testing.T) {
	catalog, err := BuiltinTemplates()
	require.NoError(t, err)
	e := newEngine()
	for _, tpl := range catalog.List("") {
		trace, err := e.Run(context.Background(), tpl.Graph)
		require.NoError(t, err, tpl.Name)
		assert.Equal(t, len(tpl.Graph.Nodes), trace.StepsExecuted, tpl.Name)
		assert.Zero(t, trace.FailedSteps, tpl.Name)
	}
}

func TestLoadTemplatesRejectsInvalidGraph(t *testing.T) {
	_, err := LoadTemplates([]byte(`
templates:
  - slug: broken
    name: Broken
    flow:
      nodes:
        - {id: a, type: output, label: A}
      connections: []
`))
	var verr *engine.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, engine.ReasonMissingTrigger, verr.Reason)
}

func newFlowService(t *testing.T) (*FlowService, *repository.MemoryStore) {
	t.Helper()
	catalog, err := BuiltinTemplates()
	require.NoError(t, err)
	store := repository.NewMemoryStore()
	return NewFlowService(store, catalog), store
}

func TestFlowServiceCreateAndUpdate(t *testing.T) {
	svc, _ := newFlowService(t)
	ctx := context.Background()

	f, err := svc.Create(ctx, owner, FlowInput{Name: "  Ads  ", Graph: adsGraph()})
	require.NoError(t, err)
	assert.Equal(t, "Ads", f.Name)
	assert.Equal(t, models.DefaultCategory, f.Category)
	assert.NotEmpty(t, f.ID)

	name, category := "Ads v2", "Marketing"
	updated, err := svc.Update(ctx, owner, f.ID, FlowUpdate{Name: &name, Category: &category})
	require.NoError(t, err)
	assert.Equal(t, "Ads v2", updated.Name)
	assert.Equal(t, "Marketing", updated.Category)
	assert.Len(t, updated.Graph.Nodes, 5)

	_, err = svc.Update(ctx, client, f.ID, FlowUpdate{Name: &name})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFlowServiceRejectsMalformedGraph(t *testing.T) {
	svc, _ := newFlowService(t)
	g := adsGraph()
	g.Connections = append(g.Connections, models.Connection{From: "o", To: "ghost"})

	_, err := svc.Create(context.Background(), owner, FlowInput{Name: "bad", Graph: g})
	var verr *engine.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, engine.ReasonDanglingConnection, verr.Reason)
}

func TestFlowServiceDuplicate(t *testing.T) {
	svc, _ := newFlowService(t)
	ctx := context.Background()

	src, err := svc.Create(ctx, client, FlowInput{Name: "Weekly", Category: "Sales", IsTemplate: true, Graph: adsGraph()})
	require.NoError(t, err)

	dup, err := svc.Duplicate(ctx, client, src.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Weekly Copy", dup.Name)
	assert.NotEqual(t, src.ID, dup.ID)
	assert.Equal(t, client, dup.Scope())
	assert.False(t, dup.IsTemplate)
	assert.Equal(t, "Sales", dup.Category)

	dup.Graph.Nodes[0].Label = "changed"
	again, err := svc.Get(ctx, client, src.ID)
	require.NoError(t, err)
	assert.Equal(t, "Start", again.Graph.Nodes[0].Label)

	named, err := svc.Duplicate(ctx, client, src.ID, "Exact Name")
	require.NoError(t, err)
	assert.Equal(t, "Exact Name", named.Name)

	_, err = svc.Duplicate(ctx, owner, src.ID, "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFlowServiceDuplicateBuiltinTemplate(t *testing.T) {
	svc, _ := newFlowService(t)
	ctx := context.Background()

	dup, err := svc.Duplicate(ctx, client, "tpl-devops-deploy-review", "")
	require.NoError(t, err)
	assert.Equal(t, "DevOps Deployment Review Copy", dup.Name)
	assert.Equal(t, client, dup.Scope())
	assert.False(t, dup.Builtin)

	list, err := svc.List(ctx, client, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, dup.ID, list[0].ID)
}

func TestFlowServiceListTemplates(t *testing.T) {
	svc, _ := newFlowService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, client, FlowInput{Name: "Mine", Category: "Finance", IsTemplate: true, Graph: adsGraph()})
	require.NoError(t, err)
	_, err = svc.Create(ctx, client, FlowInput{Name: "Not a template", Category: "Finance", Graph: adsGraph()})
	require.NoError(t, err)

	finance, err := svc.ListTemplates(ctx, client, "finance")
	require.NoError(t, err)
	names := make([]string, 0, len(finance))
	for _, f := range finance {
		assert.Equal(t, "Finance", f.Category)
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "Mine")
	assert.NotContains(t, names, "Not a template")

	personal, err := svc.ListTemplates(ctx, owner, "finance")
	require.NoError(t, err)
	for _, f := range personal {
		assert.True(t, f.Builtin, "owner scope must not see client templates")
	}
}

func TestFlowServiceDelete(t *testing.T) {
	svc, _ := newFlowService(t)
	ctx := context.Background()
	f, err := svc.Create(ctx, owner, FlowInput{Name: "Gone", Graph: adsGraph()})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, client, f.ID), repository.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, owner, f.ID))
	_, err = svc.Get(ctx, owner, f.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOrchestratorExecute(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewOrchestratorService(newEngine(), store, store, nil)
	ctx := context.Background()

	trace, err := svc.Execute(ctx, client, ExecuteRequest{Graph: adsGraph(), Name: "Ad hoc"})
	require.NoError(t, err)
	assert.NotEmpty(t, trace.ID)
	assert.Equal(t, "Ad hoc", trace.FlowName)
	assert.Nil(t, trace.FlowID)
	assert.Equal(t, 5, trace.StepsExecuted)
	assert.Equal(t, trace.StepsExecuted, trace.SuccessSteps+trace.WarningSteps+trace.FailedSteps)
	assert.Equal(t, 1, trace.WarningSteps)
	assert.Equal(t, models.StepWarning, trace.Outcome)

	got, err := svc.Detail(ctx, client, trace.ID)
	require.NoError(t, err)
	assert.Equal(t, trace.ID, got.ID)

	_, err = svc.Detail(ctx, owner, trace.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	history, err := svc.History(ctx, client, repository.ExecutionFilter{})
	require.NoError(t, err)
	require.Len(t, history, 1)

	history, err = svc.History(ctx, owner, repository.ExecutionFilter{})
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestOrchestratorExecuteStoredFlow(t *testing.T) {
	store := repository.NewMemoryStore()
	flows := NewFlowService(store, nil)
	svc := NewOrchestratorService(newEngine(), store, store, nil)
	ctx := context.Background()

	f, err := flows.Create(ctx, owner, FlowInput{Name: "Stored", Graph: adsGraph()})
	require.NoError(t, err)

	trace, err := svc.Execute(ctx, owner, ExecuteRequest{FlowID: f.ID})
	require.NoError(t, err)
	require.NotNil(t, trace.FlowID)
	assert.Equal(t, f.ID, *trace.FlowID)
	assert.Equal(t, "Stored", trace.FlowName)
	assert.Equal(t, 5, trace.StepsExecuted)

	_, err = svc.Execute(ctx, client, ExecuteRequest{FlowID: f.ID})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// History survives the flow's deletion.
	require.NoError(t, flows.Delete(ctx, owner, f.ID))
	got, err := svc.Detail(ctx, owner, trace.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ID, *got.FlowID)
}

func TestOrchestratorExecuteInvalidGraphPersistsNothing(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewOrchestratorService(newEngine(), store, store, nil)
	g := adsGraph()
	g.Connections = append(g.Connections, models.Connection{From: "o", To: "t"})

	_, err := svc.Execute(context.Background(), owner, ExecuteRequest{Graph: g})
	var verr *engine.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, engine.ReasonCycleDetected, verr.Reason)

	history, err := svc.History(context.Background(), owner, repository.ExecutionFilter{})
	require.NoError(t, err)
	assert.Empty(t, history)
}

type MockExecutionStore struct {
	mock.Mock
}

func (m *MockExecutionStore) SaveExecution(ctx context.Context, trace *models.ExecutionTrace) error {
	args := m.Called(ctx, trace)
	return args.Error(0)
}

func (m *MockExecutionStore) GetExecution(ctx context.Context, scope models.Scope, id string) (*models.ExecutionTrace, error) {
	args := m.Called(ctx, scope, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExecutionTrace), args.Error(1)
}

func (m *MockExecutionStore) ListExecutions(ctx context.Context, scope models.Scope, filter repository.ExecutionFilter) ([]models.ExecutionSummary, error) {
	args := m.Called(ctx, scope, filter)
	return args.Get(0).([]models.ExecutionSummary), args.Error(1)
}

func TestOrchestratorExecutePersistenceFailure(t *testing.T) {
	executions := new(MockExecutionStore)
	executions.On("SaveExecution", mock.Anything, mock.AnythingOfType("*models.ExecutionTrace")).
		Return(errors.New("connection refused"))

	svc := NewOrchestratorService(newEngine(), repository.NewMemoryStore(), executions, nil)
	_, err := svc.Execute(context.Background(), owner, ExecuteRequest{Graph: adsGraph()})
	assert.ErrorIs(t, err, ErrPersistence)
	executions.AssertExpectations(t)
}

func TestClientService(t *testing.T) {
	svc := NewClientService(repository.NewMemoryStore())
	ctx := context.Background()

	_, err := svc.Register(ctx, "u1", "", "   ")
	assert.ErrorIs(t, err, ErrClientNameRequired)

	c, err := svc.Register(ctx, "u1", "acme", "Acme Corp")
	require.NoError(t, err)
	assert.Equal(t, "acme", c.ID)

	generated, err := svc.Register(ctx, "u1", "", "Globex")
	require.NoError(t, err)
	assert.NotEmpty(t, generated.ID)

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.Get(ctx, "u2", "acme")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
