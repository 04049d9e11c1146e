package repository

import (
	"context"
	"testing"
	"time"

	"flow-orchestrator/backend/pkg/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice       = models.Scope{UserID: "alice"}
	aliceAcme   = models.Scope{UserID: "alice", ClientID: "acme"}
	bob         = models.Scope{UserID: "bob"}
	testStarted = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newFlow(scope models.Scope, name, category string, created time.Time) *models.Flow {
	return &models.Flow{
		ID:          uuid.New().String(),
		UserID:      scope.UserID,
		ClientID:    scope.ClientID,
		Name:        name,
		Category:    category,
		Description: "test flow",
		Graph: models.FlowGraph{
			Version: "1.0",
			Nodes: []models.Node{
				{ID: "t", Type: models.NodeTrigger, Label: "Start", Config: map[string]any{"kind": "manual"}},
				{ID: "o", Type: models.NodeOutput, Label: "Report"},
			},
			Connections: []models.Connection{{From: "t", To: "o"}},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func newTrace(scope models.Scope, flowName string, started time.Time) *models.ExecutionTrace {
	return &models.ExecutionTrace{
		ID:       uuid.New().String(),
		UserID:   scope.UserID,
		ClientID: scope.ClientID,
		FlowName: flowName,
		Status:   models.ExecutionCompleted,
		Outcome:  models.StepSuccess,
		Steps: []models.StepResult{
			{NodeID: "t", NodeLabel: "Start", Type: models.NodeTrigger, Status: models.StepSuccess,
				Output: "Flow triggered (manual)", DurationMS: 1.2},
		},
		StepsExecuted:   1,
		SuccessSteps:    1,
		StartedAt:       started,
		FinishedAt:      started.Add(1200 * time.Microsecond),
		TotalDurationMS: 1.2,
	}
}

// testRepository runs the behavior every Repository implementation shares.
func testRepository(t *testing.T, store Repository) {
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})

	t.Run("Flow CRUD", func(t *testing.T) {
		f := newFlow(alice, "Weekly Ads", "Marketing", testStarted)
		require.NoError(t, store.CreateFlow(ctx, f))

		got, err := store.GetFlow(ctx, alice, f.ID)
		require.NoError(t, err)
		assert.Equal(t, f.Name, got.Name)
		assert.Equal(t, f.Graph.Nodes[0].ID, got.Graph.Nodes[0].ID)
		assert.Equal(t, "manual", got.Graph.Nodes[0].Config["kind"])
		assert.Equal(t, f.Graph.Connections, got.Graph.Connections)
		assert.True(t, f.CreatedAt.Equal(got.CreatedAt))

		got.Name = "Weekly Ads v2"
		got.UpdatedAt = testStarted.Add(time.Hour)
		require.NoError(t, store.UpdateFlow(ctx, got))

		again, err := store.GetFlow(ctx, alice, f.ID)
		require.NoError(t, err)
		assert.Equal(t, "Weekly Ads v2", again.Name)
		assert.True(t, testStarted.Equal(again.CreatedAt))

		require.NoError(t, store.DeleteFlow(ctx, alice, f.ID))
		_, err = store.GetFlow(ctx, alice, f.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, store.DeleteFlow(ctx, alice, f.ID), ErrNotFound)
	})

	t.Run("Flows are isolated by scope", func(t *testing.T) {
		personal := newFlow(alice, "Personal", "Finance", testStarted)
		client := newFlow(aliceAcme, "Client", "Finance", testStarted)
		require.NoError(t, store.CreateFlow(ctx, personal))
		require.NoError(t, store.CreateFlow(ctx, client))

		_, err := store.GetFlow(ctx, aliceAcme, personal.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = store.GetFlow(ctx, alice, client.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = store.GetFlow(ctx, bob, personal.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, store.DeleteFlow(ctx, bob, personal.ID), ErrNotFound)

		stolen := *personal
		stolen.UserID = "bob"
		stolen.Name = "Hijacked"
		assert.ErrorIs(t, store.UpdateFlow(ctx, &stolen), ErrNotFound)

		flows, err := store.ListFlows(ctx, aliceAcme, FlowFilter{})
		require.NoError(t, err)
		require.Len(t, flows, 1)
		assert.Equal(t, client.ID, flows[0].ID)

		flows, err = store.ListFlows(ctx, bob, FlowFilter{})
		require.NoError(t, err)
		assert.Empty(t, flows)
	})

	t.Run("ListFlows filters and orders newest first", func(t *testing.T) {
		scope := models.Scope{UserID: "lister"}
		older := newFlow(scope, "Older", "Sales", testStarted)
		newer := newFlow(scope, "Newer", "Sales", testStarted.Add(time.Minute))
		tmpl := newFlow(scope, "Template", "Operations", testStarted.Add(2*time.Minute))
		tmpl.IsTemplate = true
		for _, f := range []*models.Flow{older, newer, tmpl} {
			require.NoError(t, store.CreateFlow(ctx, f))
		}

		all, err := store.ListFlows(ctx, scope, FlowFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"Template", "Newer", "Older"}, []string{all[0].Name, all[1].Name, all[2].Name})

		sales, err := store.ListFlows(ctx, scope, FlowFilter{Category: "sales"})
		require.NoError(t, err)
		assert.Len(t, sales, 2)

		templates, err := store.ListFlows(ctx, scope, FlowFilter{TemplatesOnly: true})
		require.NoError(t, err)
		require.Len(t, templates, 1)
		assert.Equal(t, tmpl.ID, templates[0].ID)
	})

	t.Run("Executions", func(t *testing.T) {
		scope := models.Scope{UserID: "runner", ClientID: "c1"}
		flowID := uuid.New().String()
		first := newTrace(scope, "Ads", testStarted)
		first.FlowID = &flowID
		second := newTrace(scope, "Ads", testStarted.Add(time.Minute))
		other := newTrace(scope, "Finance", testStarted.Add(2*time.Minute))
		for _, tr := range []*models.ExecutionTrace{first, second, other} {
			require.NoError(t, store.SaveExecution(ctx, tr))
		}

		got, err := store.GetExecution(ctx, scope, first.ID)
		require.NoError(t, err)
		require.NotNil(t, got.FlowID)
		assert.Equal(t, flowID, *got.FlowID)
		require.Len(t, got.Steps, 1)
		assert.Equal(t, "Flow triggered (manual)", got.Steps[0].Output)
		assert.Equal(t, models.StepSuccess, got.Outcome)
		assert.True(t, first.FinishedAt.Equal(got.FinishedAt))

		_, err = store.GetExecution(ctx, models.Scope{UserID: "runner"}, first.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		all, err := store.ListExecutions(ctx, scope, ExecutionFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, other.ID, all[0].ID)
		assert.Equal(t, first.ID, all[2].ID)

		ads, err := store.ListExecutions(ctx, scope, ExecutionFilter{FlowName: "Ads", Limit: 1})
		require.NoError(t, err)
		require.Len(t, ads, 1)
		assert.Equal(t, second.ID, ads[0].ID)
		assert.Nil(t, ads[0].FlowID)

		none, err := store.ListExecutions(ctx, models.Scope{UserID: "runner"}, ExecutionFilter{})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Clients", func(t *testing.T) {
		c := &models.Client{ID: uuid.New().String(), OwnerID: "owner", Name: "Acme", CreatedAt: testStarted}
		require.NoError(t, store.CreateClient(ctx, c))

		got, err := store.GetClient(ctx, "owner", c.ID)
		require.NoError(t, err)
		assert.Equal(t, "Acme", got.Name)

		_, err = store.GetClient(ctx, "intruder", c.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		list, err := store.ListClients(ctx, "owner")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, c.ID, list[0].ID)

		list, err = store.ListClients(ctx, "intruder")
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestMemoryStore(t *testing.T) {
	testRepository(t, NewMemoryStore())
}

func TestMemoryStoreCopiesRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	f := newFlow(alice, "Copy", "Sales", testStarted)
	require.NoError(t, store.CreateFlow(ctx, f))

	f.Graph.Nodes[0].Label = "mutated"
	got, err := store.GetFlow(ctx, alice, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "Start", got.Graph.Nodes[0].Label)

	got.Graph.Nodes[0].Config["kind"] = "changed"
	again, err := store.GetFlow(ctx, alice, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "manual", again.Graph.Nodes[0].Config["kind"])
}
