package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"flow-orchestrator/backend/pkg/models"
)

// MemoryStore is an in-process Repository. Records are copied on the way
// in and out, so callers never share state with the store.
type MemoryStore struct {
	mu         sync.RWMutex
	flows      map[string]*models.Flow
	executions map[string]*models.ExecutionTrace
	clients    map[string]*models.Client
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		flows:      make(map[string]*models.Flow),
		executions: make(map[string]*models.ExecutionTrace),
		clients:    make(map[string]*models.Client),
	}
}

func copyFlow(f *models.Flow) *models.Flow {
	c := *f
	c.Graph = f.Graph.Clone()
	return &c
}

func copyTrace(t *models.ExecutionTrace) *models.ExecutionTrace {
	c := *t
	c.Steps = append([]models.StepResult(nil), t.Steps...)
	if t.FlowID != nil {
		id := *t.FlowID
		c.FlowID = &id
	}
	return &c
}

func owns(scope models.Scope, userID, clientID string) bool {
	return scope.UserID == userID && scope.ClientID == clientID
}

// Ping implements Repository.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// CreateFlow implements FlowStore.
func (s *MemoryStore) CreateFlow(_ context.Context, flow *models.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[flow.ID] = copyFlow(flow)
	return nil
}

// GetFlow implements FlowStore.
func (s *MemoryStore) GetFlow(_ context.Context, scope models.Scope, id string) (*models.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flows[id]
	if !ok || !owns(scope, f.UserID, f.ClientID) {
		return nil, ErrNotFound
	}
	return copyFlow(f), nil
}

// UpdateFlow implements FlowStore.
func (s *MemoryStore) UpdateFlow(_ context.Context, flow *models.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.flows[flow.ID]
	if !ok || !owns(flow.Scope(), cur.UserID, cur.ClientID) {
		return ErrNotFound
	}
	updated := copyFlow(flow)
	updated.CreatedAt = cur.CreatedAt
	s.flows[flow.ID] = updated
	return nil
}

// DeleteFlow implements FlowStore.
func (s *MemoryStore) DeleteFlow(_ context.Context, scope models.Scope, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[id]
	if !ok || !owns(scope, f.UserID, f.ClientID) {
		return ErrNotFound
	}
	delete(s.flows, id)
	return nil
}

// ListFlows implements FlowStore. Newest flows come first.
func (s *MemoryStore) ListFlows(_ context.Context, scope models.Scope, filter FlowFilter) ([]*models.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Flow, 0)
	for _, f := range s.flows {
		if !owns(scope, f.UserID, f.ClientID) {
			continue
		}
		if filter.TemplatesOnly && !f.IsTemplate {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(filter.Category, f.Category) {
			continue
		}
		out = append(out, copyFlow(f))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SaveExecution implements ExecutionStore.
func (s *MemoryStore) SaveExecution(_ context.Context, trace *models.ExecutionTrace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[trace.ID] = copyTrace(trace)
	return nil
}

// GetExecution implements ExecutionStore.
func (s *MemoryStore) GetExecution(_ context.Context, scope models.Scope, id string) (*models.ExecutionTrace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.executions[id]
	if !ok || !owns(scope, t.UserID, t.ClientID) {
		return nil, ErrNotFound
	}
	return copyTrace(t), nil
}

// ListExecutions implements ExecutionStore. Newest executions come first.
func (s *MemoryStore) ListExecutions(_ context.Context, scope models.Scope, filter ExecutionFilter) ([]models.ExecutionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ExecutionSummary, 0)
	for _, t := range s.executions {
		if !owns(scope, t.UserID, t.ClientID) {
			continue
		}
		if filter.FlowName != "" && t.FlowName != filter.FlowName {
			continue
		}
		out = append(out, t.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// CreateClient implements ClientStore.
func (s *MemoryStore) CreateClient(_ context.Context, client *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *client
	s.clients[client.ID] = &c
	return nil
}

// GetClient implements ClientStore.
func (s *MemoryStore) GetClient(_ context.Context, ownerID, id string) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok || c.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

// ListClients implements ClientStore.
func (s *MemoryStore) ListClients(_ context.Context, ownerID string) ([]*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Client, 0)
	for _, c := range s.clients {
		if c.OwnerID == ownerID {
			cc := *c
			out = append(out, &cc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
