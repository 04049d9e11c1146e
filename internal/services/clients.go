package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"flow-orchestrator/backend/internal/repository"
	"flow-orchestrator/backend/pkg/models"

	"github.com/google/uuid"
)

// ClientService registers the sub-tenants an owner can scope requests to.
type ClientService struct {
	store repository.ClientStore
	now   func() time.Time
}

// NewClientService creates a ClientService.
func NewClientService(store repository.ClientStore) *ClientService {
	return &ClientService{store: store, now: time.Now}
}

// Register creates a client owned by ownerID. A non-empty id is kept as
// given so seeded clients have stable identifiers.
func (s *ClientService) Register(ctx context.Context, ownerID, id, name string) (*models.Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrClientNameRequired
	}
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.New().String()
	}
	c := &models.Client{ID: id, OwnerID: ownerID, Name: name, CreatedAt: s.now().UTC()}
	if err := s.store.CreateClient(ctx, c); err != nil {
		return nil, fmt.Errorf("register client: %w", err)
	}
	return c, nil
}

// Get returns a client owned by ownerID.
func (s *ClientService) Get(ctx context.Context, ownerID, id string) (*models.Client, error) {
	return s.store.GetClient(ctx, ownerID, id)
}

// List returns the clients owned by ownerID, oldest first.
func (s *ClientService) List(ctx context.Context, ownerID string) ([]*models.Client, error) {
	return s.store.ListClients(ctx, ownerID)
}
