package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"flow-orchestrator/backend/internal/engine"
	"flow-orchestrator/backend/internal/repository"
	"flow-orchestrator/backend/pkg/models"

	"github.com/google/uuid"
)

// UntitledFlow is used when a flow is saved or executed without a name.
const UntitledFlow = "Untitled Flow"

// FlowInput is the caller-supplied part of a new flow.
type FlowInput struct {
	Name        string
	Category    string
	Description string
	Thumbnail   string
	IsTemplate  bool
	Graph       models.FlowGraph
}

// FlowUpdate changes selected fields of a stored flow. Nil fields are left
// untouched.
type FlowUpdate struct {
	Name        *string
	Category    *string
	Description *string
	Thumbnail   *string
	IsTemplate  *bool
	Graph       *models.FlowGraph
}

// FlowService manages saved flows and the template catalog.
type FlowService struct {
	store     repository.FlowStore
	templates *TemplateCatalog
	now       func() time.Time
}

// NewFlowService creates a FlowService. templates may be nil.
func NewFlowService(store repository.FlowStore, templates *TemplateCatalog) *FlowService {
	if templates == nil {
		templates = &TemplateCatalog{index: map[string]int{}}
	}
	return &FlowService{store: store, templates: templates, now: time.Now}
}

// Create saves a new flow under scope. The graph must be structurally
// valid; triggers and acyclicity are only enforced on execution.
func (s *FlowService) Create(ctx context.Context, scope models.Scope, in FlowInput) (*models.Flow, error) {
	if err := engine.ValidateStructure(in.Graph); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	flow := &models.Flow{
		ID:          uuid.New().String(),
		UserID:      scope.UserID,
		ClientID:    scope.ClientID,
		Name:        nameOr(in.Name, UntitledFlow),
		Category:    nameOr(in.Category, models.DefaultCategory),
		Description: in.Description,
		Thumbnail:   in.Thumbnail,
		IsTemplate:  in.IsTemplate,
		Graph:       in.Graph.Clone(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateFlow(ctx, flow); err != nil {
		return nil, fmt.Errorf("create flow: %w", err)
	}
	return flow, nil
}

// Get returns a flow owned by scope, or a built-in template.
func (s *FlowService) Get(ctx context.Context, scope models.Scope, id string) (*models.Flow, error) {
	if t, ok := s.templates.Get(id); ok {
		return t, nil
	}
	return s.store.GetFlow(ctx, scope, id)
}

// Update applies upd to a flow owned by scope.
func (s *FlowService) Update(ctx context.Context, scope models.Scope, id string, upd FlowUpdate) (*models.Flow, error) {
	flow, err := s.store.GetFlow(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if upd.Graph != nil {
		if err := engine.ValidateStructure(*upd.Graph); err != nil {
			return nil, err
		}
		flow.Graph = upd.Graph.Clone()
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) != "" {
		flow.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Category != nil {
		flow.Category = nameOr(*upd.Category, models.DefaultCategory)
	}
	if upd.Description != nil {
		flow.Description = *upd.Description
	}
	if upd.Thumbnail != nil {
		flow.Thumbnail = *upd.Thumbnail
	}
	if upd.IsTemplate != nil {
		flow.IsTemplate = *upd.IsTemplate
	}
	flow.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateFlow(ctx, flow); err != nil {
		return nil, err
	}
	return flow, nil
}

// Duplicate copies a flow into the same scope. An empty name yields
// "<original> Copy". Built-in templates can be duplicated into any scope.
func (s *FlowService) Duplicate(ctx context.Context, scope models.Scope, id, name string) (*models.Flow, error) {
	src, err := s.store.GetFlow(ctx, scope, id)
	if errors.Is(err, repository.ErrNotFound) {
		if t, ok := s.templates.Get(id); ok {
			src, err = t, nil
			src.UserID, src.ClientID = scope.UserID, scope.ClientID
		}
	}
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(name) == "" {
		name = src.Name + " Copy"
	}
	now := s.now().UTC()
	dup := &models.Flow{
		ID:          uuid.New().String(),
		UserID:      src.UserID,
		ClientID:    src.ClientID,
		Name:        name,
		Category:    src.Category,
		Description: src.Description,
		Thumbnail:   src.Thumbnail,
		Graph:       src.Graph.Clone(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateFlow(ctx, dup); err != nil {
		return nil, fmt.Errorf("duplicate flow: %w", err)
	}
	return dup, nil
}

// Delete removes a flow. Execution history referencing it is kept.
func (s *FlowService) Delete(ctx context.Context, scope models.Scope, id string) error {
	return s.store.DeleteFlow(ctx, scope, id)
}

// List returns the flows saved under scope, newest first.
func (s *FlowService) List(ctx context.Context, scope models.Scope, category string) ([]*models.Flow, error) {
	return s.store.ListFlows(ctx, scope, repository.FlowFilter{Category: strings.TrimSpace(category)})
}

// ListTemplates returns the built-in templates followed by the flows scope
// has flagged as templates.
func (s *FlowService) ListTemplates(ctx context.Context, scope models.Scope, category string) ([]*models.Flow, error) {
	category = strings.TrimSpace(category)
	out := s.templates.List(category)
	owned, err := s.store.ListFlows(ctx, scope, repository.FlowFilter{Category: category, TemplatesOnly: true})
	if err != nil {
		return nil, err
	}
	return append(out, owned...), nil
}

// BuiltinTemplates lists the shared templates without touching the store.
func (s *FlowService) BuiltinTemplates(category string) []*models.Flow {
	return s.templates.List(strings.TrimSpace(category))
}

func nameOr(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
