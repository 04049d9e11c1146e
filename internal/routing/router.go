// Package routing scores free-text tasks against the specialist catalog.
package routing

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"flow-orchestrator/backend/internal/agents"
	"flow-orchestrator/backend/internal/connectors"
	"flow-orchestrator/backend/pkg/models"
)

var (
	ErrEmptyTask     = errors.New("task text is required")
	ErrAgentNotFound = errors.New("agent not found")
)

const (
	DefaultTopK = 5
	MaxTopK     = 20
)

// Logger is the subset of the application logger the router uses.
type Logger interface {
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...any) {}

// Router ranks catalog profiles by keyword overlap with a task.
type Router struct {
	catalog  *agents.Catalog
	provider connectors.Provider
	logger   Logger
}

// NewRouter creates a Router. A nil logger discards warnings.
func NewRouter(catalog *agents.Catalog, provider connectors.Provider, logger Logger) *Router {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Router{catalog: catalog, provider: provider, logger: logger}
}

type scored struct {
	profile models.AgentProfile
	score   float64
	matched []string
}

// Route scores task against every profile and returns up to topK matches,
// best first. Profiles with no keyword hit are not returned. topK <= 0
// selects DefaultTopK; values above MaxTopK are clamped.
func (r *Router) Route(ctx context.Context, task string, topK int) (*models.RouteResult, error) {
	text := strings.ToLower(strings.TrimSpace(task))
	if text == "" {
		return nil, ErrEmptyTask
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	candidates := make([]scored, 0)
	for _, p := range r.catalog.Profiles() {
		if s, ok := score(text, p); ok {
			candidates = append(candidates, s)
		}
	}
	// Profiles() is in catalog order, so a stable sort keeps ties in it.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	result := &models.RouteResult{
		Task:            strings.TrimSpace(task),
		Matches:         make([]models.RouteMatch, 0, min(topK, len(candidates))),
		TotalCandidates: len(candidates),
	}
	for _, c := range candidates {
		if len(result.Matches) == topK {
			break
		}
		summaries, _ := r.summarize(ctx, c.profile.Connectors)
		result.Matches = append(result.Matches, models.RouteMatch{
			AgentSlug:       c.profile.Slug,
			Name:            c.profile.Name,
			Category:        c.profile.Category,
			Confidence:      math.Round(c.score*1000) / 1000,
			MatchedKeywords: c.matched,
			Connectors:      summaries,
		})
	}
	return result, nil
}

func score(text string, p models.AgentProfile) (scored, bool) {
	if len(p.Keywords) == 0 {
		return scored{}, false
	}
	var matched []string
	for _, kw := range p.Keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	if len(matched) == 0 {
		return scored{}, false
	}
	return scored{
		profile: p,
		score:   float64(len(matched)) / float64(len(p.Keywords)),
		matched: matched,
	}, true
}

// Brief returns one agent with its connector enrichment.
func (r *Router) Brief(ctx context.Context, slug string) (*models.AgentBrief, error) {
	p, ok := r.catalog.Lookup(slug)
	if !ok {
		return nil, ErrAgentNotFound
	}
	summaries, live := r.summarize(ctx, p.Connectors)
	return &models.AgentBrief{Agent: p, ConnectorSummaries: summaries, TotalLive: live}, nil
}

// Agents lists the catalog in declaration order.
func (r *Router) Agents() []models.AgentProfile {
	return r.catalog.Profiles()
}

// summarize resolves each connector slug. A provider failure degrades
// that connector to mock instead of failing the request.
func (r *Router) summarize(ctx context.Context, slugs []string) ([]models.ConnectorSummary, int) {
	out := make([]models.ConnectorSummary, 0, len(slugs))
	live := 0
	for _, slug := range slugs {
		snap, err := r.provider.Snapshot(ctx, slug)
		if err != nil {
			r.logger.Warn("connector snapshot failed", "slug", slug, "error", err)
			out = append(out, models.ConnectorSummary{Slug: slug, Name: slug, Status: models.ConnectorMock})
			continue
		}
		s := connectors.Summarize(snap)
		if s.Status == models.ConnectorLive {
			live++
		}
		out = append(out, s)
	}
	return out, live
}
