// Package connectors supplies KPI snapshots for connector slugs.
package connectors

import (
	"context"
	"errors"

	"flow-orchestrator/backend/pkg/models"
)

var ErrSlugRequired = errors.New("connector slug is required")

// Provider returns the current KPI snapshot for a connector. Unknown slugs
// yield a snapshot with status "unknown" rather than an error; errors are
// reserved for the provider itself failing.
type Provider interface {
	Snapshot(ctx context.Context, slug string) (*models.ConnectorSnapshot, error)
}

// Summarize turns a snapshot into the entry attached to route matches and
// agent briefs. Anything that is not live is reported as mock and carries
// no KPIs.
func Summarize(s *models.ConnectorSnapshot) models.ConnectorSummary {
	if s.Status == models.ConnectorLive {
		return models.ConnectorSummary{Slug: s.Slug, Name: s.Name, Status: models.ConnectorLive, KPIs: s.KPIs}
	}
	return models.ConnectorSummary{Slug: s.Slug, Name: s.Name, Status: models.ConnectorMock}
}
