package routing

import (
	"context"
	"errors"
	"testing"

	"flow-orchestrator/backend/internal/agents"
	"flow-orchestrator/backend/internal/connectors"
	"flow-orchestrator/backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *Router {
	return NewRouter(agents.NewCatalog(), connectors.NewCatalog(), nil)
}

func TestRouteTopMatch(t *testing.T) {
	r := newTestRouter()
	ctx := context.Background()

	cases := []struct {
		task string
		want string
	}{
		{"Optimize Google Ads campaign and improve ROAS", "ppc-specialist"},
		{"deploy to AWS infrastructure with CI/CD pipeline", "devops-infra"},
		{"analyze revenue profit and budget forecast", "cfo-finance"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			res, err := r.Route(ctx, tc.task, 0)
			require.NoError(t, err)
			require.NotEmpty(t, res.Matches)
			assert.Equal(t, tc.want, res.Matches[0].AgentSlug)
			assert.Greater(t, res.Matches[0].Confidence, 0.3)
			assert.GreaterOrEqual(t, res.TotalCandidates, len(res.Matches))
			for i := 1; i < len(res.Matches); i++ {
				assert.GreaterOrEqual(t, res.Matches[i-1].Confidence, res.Matches[i].Confidence)
			}
		})
	}
}

func TestRouteMatchedKeywordsAndEnrichment(t *testing.T) {
	res, err := newTestRouter().Route(context.Background(), "optimize google ads campaign and improve roas", 1)
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)

	top := res.Matches[0]
	assert.Equal(t, []string{"google ads", "campaign", "roas", "ads"}, top.MatchedKeywords)
	assert.InDelta(t, 0.444, top.Confidence, 1e-9)
	assert.Equal(t, 2, res.TotalCandidates)

	byslug := map[string]models.ConnectorSummary{}
	for _, c := range top.Connectors {
		byslug[c.Slug] = c
	}
	require.Contains(t, byslug, "google-ads")
	assert.Equal(t, models.ConnectorLive, byslug["google-ads"].Status)
	require.NotEmpty(t, byslug["google-ads"].KPIs)
	assert.Equal(t, "ROAS", byslug["google-ads"].KPIs[0].Label)

	require.Contains(t, byslug, "linkedin-ads")
	assert.Equal(t, models.ConnectorMock, byslug["linkedin-ads"].Status)
	assert.Empty(t, byslug["linkedin-ads"].KPIs)
}

func TestRouteTiesKeepCatalogOrder(t *testing.T) {
	catalog := agents.NewCatalog(
		models.AgentProfile{Slug: "first", Keywords: []string{"deploy", "other"}},
		models.AgentProfile{Slug: "second", Keywords: []string{"deploy", "else"}},
		models.AgentProfile{Slug: "silent", Keywords: []string{"nothing"}},
	)
	r := NewRouter(catalog, connectors.NewCatalog(), nil)

	res, err := r.Route(context.Background(), "deploy now", 5)
	require.NoError(t, err)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, "first", res.Matches[0].AgentSlug)
	assert.Equal(t, "second", res.Matches[1].AgentSlug)
	assert.Equal(t, 2, res.TotalCandidates)
}

func TestRouteEmptyTask(t *testing.T) {
	_, err := newTestRouter().Route(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, ErrEmptyTask)
}

func TestRouteNoMatches(t *testing.T) {
	res, err := newTestRouter().Route(context.Background(), "zzz qqq", 5)
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	assert.Zero(t, res.TotalCandidates)
}

func TestRouteTopKIsClamped(t *testing.T) {
	profiles := make([]models.AgentProfile, 0, 30)
	for i := 0; i < 30; i++ {
		profiles = append(profiles, models.AgentProfile{
			Slug:     "agent-" + string(rune('a'+i%26)) + string(rune('a'+i/26)),
			Keywords: []string{"shared"},
		})
	}
	r := NewRouter(agents.NewCatalog(profiles...), connectors.NewCatalog(), nil)

	res, err := r.Route(context.Background(), "shared", 100)
	require.NoError(t, err)
	assert.Len(t, res.Matches, MaxTopK)
	assert.Equal(t, 30, res.TotalCandidates)

	res, err = r.Route(context.Background(), "shared", 0)
	require.NoError(t, err)
	assert.Len(t, res.Matches, DefaultTopK)
}

func TestBrief(t *testing.T) {
	r := newTestRouter()

	b, err := r.Brief(context.Background(), "devops-infra")
	require.NoError(t, err)
	assert.Equal(t, "devops-infra", b.Agent.Slug)
	assert.Len(t, b.ConnectorSummaries, 3)
	assert.Equal(t, 3, b.TotalLive)

	b, err = r.Brief(context.Background(), "cfo-finance")
	require.NoError(t, err)
	assert.Equal(t, 4, b.TotalLive)

	_, err = r.Brief(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

type brokenProvider struct{}

func (brokenProvider) Snapshot(context.Context, string) (*models.ConnectorSnapshot, error) {
	return nil, errors.New("upstream down")
}

func TestBriefDegradesProviderFailureToMock(t *testing.T) {
	r := NewRouter(agents.NewCatalog(), brokenProvider{}, nil)
	b, err := r.Brief(context.Background(), "ppc-specialist")
	require.NoError(t, err)
	assert.Zero(t, b.TotalLive)
	for _, c := range b.ConnectorSummaries {
		assert.Equal(t, models.ConnectorMock, c.Status)
	}
}

func TestAgentsListsCatalog(t *testing.T) {
	list := newTestRouter().Agents()
	require.Len(t, list, 15)
	assert.Equal(t, "ceo-strategy", list[0].Slug)
}
