package models

// ConnectorStatus reports how a connector's data is sourced.
type ConnectorStatus string

const (
	ConnectorLive    ConnectorStatus = "live"
	ConnectorMock    ConnectorStatus = "mock"
	ConnectorUnknown ConnectorStatus = "unknown"
)

// KPI is one label/value pair of a connector snapshot. Value is kept as
// display text ("$458.19", "8.38x", "41.3%").
type KPI struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ConnectorSnapshot is what the KPI provider returns for a connector slug.
// KPIs are ordered with the headline metric first.
type ConnectorSnapshot struct {
	Slug   string          `json:"slug"`
	Name   string          `json:"name"`
	Status ConnectorStatus `json:"status"`
	KPIs   []KPI           `json:"kpis,omitempty"`
}

// ConnectorSummary is a connector entry attached to a route match or brief.
type ConnectorSummary struct {
	Slug   string          `json:"slug"`
	Name   string          `json:"name"`
	Status ConnectorStatus `json:"status"`
	KPIs   []KPI           `json:"kpis,omitempty"`
}

// AgentProfile is a catalog entry the router scores tasks against.
type AgentProfile struct {
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Connectors  []string `json:"connectors"`
}

// RouteMatch is one scored candidate for a routed task.
type RouteMatch struct {
	AgentSlug       string             `json:"agent_slug"`
	Name            string             `json:"name"`
	Category        string             `json:"category"`
	Confidence      float64            `json:"confidence"`
	MatchedKeywords []string           `json:"matched_keywords"`
	Connectors      []ConnectorSummary `json:"connectors"`
}

// RouteResult is the router's answer for one task.
type RouteResult struct {
	Task            string       `json:"task"`
	Matches         []RouteMatch `json:"matches"`
	TotalCandidates int          `json:"total_candidates"`
}

// AgentBrief describes a single agent with its connector enrichment.
type AgentBrief struct {
	Agent              AgentProfile       `json:"agent"`
	ConnectorSummaries []ConnectorSummary `json:"connector_summaries"`
	TotalLive          int                `json:"total_live"`
}
