// Package agents holds the specialist catalog and the responders that
// produce analysis text for agent nodes.
package agents

import (
	"strings"

	"flow-orchestrator/backend/pkg/models"
)

// Catalog is the fixed, ordered set of specialist profiles. Order matters:
// the router breaks score ties by catalog position.
type Catalog struct {
	profiles []models.AgentProfile
	index    map[string]int
}

// NewCatalog builds a catalog over profiles, or the built-in set when none
// are passed.
func NewCatalog(profiles ...models.AgentProfile) *Catalog {
	if len(profiles) == 0 {
		profiles = builtinProfiles
	}
	c := &Catalog{profiles: profiles, index: make(map[string]int, len(profiles))}
	for i, p := range profiles {
		c.index[p.Slug] = i
	}
	return c
}

// Lookup returns the profile for slug.
func (c *Catalog) Lookup(slug string) (models.AgentProfile, bool) {
	i, ok := c.index[strings.ToLower(strings.TrimSpace(slug))]
	if !ok {
		return models.AgentProfile{}, false
	}
	return c.profiles[i], true
}

// Profiles returns the catalog in declaration order.
func (c *Catalog) Profiles() []models.AgentProfile {
	out := make([]models.AgentProfile, len(c.profiles))
	copy(out, c.profiles)
	return out
}

var builtinProfiles = []models.AgentProfile{
	{
		Slug: "ceo-strategy", Name: "CEO / Vision & Strategy", Category: "Business",
		Description: "Long-term strategy, positioning and decisive trade-offs.",
		Keywords:    []string{"strategy", "vision", "market share", "competitor", "moat", "expansion", "board", "pivot"},
		Connectors:  []string{"stripe", "quickbooks", "hubspot"},
	},
	{
		Slug: "cto-innovation", Name: "CTO / Tech & Innovation", Category: "Business",
		Description: "Technology roadmap, architecture bets and engineering scale.",
		Keywords:    []string{"technology", "roadmap", "architecture", "scalability", "innovation", "tech stack", "engineering team"},
		Connectors:  []string{"github", "aws", "vercel"},
	},
	{
		Slug: "cmo-growth", Name: "CMO / Marketing & Growth", Category: "Business",
		Description: "Growth channels, funnels and marketing mix.",
		Keywords:    []string{"marketing", "growth", "funnel", "acquisition", "brand", "channel", "campaign", "retention"},
		Connectors:  []string{"ga4", "google-ads", "meta-ads", "hubspot", "mailchimp"},
	},
	{
		Slug: "cfo-finance", Name: "CFO / Finance & Numbers", Category: "Business",
		Description: "Cash flow, margins, budgets and forecasts.",
		Keywords:    []string{"revenue", "profit", "budget", "forecast", "cash flow", "burn", "finance", "valuation", "margin", "invoice"},
		Connectors:  []string{"stripe", "paypal", "shopify", "quickbooks"},
	},
	{
		Slug: "coo-operations", Name: "COO / Operations & Execution", Category: "Business",
		Description: "Processes, efficiency and team execution.",
		Keywords:    []string{"operations", "process", "efficiency", "sop", "workflow", "logistics", "fulfillment", "hiring"},
		Connectors:  []string{"notion", "slack", "quickbooks", "shopify"},
	},
	{
		Slug: "ppc-specialist", Name: "PPC Specialist", Category: "Agency",
		Description: "Paid ads tactics, bidding, ROAS and campaign optimization.",
		Keywords:    []string{"google ads", "ppc", "campaign", "roas", "bid", "cpc", "ad spend", "ads", "conversion"},
		Connectors:  []string{"google-ads", "meta-ads", "linkedin-ads", "tiktok-ads", "ga4"},
	},
	{
		Slug: "seo-content", Name: "SEO & Content Strategist", Category: "Agency",
		Description: "Keyword research, content pillars, backlinks and SERP visibility.",
		Keywords:    []string{"seo", "keyword research", "backlink", "serp", "organic", "content", "blog", "ranking"},
		Connectors:  []string{"search-console", "ga4", "semrush"},
	},
	{
		Slug: "creative-director", Name: "Creative Director / Designer", Category: "Agency",
		Description: "Visual identity, branding and design principles.",
		Keywords:    []string{"design", "logo", "visual", "creative", "branding", "typography", "moodboard"},
		Connectors:  []string{"instagram", "notion"},
	},
	{
		Slug: "social-media", Name: "Social Media Manager", Category: "Agency",
		Description: "Content calendar, engagement and community.",
		Keywords:    []string{"social media", "instagram", "tiktok", "engagement", "followers", "influencer", "community", "post"},
		Connectors:  []string{"instagram", "meta-ads", "tiktok-ads", "linkedin-ads"},
	},
	{
		Slug: "performance-analytics", Name: "Performance & Analytics Expert", Category: "Agency",
		Description: "Dashboards, attribution and experimentation.",
		Keywords:    []string{"analytics", "dashboard", "attribution", "a/b test", "kpi", "metrics", "tracking", "report"},
		Connectors:  []string{"ga4", "google-ads", "meta-ads", "search-console"},
	},
	{
		Slug: "devops-infra", Name: "DevOps & Infrastructure Engineer", Category: "Development",
		Description: "CI/CD, cloud infrastructure, monitoring and reliability.",
		Keywords:    []string{"deploy", "aws", "infrastructure", "ci/cd", "pipeline", "kubernetes", "docker", "monitoring", "cloud", "uptime"},
		Connectors:  []string{"github", "aws", "vercel"},
	},
	{
		Slug: "fullstack-dev", Name: "Full-Stack Developer", Category: "Development",
		Description: "Frontend and backend implementation, debugging.",
		Keywords:    []string{"code", "bug", "frontend", "backend", "react", "javascript", "feature", "debug"},
		Connectors:  []string{"github", "vercel"},
	},
	{
		Slug: "backend-architect", Name: "Backend Architect", Category: "Development",
		Description: "System design, APIs, databases and scalability.",
		Keywords:    []string{"api", "database", "system design", "microservice", "schema", "latency", "queue"},
		Connectors:  []string{"github", "aws"},
	},
	{
		Slug: "frontend-uiux", Name: "Frontend / UI-UX Specialist", Category: "Development",
		Description: "UI patterns, accessibility and user flows.",
		Keywords:    []string{"user interface", "ux", "accessibility", "user flow", "wireframe", "responsive", "css"},
		Connectors:  []string{"vercel", "github"},
	},
	{
		Slug: "security-quality", Name: "Security & Code Quality Engineer", Category: "Development",
		Description: "Security practices, testing and clean code.",
		Keywords:    []string{"security", "vulnerability", "audit", "test coverage", "penetration", "compliance", "code review"},
		Connectors:  []string{"github", "aws"},
	},
}
