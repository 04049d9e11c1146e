package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownAgent = errors.New("unknown agent")
	ErrEmptyReply   = errors.New("agent returned an empty reply")
)

// Responder produces free-text analysis for an agent given upstream
// context. An unknown slug is an error.
type Responder interface {
	Respond(ctx context.Context, slug, upstream string) (string, error)
}

// CatalogResponder answers from the catalog alone, without calling out.
// Its replies are deterministic for a given slug and context.
type CatalogResponder struct {
	catalog *Catalog
}

// NewCatalogResponder creates a CatalogResponder.
func NewCatalogResponder(catalog *Catalog) *CatalogResponder {
	return &CatalogResponder{catalog: catalog}
}

// Respond implements Responder.
func (r *CatalogResponder) Respond(ctx context.Context, slug, upstream string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	profile, ok := r.catalog.Lookup(slug)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAgent, slug)
	}

	upstream = strings.TrimSpace(upstream)
	if upstream == "" {
		return fmt.Sprintf("%s: no upstream data was provided. Focus: %s",
			profile.Name, profile.Description), nil
	}

	signals := strings.Split(upstream, "\n")
	return fmt.Sprintf("%s reviewed %d upstream signal(s). Headline: %s. Focus: %s",
		profile.Name, len(signals), firstLine(signals), profile.Description), nil
}

func firstLine(lines []string) string {
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return ""
}

// SystemPrompt is the instruction sent to remote responders for an agent.
func SystemPrompt(name, description string) string {
	return fmt.Sprintf("You are %s. %s Reply with a short analysis and one concrete recommendation.",
		name, description)
}
