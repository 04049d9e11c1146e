package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SidecarResponder asks an HTTP reasoning sidecar for the analysis.
type SidecarResponder struct {
	url     string
	catalog *Catalog
	client  *http.Client
}

// NewSidecarResponder creates a SidecarResponder posting to url.
func NewSidecarResponder(url string, catalog *Catalog, timeout time.Duration) *SidecarResponder {
	return &SidecarResponder{
		url:     strings.TrimRight(url, "/"),
		catalog: catalog,
		client:  &http.Client{Timeout: timeout},
	}
}

type sidecarRequest struct {
	Agent   string `json:"agent"`
	System  string `json:"system"`
	Context string `json:"context"`
}

type sidecarResponse struct {
	Analysis string `json:"analysis"`
}

// Respond implements Responder.
func (r *SidecarResponder) Respond(ctx context.Context, slug, upstream string) (string, error) {
	profile, ok := r.catalog.Lookup(slug)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAgent, slug)
	}

	requestBody, err := json.Marshal(sidecarRequest{
		Agent:   profile.Slug,
		System:  SystemPrompt(profile.Name, profile.Description),
		Context: upstream,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url+"/respond", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sidecar responded with status code %d", resp.StatusCode)
	}

	var out sidecarResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}
	if strings.TrimSpace(out.Analysis) == "" {
		return "", ErrEmptyReply
	}
	return out.Analysis, nil
}
