package models

import (
	"time"
)

// Client is a sub-tenant registered under an owner. Flows and executions
// saved with a client id are only visible to requests carrying that id.
type Client struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Scope partitions all persisted data. An empty ClientID is the owner's
// personal scope and never matches data saved under a client.
type Scope struct {
	UserID   string `json:"user_id"`
	ClientID string `json:"client_id,omitempty"`
}

// HasClient reports whether the scope is narrowed to a sub-tenant.
func (s Scope) HasClient() bool {
	return s.ClientID != ""
}
