package models

import (
	"strconv"
	"strings"
	"time"
)

// NodeType identifies which handler executes a node.
type NodeType string

const (
	NodeTrigger   NodeType = "trigger"
	NodeConnector NodeType = "connector"
	NodeAgent     NodeType = "agent"
	NodeCondition NodeType = "condition"
	NodeOutput    NodeType = "output"
)

// Valid reports whether t is one of the recognized node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTrigger, NodeConnector, NodeAgent, NodeCondition, NodeOutput:
		return true
	}
	return false
}

// Node is a single step in a flow graph. X and Y are editor hints only.
type Node struct {
	ID     string         `json:"id" yaml:"id"`
	Type   NodeType       `json:"type" yaml:"type"`
	Label  string         `json:"label" yaml:"label"`
	X      float64        `json:"x" yaml:"x"`
	Y      float64        `json:"y" yaml:"y"`
	Slug   string         `json:"slug,omitempty" yaml:"slug,omitempty"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// ResolveSlug returns the connector or agent identifier, preferring the
// top-level field over config["slug"].
func (n Node) ResolveSlug() string {
	if n.Slug != "" {
		return n.Slug
	}
	return n.ConfigString("slug")
}

// ConfigString returns config[key] rendered as a string, or "" when absent.
func (n Node) ConfigString(key string) string {
	v, ok := n.Config[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case bool:
		return strconv.FormatBool(val)
	}
	return ""
}

// Connection is a directed edge between two node ids.
type Connection struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// FlowGraph is the executable part of a flow definition.
type FlowGraph struct {
	Version     string       `json:"version,omitempty" yaml:"version,omitempty"`
	Nodes       []Node       `json:"nodes" yaml:"nodes"`
	Connections []Connection `json:"connections" yaml:"connections"`
}

// Clone returns a deep copy of the graph, including node config maps.
func (g FlowGraph) Clone() FlowGraph {
	out := FlowGraph{
		Version:     g.Version,
		Nodes:       make([]Node, len(g.Nodes)),
		Connections: make([]Connection, len(g.Connections)),
	}
	for i, n := range g.Nodes {
		n.Config = cloneMap(n.Config)
		out.Nodes[i] = n
	}
	copy(out.Connections, g.Connections)
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	}
	return v
}

// Flow is a saved flow definition owned by a scope.
type Flow struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ClientID    string    `json:"client_id,omitempty"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	IsTemplate  bool      `json:"is_template"`
	Builtin     bool      `json:"builtin,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	Graph       FlowGraph `json:"flow"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Scope returns the owner scope the flow was saved under.
func (f *Flow) Scope() Scope {
	return Scope{UserID: f.UserID, ClientID: f.ClientID}
}

// DefaultCategory is applied to flows saved without a category.
const DefaultCategory = "Uncategorized"
