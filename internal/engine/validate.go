package engine

import (
	"fmt"
	"strings"

	"flow-orchestrator/backend/pkg/models"
)

// Reason is the machine-readable cause of a ValidationError.
type Reason string

const (
	ReasonEmptyFlow          Reason = "empty_flow"
	ReasonMissingNodeID      Reason = "missing_node_id"
	ReasonUnknownNodeType    Reason = "unknown_node_type"
	ReasonDuplicateNodeID    Reason = "duplicate_node_id"
	ReasonDanglingConnection Reason = "dangling_connection"
	ReasonCycleDetected      Reason = "cycle_detected"
	ReasonMissingTrigger     Reason = "missing_trigger"
)

// ValidationError reports why a flow graph was rejected.
type ValidationError struct {
	Reason Reason `json:"reason"`
	NodeID string `json:"node_id,omitempty"`
	Detail string `json:"detail"`
}

func (e *ValidationError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("invalid flow: %s (node %q): %s", e.Reason, e.NodeID, e.Detail)
	}
	return fmt.Sprintf("invalid flow: %s: %s", e.Reason, e.Detail)
}

func invalid(reason Reason, nodeID, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, NodeID: nodeID, Detail: fmt.Sprintf(format, args...)}
}

// ValidateStructure checks node ids, node types and connection endpoints.
// It is what saving a flow requires; drafts may still be cyclic or lack a
// trigger.
func ValidateStructure(g models.FlowGraph) error {
	seen := make(map[string]struct{}, len(g.Nodes))
	for i, n := range g.Nodes {
		id := n.ID
		if strings.TrimSpace(id) == "" {
			return invalid(ReasonMissingNodeID, "", "node at position %d has no id", i)
		}
		if !n.Type.Valid() {
			return invalid(ReasonUnknownNodeType, id, "type %q is not one of trigger, connector, agent, condition, output", n.Type)
		}
		if _, dup := seen[id]; dup {
			return invalid(ReasonDuplicateNodeID, id, "node id is used more than once")
		}
		seen[id] = struct{}{}
	}
	for i, c := range g.Connections {
		if _, ok := seen[c.From]; !ok {
			return invalid(ReasonDanglingConnection, c.From, "connection %d starts at a node that does not exist", i)
		}
		if _, ok := seen[c.To]; !ok {
			return invalid(ReasonDanglingConnection, c.To, "connection %d ends at a node that does not exist", i)
		}
	}
	return nil
}

// Validate checks everything ValidateStructure does, and additionally that
// the graph is non-empty, acyclic and has at least one trigger.
func Validate(g models.FlowGraph) error {
	if len(g.Nodes) == 0 {
		return invalid(ReasonEmptyFlow, "", "flow has no nodes")
	}
	if err := ValidateStructure(g); err != nil {
		return err
	}

	hasTrigger := false
	for _, n := range g.Nodes {
		if n.Type == models.NodeTrigger {
			hasTrigger = true
			break
		}
	}
	if !hasTrigger {
		return invalid(ReasonMissingTrigger, "", "flow has no trigger node")
	}

	if id, ok := findCycle(g); ok {
		return invalid(ReasonCycleDetected, id, "connections form a cycle")
	}
	return nil
}

// findCycle runs Kahn's algorithm over the whole graph and returns the
// first node, in declaration order, left with unresolved in-edges.
func findCycle(g models.FlowGraph) (string, bool) {
	idx := indexNodes(g)
	indeg := make([]int, len(g.Nodes))
	succ := make([][]int, len(g.Nodes))
	for _, c := range g.Connections {
		from, to := idx[c.From], idx[c.To]
		succ[from] = append(succ[from], to)
		indeg[to]++
	}

	queue := make([]int, 0, len(g.Nodes))
	for i := range g.Nodes {
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}
	visited := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visited++
		for _, s := range succ[n] {
			indeg[s]--
			if indeg[s] == 0 {
				queue = append(queue, s)
			}
		}
	}
	if visited == len(g.Nodes) {
		return "", false
	}
	for i, d := range indeg {
		if d > 0 {
			return g.Nodes[i].ID, true
		}
	}
	return "", true
}

func indexNodes(g models.FlowGraph) map[string]int {
	idx := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		idx[n.ID] = i
	}
	return idx
}
