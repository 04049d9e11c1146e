package engine

import (
	"sort"

	"flow-orchestrator/backend/pkg/models"
)

// Plan returns node positions in execution order for a validated graph.
//
// Reachable nodes are visited breadth-first from the triggers. A node
// becomes ready once every reachable predecessor has run, and nodes made
// ready by the same step run in declaration order. Nodes no trigger reaches
// are appended in declaration order.
func Plan(g models.FlowGraph) []int {
	idx := indexNodes(g)
	succ := make([][]int, len(g.Nodes))
	for _, c := range g.Connections {
		from, okFrom := idx[c.From]
		to, okTo := idx[c.To]
		if okFrom && okTo {
			succ[from] = append(succ[from], to)
		}
	}

	var seeds []int
	for i, n := range g.Nodes {
		if n.Type == models.NodeTrigger {
			seeds = append(seeds, i)
		}
	}
	reachable := make([]bool, len(g.Nodes))
	stack := append([]int(nil), seeds...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reachable[n] {
			continue
		}
		reachable[n] = true
		stack = append(stack, succ[n]...)
	}

	indeg := make([]int, len(g.Nodes))
	for from, targets := range succ {
		if !reachable[from] {
			continue
		}
		for _, to := range targets {
			indeg[to]++
		}
	}

	order := make([]int, 0, len(g.Nodes))
	placed := make([]bool, len(g.Nodes))
	queue := make([]int, 0, len(g.Nodes))
	for _, s := range seeds {
		if indeg[s] == 0 {
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		placed[n] = true

		var ready []int
		for _, s := range succ[n] {
			indeg[s]--
			if indeg[s] == 0 {
				ready = append(ready, s)
			}
		}
		sort.Ints(ready)
		queue = append(queue, ready...)
	}

	for i := range g.Nodes {
		if !placed[i] {
			order = append(order, i)
		}
	}
	return order
}
