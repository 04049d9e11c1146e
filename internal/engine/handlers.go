package engine

import (
	"context"
	"fmt"
	"strings"

	"flow-orchestrator/backend/pkg/models"
)

// runState is the per-execution view handlers read upstream results from.
type runState struct {
	graph      models.FlowGraph
	index      map[string]int
	preds      [][]int
	results    []*models.StepResult
	snapshots  []*models.ConnectorSnapshot
	executedAt []int
	seq        int
}

func newRunState(g models.FlowGraph) *runState {
	r := &runState{
		graph:      g,
		index:      indexNodes(g),
		preds:      make([][]int, len(g.Nodes)),
		results:    make([]*models.StepResult, len(g.Nodes)),
		snapshots:  make([]*models.ConnectorSnapshot, len(g.Nodes)),
		executedAt: make([]int, len(g.Nodes)),
	}
	for i := range r.executedAt {
		r.executedAt[i] = -1
	}
	for _, c := range g.Connections {
		from, to := r.index[c.From], r.index[c.To]
		r.preds[to] = append(r.preds[to], from)
	}
	return r
}

func (r *runState) record(pos int, step models.StepResult) {
	r.results[pos] = &step
	r.executedAt[pos] = r.seq
	r.seq++
}

// connectorPreds returns the immediate upstream connector nodes of id.
func (r *runState) connectorPreds(id string) []int {
	var out []int
	seen := map[int]bool{}
	for _, p := range r.preds[r.index[id]] {
		if !seen[p] && r.graph.Nodes[p].Type == models.NodeConnector {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// latestConnectorSnapshot walks all ancestors of id and returns the
// snapshot of the connector that executed last.
func (r *runState) latestConnectorSnapshot(id string) *models.ConnectorSnapshot {
	start := r.index[id]
	visited := map[int]bool{start: true}
	queue := append([]int(nil), r.preds[start]...)
	best, bestSeq := -1, -1
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if visited[n] {
			continue
		}
		visited[n] = true
		if r.graph.Nodes[n].Type == models.NodeConnector && r.snapshots[n] != nil && r.executedAt[n] > bestSeq {
			best, bestSeq = n, r.executedAt[n]
		}
		queue = append(queue, r.preds[n]...)
	}
	if best < 0 {
		return nil
	}
	return r.snapshots[best]
}

// priorSteps returns every step recorded so far, in execution order.
func (r *runState) priorSteps() []*models.StepResult {
	out := make([]*models.StepResult, r.seq)
	for pos, s := range r.results {
		if s != nil {
			out[r.executedAt[pos]] = s
		}
	}
	return out
}

func (e *Engine) handleTrigger(_ context.Context, n models.Node, _ *runState) outcome {
	kind := firstNonEmpty(n.ConfigString("trigger_type"), n.ConfigString("schedule"), "manual")
	return outcome{
		status: models.StepSuccess,
		input:  "trigger: " + kind,
		output: fmt.Sprintf("Flow triggered (%s)", kind),
		data:   map[string]any{"trigger": kind},
	}
}

func (e *Engine) handleConnector(ctx context.Context, n models.Node, run *runState) outcome {
	slug := n.ResolveSlug()
	if slug == "" {
		return outcome{
			status:     models.StepError,
			input:      "no connector slug",
			output:     "connector not configured",
			failReason: "connector node has no slug",
		}
	}
	in := "connector: " + slug

	snap, err := e.connectors.Snapshot(ctx, slug)
	if err != nil {
		return outcome{
			status:     models.StepError,
			input:      in,
			output:     "connector data unavailable",
			failReason: fmt.Sprintf("connector %s failed: %v", slug, err),
		}
	}
	run.snapshots[run.index[n.ID]] = snap

	data := map[string]any{
		"connector": snap.Slug,
		"name":      snap.Name,
		"source":    string(snap.Status),
		"kpis":      snap.KPIs,
	}
	switch snap.Status {
	case models.ConnectorLive:
		parts := make([]string, 0, 3)
		for i, k := range snap.KPIs {
			if i == 3 {
				break
			}
			parts = append(parts, k.Label+": "+k.Value)
		}
		out := snap.Name + ": no KPIs reported"
		if len(parts) > 0 {
			out = snap.Name + ": " + strings.Join(parts, ", ")
		}
		return outcome{status: models.StepSuccess, input: in, output: out, data: data}
	case models.ConnectorMock:
		return outcome{status: models.StepSuccess, input: in,
			output: snap.Name + ": sample data (connector not connected)", data: data}
	default:
		return outcome{status: models.StepSuccess, input: in,
			output: slug + ": placeholder data (no source registered)", data: data}
	}
}

func (e *Engine) handleAgent(ctx context.Context, n models.Node, run *runState) outcome {
	slug := n.ResolveSlug()
	preds := run.connectorPreds(n.ID)

	var upstream []string
	for _, p := range preds {
		if s := run.results[p]; s != nil && s.Output != "" {
			upstream = append(upstream, s.Output)
		}
	}
	in := "no connector input"
	if len(preds) > 0 {
		in = fmt.Sprintf("%d connector input(s)", len(preds))
	}
	if slug == "" {
		return outcome{
			status:     models.StepError,
			input:      in,
			output:     "agent not configured",
			failReason: "agent node has no slug",
		}
	}

	analysis, err := e.responder.Respond(ctx, slug, strings.Join(upstream, "\n"))
	if err != nil {
		return outcome{
			status:     models.StepError,
			input:      in,
			output:     "no analysis produced",
			failReason: fmt.Sprintf("agent %s failed: %v", slug, err),
			data:       map[string]any{"agent": slug, "input_connectors": len(preds)},
		}
	}
	return outcome{
		status: models.StepSuccess,
		input:  in,
		output: analysis,
		data: map[string]any{
			"agent":            slug,
			"analysis":         analysis,
			"input_connectors": len(preds),
		},
	}
}

func (e *Engine) handleCondition(_ context.Context, n models.Node, run *runState) outcome {
	cond, ok := ParseCondition(n)
	if !ok {
		return outcome{
			status: models.StepSuccess,
			input:  "no condition configured",
			output: "passed through",
			data:   map[string]any{"evaluated": true, "configured": false, "passed": true},
		}
	}
	in := cond.String()
	data := map[string]any{
		"evaluated": true,
		"metric":    cond.Metric,
		"operator":  cond.Operator,
		"threshold": cond.Threshold,
	}

	if !validOperator(cond.Operator) {
		return outcome{status: models.StepError, input: in, output: "condition not evaluated", data: data,
			failReason: fmt.Sprintf("unsupported operator %q", cond.Operator)}
	}
	threshold, err := ParseNumber(cond.Threshold)
	if err != nil {
		data["passed"] = false
		return outcome{status: models.StepWarning, input: in, output: "threshold not numeric", data: data,
			failReason: fmt.Sprintf("%s not met: threshold %q is not a number", cond, cond.Threshold)}
	}

	snap := run.latestConnectorSnapshot(n.ID)
	if snap == nil {
		data["passed"] = false
		return outcome{status: models.StepWarning, input: in, output: "no upstream connector data", data: data,
			failReason: fmt.Sprintf("%s not met: no upstream connector data for %s", cond, cond.Metric)}
	}
	kpi, found := findKPI(snap.KPIs, cond.Metric)
	if !found {
		data["passed"] = false
		return outcome{status: models.StepWarning, input: in, output: "metric not reported", data: data,
			failReason: fmt.Sprintf("%s not met: %s reports no %s metric", cond, snap.Name, cond.Metric)}
	}
	actual, err := ParseNumber(kpi.Value)
	if err != nil {
		data["passed"] = false
		return outcome{status: models.StepWarning, input: in, output: "metric not numeric", data: data,
			failReason: fmt.Sprintf("%s not met: %s value %q is not numeric", cond, kpi.Label, kpi.Value)}
	}

	held, err := e.compare.compare(cond.Operator, actual, threshold)
	if err != nil {
		return outcome{status: models.StepError, input: in, output: "condition not evaluated", data: data,
			failReason: fmt.Sprintf("evaluating %s: %v", cond, err)}
	}
	data["actual"] = actual
	data["passed"] = held
	if !held {
		return outcome{status: models.StepWarning, input: in,
			output:     fmt.Sprintf("%s is %s, condition %s %s not met", kpi.Label, kpi.Value, cond.Operator, cond.Threshold),
			failReason: fmt.Sprintf("%s threshold not met: %s is %s, needs %s %s", cond.Metric, kpi.Label, kpi.Value, cond.Operator, cond.Threshold),
			data:       data}
	}
	return outcome{status: models.StepSuccess, input: in,
		output: fmt.Sprintf("%s is %s, condition %s %s met", kpi.Label, kpi.Value, cond.Operator, cond.Threshold),
		data:   data}
}

func (e *Engine) handleOutput(_ context.Context, n models.Node, run *runState) outcome {
	prior := run.priorSteps()
	lines := make([]string, 0, len(prior))
	for _, s := range prior {
		if s.Output == "" {
			continue
		}
		// Successful connector output already leads with the connector name.
		if s.Type == models.NodeConnector && s.Status == models.StepSuccess {
			lines = append(lines, s.Output)
			continue
		}
		lines = append(lines, s.NodeLabel+": "+s.Output)
	}
	out := "Nothing to report"
	if len(lines) > 0 {
		out = strings.Join(lines, " | ")
	}
	return outcome{
		status: models.StepSuccess,
		input:  fmt.Sprintf("%d prior step(s)", len(prior)),
		output: out,
		data:   map[string]any{"collected": len(lines), "format": firstNonEmpty(n.ConfigString("format"), "summary")},
	}
}
