// Package engine validates and executes flow graphs.
package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"flow-orchestrator/backend/internal/agents"
	"flow-orchestrator/backend/internal/connectors"
	"flow-orchestrator/backend/pkg/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Clock returns the current time.
type Clock func() time.Time

// Logger is the subset of the application logger the engine uses.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// DefaultCosts are the simulated per-type costs in milliseconds added to
// each step's measured time. Trigger is the cheapest and agent the most
// expensive.
var DefaultCosts = map[models.NodeType]float64{
	models.NodeTrigger:   1.2,
	models.NodeCondition: 3.5,
	models.NodeOutput:    6.0,
	models.NodeConnector: 42.0,
	models.NodeAgent:     185.0,
}

// StepHandler runs one node and reports its outcome. Timing, labels and
// panics are handled by the engine.
type StepHandler func(ctx context.Context, node models.Node, run *runState) outcome

type outcome struct {
	status     models.StepStatus
	input      string
	output     string
	failReason string
	data       map[string]any
}

// Engine executes validated flow graphs. It holds no per-run state and is
// safe for concurrent use.
type Engine struct {
	connectors connectors.Provider
	responder  agents.Responder
	handlers   map[models.NodeType]StepHandler
	costs      map[models.NodeType]float64
	clock      Clock
	logger     Logger
	compare    *comparator
	metrics    *engineMetrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock used for step timing.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithCosts overrides simulated costs by node type name. Non-positive and
// unknown entries are ignored.
func WithCosts(costs map[string]float64) Option {
	return func(e *Engine) {
		for name, ms := range costs {
			t := models.NodeType(name)
			if t.Valid() && ms > 0 {
				e.costs[t] = ms
			}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMeter sets the meter used for execution metrics.
func WithMeter(m metric.Meter) Option {
	return func(e *Engine) { e.metrics = newEngineMetrics(m) }
}

// New creates an Engine calling provider for connector nodes and responder
// for agent nodes.
func New(provider connectors.Provider, responder agents.Responder, opts ...Option) *Engine {
	e := &Engine{
		connectors: provider,
		responder:  responder,
		costs:      make(map[models.NodeType]float64, len(DefaultCosts)),
		clock:      time.Now,
		logger:     nopLogger{},
		compare:    newComparator(),
	}
	for t, ms := range DefaultCosts {
		e.costs[t] = ms
	}
	e.handlers = map[models.NodeType]StepHandler{
		models.NodeTrigger:   e.handleTrigger,
		models.NodeConnector: e.handleConnector,
		models.NodeAgent:     e.handleAgent,
		models.NodeCondition: e.handleCondition,
		models.NodeOutput:    e.handleOutput,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = newEngineMetrics(otel.Meter("flow-orchestrator/engine"))
	}
	return e
}

// Run validates g and executes every node once. The returned trace has no
// id, scope or flow reference; the caller assigns those before saving it.
// A failing step never aborts the run.
func (e *Engine) Run(ctx context.Context, g models.FlowGraph) (*models.ExecutionTrace, error) {
	if err := Validate(g); err != nil {
		return nil, err
	}

	run := newRunState(g)
	trace := &models.ExecutionTrace{
		Status:    models.ExecutionCompleted,
		StartedAt: e.clock().UTC(),
		Steps:     make([]models.StepResult, 0, len(g.Nodes)),
	}

	var total float64
	for _, pos := range Plan(g) {
		node := g.Nodes[pos]
		step := e.runStep(ctx, node, run)
		run.record(pos, step)
		trace.Steps = append(trace.Steps, step)
		total += step.DurationMS

		switch step.Status {
		case models.StepSuccess:
			trace.SuccessSteps++
		case models.StepWarning:
			trace.WarningSteps++
		default:
			trace.FailedSteps++
		}
		e.metrics.step(ctx, node.Type, step.Status)
	}

	trace.StepsExecuted = len(trace.Steps)
	trace.TotalDurationMS = round2(total)
	trace.FinishedAt = trace.StartedAt.Add(time.Duration(math.Round(trace.TotalDurationMS * float64(time.Millisecond))))
	trace.Outcome = worstStatus(trace)
	e.metrics.execution(ctx, trace)
	return trace, nil
}

func (e *Engine) runStep(ctx context.Context, node models.Node, run *runState) models.StepResult {
	start := e.clock()
	out := e.invoke(ctx, node, run)
	elapsed := float64(e.clock().Sub(start)) / float64(time.Millisecond)
	if elapsed < 0 {
		elapsed = 0
	}

	if out.status != models.StepSuccess && out.failReason == "" {
		out.failReason = fmt.Sprintf("%s step ended with status %s", node.Type, out.status)
	}
	if out.status == models.StepSuccess {
		out.failReason = ""
	}
	if out.status != models.StepSuccess {
		e.logger.Warn("step did not succeed", "node_id", node.ID, "type", node.Type,
			"status", out.status, "reason", out.failReason)
	}

	label := node.Label
	if label == "" {
		label = node.ID
	}
	return models.StepResult{
		NodeID:     node.ID,
		NodeLabel:  label,
		Type:       node.Type,
		Status:     out.status,
		Input:      out.input,
		Output:     out.output,
		FailReason: out.failReason,
		DurationMS: round2(e.costs[node.Type] + elapsed),
		Data:       out.data,
	}
}

// invoke dispatches to the node type's handler and turns a panic into an
// error step.
func (e *Engine) invoke(ctx context.Context, node models.Node, run *runState) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{
				status:     models.StepError,
				output:     "step failed",
				failReason: fmt.Sprintf("%s handler panicked: %v", node.Type, r),
			}
		}
	}()

	handler, ok := e.handlers[node.Type]
	if !ok {
		return outcome{status: models.StepError, failReason: fmt.Sprintf("no handler for node type %q", node.Type)}
	}
	e.logger.Debug("executing step", "node_id", node.ID, "type", node.Type)
	return handler(ctx, node, run)
}

func worstStatus(t *models.ExecutionTrace) models.StepStatus {
	switch {
	case t.FailedSteps > 0:
		return models.StepError
	case t.WarningSteps > 0:
		return models.StepWarning
	}
	return models.StepSuccess
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type engineMetrics struct {
	executions metric.Int64Counter
	steps      metric.Int64Counter
	duration   metric.Float64Histogram
}

func newEngineMetrics(m metric.Meter) *engineMetrics {
	executions, _ := m.Int64Counter("orchestrator.executions",
		metric.WithDescription("Flow executions by outcome"))
	steps, _ := m.Int64Counter("orchestrator.steps",
		metric.WithDescription("Executed steps by node type and status"))
	duration, _ := m.Float64Histogram("orchestrator.execution.duration",
		metric.WithDescription("Total simulated execution duration"), metric.WithUnit("ms"))
	return &engineMetrics{executions: executions, steps: steps, duration: duration}
}

func (m *engineMetrics) step(ctx context.Context, t models.NodeType, s models.StepStatus) {
	if m.steps == nil {
		return
	}
	m.steps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node_type", string(t)),
		attribute.String("status", string(s)),
	))
}

func (m *engineMetrics) execution(ctx context.Context, t *models.ExecutionTrace) {
	attrs := metric.WithAttributes(attribute.String("outcome", string(t.Outcome)))
	if m.executions != nil {
		m.executions.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, t.TotalDurationMS, attrs)
	}
}
