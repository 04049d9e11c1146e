package models

import (
	"time"
)

// StepStatus classifies the outcome of a single node.
type StepStatus string

const (
	StepSuccess StepStatus = "success"
	StepWarning StepStatus = "warning"
	StepError   StepStatus = "error"
)

// ExecutionCompleted is the only run-level status; a failing step never
// aborts the run.
const ExecutionCompleted = "completed"

// StepResult records what one node received, produced and how long it took.
type StepResult struct {
	NodeID     string         `json:"node_id"`
	NodeLabel  string         `json:"node_label"`
	Type       NodeType       `json:"type"`
	Status     StepStatus     `json:"status"`
	Input      string         `json:"input"`
	Output     string         `json:"output"`
	FailReason string         `json:"fail_reason"`
	DurationMS float64        `json:"duration_ms"`
	Data       map[string]any `json:"data,omitempty"`
}

// ExecutionTrace is the immutable record of one flow execution.
type ExecutionTrace struct {
	ID              string       `json:"id"`
	UserID          string       `json:"user_id"`
	ClientID        string       `json:"client_id,omitempty"`
	FlowID          *string      `json:"flow_id"`
	FlowName        string       `json:"flow_name"`
	Status          string       `json:"status"`
	Outcome         StepStatus   `json:"outcome"`
	Steps           []StepResult `json:"steps"`
	StepsExecuted   int          `json:"steps_executed"`
	SuccessSteps    int          `json:"success_steps"`
	WarningSteps    int          `json:"warning_steps"`
	FailedSteps     int          `json:"failed_steps"`
	StartedAt       time.Time    `json:"started_at"`
	FinishedAt      time.Time    `json:"finished_at"`
	TotalDurationMS float64      `json:"total_duration_ms"`
}

// Scope returns the owner scope the trace was recorded under.
func (t *ExecutionTrace) Scope() Scope {
	return Scope{UserID: t.UserID, ClientID: t.ClientID}
}

// Summary drops the step list for history listings.
func (t *ExecutionTrace) Summary() ExecutionSummary {
	return ExecutionSummary{
		ID:              t.ID,
		ClientID:        t.ClientID,
		FlowID:          t.FlowID,
		FlowName:        t.FlowName,
		Status:          t.Status,
		Outcome:         t.Outcome,
		StepsExecuted:   t.StepsExecuted,
		SuccessSteps:    t.SuccessSteps,
		WarningSteps:    t.WarningSteps,
		FailedSteps:     t.FailedSteps,
		StartedAt:       t.StartedAt,
		FinishedAt:      t.FinishedAt,
		TotalDurationMS: t.TotalDurationMS,
	}
}

// ExecutionSummary is a history row without per-step detail.
type ExecutionSummary struct {
	ID              string     `json:"id"`
	ClientID        string     `json:"client_id,omitempty"`
	FlowID          *string    `json:"flow_id"`
	FlowName        string     `json:"flow_name"`
	Status          string     `json:"status"`
	Outcome         StepStatus `json:"outcome"`
	StepsExecuted   int        `json:"steps_executed"`
	SuccessSteps    int        `json:"success_steps"`
	WarningSteps    int        `json:"warning_steps"`
	FailedSteps     int        `json:"failed_steps"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      time.Time  `json:"finished_at"`
	TotalDurationMS float64    `json:"total_duration_ms"`
}

// LegacyResult is the flat per-step view older consumers read from
// "results". Success is reported as "ok".
type LegacyResult struct {
	NodeID     string         `json:"node_id"`
	NodeLabel  string         `json:"node_label"`
	Type       NodeType       `json:"type"`
	Status     string         `json:"status"`
	Data       map[string]any `json:"data"`
	FailReason string         `json:"fail_reason"`
	DurationMS float64        `json:"duration_ms"`
}

// LegacyResults renders the trace steps in the legacy results shape.
func (t *ExecutionTrace) LegacyResults() []LegacyResult {
	out := make([]LegacyResult, 0, len(t.Steps))
	for _, s := range t.Steps {
		status := string(s.Status)
		if s.Status == StepSuccess {
			status = "ok"
		}
		data := make(map[string]any, len(s.Data)+1)
		for k, v := range s.Data {
			data[k] = v
		}
		if _, ok := data["output"]; !ok {
			data["output"] = s.Output
		}
		out = append(out, LegacyResult{
			NodeID:     s.NodeID,
			NodeLabel:  s.NodeLabel,
			Type:       s.Type,
			Status:     status,
			Data:       data,
			FailReason: s.FailReason,
			DurationMS: s.DurationMS,
		})
	}
	return out
}
