// Package workflow implements the orchestration core: sequential, parallel
// and conditional execution of agent steps.
package workflow

import (
	"time"

	"assistant/pkg/agent"
)

// Execution modes.
const (
	ModeSequential  = "sequential"
	ModeParallel    = "parallel"
	ModeConditional = "conditional"
)

// Step names one agent invocation. Steps are value types and never mutated
// by the orchestrator.
type Step struct {
	Agent  string         `json:"agent"`
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// StepOutcome is the result slot for one step. Exactly one of Result and
// Err is set: Result for steps that reached an agent (including agent
// failures), Err when the step could not be dispatched at all (unknown
// agent, cancellation before start).
type StepOutcome struct {
	Timestamp time.Time      `json:"timestamp"`
	Result    *agent.Outcome `json:"result,omitempty"`
	Err       string         `json:"error,omitempty"`
	Step      Step           `json:"step"`
}

// OK reports whether the step dispatched and the agent succeeded.
func (s *StepOutcome) OK() bool {
	return s.Err == "" && s.Result != nil && s.Result.Success
}

// Condition pairs a predicate with the step to run when it holds.
type Condition struct {
	If   string `json:"if"`
	Then Step   `json:"then"`
}

// Conditional is a conditional workflow: an initial step whose outcome is
// tested by each condition.
type Conditional struct {
	Initial    Step        `json:"initial"`
	Conditions []Condition `json:"conditions"`
}

// ConditionOutcome records one condition evaluation. Result is set only
// when the condition matched and its Then step ran.
type ConditionOutcome struct {
	Condition string       `json:"condition"`
	Result    *StepOutcome `json:"result,omitempty"`
	Matched   bool         `json:"matched"`
}

// ConditionalResult is the full result of a conditional workflow.
type ConditionalResult struct {
	Initial StepOutcome        `json:"initial"`
	Matches []ConditionOutcome `json:"matches"`
}
