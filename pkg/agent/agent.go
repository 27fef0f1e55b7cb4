// Package agent defines the domain agent interface, the outcome envelope
// produced by every execution, and the six built-in agents.
package agent

import (
	"context"
	"errors"
	"time"
)

// Canonical agent names, as referenced by workflow steps.
const (
	NameTask      = "task"
	NameCalendar  = "calendar"
	NameEmail     = "email"
	NameNote      = "note"
	NameAnalytics = "analytics"
	NamePriority  = "priority"
)

// Typed domain errors. Agents wrap these so callers can test with errors.Is.
var (
	ErrUnknownAgent  = errors.New("unknown agent")
	ErrUnknownAction = errors.New("unknown action")
	ErrMissingParam  = errors.New("missing required parameter")
)

// Request is a single action invocation against one agent.
type Request struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// Outcome is the uniform result envelope for one agent execution.
// Success is true iff Error is empty; Data is nil on failure.
type Outcome struct {
	Timestamp      time.Time      `json:"timestamp"`
	Agent          string         `json:"agent"`
	Error          string         `json:"error,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
	DurationMillis float64        `json:"execution_time_ms"`
	Success        bool           `json:"success"`
}

// Agent is one domain capability. Process dispatches on req.Action and
// returns the action's result payload, or an error for bad actions,
// bad parameters and store failures.
type Agent interface {
	Name() string
	Process(ctx context.Context, actorID string, req Request) (map[string]any, error)
}
