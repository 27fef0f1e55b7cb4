package workflow

import (
	"context"
	"encoding/json"
	"fmt"
)

// Request is the inbound workflow request shape:
//
//	{"workflow_type": "sequential", "params": {"workflow": [...]}}
//	{"workflow_type": "parallel",   "params": {"tasks": [...]}}
//	{"workflow_type": "conditional","params": {"conditional": {...}}}
type Request struct {
	WorkflowType string        `json:"workflow_type"`
	Params       RequestParams `json:"params"`
}

// RequestParams carries the step lists; which field applies depends on the
// workflow type.
type RequestParams struct {
	Workflow    []Step       `json:"workflow,omitempty"`
	Tasks       []Step       `json:"tasks,omitempty"`
	Conditional *Conditional `json:"conditional,omitempty"`
}

// DecodeRequest parses and validates an inbound request.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid workflow request: %w", err)
	}

	switch req.WorkflowType {
	case ModeSequential:
		if len(req.Params.Workflow) == 0 {
			return nil, fmt.Errorf("sequential request requires params.workflow")
		}
	case ModeParallel:
		if len(req.Params.Tasks) == 0 {
			return nil, fmt.Errorf("parallel request requires params.tasks")
		}
	case ModeConditional:
		if req.Params.Conditional == nil {
			return nil, fmt.Errorf("conditional request requires params.conditional")
		}
		if req.Params.Conditional.Initial.Agent == "" {
			return nil, fmt.Errorf("conditional request requires an initial step")
		}
	case "":
		return nil, fmt.Errorf("workflow_type is required")
	default:
		return nil, fmt.Errorf("unknown workflow_type %q", req.WorkflowType)
	}

	if err := validateSteps(requestSteps(&req)); err != nil {
		return nil, err
	}
	return &req, nil
}

func requestSteps(req *Request) []Step {
	switch req.WorkflowType {
	case ModeSequential:
		return req.Params.Workflow
	case ModeParallel:
		return req.Params.Tasks
	case ModeConditional:
		steps := []Step{req.Params.Conditional.Initial}
		for _, condition := range req.Params.Conditional.Conditions {
			steps = append(steps, condition.Then)
		}
		return steps
	default:
		return nil
	}
}

func validateSteps(steps []Step) error {
	for i, step := range steps {
		if step.Agent == "" {
			return fmt.Errorf("step %d has no agent", i)
		}
		if step.Action == "" {
			return fmt.Errorf("step %d has no action", i)
		}
	}
	return nil
}

// Execute dispatches a decoded request to the matching orchestrator mode.
// The result is []StepOutcome for sequential and parallel requests and
// *ConditionalResult for conditional ones.
func (o *Orchestrator) Execute(ctx context.Context, actorID string, req *Request) (any, error) {
	switch req.WorkflowType {
	case ModeSequential:
		return o.ExecuteSequential(ctx, actorID, req.Params.Workflow), nil
	case ModeParallel:
		return o.ExecuteParallel(ctx, actorID, req.Params.Tasks), nil
	case ModeConditional:
		return o.ExecuteConditional(ctx, actorID, req.Params.Conditional)
	default:
		return nil, fmt.Errorf("unknown workflow_type %q", req.WorkflowType)
	}
}
