package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"assistant/pkg/agent"
	"assistant/pkg/logx"
	"assistant/pkg/metrics"
	"assistant/pkg/workflow/cond"
)

// DefaultStepTimeout bounds a single agent invocation.
const DefaultStepTimeout = 30 * time.Second

// Orchestrator executes workflow steps against a registry of agents. All
// public methods contain agent failures: a failing or missing agent becomes
// a failure slot in the result, never an aborted workflow (the one
// exception is a conditional workflow whose initial agent is unknown).
type Orchestrator struct {
	registry    *agent.Registry
	runner      *agent.Runner
	recorder    *metrics.Recorder
	logger      *logx.Logger
	stepTimeout time.Duration
}

// NewOrchestrator creates an orchestrator. recorder may be nil to disable
// metrics; stepTimeout <= 0 selects the default.
func NewOrchestrator(registry *agent.Registry, runner *agent.Runner, recorder *metrics.Recorder, stepTimeout time.Duration) *Orchestrator {
	if stepTimeout <= 0 {
		stepTimeout = DefaultStepTimeout
	}
	return &Orchestrator{
		registry:    registry,
		runner:      runner,
		recorder:    recorder,
		logger:      logx.NewLogger("orchestrator"),
		stepTimeout: stepTimeout,
	}
}

// ExecuteSequential runs steps strictly one after another. The result list
// has one slot per input step, in input order. Cancellation of ctx stops
// dispatching; remaining steps get cancellation failure slots so the length
// invariant holds.
func (o *Orchestrator) ExecuteSequential(ctx context.Context, actorID string, steps []Step) []StepOutcome {
	o.logger.Info("sequential workflow: %d steps for %s", len(steps), actorID)

	outcomes := make([]StepOutcome, len(steps))
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			outcomes[i] = undispatchedOutcome(step, fmt.Sprintf("workflow canceled before step %d: %v", i, err))
			continue
		}
		outcomes[i] = o.runStep(ctx, actorID, step, ModeSequential)
	}
	return outcomes
}

// ExecuteParallel runs every step in its own goroutine with a single
// barrier join. Results are reassembled in input order; a failing step
// never affects its siblings.
func (o *Orchestrator) ExecuteParallel(ctx context.Context, actorID string, steps []Step) []StepOutcome {
	o.logger.Info("parallel workflow: %d steps for %s", len(steps), actorID)

	outcomes := make([]StepOutcome, len(steps))
	var wg sync.WaitGroup
	for i, step := range steps {
		wg.Add(1)
		go func(i int, step Step) {
			defer wg.Done()
			outcomes[i] = o.runStep(ctx, actorID, step, ModeParallel)
		}(i, step)
	}
	wg.Wait()
	return outcomes
}

// ExecuteConditional runs the initial step, then evaluates each condition
// against its outcome and runs the matching Then steps. An unknown initial
// agent is the one fatal case; a condition that fails to parse or evaluate
// is recorded as not matched.
func (o *Orchestrator) ExecuteConditional(ctx context.Context, actorID string, wf *Conditional) (*ConditionalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("conditional workflow canceled: %w", err)
	}
	if _, ok := o.registry.Get(wf.Initial.Agent); !ok {
		return nil, fmt.Errorf("%w: %q (initial step)", agent.ErrUnknownAgent, wf.Initial.Agent)
	}

	o.logger.Info("conditional workflow: initial %s.%s, %d conditions for %s",
		wf.Initial.Agent, wf.Initial.Action, len(wf.Conditions), actorID)

	result := &ConditionalResult{
		Initial: o.runStep(ctx, actorID, wf.Initial, ModeConditional),
		Matches: make([]ConditionOutcome, 0, len(wf.Conditions)),
	}

	view := outcomeView(result.Initial.Result)
	for _, condition := range wf.Conditions {
		entry := ConditionOutcome{Condition: condition.If}

		matched, err := cond.Evaluate(condition.If, view)
		if err != nil {
			o.logger.Warn("condition %q did not evaluate: %v", condition.If, err)
		} else if matched {
			entry.Matched = true
			outcome := o.runStep(ctx, actorID, condition.Then, ModeConditional)
			entry.Result = &outcome
		}
		result.Matches = append(result.Matches, entry)
	}
	return result, nil
}

// runStep resolves and executes one step under the per-step timeout.
func (o *Orchestrator) runStep(ctx context.Context, actorID string, step Step, mode string) StepOutcome {
	start := time.Now()

	a, ok := o.registry.Get(step.Agent)
	if !ok {
		o.observe(step, mode, false, time.Since(start))
		return undispatchedOutcome(step, fmt.Sprintf("unknown agent %q", step.Agent))
	}

	stepCtx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()

	outcome := o.runner.Run(stepCtx, actorID, a, agent.Request{
		Action: step.Action,
		Params: step.Params,
	})
	o.observe(step, mode, outcome.Success, time.Since(start))

	return StepOutcome{
		Step:      step,
		Result:    outcome,
		Timestamp: time.Now().UTC(),
	}
}

func (o *Orchestrator) observe(step Step, mode string, success bool, duration time.Duration) {
	if o.recorder != nil {
		o.recorder.ObserveStep(step.Agent, step.Action, mode, success, duration)
	}
}

func undispatchedOutcome(step Step, reason string) StepOutcome {
	return StepOutcome{
		Step:      step,
		Err:       reason,
		Timestamp: time.Now().UTC(),
	}
}

// outcomeView exposes an agent outcome to the predicate evaluator.
func outcomeView(outcome *agent.Outcome) map[string]any {
	if outcome == nil {
		return map[string]any{}
	}
	data := outcome.Data
	if data == nil {
		data = map[string]any{}
	}
	return map[string]any{
		"success":     outcome.Success,
		"agent":       outcome.Agent,
		"error":       outcome.Error,
		"duration_ms": outcome.DurationMillis,
		"data":        data,
	}
}
