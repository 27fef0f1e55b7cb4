package workflow

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistant/pkg/agent"
	"assistant/pkg/metrics"
)

// fakeAgent answers with a canned payload after an optional delay, and can
// be scripted to fail or panic per action.
type fakeAgent struct {
	name  string
	delay time.Duration
	calls atomic.Int64
}

func (f *fakeAgent) Name() string { return f.name }

func (f *fakeAgent) Process(ctx context.Context, _ string, req agent.Request) (map[string]any, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	switch req.Action {
	case "fail":
		return nil, fmt.Errorf("scripted failure")
	case "panic":
		panic("scripted panic")
	default:
		return map[string]any{"agent": f.name, "action": req.Action, "total": 3}, nil
	}
}

func newTestOrchestrator(timeout time.Duration, agents ...agent.Agent) *Orchestrator {
	registry := agent.NewRegistry(agents...)
	runner := agent.NewRunner(nil)
	return NewOrchestrator(registry, runner, nil, timeout)
}

func TestSequentialOrderAndLength(t *testing.T) {
	alpha := &fakeAgent{name: "alpha"}
	beta := &fakeAgent{name: "beta"}
	o := newTestOrchestrator(0, alpha, beta)

	steps := []Step{
		{Agent: "alpha", Action: "one"},
		{Agent: "beta", Action: "two"},
		{Agent: "alpha", Action: "three"},
	}
	outcomes := o.ExecuteSequential(context.Background(), "user-1", steps)

	require.Len(t, outcomes, len(steps))
	for i, outcome := range outcomes {
		assert.Equal(t, steps[i], outcome.Step)
		require.True(t, outcome.OK())
		assert.Equal(t, steps[i].Action, outcome.Result.Data["action"])
	}
}

func TestSequentialContinuesPastFailure(t *testing.T) {
	alpha := &fakeAgent{name: "alpha"}
	o := newTestOrchestrator(0, alpha)

	outcomes := o.ExecuteSequential(context.Background(), "user-1", []Step{
		{Agent: "alpha", Action: "ok"},
		{Agent: "alpha", Action: "fail"},
		{Agent: "alpha", Action: "ok"},
	})

	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].OK())
	assert.False(t, outcomes[1].OK())
	assert.Equal(t, "scripted failure", outcomes[1].Result.Error)
	assert.True(t, outcomes[2].OK())
	assert.Equal(t, int64(3), alpha.calls.Load())
}

func TestSequentialUnknownAgentPlaceholder(t *testing.T) {
	alpha := &fakeAgent{name: "alpha"}
	o := newTestOrchestrator(0, alpha)

	outcomes := o.ExecuteSequential(context.Background(), "user-1", []Step{
		{Agent: "ghost", Action: "ok"},
		{Agent: "alpha", Action: "ok"},
	})

	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[0].OK())
	assert.Nil(t, outcomes[0].Result)
	assert.Contains(t, outcomes[0].Err, "unknown agent")
	assert.True(t, outcomes[1].OK())
}

func TestSequentialCancellationPreservesLength(t *testing.T) {
	slow := &fakeAgent{name: "slow", delay: 50 * time.Millisecond}
	o := newTestOrchestrator(0, slow)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	outcomes := o.ExecuteSequential(ctx, "user-1", []Step{
		{Agent: "slow", Action: "ok"},
		{Agent: "slow", Action: "ok"},
		{Agent: "slow", Action: "ok"},
	})

	require.Len(t, outcomes, 3)
	// First step started; it surfaces the cancellation via its result.
	assert.False(t, outcomes[0].OK())
	// Remaining steps never dispatched.
	for _, outcome := range outcomes[1:] {
		assert.Nil(t, outcome.Result)
		assert.Contains(t, outcome.Err, "canceled")
	}
}

func TestParallelReassemblesInputOrder(t *testing.T) {
	// Stagger delays so completion order is the reverse of input order.
	first := &fakeAgent{name: "first", delay: 60 * time.Millisecond}
	second := &fakeAgent{name: "second", delay: 30 * time.Millisecond}
	third := &fakeAgent{name: "third"}
	o := newTestOrchestrator(0, first, second, third)

	steps := []Step{
		{Agent: "first", Action: "ok"},
		{Agent: "second", Action: "ok"},
		{Agent: "third", Action: "ok"},
	}
	outcomes := o.ExecuteParallel(context.Background(), "user-1", steps)

	require.Len(t, outcomes, 3)
	for i, outcome := range outcomes {
		require.True(t, outcome.OK(), "step %d", i)
		assert.Equal(t, steps[i].Agent, outcome.Result.Data["agent"])
	}
}

func TestParallelSiblingIsolation(t *testing.T) {
	alpha := &fakeAgent{name: "alpha"}
	o := newTestOrchestrator(0, alpha)

	outcomes := o.ExecuteParallel(context.Background(), "user-1", []Step{
		{Agent: "alpha", Action: "ok"},
		{Agent: "alpha", Action: "fail"},
		{Agent: "alpha", Action: "panic"},
		{Agent: "ghost", Action: "ok"},
		{Agent: "alpha", Action: "ok"},
	})

	require.Len(t, outcomes, 5)
	assert.True(t, outcomes[0].OK())
	assert.Equal(t, "scripted failure", outcomes[1].Result.Error)
	assert.Contains(t, outcomes[2].Result.Error, "panicked")
	assert.Contains(t, outcomes[3].Err, "unknown agent")
	assert.True(t, outcomes[4].OK())
}

func TestStepTimeoutContained(t *testing.T) {
	slow := &fakeAgent{name: "slow", delay: 200 * time.Millisecond}
	fast := &fakeAgent{name: "fast"}
	o := newTestOrchestrator(30*time.Millisecond, slow, fast)

	outcomes := o.ExecuteParallel(context.Background(), "user-1", []Step{
		{Agent: "slow", Action: "ok"},
		{Agent: "fast", Action: "ok"},
	})

	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[0].OK())
	assert.Contains(t, outcomes[0].Result.Error, "deadline")
	assert.True(t, outcomes[1].OK())
}

func TestConditionalMatching(t *testing.T) {
	alpha := &fakeAgent{name: "alpha"}
	beta := &fakeAgent{name: "beta"}
	o := newTestOrchestrator(0, alpha, beta)

	result, err := o.ExecuteConditional(context.Background(), "user-1", &Conditional{
		Initial: Step{Agent: "alpha", Action: "ok"},
		Conditions: []Condition{
			{If: `success && data.total > 2`, Then: Step{Agent: "beta", Action: "matched"}},
			{If: `data.total > 100`, Then: Step{Agent: "beta", Action: "skipped"}},
			{If: `data.nope == 1`, Then: Step{Agent: "beta", Action: "erroring"}},
		},
	})
	require.NoError(t, err)

	assert.True(t, result.Initial.OK())
	require.Len(t, result.Matches, 3)

	assert.True(t, result.Matches[0].Matched)
	require.NotNil(t, result.Matches[0].Result)
	assert.Equal(t, "matched", result.Matches[0].Result.Result.Data["action"])

	assert.False(t, result.Matches[1].Matched)
	assert.Nil(t, result.Matches[1].Result)

	// Evaluation error counts as not matched, not as a workflow failure.
	assert.False(t, result.Matches[2].Matched)
	assert.Nil(t, result.Matches[2].Result)

	assert.Equal(t, int64(1), beta.calls.Load())
}

func TestConditionalUnknownInitialAgentFatal(t *testing.T) {
	o := newTestOrchestrator(0, &fakeAgent{name: "alpha"})

	_, err := o.ExecuteConditional(context.Background(), "user-1", &Conditional{
		Initial: Step{Agent: "ghost", Action: "ok"},
	})
	assert.ErrorIs(t, err, agent.ErrUnknownAgent)
}

func TestConditionalFailedInitialStillEvaluates(t *testing.T) {
	alpha := &fakeAgent{name: "alpha"}
	beta := &fakeAgent{name: "beta"}
	o := newTestOrchestrator(0, alpha, beta)

	result, err := o.ExecuteConditional(context.Background(), "user-1", &Conditional{
		Initial: Step{Agent: "alpha", Action: "fail"},
		Conditions: []Condition{
			{If: `!success`, Then: Step{Agent: "beta", Action: "recover"}},
		},
	})
	require.NoError(t, err)
	assert.False(t, result.Initial.OK())
	require.Len(t, result.Matches, 1)
	assert.True(t, result.Matches[0].Matched)
	assert.Equal(t, int64(1), beta.calls.Load())
}

func TestExecuteIsIdempotentOnReadSteps(t *testing.T) {
	alpha := &fakeAgent{name: "alpha"}
	o := newTestOrchestrator(0, alpha)
	steps := []Step{{Agent: "alpha", Action: "ok"}}

	a := o.ExecuteSequential(context.Background(), "user-1", steps)
	b := o.ExecuteSequential(context.Background(), "user-1", steps)

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a[0].Result.Data, b[0].Result.Data)
}

func TestOrchestratorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder := metrics.NewRecorderWith(reg)
	alpha := &fakeAgent{name: "alpha"}
	o := NewOrchestrator(agent.NewRegistry(alpha), agent.NewRunner(nil), recorder, 0)

	o.ExecuteSequential(context.Background(), "user-1", []Step{
		{Agent: "alpha", Action: "ok"},
		{Agent: "alpha", Action: "fail"},
		{Agent: "ghost", Action: "ok"},
	})

	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, family := range families {
		if family.GetName() == "assistant_steps_total" {
			for _, metric := range family.GetMetric() {
				total += metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 3.0, total)
}
