package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistant/pkg/persistence"
)

// scriptedAgent runs a canned function, for exercising the runner.
type scriptedAgent struct {
	name string
	fn   func(ctx context.Context) (map[string]any, error)
}

func (s *scriptedAgent) Name() string { return s.name }

func (s *scriptedAgent) Process(ctx context.Context, _ string, _ Request) (map[string]any, error) {
	return s.fn(ctx)
}

func TestRunnerSuccessOutcome(t *testing.T) {
	runner := NewRunner(nil)
	a := &scriptedAgent{name: "scripted", fn: func(context.Context) (map[string]any, error) {
		return map[string]any{"value": 42}, nil
	}}

	outcome := runner.Run(context.Background(), "user-1", a, Request{Action: "run"})

	assert.True(t, outcome.Success)
	assert.Equal(t, "scripted", outcome.Agent)
	assert.Empty(t, outcome.Error)
	assert.Equal(t, 42, outcome.Data["value"])
	assert.GreaterOrEqual(t, outcome.DurationMillis, 0.0)
	assert.False(t, outcome.Timestamp.IsZero())
}

func TestRunnerFailureOutcome(t *testing.T) {
	runner := NewRunner(nil)
	a := &scriptedAgent{name: "scripted", fn: func(context.Context) (map[string]any, error) {
		return nil, errors.New("store unavailable")
	}}

	outcome := runner.Run(context.Background(), "user-1", a, Request{Action: "run"})

	assert.False(t, outcome.Success)
	assert.Equal(t, "store unavailable", outcome.Error)
	assert.Nil(t, outcome.Data)
}

func TestRunnerRecoversPanic(t *testing.T) {
	runner := NewRunner(nil)
	a := &scriptedAgent{name: "scripted", fn: func(context.Context) (map[string]any, error) {
		panic("boom")
	}}

	outcome := runner.Run(context.Background(), "user-1", a, Request{Action: "run"})

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "panicked")
	assert.Contains(t, outcome.Error, "boom")
}

func TestRunnerCanceledContext(t *testing.T) {
	runner := NewRunner(nil)
	called := false
	a := &scriptedAgent{name: "scripted", fn: func(context.Context) (map[string]any, error) {
		called = true
		return nil, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := runner.Run(ctx, "user-1", a, Request{Action: "run"})

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "context canceled")
	assert.False(t, called)
}

func TestRunnerAuditTrail(t *testing.T) {
	store := newTestStore(t)
	runner := NewRunner(store)

	ok := &scriptedAgent{name: "scripted", fn: func(context.Context) (map[string]any, error) {
		return map[string]any{"done": true}, nil
	}}
	bad := &scriptedAgent{name: "scripted", fn: func(context.Context) (map[string]any, error) {
		return nil, errors.New("nope")
	}}

	runner.Run(context.Background(), "user-1", ok, Request{Action: "good", Params: map[string]any{"k": "v"}})
	runner.Run(context.Background(), "user-1", bad, Request{Action: "bad"})

	logs, err := store.GetAgentLogs("user-1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	// Newest first.
	assert.Equal(t, "bad", logs[0].Action)
	assert.Equal(t, persistence.AuditStatusError, logs[0].Status)
	assert.Equal(t, "nope", logs[0].ErrorMessage)
	assert.Empty(t, logs[0].OutputData)

	assert.Equal(t, "good", logs[1].Action)
	assert.Equal(t, persistence.AuditStatusSuccess, logs[1].Status)
	assert.Contains(t, logs[1].InputData, `"k":"v"`)
	assert.Contains(t, logs[1].OutputData, `"done":true`)
}

// Audit failures must never surface to the caller.
type failingSink struct{}

func (failingSink) InsertAgentLog(*persistence.AgentLog) error {
	return errors.New("audit store down")
}

func TestRunnerSwallowsAuditFailure(t *testing.T) {
	runner := NewRunner(failingSink{})
	a := &scriptedAgent{name: "scripted", fn: func(context.Context) (map[string]any, error) {
		return map[string]any{}, nil
	}}

	outcome := runner.Run(context.Background(), "user-1", a, Request{Action: "run"})
	assert.True(t, outcome.Success)
}

func TestRunnerHonorsDeadline(t *testing.T) {
	runner := NewRunner(nil)
	a := &scriptedAgent{name: "scripted", fn: func(ctx context.Context) (map[string]any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return map[string]any{}, nil
		}
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	outcome := runner.Run(ctx, "user-1", a, Request{Action: "run"})
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "deadline")
}
