package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequestSequential(t *testing.T) {
	req, err := DecodeRequest([]byte(`{
		"workflow_type": "sequential",
		"params": {"workflow": [
			{"agent": "task", "action": "list"},
			{"agent": "analytics", "action": "daily_summary"}
		]}
	}`))
	require.NoError(t, err)
	assert.Equal(t, ModeSequential, req.WorkflowType)
	require.Len(t, req.Params.Workflow, 2)
	assert.Equal(t, "task", req.Params.Workflow[0].Agent)
}

func TestDecodeRequestParallel(t *testing.T) {
	req, err := DecodeRequest([]byte(`{
		"workflow_type": "parallel",
		"params": {"tasks": [
			{"agent": "task", "action": "list", "params": {"status": "todo"}},
			{"agent": "email", "action": "read"}
		]}
	}`))
	require.NoError(t, err)
	require.Len(t, req.Params.Tasks, 2)
	assert.Equal(t, "todo", req.Params.Tasks[0].Params["status"])
}

func TestDecodeRequestConditional(t *testing.T) {
	req, err := DecodeRequest([]byte(`{
		"workflow_type": "conditional",
		"params": {"conditional": {
			"initial": {"agent": "task", "action": "list"},
			"conditions": [
				{"if": "data.total > 5", "then": {"agent": "priority", "action": "reorder"}}
			]
		}}
	}`))
	require.NoError(t, err)
	require.NotNil(t, req.Params.Conditional)
	assert.Equal(t, "data.total > 5", req.Params.Conditional.Conditions[0].If)
}

func TestDecodeRequestValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"missing type", `{"params": {}}`},
		{"unknown type", `{"workflow_type": "recursive", "params": {}}`},
		{"sequential without workflow", `{"workflow_type": "sequential", "params": {}}`},
		{"parallel without tasks", `{"workflow_type": "parallel", "params": {}}`},
		{"conditional without body", `{"workflow_type": "conditional", "params": {}}`},
		{"step without agent", `{"workflow_type": "sequential", "params": {"workflow": [{"action": "list"}]}}`},
		{"step without action", `{"workflow_type": "sequential", "params": {"workflow": [{"agent": "task"}]}}`},
		{"conditional then without action", `{"workflow_type": "conditional", "params": {"conditional": {
			"initial": {"agent": "task", "action": "list"},
			"conditions": [{"if": "success", "then": {"agent": "task"}}]
		}}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeRequest([]byte(tc.body))
			assert.Error(t, err)
		})
	}
}

func TestExecuteDispatch(t *testing.T) {
	alpha := &fakeAgent{name: "alpha"}
	o := newTestOrchestrator(0, alpha)
	ctx := context.Background()

	seq, err := o.Execute(ctx, "user-1", &Request{
		WorkflowType: ModeSequential,
		Params:       RequestParams{Workflow: []Step{{Agent: "alpha", Action: "ok"}}},
	})
	require.NoError(t, err)
	outcomes, ok := seq.([]StepOutcome)
	require.True(t, ok)
	assert.Len(t, outcomes, 1)

	conditional, err := o.Execute(ctx, "user-1", &Request{
		WorkflowType: ModeConditional,
		Params: RequestParams{Conditional: &Conditional{
			Initial: Step{Agent: "alpha", Action: "ok"},
		}},
	})
	require.NoError(t, err)
	_, ok = conditional.(*ConditionalResult)
	assert.True(t, ok)
}
