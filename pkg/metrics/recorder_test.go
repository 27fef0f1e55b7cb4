package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderObserveStep(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorderWith(reg)

	rec.ObserveStep("task", "list", "sequential", true, 10*time.Millisecond)
	rec.ObserveStep("task", "list", "sequential", true, 20*time.Millisecond)
	rec.ObserveStep("task", "list", "sequential", false, 5*time.Millisecond)
	rec.ObserveStep("calendar", "find_slot", "parallel", true, time.Millisecond)

	expected := `
# HELP assistant_steps_total Total number of executed workflow steps by agent, action, mode and status
# TYPE assistant_steps_total counter
assistant_steps_total{action="find_slot",agent="calendar",mode="parallel",status="success"} 1
assistant_steps_total{action="list",agent="task",mode="sequential",status="error"} 1
assistant_steps_total{action="list",agent="task",mode="sequential",status="success"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "assistant_steps_total"))

	count := testutil.CollectAndCount(rec.stepDuration)
	assert.Equal(t, 2, count)
}

func TestRecorderIncEvent(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorderWith(reg)

	rec.IncEvent("task_completed")
	rec.IncEvent("task_completed")
	rec.IncEvent("note_created")

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.eventsTotal.WithLabelValues("task_completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.eventsTotal.WithLabelValues("note_created")))
}
