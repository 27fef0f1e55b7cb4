package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"assistant/pkg/logx"
	"assistant/pkg/persistence"
)

// AuditSink receives one audit record per agent execution.
// *persistence.DatabaseOperations satisfies it.
type AuditSink interface {
	InsertAgentLog(entry *persistence.AgentLog) error
}

// Runner wraps agent execution with timing, panic recovery, error-to-outcome
// conversion and best-effort audit logging. Run never returns an error: every
// execution, however it ends, becomes an Outcome.
type Runner struct {
	audit  AuditSink
	logger *logx.Logger
}

// NewRunner creates an execution wrapper. audit may be nil to disable
// audit logging.
func NewRunner(audit AuditSink) *Runner {
	return &Runner{
		audit:  audit,
		logger: logx.NewLogger("runner"),
	}
}

// Run executes one request against a and packages the result.
func (r *Runner) Run(ctx context.Context, actorID string, a Agent, req Request) *Outcome {
	start := time.Now()

	data, err := r.process(ctx, actorID, a, req)
	duration := float64(time.Since(start).Microseconds()) / 1000.0

	outcome := &Outcome{
		Agent:          a.Name(),
		DurationMillis: duration,
		Timestamp:      time.Now().UTC(),
	}
	if err != nil {
		outcome.Error = err.Error()
		r.logger.Warn("%s %s failed after %.2fms: %v", a.Name(), req.Action, duration, err)
	} else {
		outcome.Success = true
		outcome.Data = data
		r.logger.Debug("%s %s completed in %.2fms", a.Name(), req.Action, duration)
	}

	r.writeAudit(actorID, a.Name(), req, outcome)
	return outcome
}

// process invokes the agent, converting panics to errors.
func (r *Runner) process(ctx context.Context, actorID string, a Agent, req Request) (data map[string]any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			data = nil
			err = fmt.Errorf("agent %s panicked: %v", a.Name(), rec)
		}
	}()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return a.Process(ctx, actorID, req)
}

// writeAudit records the execution. Audit failures are logged, never
// propagated.
func (r *Runner) writeAudit(actorID, agentName string, req Request, outcome *Outcome) {
	if r.audit == nil {
		return
	}

	entry := &persistence.AgentLog{
		ActorID:    actorID,
		AgentName:  agentName,
		Action:     req.Action,
		Status:     persistence.AuditStatusSuccess,
		DurationMS: outcome.DurationMillis,
		CreatedAt:  outcome.Timestamp,
	}
	if !outcome.Success {
		entry.Status = persistence.AuditStatusError
		entry.ErrorMessage = outcome.Error
	}
	if input, err := json.Marshal(req.Params); err == nil {
		entry.InputData = string(input)
	}
	if outcome.Data != nil {
		if output, err := json.Marshal(outcome.Data); err == nil {
			entry.OutputData = string(output)
		}
	}

	if err := r.audit.InsertAgentLog(entry); err != nil {
		r.logger.Error("audit write failed for %s %s: %v", agentName, req.Action, err)
	}
}
