package logx

import (
	"errors"
	"testing"
)

func TestDebugDomainFiltering(t *testing.T) {
	SetDebug(true, []string{"agent", "bus"})
	defer SetDebug(false, nil)

	if !IsDebugEnabledForDomain("agent") {
		t.Error("Expected agent domain to be enabled")
	}
	if !IsDebugEnabledForDomain("bus") {
		t.Error("Expected bus domain to be enabled")
	}
	if IsDebugEnabledForDomain("workflow") {
		t.Error("Expected workflow domain to be disabled")
	}
}

func TestDebugAllDomainsWhenUnfiltered(t *testing.T) {
	SetDebug(true, nil)
	defer SetDebug(false, nil)

	if !IsDebugEnabledForDomain("anything") {
		t.Error("Expected all domains enabled when no filter is set")
	}
}

func TestDebugDisabled(t *testing.T) {
	SetDebug(false, nil)

	if IsDebugEnabledForDomain("agent") {
		t.Error("Expected debug disabled")
	}
}

func TestWithComponent(t *testing.T) {
	base := NewLogger("orchestrator")
	derived := base.WithComponent("task-agent")

	if derived.Component() != "task-agent" {
		t.Errorf("Expected component task-agent, got %s", derived.Component())
	}
	if base.Component() != "orchestrator" {
		t.Errorf("Base logger component changed: %s", base.Component())
	}
}

func TestErrorfReturnsError(t *testing.T) {
	err := Errorf("boom: %d", 42)
	if err == nil || err.Error() != "boom: 42" {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestWrap(t *testing.T) {
	inner := errors.New("db locked")
	err := Wrap(inner, "audit write")
	if err == nil {
		t.Fatal("Expected wrapped error")
	}
	if !errors.Is(err, inner) {
		t.Error("Expected wrapped error to unwrap to inner")
	}
	if Wrap(nil, "noop") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}
