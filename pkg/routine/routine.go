// Package routine provides the routine library: named multi-stage workflows
// built from static step tables, plus user-defined routines loaded from YAML.
package routine

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"assistant/pkg/agent"
	"assistant/pkg/logx"
	"assistant/pkg/workflow"
)

// Built-in routine names.
const (
	MorningRoutine  = "morning_routine"
	WeeklyReview    = "weekly_review"
	SmartScheduling = "smart_scheduling"
)

// Stage is one phase of a routine: a step list and the mode to run it in.
// Routines compose the existing sequential and parallel modes; they add no
// control flow of their own.
type Stage struct {
	Mode  string          `yaml:"mode" json:"mode"`
	Steps []workflow.Step `yaml:"steps" json:"steps"`
}

// Routine is a named, static multi-stage workflow.
type Routine struct {
	Name        string  `yaml:"-" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Message     string  `yaml:"message" json:"message"`
	Stages      []Stage `yaml:"stages" json:"stages"`
}

// StageResult is the executed form of one stage.
type StageResult struct {
	Mode     string                 `json:"mode"`
	Outcomes []workflow.StepOutcome `json:"outcomes"`
}

// Library holds the built-in routines and any loaded custom ones.
type Library struct {
	orchestrator *workflow.Orchestrator
	routines     map[string]*Routine
	logger       *logx.Logger
}

// NewLibrary creates a library preloaded with the built-in routines.
func NewLibrary(orchestrator *workflow.Orchestrator) *Library {
	l := &Library{
		orchestrator: orchestrator,
		routines:     make(map[string]*Routine),
		logger:       logx.NewLogger("routine"),
	}
	for _, r := range builtins() {
		l.routines[r.Name] = r
	}
	return l
}

// Names returns all known routine names, sorted.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.routines))
	for name := range l.routines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a routine by name.
func (l *Library) Get(name string) (*Routine, bool) {
	r, ok := l.routines[name]
	return r, ok
}

// LoadYAML merges custom routines from a YAML file:
//
//	my_routine:
//	  description: ...
//	  message: ...
//	  stages:
//	    - mode: parallel
//	      steps:
//	        - agent: task
//	          action: list
//
// Custom routines may override built-ins of the same name.
func (l *Library) LoadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read routines file %s: %w", path, err)
	}

	var parsed map[string]*Routine
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse routines file %s: %w", path, err)
	}

	for name, r := range parsed {
		r.Name = name
		if err := validateRoutine(r); err != nil {
			return fmt.Errorf("routine %q: %w", name, err)
		}
		l.routines[name] = r
		l.logger.Info("loaded custom routine %q (%d stages)", name, len(r.Stages))
	}
	return nil
}

func validateRoutine(r *Routine) error {
	if len(r.Stages) == 0 {
		return fmt.Errorf("has no stages")
	}
	for i, stage := range r.Stages {
		if stage.Mode != workflow.ModeSequential && stage.Mode != workflow.ModeParallel {
			return fmt.Errorf("stage %d has unknown mode %q", i, stage.Mode)
		}
		if len(stage.Steps) == 0 {
			return fmt.Errorf("stage %d has no steps", i)
		}
		for j, step := range stage.Steps {
			if step.Agent == "" || step.Action == "" {
				return fmt.Errorf("stage %d step %d needs both agent and action", i, j)
			}
		}
	}
	return nil
}

// Execute runs a routine stage by stage. overrides maps "<agent>.<action>"
// to extra params merged into matching steps, so callers can parameterize
// static routines (e.g. the task payload for smart scheduling).
func (l *Library) Execute(ctx context.Context, actorID, name string, overrides map[string]map[string]any) (map[string]any, error) {
	r, ok := l.routines[name]
	if !ok {
		return nil, fmt.Errorf("unknown routine %q (available: %v)", name, l.Names())
	}

	l.logger.Info("executing routine %q for %s", name, actorID)

	stages := make([]StageResult, 0, len(r.Stages))
	for _, stage := range r.Stages {
		steps := applyOverrides(stage.Steps, overrides)

		var outcomes []workflow.StepOutcome
		switch stage.Mode {
		case workflow.ModeParallel:
			outcomes = l.orchestrator.ExecuteParallel(ctx, actorID, steps)
		default:
			outcomes = l.orchestrator.ExecuteSequential(ctx, actorID, steps)
		}
		stages = append(stages, StageResult{Mode: stage.Mode, Outcomes: outcomes})
	}

	return map[string]any{
		"routine": r.Name,
		"stages":  stages,
		"message": r.Message,
	}, nil
}

// applyOverrides returns a copy of steps with override params merged in.
// Input steps are never mutated.
func applyOverrides(steps []workflow.Step, overrides map[string]map[string]any) []workflow.Step {
	out := make([]workflow.Step, len(steps))
	for i, step := range steps {
		out[i] = step
		extra, ok := overrides[step.Agent+"."+step.Action]
		if !ok {
			continue
		}
		params := make(map[string]any, len(step.Params)+len(extra))
		for k, v := range step.Params {
			params[k] = v
		}
		for k, v := range extra {
			params[k] = v
		}
		out[i].Params = params
	}
	return out
}

// builtins returns the static routine tables.
func builtins() []*Routine {
	return []*Routine{
		{
			Name:        MorningRoutine,
			Description: "Gather the day's tasks, calendar and inbox, then summarize",
			Message:     "Morning routine complete",
			Stages: []Stage{
				{
					Mode: workflow.ModeParallel,
					Steps: []workflow.Step{
						{Agent: agent.NameTask, Action: agent.TaskActionList, Params: map[string]any{"status": "todo"}},
						{Agent: agent.NameCalendar, Action: agent.CalendarActionList, Params: map[string]any{"days": 1}},
						{Agent: agent.NameEmail, Action: agent.EmailActionSummarize},
					},
				},
				{
					Mode: workflow.ModeSequential,
					Steps: []workflow.Step{
						{Agent: agent.NameAnalytics, Action: agent.AnalyticsActionDailySummary},
						{Agent: agent.NameAnalytics, Action: agent.AnalyticsActionRecommendations},
					},
				},
			},
		},
		{
			Name:        WeeklyReview,
			Description: "Weekly productivity report, score, trends and recommendations",
			Message:     "Weekly review complete",
			Stages: []Stage{
				{
					Mode: workflow.ModeSequential,
					Steps: []workflow.Step{
						{Agent: agent.NameAnalytics, Action: agent.AnalyticsActionWeeklyReport},
						{Agent: agent.NameAnalytics, Action: agent.AnalyticsActionProductivityScore},
						{Agent: agent.NameAnalytics, Action: agent.AnalyticsActionTrends},
						{Agent: agent.NameAnalytics, Action: agent.AnalyticsActionRecommendations},
					},
				},
			},
		},
		{
			Name:        SmartScheduling,
			Description: "Create a task and find calendar slots to work on it",
			Message:     "Smart scheduling complete",
			Stages: []Stage{
				{
					Mode: workflow.ModeSequential,
					Steps: []workflow.Step{
						{Agent: agent.NameTask, Action: agent.TaskActionCreate},
						{Agent: agent.NameCalendar, Action: agent.CalendarActionFindSlot, Params: map[string]any{"duration": 60}},
					},
				},
			},
		},
	}
}
