package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"assistant/pkg/llm"
	"assistant/pkg/persistence"
)

// Priority agent actions.
const (
	PriorityActionSuggest = "suggest_priority"
	PriorityActionReorder = "reorder"
)

// urgencyKeywords maps urgency words to a suggested priority. Checked most
// urgent first.
var urgencyKeywords = []struct {
	priority string
	words    []string
}{
	{persistence.PriorityUrgent, []string{"urgent", "asap", "immediately", "critical", "emergency"}},
	{persistence.PriorityHigh, []string{"important", "deadline", "today", "tomorrow", "soon"}},
	{persistence.PriorityLow, []string{"someday", "eventually", "whenever", "maybe", "optional"}},
}

// PriorityAgent suggests task priorities (keyword heuristic with an LLM
// fallback) and re-ranks open tasks.
type PriorityAgent struct {
	store  *persistence.DatabaseOperations
	client llm.Client
}

// NewPriorityAgent creates the priority agent.
func NewPriorityAgent(store *persistence.DatabaseOperations, client llm.Client) *PriorityAgent {
	return &PriorityAgent{store: store, client: client}
}

// Name implements Agent.
func (a *PriorityAgent) Name() string { return NamePriority }

// Process implements Agent.
func (a *PriorityAgent) Process(ctx context.Context, actorID string, req Request) (map[string]any, error) {
	switch req.Action {
	case PriorityActionSuggest:
		return a.suggestPriority(ctx, req.Params)
	case PriorityActionReorder:
		return a.reorder(actorID)
	default:
		return nil, fmt.Errorf("%w: priority has no action %q", ErrUnknownAction, req.Action)
	}
}

func (a *PriorityAgent) suggestPriority(ctx context.Context, params map[string]any) (map[string]any, error) {
	title, err := requireStringParam(params, "task_title")
	if err != nil {
		return nil, err
	}

	text := strings.ToLower(title + " " + stringParam(params, "description"))
	for _, group := range urgencyKeywords {
		for _, word := range group.words {
			if strings.Contains(text, word) {
				return map[string]any{
					"task_title":         title,
					"suggested_priority": group.priority,
					"source":             "keyword",
					"message":            "Priority suggestion",
				}, nil
			}
		}
	}

	// No keyword hit; ask the model.
	prompt := fmt.Sprintf(`Suggest a priority for this task. Answer with exactly one
word: low, medium, high or urgent.

Task: %s`, title)
	resp, err := a.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("priority suggestion failed: %w", err)
	}

	suggested := strings.ToLower(strings.TrimSpace(resp.Content))
	if !persistence.IsValidPriority(suggested) {
		suggested = persistence.PriorityMedium
	}

	return map[string]any{
		"task_title":         title,
		"suggested_priority": suggested,
		"source":             "llm",
		"message":            "Priority suggestion",
	}, nil
}

func (a *PriorityAgent) reorder(actorID string) (map[string]any, error) {
	tasks, err := a.store.GetTasks(actorID, persistence.StatusTodo)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	// Rank by priority, then earliest due date; undated tasks last.
	sort.SliceStable(tasks, func(i, j int) bool {
		ri, rj := persistence.PriorityRank(tasks[i].Priority), persistence.PriorityRank(tasks[j].Priority)
		if ri != rj {
			return ri < rj
		}
		switch {
		case tasks[i].DueDate == nil:
			return false
		case tasks[j].DueDate == nil:
			return true
		default:
			return tasks[i].DueDate.Before(*tasks[j].DueDate)
		}
	})

	ordered := make([]map[string]any, 0, len(tasks))
	for i, task := range tasks {
		entry := map[string]any{
			"rank":     i + 1,
			"task_id":  task.ID,
			"title":    task.Title,
			"priority": task.Priority,
		}
		if task.DueDate != nil {
			entry["due_date"] = task.DueDate.Format(time.RFC3339)
		}
		ordered = append(ordered, entry)
	}

	return map[string]any{
		"ordered": ordered,
		"total":   len(ordered),
		"message": "Tasks reordered by priority",
	}, nil
}
