package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"assistant/pkg/bus"
	"assistant/pkg/llm"
	"assistant/pkg/persistence"
	"assistant/pkg/proto"
)

// Task agent actions.
const (
	TaskActionCreate   = "create"
	TaskActionList     = "list"
	TaskActionUpdate   = "update"
	TaskActionComplete = "complete"
	TaskActionSearch   = "search"
	TaskActionSuggest  = "suggest"
)

// TaskAgent manages to-do items: CRUD against the store, completion
// notifications on the bus, and LLM-backed next-task suggestions.
type TaskAgent struct {
	store  *persistence.DatabaseOperations
	client llm.Client
	events *bus.Bus
	tokens *llm.TokenCounter
}

// NewTaskAgent creates the task agent. events may be nil to disable
// completion notifications.
func NewTaskAgent(store *persistence.DatabaseOperations, client llm.Client, events *bus.Bus) *TaskAgent {
	return &TaskAgent{store: store, client: client, events: events, tokens: newPromptCounter()}
}

// Name implements Agent.
func (a *TaskAgent) Name() string { return NameTask }

// Process implements Agent.
func (a *TaskAgent) Process(ctx context.Context, actorID string, req Request) (map[string]any, error) {
	switch req.Action {
	case TaskActionCreate:
		return a.create(actorID, req.Params)
	case TaskActionList:
		return a.list(actorID, req.Params)
	case TaskActionUpdate:
		return a.update(req.Params)
	case TaskActionComplete:
		return a.complete(actorID, req.Params)
	case TaskActionSearch:
		return a.search(actorID, req.Params)
	case TaskActionSuggest:
		return a.suggest(ctx, actorID)
	default:
		return nil, fmt.Errorf("%w: task has no action %q", ErrUnknownAction, req.Action)
	}
}

func (a *TaskAgent) create(actorID string, params map[string]any) (map[string]any, error) {
	title, err := requireStringParam(params, "title")
	if err != nil {
		return nil, err
	}

	priority := stringParam(params, "priority")
	if priority == "" {
		priority = persistence.PriorityMedium
	}
	if !persistence.IsValidPriority(priority) {
		return nil, fmt.Errorf("invalid priority %q (valid: %s)",
			priority, strings.Join(persistence.ValidPriorities(), ", "))
	}

	now := time.Now().UTC()
	task := &persistence.Task{
		ID:               persistence.NewTaskID(),
		UserID:           actorID,
		Title:            title,
		Description:      stringParam(params, "description"),
		Priority:         priority,
		Status:           persistence.StatusTodo,
		EstimatedMinutes: intParam(params, "estimated_minutes", 0),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if tags := stringSliceParam(params, "tags"); len(tags) > 0 {
		task.Tags = encodeJSONList(tags)
	}
	if due, err := timeParam(params, "due_date"); err == nil {
		task.DueDate = &due
	}

	if err := a.store.UpsertTask(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	a.publish(proto.EventTaskCreated, actorID, task.ID, task.Title)

	return map[string]any{
		"task_id":  task.ID,
		"title":    task.Title,
		"priority": task.Priority,
		"message":  fmt.Sprintf("Created task: %s", task.Title),
	}, nil
}

func (a *TaskAgent) list(actorID string, params map[string]any) (map[string]any, error) {
	status := stringParam(params, "status")
	if status != "" && !persistence.IsValidStatus(status) {
		return nil, fmt.Errorf("invalid status %q (valid: %s)",
			status, strings.Join(persistence.ValidStatuses(), ", "))
	}

	tasks, err := a.store.GetTasks(actorID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	grouped := map[string][]map[string]any{
		persistence.PriorityUrgent: {},
		persistence.PriorityHigh:   {},
		persistence.PriorityMedium: {},
		persistence.PriorityLow:    {},
	}
	for _, task := range tasks {
		info := map[string]any{
			"task_id":  task.ID,
			"title":    task.Title,
			"priority": task.Priority,
			"status":   task.Status,
		}
		if task.DueDate != nil {
			info["due_date"] = task.DueDate.Format(time.RFC3339)
		}
		grouped[task.Priority] = append(grouped[task.Priority], info)
	}

	return map[string]any{
		"total":   len(tasks),
		"tasks":   grouped,
		"message": fmt.Sprintf("Found %d tasks", len(tasks)),
	}, nil
}

func (a *TaskAgent) update(params map[string]any) (map[string]any, error) {
	taskID, err := requireStringParam(params, "task_id")
	if err != nil {
		return nil, err
	}

	task, err := a.store.GetTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task %s: %w", taskID, err)
	}

	if title := stringParam(params, "title"); title != "" {
		task.Title = title
	}
	if desc := stringParam(params, "description"); desc != "" {
		task.Description = desc
	}
	if priority := stringParam(params, "priority"); priority != "" {
		if !persistence.IsValidPriority(priority) {
			return nil, fmt.Errorf("invalid priority %q", priority)
		}
		task.Priority = priority
	}
	if status := stringParam(params, "status"); status != "" {
		if !persistence.IsValidStatus(status) {
			return nil, fmt.Errorf("invalid status %q", status)
		}
		task.Status = status
	}
	if due, err := timeParam(params, "due_date"); err == nil {
		task.DueDate = &due
	}
	task.UpdatedAt = time.Now().UTC()

	if err := a.store.UpsertTask(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return map[string]any{
		"task_id": task.ID,
		"message": "Task updated successfully",
	}, nil
}

func (a *TaskAgent) complete(actorID string, params map[string]any) (map[string]any, error) {
	taskID, err := requireStringParam(params, "task_id")
	if err != nil {
		return nil, err
	}

	task, err := a.store.GetTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task %s: %w", taskID, err)
	}

	now := time.Now().UTC()
	task.Status = persistence.StatusCompleted
	task.CompletedAt = &now
	task.UpdatedAt = now

	if err := a.store.UpsertTask(task); err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}

	if a.events != nil {
		evt := proto.NewEvent(proto.EventTaskCompleted, NameTask, NameAnalytics)
		evt.SetPayload(proto.KeyActorID, actorID)
		evt.SetPayload(proto.KeyTaskID, task.ID)
		evt.SetPayload(proto.KeyCompletedAt, now.Format(time.RFC3339))
		a.events.Publish(evt)
	}

	return map[string]any{
		"task_id": task.ID,
		"message": fmt.Sprintf("Completed: %s", task.Title),
	}, nil
}

func (a *TaskAgent) search(actorID string, params map[string]any) (map[string]any, error) {
	query, err := requireStringParam(params, "query")
	if err != nil {
		return nil, err
	}

	tasks, err := a.store.SearchTasks(actorID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search tasks: %w", err)
	}

	results := make([]map[string]any, 0, len(tasks))
	for _, task := range tasks {
		results = append(results, map[string]any{
			"task_id":  task.ID,
			"title":    task.Title,
			"priority": task.Priority,
			"status":   task.Status,
		})
	}

	return map[string]any{
		"query":   query,
		"tasks":   results,
		"message": fmt.Sprintf("Found %d relevant tasks", len(results)),
	}, nil
}

func (a *TaskAgent) suggest(ctx context.Context, actorID string) (map[string]any, error) {
	tasks, err := a.store.GetTasks(actorID, persistence.StatusTodo)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending tasks: %w", err)
	}
	if len(tasks) == 0 {
		return map[string]any{"message": "No pending tasks"}, nil
	}

	var lines []string
	for i, task := range tasks {
		if i >= 10 {
			break
		}
		due := "none"
		if task.DueDate != nil {
			due = task.DueDate.Format("2006-01-02")
		}
		lines = append(lines, fmt.Sprintf("- %s (priority: %s, due: %s)", task.Title, task.Priority, due))
	}

	prompt := fmt.Sprintf(`Based on these pending tasks, suggest which one to work on next:

%s

Consider priority level, due dates and estimated effort. Provide a brief recommendation with reasoning.`,
		a.tokens.Truncate(strings.Join(lines, "\n"), promptTokenBudget))

	resp, err := a.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("suggestion failed: %w", err)
	}

	return map[string]any{
		"suggestion":    resp.Content,
		"total_pending": len(tasks),
	}, nil
}

func (a *TaskAgent) publish(eventType proto.EventType, actorID, taskID, title string) {
	if a.events == nil {
		return
	}
	evt := proto.NewEvent(eventType, NameTask, "")
	evt.SetPayload(proto.KeyActorID, actorID)
	evt.SetPayload(proto.KeyTaskID, taskID)
	evt.SetPayload(proto.KeyTitle, title)
	a.events.Publish(evt)
}
