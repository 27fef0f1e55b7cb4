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

// Calendar agent actions.
const (
	CalendarActionCreate          = "create"
	CalendarActionList            = "list"
	CalendarActionFindSlot        = "find_slot"
	CalendarActionCheckConflicts  = "check_conflicts"
	CalendarActionSuggestSchedule = "suggest_schedule"
)

// Free-slot scan parameters.
const (
	slotGridMinutes = 30
	maxFreeSlots    = 5
)

// CalendarAgent manages calendar events: creation with conflict detection,
// range listing, free-slot search over work hours, and LLM-backed schedule
// suggestions.
type CalendarAgent struct {
	store  *persistence.DatabaseOperations
	client llm.Client
	events *bus.Bus
	tokens *llm.TokenCounter

	workdayStart int
	workdayEnd   int
	now          func() time.Time
}

// NewCalendarAgent creates the calendar agent. Work hours bound the
// free-slot scan; events may be nil.
func NewCalendarAgent(store *persistence.DatabaseOperations, client llm.Client, events *bus.Bus, workdayStart, workdayEnd int) *CalendarAgent {
	return &CalendarAgent{
		store:        store,
		client:       client,
		events:       events,
		tokens:       newPromptCounter(),
		workdayStart: workdayStart,
		workdayEnd:   workdayEnd,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Name implements Agent.
func (a *CalendarAgent) Name() string { return NameCalendar }

// Process implements Agent.
func (a *CalendarAgent) Process(ctx context.Context, actorID string, req Request) (map[string]any, error) {
	switch req.Action {
	case CalendarActionCreate:
		return a.create(actorID, req.Params)
	case CalendarActionList:
		return a.list(actorID, req.Params)
	case CalendarActionFindSlot:
		return a.findSlot(actorID, req.Params)
	case CalendarActionCheckConflicts:
		return a.checkConflicts(actorID, req.Params)
	case CalendarActionSuggestSchedule:
		return a.suggestSchedule(ctx, actorID)
	default:
		return nil, fmt.Errorf("%w: calendar has no action %q", ErrUnknownAction, req.Action)
	}
}

func (a *CalendarAgent) create(actorID string, params map[string]any) (map[string]any, error) {
	title, err := requireStringParam(params, "title")
	if err != nil {
		return nil, err
	}
	startTime, err := timeParam(params, "start_time")
	if err != nil {
		return nil, err
	}
	endTime, err := timeParam(params, "end_time")
	if err != nil {
		endTime = startTime.Add(time.Hour)
	}
	if !endTime.After(startTime) {
		return nil, fmt.Errorf("end_time must be after start_time")
	}

	conflicts, err := a.overlapping(actorID, startTime, endTime)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return map[string]any{
			"warning":    "Time conflict detected",
			"conflicts":  conflicts,
			"suggestion": "Consider rescheduling or shortening the event",
		}, nil
	}

	eventType := stringParam(params, "event_type")
	if eventType == "" {
		eventType = persistence.EventTypeMeeting
	}

	event := &persistence.Event{
		ID:          persistence.NewEventID(),
		UserID:      actorID,
		Title:       title,
		Description: stringParam(params, "description"),
		StartTime:   startTime,
		EndTime:     endTime,
		EventType:   eventType,
		Location:    stringParam(params, "location"),
		CreatedAt:   a.now(),
	}
	if attendees := stringSliceParam(params, "attendees"); len(attendees) > 0 {
		event.Attendees = encodeJSONList(attendees)
	}

	if err := a.store.CreateEvent(event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	if a.events != nil {
		evt := proto.NewEvent(proto.EventEventCreated, NameCalendar, "")
		evt.SetPayload(proto.KeyActorID, actorID)
		evt.SetPayload(proto.KeyEventID, event.ID)
		evt.SetPayload(proto.KeyTitle, event.Title)
		a.events.Publish(evt)
	}

	return map[string]any{
		"event_id":   event.ID,
		"title":      event.Title,
		"start_time": event.StartTime.Format(time.RFC3339),
		"end_time":   event.EndTime.Format(time.RFC3339),
		"message":    fmt.Sprintf("Event created: %s", event.Title),
	}, nil
}

func (a *CalendarAgent) list(actorID string, params map[string]any) (map[string]any, error) {
	days := intParam(params, "days", 7)
	start := a.now()
	end := start.AddDate(0, 0, days)

	events, err := a.store.GetEventsInRange(actorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	byDate := make(map[string][]map[string]any)
	for _, event := range events {
		key := event.StartTime.Format("2006-01-02")
		byDate[key] = append(byDate[key], map[string]any{
			"event_id":   event.ID,
			"title":      event.Title,
			"start_time": event.StartTime.Format("15:04"),
			"end_time":   event.EndTime.Format("15:04"),
			"type":       event.EventType,
			"location":   event.Location,
		})
	}

	return map[string]any{
		"total":          len(events),
		"events_by_date": byDate,
		"message":        fmt.Sprintf("Found %d events in the next %d days", len(events), days),
	}, nil
}

func (a *CalendarAgent) findSlot(actorID string, params map[string]any) (map[string]any, error) {
	duration := intParam(params, "duration", 60)
	daysAhead := intParam(params, "days_ahead", 7)
	if duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %d", duration)
	}

	start := a.now().Truncate(24 * time.Hour).Add(time.Duration(a.workdayStart) * time.Hour)
	if start.Before(a.now()) {
		start = a.now().Truncate(time.Duration(slotGridMinutes) * time.Minute).
			Add(time.Duration(slotGridMinutes) * time.Minute)
	}
	end := start.AddDate(0, 0, daysAhead)

	events, err := a.store.GetEventsInRange(actorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for slot search: %w", err)
	}

	var slots []map[string]any
	for current := start; current.Before(end) && len(slots) < maxFreeSlots; current = current.Add(time.Duration(slotGridMinutes) * time.Minute) {
		if current.Weekday() == time.Saturday || current.Weekday() == time.Sunday {
			continue
		}
		slotEnd := current.Add(time.Duration(duration) * time.Minute)
		// The slot must finish within the same day's work hours; comparing
		// full timestamps keeps long durations from wrapping past midnight.
		workdayClose := time.Date(current.Year(), current.Month(), current.Day(),
			a.workdayEnd, 0, 0, 0, current.Location())
		if current.Hour() < a.workdayStart || slotEnd.After(workdayClose) {
			continue
		}

		free := true
		for _, event := range events {
			if current.Before(event.EndTime) && slotEnd.After(event.StartTime) {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, map[string]any{
				"start": current.Format(time.RFC3339),
				"end":   slotEnd.Format(time.RFC3339),
				"date":  current.Format("2006-01-02"),
				"time":  current.Format("15:04"),
			})
		}
	}

	return map[string]any{
		"duration_minutes": duration,
		"free_slots":       slots,
		"message":          fmt.Sprintf("Found %d available slots", len(slots)),
	}, nil
}

func (a *CalendarAgent) checkConflicts(actorID string, params map[string]any) (map[string]any, error) {
	startTime, err := timeParam(params, "start_time")
	if err != nil {
		return nil, err
	}
	endTime, err := timeParam(params, "end_time")
	if err != nil {
		return nil, err
	}

	conflicts, err := a.overlapping(actorID, startTime, endTime)
	if err != nil {
		return nil, err
	}

	message := "No conflicts"
	if len(conflicts) > 0 {
		message = fmt.Sprintf("Found %d conflicts", len(conflicts))
	}
	return map[string]any{
		"has_conflicts": len(conflicts) > 0,
		"conflicts":     conflicts,
		"message":       message,
	}, nil
}

// overlapping returns events that intersect the [startTime, endTime) window.
func (a *CalendarAgent) overlapping(actorID string, startTime, endTime time.Time) ([]map[string]any, error) {
	events, err := a.store.GetEventsInRange(actorID, startTime, endTime)
	if err != nil {
		return nil, fmt.Errorf("failed to check conflicts: %w", err)
	}

	conflicts := make([]map[string]any, 0, len(events))
	for _, event := range events {
		conflicts = append(conflicts, map[string]any{
			"event_id": event.ID,
			"title":    event.Title,
			"start":    event.StartTime.Format(time.RFC3339),
			"end":      event.EndTime.Format(time.RFC3339),
		})
	}
	return conflicts, nil
}

func (a *CalendarAgent) suggestSchedule(ctx context.Context, actorID string) (map[string]any, error) {
	dayStart := a.now().Truncate(24 * time.Hour)
	dayEnd := dayStart.AddDate(0, 0, 1)

	events, err := a.store.GetEventsInRange(actorID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load today's events: %w", err)
	}
	tasks, err := a.store.GetTasks(actorID, persistence.StatusTodo)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending tasks: %w", err)
	}

	var eventLines []string
	for _, event := range events {
		eventLines = append(eventLines, fmt.Sprintf("- %s (%s - %s)",
			event.Title, event.StartTime.Format("15:04"), event.EndTime.Format("15:04")))
	}
	var taskLines []string
	for i, task := range tasks {
		if i >= 5 {
			break
		}
		taskLines = append(taskLines, fmt.Sprintf("- %s (priority: %s)", task.Title, task.Priority))
	}

	eventBlock := a.tokens.Truncate(strings.Join(eventLines, "\n"), promptTokenBudget)
	if eventBlock == "" {
		eventBlock = "No events scheduled"
	}
	taskBlock := a.tokens.Truncate(strings.Join(taskLines, "\n"), promptTokenBudget)
	if taskBlock == "" {
		taskBlock = "No pending tasks"
	}

	prompt := fmt.Sprintf(`Create an optimal schedule for today.

Events already scheduled:
%s

Pending tasks:
%s

Suggest time blocks for focus work on high-priority tasks, breaks, task
completion and meeting preparation. Work hours are %02d:00 to %02d:00.`,
		eventBlock, taskBlock, a.workdayStart, a.workdayEnd)

	resp, err := a.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("schedule suggestion failed: %w", err)
	}

	return map[string]any{
		"events_count":        len(events),
		"tasks_count":         len(tasks),
		"schedule_suggestion": resp.Content,
	}, nil
}
