package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"assistant/pkg/bus"
	"assistant/pkg/llm"
	"assistant/pkg/logx"
	"assistant/pkg/persistence"
	"assistant/pkg/proto"
)

// Analytics agent actions.
const (
	AnalyticsActionDailySummary      = "daily_summary"
	AnalyticsActionWeeklyReport      = "weekly_report"
	AnalyticsActionProductivityScore = "productivity_score"
	AnalyticsActionTrends            = "trends"
	AnalyticsActionRecommendations   = "recommendations"
)

// AnalyticsAgent computes productivity summaries and reports over the task
// store. It also subscribes to task completion events and folds a live
// per-actor completion counter into the daily summary.
type AnalyticsAgent struct {
	store  *persistence.DatabaseOperations
	client llm.Client
	logger *logx.Logger
	tokens *llm.TokenCounter

	mu               sync.Mutex
	liveCompletions  map[string]int
	lastCompletionAt time.Time
}

// NewAnalyticsAgent creates the analytics agent and, when events is not
// nil, starts consuming task completion notifications.
func NewAnalyticsAgent(store *persistence.DatabaseOperations, client llm.Client, events *bus.Bus) *AnalyticsAgent {
	a := &AnalyticsAgent{
		store:           store,
		client:          client,
		logger:          logx.NewLogger("analytics"),
		tokens:          newPromptCounter(),
		liveCompletions: make(map[string]int),
	}
	if events != nil {
		go a.consume(events.Subscribe(proto.EventTaskCompleted))
	}
	return a
}

// consume folds completion events into the live counter. It exits when the
// bus closes the channel.
func (a *AnalyticsAgent) consume(ch <-chan *proto.Event) {
	for evt := range ch {
		actorID := evt.GetPayloadString(proto.KeyActorID)
		if actorID == "" {
			continue
		}
		a.mu.Lock()
		a.liveCompletions[actorID]++
		a.lastCompletionAt = evt.Timestamp
		a.mu.Unlock()
		a.logger.Debug("recorded completion for %s (task %s)", actorID, evt.GetPayloadString(proto.KeyTaskID))
	}
}

// LiveCompletions returns the number of completion events seen for an actor
// since startup.
func (a *AnalyticsAgent) LiveCompletions(actorID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.liveCompletions[actorID]
}

// Name implements Agent.
func (a *AnalyticsAgent) Name() string { return NameAnalytics }

// Process implements Agent.
func (a *AnalyticsAgent) Process(ctx context.Context, actorID string, req Request) (map[string]any, error) {
	switch req.Action {
	case AnalyticsActionDailySummary:
		return a.dailySummary(actorID)
	case AnalyticsActionWeeklyReport:
		return a.weeklyReport(actorID)
	case AnalyticsActionProductivityScore:
		return a.productivityScore(actorID)
	case AnalyticsActionTrends:
		return a.trends(actorID)
	case AnalyticsActionRecommendations:
		return a.recommendations(ctx, actorID)
	default:
		return nil, fmt.Errorf("%w: analytics has no action %q", ErrUnknownAction, req.Action)
	}
}

func (a *AnalyticsAgent) dailySummary(actorID string) (map[string]any, error) {
	tasks, err := a.store.GetTasks(actorID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	completed := 0
	for _, task := range tasks {
		if task.Status == persistence.StatusCompleted {
			completed++
		}
	}

	return map[string]any{
		"summary":          fmt.Sprintf("Today: %d of %d tasks completed.", completed, len(tasks)),
		"total_tasks":      len(tasks),
		"completed_tasks":  completed,
		"completed_events": a.LiveCompletions(actorID),
	}, nil
}

func (a *AnalyticsAgent) weeklyReport(actorID string) (map[string]any, error) {
	tasks, err := a.store.GetTasks(actorID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	weekAgo := time.Now().UTC().AddDate(0, 0, -7)
	created, completed := 0, 0
	byPriority := make(map[string]int)
	for _, task := range tasks {
		if task.CreatedAt.After(weekAgo) {
			created++
		}
		if task.CompletedAt != nil && task.CompletedAt.After(weekAgo) {
			completed++
		}
		byPriority[task.Priority]++
	}

	return map[string]any{
		"report":           fmt.Sprintf("This week: %d tasks created, %d completed.", created, completed),
		"total_tasks_week": created,
		"completed_week":   completed,
		"by_priority":      byPriority,
	}, nil
}

func (a *AnalyticsAgent) productivityScore(actorID string) (map[string]any, error) {
	tasks, err := a.store.GetTasks(actorID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	if len(tasks) == 0 {
		return map[string]any{
			"score":   0.0,
			"message": "No tasks tracked yet",
		}, nil
	}

	completed, overdue := 0, 0
	now := time.Now().UTC()
	for _, task := range tasks {
		if task.Status == persistence.StatusCompleted {
			completed++
		}
		if task.DueDate != nil && task.DueDate.Before(now) && task.Status != persistence.StatusCompleted {
			overdue++
		}
	}

	// Completion ratio scaled to 100, minus 5 points per overdue task.
	score := float64(completed) / float64(len(tasks)) * 100.0
	score -= float64(overdue) * 5.0
	if score < 0 {
		score = 0
	}

	return map[string]any{
		"score":           score,
		"completed_tasks": completed,
		"overdue_tasks":   overdue,
		"total_tasks":     len(tasks),
	}, nil
}

func (a *AnalyticsAgent) trends(actorID string) (map[string]any, error) {
	tasks, err := a.store.GetTasks(actorID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	// Completions per day over the last 7 days, oldest first.
	days := make([]map[string]any, 0, 7)
	now := time.Now().UTC()
	for offset := 6; offset >= 0; offset-- {
		dayStart := now.AddDate(0, 0, -offset).Truncate(24 * time.Hour)
		dayEnd := dayStart.AddDate(0, 0, 1)
		count := 0
		for _, task := range tasks {
			if task.CompletedAt != nil && !task.CompletedAt.Before(dayStart) && task.CompletedAt.Before(dayEnd) {
				count++
			}
		}
		days = append(days, map[string]any{
			"date":      dayStart.Format("2006-01-02"),
			"completed": count,
		})
	}

	return map[string]any{
		"daily_completions": days,
		"message":           "Completion trend over the last 7 days",
	}, nil
}

func (a *AnalyticsAgent) recommendations(ctx context.Context, actorID string) (map[string]any, error) {
	summary, err := a.dailySummary(actorID)
	if err != nil {
		return nil, err
	}
	score, err := a.productivityScore(actorID)
	if err != nil {
		return nil, err
	}

	pending, err := a.store.GetTasks(actorID, persistence.StatusTodo)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending tasks: %w", err)
	}
	var lines []string
	for i, task := range pending {
		if i >= 10 {
			break
		}
		lines = append(lines, fmt.Sprintf("- %s (priority: %s)", task.Title, task.Priority))
	}
	taskBlock := a.tokens.Truncate(strings.Join(lines, "\n"), promptTokenBudget)
	if taskBlock == "" {
		taskBlock = "No pending tasks"
	}

	prompt := fmt.Sprintf(`You are a productivity coach. Given this snapshot, give
three short, concrete recommendations for the rest of the day.

%v
Productivity score: %v

Pending tasks:
%s`, summary["summary"], score["score"], taskBlock)

	resp, err := a.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("recommendations failed: %w", err)
	}

	return map[string]any{
		"recommendations": resp.Content,
		"score":           score["score"],
	}, nil
}
