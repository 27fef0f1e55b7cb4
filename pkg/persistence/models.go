package persistence

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user profile.
type User struct {
	CreatedAt   time.Time `json:"created_at"`
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Timezone    string    `json:"timezone"`
	Preferences string    `json:"preferences,omitempty"` // JSON blob for extensibility
}

// Task represents a tracked to-do item.
//
//nolint:govet // struct alignment optimization not critical for this type
type Task struct {
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Priority         string     `json:"priority"`
	Status           string     `json:"status"`
	Tags             string     `json:"tags,omitempty"` // JSON array
	EstimatedMinutes int        `json:"estimated_minutes,omitempty"`
}

// Event represents a calendar entry.
type Event struct {
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	CreatedAt   time.Time `json:"created_at"`
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	EventType   string    `json:"event_type"`
	Location    string    `json:"location,omitempty"`
	Attendees   string    `json:"attendees,omitempty"` // JSON array
}

// Email represents a stored email message.
type Email struct {
	ReceivedAt  time.Time `json:"received_at"`
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	FromAddress string    `json:"from_address"`
	ToAddresses string    `json:"to_addresses"` // JSON array
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	IsRead      bool      `json:"is_read"`
}

// Note represents a free-form note.
type Note struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
}

// AgentLog is one audit record for an executed agent step.
type AgentLog struct {
	CreatedAt    time.Time `json:"created_at"`
	ActorID      string    `json:"actor_id"`
	AgentName    string    `json:"agent_name"`
	Action       string    `json:"action"`
	InputData    string    `json:"input_data,omitempty"`  // JSON snapshot of the request
	OutputData   string    `json:"output_data,omitempty"` // JSON snapshot of the result, empty on failure
	Status       string    `json:"status"`
	DurationMS   float64   `json:"duration_ms"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Task priority constants.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Task status constants.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Calendar event type constants.
const (
	EventTypeMeeting     = "meeting"
	EventTypeAppointment = "appointment"
	EventTypeReminder    = "reminder"
	EventTypeFocus       = "focus"
)

// Audit status constants.
const (
	AuditStatusSuccess = "success"
	AuditStatusError   = "error"
)

// ValidPriorities returns all valid task priorities, ordered low to urgent.
func ValidPriorities() []string {
	return []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
}

// IsValidPriority checks if a priority string is valid.
func IsValidPriority(priority string) bool {
	for _, p := range ValidPriorities() {
		if priority == p {
			return true
		}
	}
	return false
}

// ValidStatuses returns all valid task statuses.
func ValidStatuses() []string {
	return []string{StatusTodo, StatusInProgress, StatusCompleted, StatusCancelled}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if status == s {
			return true
		}
	}
	return false
}

// PriorityRank maps a priority to a sort rank, urgent first. Unknown
// priorities rank last.
func PriorityRank(priority string) int {
	switch priority {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// NewUserID generates a new UUID for a user.
func NewUserID() string {
	return uuid.New().String()
}

// NewTaskID generates a new UUID for a task.
func NewTaskID() string {
	return uuid.New().String()
}

// NewEventID generates a new UUID for a calendar event.
func NewEventID() string {
	return uuid.New().String()
}

// NewEmailID generates a new UUID for an email.
func NewEmailID() string {
	return uuid.New().String()
}

// NewNoteID generates a new UUID for a note.
func NewNoteID() string {
	return uuid.New().String()
}
