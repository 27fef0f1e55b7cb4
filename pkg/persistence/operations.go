package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// DatabaseOperations provides methods for database operations. Construct one
// per process with NewDatabaseOperations and share it; *sql.DB handles
// connection-level locking.
type DatabaseOperations struct {
	db *sql.DB
}

// NewDatabaseOperations creates a new DatabaseOperations instance.
func NewDatabaseOperations(db *sql.DB) *DatabaseOperations {
	return &DatabaseOperations{db: db}
}

// ---------------------------------------------------------------------------
// Users

// CreateUser inserts a user record.
func (ops *DatabaseOperations) CreateUser(user *User) error {
	query := `
		INSERT INTO users (id, name, email, timezone, preferences, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := ops.db.Exec(query, user.ID, user.Name, user.Email, user.Timezone,
		nullable(user.Preferences), user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.ID, err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (ops *DatabaseOperations) GetUser(id string) (*User, error) {
	query := "SELECT id, name, email, timezone, preferences, created_at FROM users WHERE id = ?"

	var user User
	var preferences sql.NullString
	err := ops.db.QueryRow(query, id).Scan(
		&user.ID, &user.Name, &user.Email, &user.Timezone, &preferences, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	user.Preferences = preferences.String
	return &user, nil
}

// ---------------------------------------------------------------------------
// Tasks

// UpsertTask inserts or updates a task record.
func (ops *DatabaseOperations) UpsertTask(task *Task) error {
	query := `
		INSERT INTO tasks (
			id, user_id, title, description, priority, status, due_date, tags,
			estimated_minutes, created_at, updated_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			priority = excluded.priority,
			status = excluded.status,
			due_date = excluded.due_date,
			tags = excluded.tags,
			estimated_minutes = excluded.estimated_minutes,
			updated_at = excluded.updated_at,
			completed_at = excluded.completed_at
	`
	_, err := ops.db.Exec(query,
		task.ID, task.UserID, task.Title, nullable(task.Description),
		task.Priority, task.Status, task.DueDate, nullable(task.Tags),
		task.EstimatedMinutes, task.CreatedAt, task.UpdatedAt, task.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert task %s: %w", task.ID, err)
	}
	return nil
}

// GetTask retrieves a task by ID.
func (ops *DatabaseOperations) GetTask(id string) (*Task, error) {
	query := selectTaskColumns + " WHERE id = ?"

	row := ops.db.QueryRow(query, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return task, nil
}

// GetTasks retrieves tasks for a user, optionally filtered by status.
// Results are ordered by priority (urgent first) then due date.
func (ops *DatabaseOperations) GetTasks(userID, status string) ([]*Task, error) {
	query := selectTaskColumns + " WHERE user_id = ?"
	args := []any{userID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += ` ORDER BY
		CASE priority
			WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3
		END,
		due_date IS NULL, due_date`

	rows, err := ops.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks for user %s: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	return collectTasks(rows)
}

// SearchTasks finds tasks whose title or description contains the query text.
func (ops *DatabaseOperations) SearchTasks(userID, text string) ([]*Task, error) {
	query := selectTaskColumns + `
		WHERE user_id = ? AND (title LIKE ? OR description LIKE ?)
		ORDER BY updated_at DESC`
	pattern := "%" + text + "%"

	rows, err := ops.db.Query(query, userID, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search tasks for user %s: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	return collectTasks(rows)
}

// DeleteTask removes a task. Returns ErrNotFound if it did not exist.
func (ops *DatabaseOperations) DeleteTask(id string) error {
	result, err := ops.db.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result for task %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

const selectTaskColumns = `SELECT
	id, user_id, title, description, priority, status, due_date, tags,
	estimated_minutes, created_at, updated_at, completed_at
	FROM tasks`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var task Task
	var description, tags sql.NullString
	var estimatedMinutes sql.NullInt64
	var dueDate, completedAt sql.NullTime

	err := row.Scan(
		&task.ID, &task.UserID, &task.Title, &description, &task.Priority,
		&task.Status, &dueDate, &tags, &estimatedMinutes,
		&task.CreatedAt, &task.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	task.Description = description.String
	task.Tags = tags.String
	task.EstimatedMinutes = int(estimatedMinutes.Int64)
	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	return &task, nil
}

func collectTasks(rows *sql.Rows) ([]*Task, error) {
	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// ---------------------------------------------------------------------------
// Calendar events

// CreateEvent inserts a calendar event.
func (ops *DatabaseOperations) CreateEvent(event *Event) error {
	query := `
		INSERT INTO events (
			id, user_id, title, description, start_time, end_time,
			event_type, location, attendees, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := ops.db.Exec(query,
		event.ID, event.UserID, event.Title, nullable(event.Description),
		event.StartTime, event.EndTime, event.EventType,
		nullable(event.Location), nullable(event.Attendees), event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event %s: %w", event.ID, err)
	}
	return nil
}

// GetEventsInRange retrieves events overlapping [from, to) ordered by start time.
func (ops *DatabaseOperations) GetEventsInRange(userID string, from, to time.Time) ([]*Event, error) {
	query := `SELECT
		id, user_id, title, description, start_time, end_time,
		event_type, location, attendees, created_at
		FROM events
		WHERE user_id = ? AND start_time < ? AND end_time > ?
		ORDER BY start_time`

	rows, err := ops.db.Query(query, userID, to, from)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for user %s: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	var events []*Event
	for rows.Next() {
		var event Event
		var description, location, attendees sql.NullString
		err := rows.Scan(
			&event.ID, &event.UserID, &event.Title, &description,
			&event.StartTime, &event.EndTime, &event.EventType,
			&location, &attendees, &event.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.Description = description.String
		event.Location = location.String
		event.Attendees = attendees.String
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// DeleteEvent removes a calendar event. Returns ErrNotFound if it did not exist.
func (ops *DatabaseOperations) DeleteEvent(id string) error {
	result, err := ops.db.Exec("DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete event %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result for event %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Emails

// CreateEmail inserts an email record.
func (ops *DatabaseOperations) CreateEmail(email *Email) error {
	query := `
		INSERT INTO emails (
			id, user_id, from_address, to_addresses, subject, body, is_read, received_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := ops.db.Exec(query,
		email.ID, email.UserID, email.FromAddress, email.ToAddresses,
		email.Subject, nullable(email.Body), email.IsRead, email.ReceivedAt)
	if err != nil {
		return fmt.Errorf("failed to create email %s: %w", email.ID, err)
	}
	return nil
}

// GetEmails retrieves emails for a user, newest first.
func (ops *DatabaseOperations) GetEmails(userID string) ([]*Email, error) {
	query := `SELECT
		id, user_id, from_address, to_addresses, subject, body, is_read, received_at
		FROM emails WHERE user_id = ? ORDER BY received_at DESC`

	rows, err := ops.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query emails for user %s: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	var emails []*Email
	for rows.Next() {
		var email Email
		var body sql.NullString
		err := rows.Scan(
			&email.ID, &email.UserID, &email.FromAddress, &email.ToAddresses,
			&email.Subject, &body, &email.IsRead, &email.ReceivedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan email: %w", err)
		}
		email.Body = body.String
		emails = append(emails, &email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate emails: %w", err)
	}
	return emails, nil
}

// ---------------------------------------------------------------------------
// Notes

// CreateNote inserts a note record.
func (ops *DatabaseOperations) CreateNote(note *Note) error {
	query := `
		INSERT INTO notes (id, user_id, title, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := ops.db.Exec(query,
		note.ID, note.UserID, note.Title, nullable(note.Content),
		note.CreatedAt, note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create note %s: %w", note.ID, err)
	}
	return nil
}

// GetNotes retrieves notes for a user, newest first.
func (ops *DatabaseOperations) GetNotes(userID string) ([]*Note, error) {
	return ops.queryNotes(
		"SELECT id, user_id, title, content, created_at, updated_at FROM notes WHERE user_id = ? ORDER BY updated_at DESC",
		userID)
}

// SearchNotes finds notes whose title or content contains the query text.
func (ops *DatabaseOperations) SearchNotes(userID, text string) ([]*Note, error) {
	pattern := "%" + text + "%"
	return ops.queryNotes(
		`SELECT id, user_id, title, content, created_at, updated_at FROM notes
		WHERE user_id = ? AND (title LIKE ? OR content LIKE ?)
		ORDER BY updated_at DESC`,
		userID, pattern, pattern)
}

func (ops *DatabaseOperations) queryNotes(query string, args ...any) ([]*Note, error) {
	rows, err := ops.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var notes []*Note
	for rows.Next() {
		var note Note
		var content sql.NullString
		err := rows.Scan(&note.ID, &note.UserID, &note.Title, &content,
			&note.CreatedAt, &note.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		note.Content = content.String
		notes = append(notes, &note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}
	return notes, nil
}

// ---------------------------------------------------------------------------
// Audit log

// InsertAgentLog appends one audit record for an executed agent step.
func (ops *DatabaseOperations) InsertAgentLog(entry *AgentLog) error {
	query := `
		INSERT INTO agent_logs (
			actor_id, agent_name, action, input_data, output_data,
			status, duration_ms, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := ops.db.Exec(query,
		entry.ActorID, entry.AgentName, entry.Action,
		nullable(entry.InputData), nullable(entry.OutputData),
		entry.Status, entry.DurationMS, nullable(entry.ErrorMessage),
		entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert agent log: %w", err)
	}
	return nil
}

// GetAgentLogs retrieves the most recent audit records for an actor.
func (ops *DatabaseOperations) GetAgentLogs(actorID string, limit int) ([]*AgentLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT
		actor_id, agent_name, action, input_data, output_data,
		status, duration_ms, error_message, created_at
		FROM agent_logs WHERE actor_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := ops.db.Query(query, actorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query agent logs for actor %s: %w", actorID, err)
	}
	defer func() { _ = rows.Close() }()

	var logs []*AgentLog
	for rows.Next() {
		var entry AgentLog
		var inputData, outputData, errorMessage sql.NullString
		err := rows.Scan(
			&entry.ActorID, &entry.AgentName, &entry.Action,
			&inputData, &outputData, &entry.Status, &entry.DurationMS,
			&errorMessage, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent log: %w", err)
		}
		entry.InputData = inputData.String
		entry.OutputData = outputData.String
		entry.ErrorMessage = errorMessage.String
		logs = append(logs, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agent logs: %w", err)
	}
	return logs, nil
}

// nullable maps "" to NULL so empty optional fields do not store empty strings.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
