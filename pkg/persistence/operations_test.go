package persistence

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// Helper to create a fresh database for each test.
func createTestDB(t *testing.T) *DatabaseOperations {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := InitializeDatabase(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return NewDatabaseOperations(db)
}

func TestInitializeDatabaseIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := InitializeDatabase(dbPath)
	if err != nil {
		t.Fatalf("First initialize failed: %v", err)
	}
	version, err := GetSchemaVersion(db)
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", CurrentSchemaVersion, version)
	}
	_ = db.Close()

	// Re-opening an existing database must succeed without re-creating schema.
	db2, err := InitializeDatabase(dbPath)
	if err != nil {
		t.Fatalf("Second initialize failed: %v", err)
	}
	_ = db2.Close()
}

func TestTaskOperations(t *testing.T) {
	ops := createTestDB(t)
	now := time.Now().UTC()

	due := now.Add(48 * time.Hour)
	task := &Task{
		ID:        NewTaskID(),
		UserID:    "user-1",
		Title:     "Write quarterly report",
		Priority:  PriorityHigh,
		Status:    StatusTodo,
		DueDate:   &due,
		Tags:      `["work","reports"]`,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := ops.UpsertTask(task); err != nil {
		t.Fatalf("Failed to upsert task: %v", err)
	}

	retrieved, err := ops.GetTask(task.ID)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if retrieved.Title != task.Title {
		t.Errorf("Expected title %q, got %q", task.Title, retrieved.Title)
	}
	if retrieved.DueDate == nil {
		t.Fatal("Expected due date to round-trip")
	}
	if retrieved.CompletedAt != nil {
		t.Error("Expected nil completed_at for open task")
	}

	// Update: mark completed.
	completed := now.Add(time.Hour)
	task.Status = StatusCompleted
	task.CompletedAt = &completed
	task.UpdatedAt = completed
	if err := ops.UpsertTask(task); err != nil {
		t.Fatalf("Failed to update task: %v", err)
	}

	completedTasks, err := ops.GetTasks("user-1", StatusCompleted)
	if err != nil {
		t.Fatalf("Failed to query completed tasks: %v", err)
	}
	if len(completedTasks) != 1 {
		t.Fatalf("Expected 1 completed task, got %d", len(completedTasks))
	}
	if completedTasks[0].CompletedAt == nil {
		t.Error("Expected completed_at to be set")
	}
}

func TestGetTasksPriorityOrdering(t *testing.T) {
	ops := createTestDB(t)
	now := time.Now().UTC()

	for _, priority := range []string{PriorityLow, PriorityUrgent, PriorityMedium, PriorityHigh} {
		task := &Task{
			ID:        NewTaskID(),
			UserID:    "user-1",
			Title:     priority + " task",
			Priority:  priority,
			Status:    StatusTodo,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := ops.UpsertTask(task); err != nil {
			t.Fatalf("Failed to upsert task: %v", err)
		}
	}

	tasks, err := ops.GetTasks("user-1", "")
	if err != nil {
		t.Fatalf("Failed to query tasks: %v", err)
	}
	if len(tasks) != 4 {
		t.Fatalf("Expected 4 tasks, got %d", len(tasks))
	}
	expected := []string{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}
	for i, task := range tasks {
		if task.Priority != expected[i] {
			t.Errorf("Position %d: expected priority %s, got %s", i, expected[i], task.Priority)
		}
	}
}

func TestSearchTasks(t *testing.T) {
	ops := createTestDB(t)
	now := time.Now().UTC()

	titles := []string{"Book dentist appointment", "Review budget spreadsheet", "Call dentist office"}
	for _, title := range titles {
		task := &Task{
			ID: NewTaskID(), UserID: "user-1", Title: title,
			Priority: PriorityMedium, Status: StatusTodo,
			CreatedAt: now, UpdatedAt: now,
		}
		if err := ops.UpsertTask(task); err != nil {
			t.Fatalf("Failed to upsert task: %v", err)
		}
	}

	matches, err := ops.SearchTasks("user-1", "dentist")
	if err != nil {
		t.Fatalf("Failed to search tasks: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("Expected 2 matches, got %d", len(matches))
	}
}

func TestDeleteTaskNotFound(t *testing.T) {
	ops := createTestDB(t)

	err := ops.DeleteTask("does-not-exist")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestEventOperations(t *testing.T) {
	ops := createTestDB(t)
	now := time.Now().UTC().Truncate(time.Second)

	event := &Event{
		ID:        NewEventID(),
		UserID:    "user-1",
		Title:     "Standup",
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(90 * time.Minute),
		EventType: EventTypeMeeting,
		Location:  "Room 4",
		CreatedAt: now,
	}
	if err := ops.CreateEvent(event); err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	// Overlapping window finds it.
	events, err := ops.GetEventsInRange("user-1", now, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("Failed to query events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Location != "Room 4" {
		t.Errorf("Expected location Room 4, got %q", events[0].Location)
	}

	// Disjoint window does not.
	events, err = ops.GetEventsInRange("user-1", now.Add(3*time.Hour), now.Add(4*time.Hour))
	if err != nil {
		t.Fatalf("Failed to query events: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Expected no events in disjoint window, got %d", len(events))
	}
}

func TestEmailAndNoteOperations(t *testing.T) {
	ops := createTestDB(t)
	now := time.Now().UTC()

	email := &Email{
		ID: NewEmailID(), UserID: "user-1",
		FromAddress: "boss@example.com", ToAddresses: `["me@example.com"]`,
		Subject: "Deadline moved", Body: "The deadline is now Friday.",
		ReceivedAt: now,
	}
	if err := ops.CreateEmail(email); err != nil {
		t.Fatalf("Failed to create email: %v", err)
	}
	emails, err := ops.GetEmails("user-1")
	if err != nil {
		t.Fatalf("Failed to get emails: %v", err)
	}
	if len(emails) != 1 || emails[0].Subject != "Deadline moved" {
		t.Errorf("Unexpected emails: %+v", emails)
	}

	note := &Note{
		ID: NewNoteID(), UserID: "user-1",
		Title: "Meeting notes", Content: "Discussed roadmap priorities",
		CreatedAt: now, UpdatedAt: now,
	}
	if err := ops.CreateNote(note); err != nil {
		t.Fatalf("Failed to create note: %v", err)
	}
	found, err := ops.SearchNotes("user-1", "roadmap")
	if err != nil {
		t.Fatalf("Failed to search notes: %v", err)
	}
	if len(found) != 1 {
		t.Errorf("Expected 1 matching note, got %d", len(found))
	}
}

func TestAgentLogRoundTrip(t *testing.T) {
	ops := createTestDB(t)
	now := time.Now().UTC()

	entry := &AgentLog{
		ActorID:    "user-1",
		AgentName:  "task",
		Action:     "create",
		InputData:  `{"action":"create","title":"Test"}`,
		OutputData: `{"task_id":"abc"}`,
		Status:     AuditStatusSuccess,
		DurationMS: 12.5,
		CreatedAt:  now,
	}
	if err := ops.InsertAgentLog(entry); err != nil {
		t.Fatalf("Failed to insert agent log: %v", err)
	}

	failure := &AgentLog{
		ActorID: "user-1", AgentName: "email", Action: "send",
		Status: AuditStatusError, ErrorMessage: "missing recipient",
		DurationMS: 3.2, CreatedAt: now.Add(time.Second),
	}
	if err := ops.InsertAgentLog(failure); err != nil {
		t.Fatalf("Failed to insert failure log: %v", err)
	}

	logs, err := ops.GetAgentLogs("user-1", 10)
	if err != nil {
		t.Fatalf("Failed to get agent logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(logs))
	}
	// Newest first.
	if logs[0].AgentName != "email" || logs[0].Status != AuditStatusError {
		t.Errorf("Unexpected first log entry: %+v", logs[0])
	}
	if logs[1].OutputData == "" {
		t.Error("Expected output snapshot on success entry")
	}
}

func TestPriorityValidation(t *testing.T) {
	if !IsValidPriority(PriorityUrgent) {
		t.Error("urgent should be valid")
	}
	if IsValidPriority("critical") {
		t.Error("critical should not be valid")
	}
	if !IsValidStatus(StatusInProgress) {
		t.Error("in_progress should be valid")
	}
	if PriorityRank(PriorityUrgent) >= PriorityRank(PriorityLow) {
		t.Error("urgent should rank before low")
	}
}
