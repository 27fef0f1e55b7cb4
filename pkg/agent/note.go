package agent

import (
	"context"
	"fmt"
	"time"

	"assistant/pkg/bus"
	"assistant/pkg/persistence"
	"assistant/pkg/proto"
)

// Note agent actions.
const (
	NoteActionCreate = "create"
	NoteActionList   = "list"
	NoteActionSearch = "search"
)

// NoteAgent manages free-form notes in the store.
type NoteAgent struct {
	store  *persistence.DatabaseOperations
	events *bus.Bus
}

// NewNoteAgent creates the note agent. events may be nil.
func NewNoteAgent(store *persistence.DatabaseOperations, events *bus.Bus) *NoteAgent {
	return &NoteAgent{store: store, events: events}
}

// Name implements Agent.
func (a *NoteAgent) Name() string { return NameNote }

// Process implements Agent.
func (a *NoteAgent) Process(_ context.Context, actorID string, req Request) (map[string]any, error) {
	switch req.Action {
	case NoteActionCreate:
		return a.create(actorID, req.Params)
	case NoteActionList:
		return a.list(actorID)
	case NoteActionSearch:
		return a.search(actorID, req.Params)
	default:
		return nil, fmt.Errorf("%w: note has no action %q", ErrUnknownAction, req.Action)
	}
}

func (a *NoteAgent) create(actorID string, params map[string]any) (map[string]any, error) {
	title, err := requireStringParam(params, "title")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	note := &persistence.Note{
		ID:        persistence.NewNoteID(),
		UserID:    actorID,
		Title:     title,
		Content:   stringParam(params, "content"),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.CreateNote(note); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	if a.events != nil {
		evt := proto.NewEvent(proto.EventNoteCreated, NameNote, "")
		evt.SetPayload(proto.KeyActorID, actorID)
		evt.SetPayload(proto.KeyNoteID, note.ID)
		evt.SetPayload(proto.KeyTitle, note.Title)
		a.events.Publish(evt)
	}

	return map[string]any{
		"note_id": note.ID,
		"message": "Note created",
	}, nil
}

func (a *NoteAgent) list(actorID string) (map[string]any, error) {
	notes, err := a.store.GetNotes(actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	results := make([]map[string]any, 0, len(notes))
	for _, note := range notes {
		results = append(results, map[string]any{
			"note_id":    note.ID,
			"title":      note.Title,
			"updated_at": note.UpdatedAt.Format(time.RFC3339),
		})
	}

	message := fmt.Sprintf("Found %d notes", len(results))
	if len(results) == 0 {
		message = "No notes found"
	}
	return map[string]any{
		"notes":   results,
		"message": message,
	}, nil
}

func (a *NoteAgent) search(actorID string, params map[string]any) (map[string]any, error) {
	query, err := requireStringParam(params, "query")
	if err != nil {
		return nil, err
	}

	notes, err := a.store.SearchNotes(actorID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search notes: %w", err)
	}

	results := make([]map[string]any, 0, len(notes))
	for _, note := range notes {
		results = append(results, map[string]any{
			"note_id": note.ID,
			"title":   note.Title,
			"content": note.Content,
		})
	}

	message := fmt.Sprintf("Found %d matching notes", len(results))
	if len(results) == 0 {
		message = "No matching notes"
	}
	return map[string]any{
		"query":   query,
		"results": results,
		"message": message,
	}, nil
}
