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

// Email agent actions.
const (
	EmailActionRead      = "read"
	EmailActionSend      = "send"
	EmailActionSummarize = "summarize"
)

// EmailAgent manages stored email: reading the inbox, recording outbound
// messages and LLM-backed inbox summaries.
type EmailAgent struct {
	store  *persistence.DatabaseOperations
	client llm.Client
	events *bus.Bus
	tokens *llm.TokenCounter
}

// NewEmailAgent creates the email agent. events may be nil.
func NewEmailAgent(store *persistence.DatabaseOperations, client llm.Client, events *bus.Bus) *EmailAgent {
	return &EmailAgent{store: store, client: client, events: events, tokens: newPromptCounter()}
}

// Name implements Agent.
func (a *EmailAgent) Name() string { return NameEmail }

// Process implements Agent.
func (a *EmailAgent) Process(ctx context.Context, actorID string, req Request) (map[string]any, error) {
	switch req.Action {
	case EmailActionRead:
		return a.read(actorID)
	case EmailActionSend:
		return a.send(actorID, req.Params)
	case EmailActionSummarize:
		return a.summarize(ctx, actorID)
	default:
		return nil, fmt.Errorf("%w: email has no action %q", ErrUnknownAction, req.Action)
	}
}

func (a *EmailAgent) read(actorID string) (map[string]any, error) {
	emails, err := a.store.GetEmails(actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to read emails: %w", err)
	}

	messages := make([]map[string]any, 0, len(emails))
	for _, email := range emails {
		messages = append(messages, map[string]any{
			"email_id":    email.ID,
			"from":        email.FromAddress,
			"subject":     email.Subject,
			"received_at": email.ReceivedAt.Format(time.RFC3339),
			"is_read":     email.IsRead,
		})
	}

	message := fmt.Sprintf("Found %d emails", len(messages))
	if len(messages) == 0 {
		message = "No emails found"
	}
	return map[string]any{
		"emails":  messages,
		"message": message,
	}, nil
}

func (a *EmailAgent) send(actorID string, params map[string]any) (map[string]any, error) {
	to, err := requireStringParam(params, "to")
	if err != nil {
		return nil, err
	}
	subject := stringParam(params, "subject")
	body := stringParam(params, "body")

	email := &persistence.Email{
		ID:          persistence.NewEmailID(),
		UserID:      actorID,
		FromAddress: actorID,
		ToAddresses: encodeJSONList([]string{to}),
		Subject:     subject,
		Body:        body,
		IsRead:      true,
		ReceivedAt:  time.Now().UTC(),
	}
	if err := a.store.CreateEmail(email); err != nil {
		return nil, fmt.Errorf("failed to record outbound email: %w", err)
	}

	if a.events != nil {
		evt := proto.NewEvent(proto.EventEmailSent, NameEmail, "")
		evt.SetPayload(proto.KeyActorID, actorID)
		evt.SetPayload(proto.KeyEmailID, email.ID)
		a.events.Publish(evt)
	}

	return map[string]any{
		"email_id": email.ID,
		"to":       to,
		"message":  "Email queued for sending",
	}, nil
}

func (a *EmailAgent) summarize(ctx context.Context, actorID string) (map[string]any, error) {
	emails, err := a.store.GetEmails(actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load emails: %w", err)
	}
	if len(emails) == 0 {
		return map[string]any{
			"summary": "No emails to summarize",
			"message": "Done",
		}, nil
	}

	var lines []string
	for i, email := range emails {
		if i >= 20 {
			break
		}
		lines = append(lines, fmt.Sprintf("- From %s: %s", email.FromAddress, email.Subject))
	}

	prompt := fmt.Sprintf(`Summarize this inbox in a few sentences, calling out
anything that looks urgent or actionable:

%s`, a.tokens.Truncate(strings.Join(lines, "\n"), promptTokenBudget))

	resp, err := a.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("email summary failed: %w", err)
	}

	return map[string]any{
		"summary":     resp.Content,
		"email_count": len(emails),
		"message":     "Done",
	}, nil
}
