// Package llm defines the completion client interface shared by all model
// providers, plus the provider implementations themselves.
package llm

import (
	"context"
	"fmt"
)

// Role identifies the author of a completion message.
type Role string

// Valid message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a completion conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-independent completion request.
type Request struct {
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float32   `json:"temperature"`
}

// Response is a provider-independent completion response.
type Response struct {
	Content    string `json:"content"`
	StopReason string `json:"stop_reason,omitempty"`
}

// Client is the interface every provider implementation satisfies.
type Client interface {
	// Complete sends the request and blocks until the model responds or ctx
	// is done.
	Complete(ctx context.Context, in Request) (Response, error)

	// ModelName returns the configured model identifier.
	ModelName() string
}

// DefaultMaxTokens applies when a request leaves MaxTokens unset.
const DefaultMaxTokens = 1024

func validateRequest(in Request) error {
	if len(in.Messages) == 0 {
		return fmt.Errorf("completion request must contain at least one message")
	}
	for i, msg := range in.Messages {
		switch msg.Role {
		case RoleUser, RoleAssistant:
		case RoleSystem:
			return fmt.Errorf("system content belongs in the System field, found system message at index %d", i)
		default:
			return fmt.Errorf("invalid role %q at index %d", msg.Role, i)
		}
	}
	if in.Messages[0].Role != RoleUser {
		return fmt.Errorf("first message must be user role, got %s", in.Messages[0].Role)
	}
	if last := in.Messages[len(in.Messages)-1]; last.Role != RoleUser {
		return fmt.Errorf("last message must be user role, got %s", last.Role)
	}
	return nil
}

func effectiveMaxTokens(in Request) int {
	if in.MaxTokens > 0 {
		return in.MaxTokens
	}
	return DefaultMaxTokens
}
