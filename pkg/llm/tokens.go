package llm

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter provides token counting for prompt budgeting. All supported
// chat models are approximated with the GPT-4 encoding.
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter creates a token counter.
func NewTokenCounter() (*TokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec: %w", err)
	}
	return &TokenCounter{codec: codec}, nil
}

// Count returns the number of tokens in text. Falls back to a character
// estimate (4 chars per token) if the codec fails.
func (tc *TokenCounter) Count(text string) int {
	if tc.codec == nil {
		return len(text) / 4
	}
	count, err := tc.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

// CountRequest returns the approximate token count of an entire request.
func (tc *TokenCounter) CountRequest(in Request) int {
	total := tc.Count(in.System)
	for _, msg := range in.Messages {
		total += tc.Count(msg.Content)
	}
	return total
}

// Truncate trims text so it fits within limit tokens. The cut is by
// character proportion, not exact token boundaries.
func (tc *TokenCounter) Truncate(text string, limit int) string {
	current := tc.Count(text)
	if current <= limit {
		return text
	}
	ratio := float64(limit) / float64(current)
	charLimit := int(float64(len(text)) * ratio * 0.9)
	if charLimit >= len(text) {
		return text
	}
	return text[:charLimit] + "..."
}
