package agent

import "assistant/pkg/llm"

// promptTokenBudget caps the context block included in any LLM prompt.
// Store listings grow without bound; the prompt must not.
const promptTokenBudget = 2000

// newPromptCounter builds the token counter agents use to budget prompt
// context. If the codec cannot be constructed the zero counter still
// budgets by character estimate.
func newPromptCounter() *llm.TokenCounter {
	tc, err := llm.NewTokenCounter()
	if err != nil {
		return &llm.TokenCounter{}
	}
	return tc
}
