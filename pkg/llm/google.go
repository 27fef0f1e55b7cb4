package llm

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

// GeminiClient wraps the Google GenAI client. The underlying client is
// created lazily on first use because construction requires a context.
// Concurrent Complete calls share the client, so initialization is
// guarded; a failed init is retried on the next call.
type GeminiClient struct {
	mu     sync.Mutex
	client *genai.Client
	apiKey string
	model  string
}

// NewGeminiClient creates a Gemini-backed completion client.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		apiKey: apiKey,
		model:  model,
	}
}

// Complete implements Client.
func (g *GeminiClient) Complete(ctx context.Context, in Request) (Response, error) {
	if err := validateRequest(in); err != nil {
		return Response{}, err
	}

	client, err := g.ensureClient(ctx)
	if err != nil {
		return Response{}, err
	}

	contents := make([]*genai.Content, 0, len(in.Messages))
	for _, msg := range in.Messages {
		role := genai.RoleUser
		if msg.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	temperature := in.Temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(effectiveMaxTokens(in)),
	}
	if in.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: in.System}},
		}
	}

	result, err := client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return Response{}, fmt.Errorf("gemini completion failed: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return Response{}, fmt.Errorf("empty response from Gemini API")
	}

	stopReason := ""
	if result.Candidates[0].FinishReason != "" {
		stopReason = string(result.Candidates[0].FinishReason)
	}

	return Response{
		Content:    result.Text(),
		StopReason: stopReason,
	}, nil
}

func (g *GeminiClient) ensureClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		g.client = client
	}
	return g.client, nil
}

// ModelName implements Client.
func (g *GeminiClient) ModelName() string {
	return g.model
}
