package matchmaking

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/imadgeboyega/orbit-backend/internal/profiles"
)

// TextGenerator produces the one-paragraph compatibility blurb for a pair of
// profiles. Implementations may fail or return empty text; callers treat both
// as "no reason available" and apply their mode's degradation policy.
type TextGenerator interface {
	GenerateDescription(ctx context.Context, a, b *profiles.Profile, similarity float64) (string, error)
}

// GeneratorConfig holds configuration for the OpenAI-backed generator.
type GeneratorConfig struct {
	APIKey  string
	BaseURL string // OpenAI-compatible endpoint
	Model   string
}

type openaiGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a TextGenerator backed by an OpenAI-compatible
// chat completion endpoint.
func NewOpenAIGenerator(cfg *GeneratorConfig) (TextGenerator, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	return &openaiGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}, nil
}

const generatorSystemMessage = "You write one short, warm sentence explaining why two people might get along, " +
	"based on their interests and bios. Address the first person as \"you\" and the second by name. " +
	"No preamble, no emojis, at most 30 words."

func (g *openaiGenerator) GenerateDescription(ctx context.Context, a, b *profiles.Profile, similarity float64) (string, error) {
	prompt := fmt.Sprintf(
		"You: interests %s. Bio: %q.\n%s: interests %s. Bio: %q.\nInterest similarity score: %.2f.",
		strings.Join(a.Interests, ", "), a.BioText(),
		b.DisplayName, strings.Join(b.Interests, ", "), b.BioText(),
		similarity,
	)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generatorSystemMessage},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   80,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
