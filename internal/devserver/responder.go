package devserver

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Prompt is what a Responder answers
type Prompt struct {
	Message string
	// SearchContext holds crawled web material, empty when no search ran
	SearchContext string
}

// Responder produces the bot reply for one chat message
type Responder interface {
	Name() string
	Reply(ctx context.Context, p Prompt) (string, error)
}

// EchoResponder answers without any model, for offline development
type EchoResponder struct{}

func (EchoResponder) Name() string { return "echo" }

func (EchoResponder) Reply(_ context.Context, p Prompt) (string, error) {
	reply := "You said: **" + p.Message + "**"
	if p.SearchContext != "" {
		reply += "\n\nWeb material was gathered for this question."
	}
	return reply, nil
}

// OpenAIResponder answers through an OpenAI-compatible chat completions API
type OpenAIResponder struct {
	client       *openai.Client
	model        string
	systemPrompt string
}

// NewOpenAIResponder creates a responder. An empty baseURL uses the
// OpenAI default.
func NewOpenAIResponder(apiKey, baseURL, model, systemPrompt string) *OpenAIResponder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIResponder{
		client:       openai.NewClientWithConfig(cfg),
		model:        model,
		systemPrompt: systemPrompt,
	}
}

func (o *OpenAIResponder) Name() string { return "openai:" + o.model }

func (o *OpenAIResponder) Reply(ctx context.Context, p Prompt) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    buildMessages(o.systemPrompt, p),
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// buildMessages lays out the system prompt, any web material as a prior
// exchange, then the user message
func buildMessages(systemPrompt string, p Prompt) []openai.ChatCompletionMessage {
	if p.SearchContext != "" {
		systemPrompt += " You have access to current web information. Cite sources when you use it."
	}
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}
	if p.SearchContext != "" {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.SearchContext},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "I've reviewed the web search results and will answer from them."},
		)
	}
	return append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.Message})
}
