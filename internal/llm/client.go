// Package llm wraps the OpenRouter chat completion API behind the small
// set of completion shapes the rest of the system needs.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/revrost/go-openrouter"
	"github.com/revrost/go-openrouter/jsonschema"
)

// DefaultModel is used whenever a caller does not pin a model.
const DefaultModel = "openai/gpt-4o-mini"

// Message is one turn of conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer is the capability the agent layers depend on. *Client is the
// production implementation; tests substitute a canned one.
type Completer interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt, model string) (string, error)
	CompleteWithJSONMode(ctx context.Context, systemPrompt, userPrompt, model string) (string, error)
	CompleteMessages(ctx context.Context, systemPrompt string, history []Message, model string, temperature float32) (string, error)
	CompleteWithStructuredOutput(ctx context.Context, systemPrompt, userPrompt string, result any, model string) error
}

type Client struct {
	openRouterClient *openrouter.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		openRouterClient: openrouter.NewClient(apiKey),
	}
}

func (c *Client) Complete(ctx context.Context, prompt string, model string) (string, error) {
	if model == "" {
		model = DefaultModel
	}

	request := openrouter.ChatCompletionRequest{
		Model: model,
		Messages: []openrouter.ChatCompletionMessage{
			{
				Role:    openrouter.ChatMessageRoleUser,
				Content: openrouter.Content{Text: prompt},
			},
		},
	}

	return c.firstChoice(ctx, request)
}

func (c *Client) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string, model string) (string, error) {
	if model == "" {
		model = DefaultModel
	}

	request := openrouter.ChatCompletionRequest{
		Model: model,
		Messages: []openrouter.ChatCompletionMessage{
			{
				Role:    openrouter.ChatMessageRoleSystem,
				Content: openrouter.Content{Text: systemPrompt},
			},
			{
				Role:    openrouter.ChatMessageRoleUser,
				Content: openrouter.Content{Text: userPrompt},
			},
		},
	}

	return c.firstChoice(ctx, request)
}

// CompleteMessages completes against a system prompt plus prior
// conversation turns. The synthesizer uses this to answer in context.
func (c *Client) CompleteMessages(ctx context.Context, systemPrompt string, history []Message, model string, temperature float32) (string, error) {
	if model == "" {
		model = DefaultModel
	}

	messages := make([]openrouter.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openrouter.ChatCompletionMessage{
		Role:    openrouter.ChatMessageRoleSystem,
		Content: openrouter.Content{Text: systemPrompt},
	})
	for _, m := range history {
		messages = append(messages, openrouter.ChatCompletionMessage{
			Role:    m.Role,
			Content: openrouter.Content{Text: m.Content},
		})
	}

	request := openrouter.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
	}

	return c.firstChoice(ctx, request)
}

// CompleteWithStructuredOutput completes with a JSON schema generated from
// result's type and unmarshals the response into it. Use this when the
// output structure is fixed, like extraction results.
func (c *Client) CompleteWithStructuredOutput(ctx context.Context, systemPrompt, userPrompt string, result any, model string) error {
	if model == "" {
		model = DefaultModel
	}

	schema, err := jsonschema.GenerateSchemaForType(result)
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	request := openrouter.ChatCompletionRequest{
		Model: model,
		Messages: []openrouter.ChatCompletionMessage{
			{
				Role:    openrouter.ChatMessageRoleSystem,
				Content: openrouter.Content{Text: systemPrompt},
			},
			{
				Role:    openrouter.ChatMessageRoleUser,
				Content: openrouter.Content{Text: userPrompt},
			},
		},
		ResponseFormat: &openrouter.ChatCompletionResponseFormat{
			Type: openrouter.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openrouter.ChatCompletionResponseFormatJSONSchema{
				Name:   "result",
				Schema: schema,
				Strict: false, // Some models don't support strict mode
			},
		},
	}

	text, err := c.firstChoice(ctx, request)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), result); err != nil {
		return fmt.Errorf("failed to unmarshal structured response: %w", err)
	}
	return nil
}

// CompleteWithJSONMode completes with JSON mode enabled (less strict than
// schema) and returns the raw JSON string for manual parsing. The router
// uses this so that a malformed response can fall back instead of failing.
func (c *Client) CompleteWithJSONMode(ctx context.Context, systemPrompt, userPrompt string, model string) (string, error) {
	if model == "" {
		model = DefaultModel
	}

	request := openrouter.ChatCompletionRequest{
		Model: model,
		Messages: []openrouter.ChatCompletionMessage{
			{
				Role:    openrouter.ChatMessageRoleSystem,
				Content: openrouter.Content{Text: systemPrompt},
			},
			{
				Role:    openrouter.ChatMessageRoleUser,
				Content: openrouter.Content{Text: userPrompt},
			},
		},
		ResponseFormat: &openrouter.ChatCompletionResponseFormat{
			Type: openrouter.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	text, err := c.firstChoice(ctx, request)
	if err != nil {
		return "", err
	}

	var test json.RawMessage
	if err := json.Unmarshal([]byte(text), &test); err != nil {
		return "", fmt.Errorf("response is not valid JSON: %w", err)
	}
	return text, nil
}

func (c *Client) firstChoice(ctx context.Context, request openrouter.ChatCompletionRequest) (string, error) {
	response, err := c.openRouterClient.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return response.Choices[0].Message.Content.Text, nil
}
