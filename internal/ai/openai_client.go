package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used by the openai runtime when none is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient solves problems through an OpenAI-compatible chat endpoint.
type OpenAIClient struct {
	client *openai.Client
	apiKey string
	model  string
}

// NewOpenAIClient builds a client; an empty baseURL keeps the public API.
func NewOpenAIClient(apiKey, model, baseURL string, httpTimeout time.Duration) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	hc := &http.Client{}
	if httpTimeout > 0 {
		hc.Timeout = httpTimeout
	}
	cfg.HTTPClient = hc
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), apiKey: apiKey, model: model}
}

// Model reports the chat model in use.
func (c *OpenAIClient) Model() string { return c.model }

// Solve sends the tutoring prompt as a single user message.
func (c *OpenAIClient) Solve(ctx context.Context, problem string) (string, error) {
	if c.apiKey == "" || c.apiKey == PlaceholderAPIKey {
		return "", &ConfigurationError{Setting: "openai_api_key", Reason: "not set"}
	}
	gc := DefaultGenerationConfig()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(problem)},
		},
		Temperature: float32(gc.Temperature),
		TopP:        float32(gc.TopP),
		MaxTokens:   gc.MaxOutputTokens,
	})
	if err != nil {
		return "", mapOpenAIError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", &EmptyResponseError{Kind: NoCandidates}
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", &ContentPolicyError{Reason: ReasonSafety}
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return "", &EmptyResponseError{Kind: BlankText}
	}
	return choice.Message.Content, nil
}

// mapOpenAIError folds go-openai errors into this package's taxonomy.
func mapOpenAIError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		base := &APIError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Status: apiErr.Type}
		return classifyAPIError(base, nil)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		base := &APIError{StatusCode: reqErr.HTTPStatusCode}
		if reqErr.Err != nil {
			base.Message = reqErr.Err.Error()
		}
		return classifyAPIError(base, nil)
	}
	return &NetworkError{Err: err}
}
