package agent

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.3-70b-versatile"
)

// GroqClient talks to Groq through its OpenAI-compatible chat completions
// endpoint in JSON mode.
type GroqClient struct {
	client *openai.Client
	model  string
}

// NewGroqClient builds a client. Empty baseURL and model fall back to the
// public Groq endpoint and DefaultGroqModel.
func NewGroqClient(apiKey, baseURL, model string, timeout time.Duration) *GroqClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	cfg.BaseURL = baseURL
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	if model == "" {
		model = DefaultGroqModel
	}
	return &GroqClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (g *GroqClient) Name() string { return "groq:" + g.model }

func (g *GroqClient) GenerateJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		// a literal 0 is dropped by omitempty and the server default applies
		Temperature: math.SmallestNonzeroFloat32,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrInvalidJSON
	}
	return validJSON(resp.Choices[0].Message.Content)
}

// classifyOpenAIError marks client errors other than rate limiting as
// permanent.
func classifyOpenAIError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return &PermanentError{Err: err}
	}
	return err
}
