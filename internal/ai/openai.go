package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient is a Runtime backed by the go-openai SDK.
type OpenAIClient struct {
	client *openai.Client
	retry  retryPolicy
}

// NewOpenAIClient builds a client for the OpenAI API, or any compatible endpoint
// when baseURL is set.
func NewOpenAIClient(apiKey, baseURL string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: httpTimeout}
	if retryMax <= 0 {
		retryMax = 3
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		retry:  newRetryPolicy(retryMax, baseDelay, maxDelay, 500*time.Millisecond, 4*time.Second),
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	creq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(req.Messages)),
		Temperature: float32(req.Temperature),
	}
	if req.MaxTokens > 0 {
		creq.MaxCompletionTokens = req.MaxTokens
	}
	for _, m := range req.Messages {
		creq.Messages = append(creq.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	var resp openai.ChatCompletionResponse
	err := c.retry.run(ctx, func() error {
		var err error
		resp, err = c.client.CreateChatCompletion(ctx, creq)
		if err != nil {
			return mapOpenAIError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}
	out := &GenerateResponse{
		ID: resp.ID,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		RequestID: resp.Header().Get("X-Request-Id"),
	}
	for _, ch := range resp.Choices {
		out.Choices = append(out.Choices, Choice{Message: Message{Role: ch.Message.Role, Content: ch.Message.Content}})
	}
	return out, nil
}

// mapOpenAIError converts SDK errors into this package's typed errors.
func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		e := &APIError{Provider: ProviderOpenAI, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
		if code, ok := apiErr.Code.(string); ok {
			e.Code = code
		}
		return markTransient(classify(e, 0))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		e := &APIError{Provider: ProviderOpenAI, StatusCode: reqErr.HTTPStatusCode}
		if reqErr.Err != nil {
			e.Message = reqErr.Err.Error()
		}
		return markTransient(classify(e, 0))
	}
	if isRetryableNetErr(err) {
		return &retryable{err: fmt.Errorf("openai request: %w", err)}
	}
	return fmt.Errorf("openai request: %w", err)
}

func markTransient(err error) error {
	if transient(err) {
		return &retryable{err: err}
	}
	return err
}
