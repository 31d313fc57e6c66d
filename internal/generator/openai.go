package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"brevio/internal/pipeline"
	"brevio/pkg/logger"
	"brevio/pkg/resilience"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const DefaultOpenAIModel = "gpt-4o-mini"

const (
	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
)

const contentPolicyViolation = "content_policy_violation"

type chatCompletionFunc func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)

// OpenAI generates text with the chat completions API.
type OpenAI struct {
	model   string
	create  chatCompletionFunc
	breaker *resilience.CircuitBreaker
}

// NewOpenAI creates a chat-completions generator.
func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is empty")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	client := openai.NewClient(apiKey)

	logger.Info("OpenAI generator initialized", zap.String("model", model))

	return newOpenAI(model, client.CreateChatCompletion), nil
}

func newOpenAI(model string, create chatCompletionFunc) *OpenAI {
	return &OpenAI{
		model:   model,
		create:  create,
		breaker: resilience.NewCircuitBreaker(breakerFailures, breakerTimeout),
	}
}

// Generate sends prompt as a single user message.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	var resp openai.ChatCompletionResponse
	var policyErr error
	err := o.breaker.Execute(func() error {
		var callErr error
		resp, callErr = o.create(ctx, req)
		if isContentPolicyError(callErr) {
			// A refusal is a healthy upstream.
			policyErr = callErr
			return nil
		}
		return callErr
	})
	if policyErr != nil {
		return "", fmt.Errorf("%v: %w", policyErr, pipeline.ErrContentBlocked)
	}
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	return choiceText(resp)
}

func choiceText(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", errEmptyResponse
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", fmt.Errorf("finish reason %s: %w", choice.FinishReason, pipeline.ErrContentBlocked)
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return "", errEmptyResponse
	}
	return choice.Message.Content, nil
}

// CircuitOpen reports whether recent upstream failures opened the breaker.
func (o *OpenAI) CircuitOpen() bool {
	return o.breaker.GetState() == resilience.StateOpen
}

func isContentPolicyError(err error) bool {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if code, ok := apiErr.Code.(string); ok && code == contentPolicyViolation {
		return true
	}
	return apiErr.Type == contentPolicyViolation
}
