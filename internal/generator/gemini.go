package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"brevio/internal/pipeline"
	"brevio/pkg/logger"
	"brevio/pkg/resilience"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-1.5-pro-latest"

var errEmptyResponse = errors.New("empty response from model")

var blockedFinishReasons = map[genai.FinishReason]bool{
	genai.FinishReasonSafety:            true,
	genai.FinishReasonProhibitedContent: true,
	genai.FinishReasonBlocklist:         true,
}

type generateContentFunc func(ctx context.Context, model string, contents []*genai.Content) (*genai.GenerateContentResponse, error)

// Gemini generates text with the Gemini API.
type Gemini struct {
	model    string
	generate generateContentFunc
	breaker  *resilience.CircuitBreaker
}

// NewGemini creates a Gemini generator for model.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger.Info("Gemini generator initialized", zap.String("model", model))

	return newGemini(model, func(ctx context.Context, model string, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
		return client.Models.GenerateContent(ctx, model, contents, nil)
	}), nil
}

func newGemini(model string, generate generateContentFunc) *Gemini {
	return &Gemini{
		model:    model,
		generate: generate,
		breaker:  resilience.NewCircuitBreaker(breakerFailures, breakerTimeout),
	}
}

// Generate sends prompt as a single user turn.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	var resp *genai.GenerateContentResponse
	err := g.breaker.Execute(func() error {
		var callErr error
		resp, callErr = g.generate(ctx, g.model, genai.Text(prompt))
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return geminiText(resp)
}

// geminiText extracts the first candidate's text, reporting safety blocks.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errEmptyResponse
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return "", fmt.Errorf("prompt blocked (%s): %w", fb.BlockReason, pipeline.ErrContentBlocked)
	}

	if len(resp.Candidates) == 0 {
		return "", errEmptyResponse
	}

	candidate := resp.Candidates[0]
	if blockedFinishReasons[candidate.FinishReason] {
		return "", fmt.Errorf("finish reason %s: %w", candidate.FinishReason, pipeline.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", errEmptyResponse
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", errEmptyResponse
	}
	return sb.String(), nil
}

// CircuitOpen reports whether recent upstream failures opened the breaker.
func (g *Gemini) CircuitOpen() bool {
	return g.breaker.GetState() == resilience.StateOpen
}
