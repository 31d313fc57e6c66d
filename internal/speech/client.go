package speech

import (
	"context"
	"errors"
	"fmt"
	"time"

	"brevio/internal/pipeline"
	"brevio/pkg/logger"
	"brevio/pkg/resilience"

	speechapi "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
)

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// Client is a Google Cloud Speech-to-Text recognizer.
type Client struct {
	recognize recognizeFunc
	close     func() error
	breaker   *resilience.CircuitBreaker
}

// NewClient connects to Speech-to-Text. An empty credentialsFile uses
// Application Default Credentials.
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	sc, err := speechapi.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	logger.Info("Speech-to-Text client initialized")

	return newClient(
		func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			return sc.Recognize(ctx, req)
		},
		sc.Close,
	), nil
}

func newClient(recognize recognizeFunc, closeFn func() error) *Client {
	return &Client{
		recognize: recognize,
		close:     closeFn,
		breaker:   resilience.NewCircuitBreaker(breakerFailures, breakerTimeout),
	}
}

// Recognize runs synchronous recognition over the whole audio payload.
func (c *Client) Recognize(ctx context.Context, audio []byte, cfg pipeline.RecognitionConfig) ([]pipeline.RecognitionResult, error) {
	req, err := buildRequest(audio, cfg)
	if err != nil {
		return nil, err
	}

	var resp *speechpb.RecognizeResponse
	err = c.breaker.Execute(func() error {
		var callErr error
		resp, callErr = c.recognize(ctx, req)
		return callErr
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			logger.Warn("Speech-to-Text circuit open")
		}
		return nil, fmt.Errorf("failed to recognize speech: %w", err)
	}

	results := convertResults(resp)
	logger.Debug("Speech recognized", zap.Int("results", len(results)))
	return results, nil
}

// CircuitOpen reports whether recent upstream failures opened the breaker.
func (c *Client) CircuitOpen() bool {
	return c.breaker.GetState() == resilience.StateOpen
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

func buildRequest(audio []byte, cfg pipeline.RecognitionConfig) (*speechpb.RecognizeRequest, error) {
	encoding, ok := speechpb.RecognitionConfig_AudioEncoding_value[cfg.Encoding]
	if !ok {
		return nil, fmt.Errorf("unsupported audio encoding %q", cfg.Encoding)
	}

	return &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_AudioEncoding(encoding),
			SampleRateHertz:            cfg.SampleRateHertz,
			LanguageCode:               cfg.LanguageCode,
			EnableAutomaticPunctuation: cfg.EnableAutomaticPunctuation,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}, nil
}

func convertResults(resp *speechpb.RecognizeResponse) []pipeline.RecognitionResult {
	if resp == nil {
		return nil
	}

	results := make([]pipeline.RecognitionResult, 0, len(resp.GetResults()))
	for _, r := range resp.GetResults() {
		alts := make([]pipeline.Alternative, 0, len(r.GetAlternatives()))
		for _, a := range r.GetAlternatives() {
			alts = append(alts, pipeline.Alternative{
				Transcript: a.GetTranscript(),
				Confidence: a.GetConfidence(),
			})
		}
		results = append(results, pipeline.RecognitionResult{Alternatives: alts})
	}
	return results
}
