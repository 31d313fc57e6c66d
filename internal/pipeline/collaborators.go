package pipeline

import (
	"context"
	"errors"
)

// ErrContentBlocked marks a generator refusal caused by content-safety policy.
// Generator adapters wrap it so the pipeline can tell refusals from failures.
var ErrContentBlocked = errors.New("content blocked by safety policy")

var errNotConfigured = errors.New("collaborator not configured")

// ExtractOptions configures one media extraction.
type ExtractOptions struct {
	Format     string
	AudioCodec string
	NoPlaylist bool
	OutputPath string
}

// ExtractResult is what the media extractor reports about the item it fetched.
type ExtractResult struct {
	// FilePath is the path the extractor planned to write before post-processing.
	FilePath        string
	DurationSeconds float64
	ContainerExt    string
}

// MediaExtractor downloads the audio track of a single media item.
type MediaExtractor interface {
	Extract(ctx context.Context, url string, opts ExtractOptions) (*ExtractResult, error)
}

// RecognitionConfig is the fixed recognition setup sent with every request.
type RecognitionConfig struct {
	Encoding                   string
	SampleRateHertz            int32
	LanguageCode               string
	EnableAutomaticPunctuation bool
}

// Alternative is one ranked transcription hypothesis.
type Alternative struct {
	Transcript string
	Confidence float32
}

// RecognitionResult holds the ranked alternatives for one audio segment.
type RecognitionResult struct {
	Alternatives []Alternative
}

// SpeechRecognizer turns audio bytes into recognition results.
type SpeechRecognizer interface {
	Recognize(ctx context.Context, audio []byte, cfg RecognitionConfig) ([]RecognitionResult, error)
}

// TextGenerator produces text for a single prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// circuitReporter is implemented by collaborators guarded by a circuit breaker.
type circuitReporter interface {
	CircuitOpen() bool
}

func circuitOpen(collaborator interface{}) bool {
	r, ok := collaborator.(circuitReporter)
	return ok && r.CircuitOpen()
}

// RecognizerHandle is a process-wide recognizer that may have failed to initialize.
type RecognizerHandle struct {
	recognizer SpeechRecognizer
	initErr    error
}

// RecognizerReady wraps an initialized recognizer.
func RecognizerReady(r SpeechRecognizer) RecognizerHandle {
	return RecognizerHandle{recognizer: r}
}

// RecognizerUnavailable records why the recognizer could not be initialized.
func RecognizerUnavailable(reason error) RecognizerHandle {
	if reason == nil {
		reason = errNotConfigured
	}
	return RecognizerHandle{initErr: reason}
}

// Ready reports nil when the recognizer can be used.
func (h RecognizerHandle) Ready() error {
	if h.initErr != nil {
		return h.initErr
	}
	if h.recognizer == nil {
		return errNotConfigured
	}
	return nil
}

// GeneratorHandle is a process-wide generator that may have failed to initialize.
type GeneratorHandle struct {
	generator TextGenerator
	initErr   error
}

// GeneratorReady wraps an initialized generator.
func GeneratorReady(g TextGenerator) GeneratorHandle {
	return GeneratorHandle{generator: g}
}

// GeneratorUnavailable records why the generator could not be initialized.
func GeneratorUnavailable(reason error) GeneratorHandle {
	if reason == nil {
		reason = errNotConfigured
	}
	return GeneratorHandle{initErr: reason}
}

// Ready reports nil when the generator can be used.
func (h GeneratorHandle) Ready() error {
	if h.initErr != nil {
		return h.initErr
	}
	if h.generator == nil {
		return errNotConfigured
	}
	return nil
}
