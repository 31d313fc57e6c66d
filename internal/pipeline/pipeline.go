package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"brevio/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxDurationSeconds is the longest audio the pipeline accepts.
const MaxDurationSeconds = 1800

// Fixed collaborator settings.
const (
	AudioFormat = "bestaudio[ext=webm]/bestaudio"
	AudioCodec  = "opus"
)

// DefaultRecognitionConfig is sent with every recognition call.
var DefaultRecognitionConfig = RecognitionConfig{
	Encoding:                   "WEBM_OPUS",
	SampleRateHertz:            48000,
	LanguageCode:               "en-US",
	EnableAutomaticPunctuation: true,
}

var safeRequestID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

type requestIDKey struct{}

// WithRequestID attaches the id used for logging and as the scoped work directory prefix.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// NormalizeRequestID returns id when it is safe to use as a directory name,
// otherwise a fresh UUID.
func NormalizeRequestID(id string) string {
	if !safeRequestID.MatchString(id) {
		return uuid.New().String()
	}
	return id
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return NormalizeRequestID(id)
}

// Config holds the collaborators a Pipeline is built from.
type Config struct {
	WorkDir    string
	Extractor  MediaExtractor
	Recognizer RecognizerHandle
	Generator  GeneratorHandle
}

// Result is a successful summarization.
type Result struct {
	RequestID            string
	Summary              string
	Transcript           string
	AudioDurationSeconds float64
}

// Pipeline turns a media URL into a transcript and its summary.
type Pipeline struct {
	workDir    string
	extractor  MediaExtractor
	recognizer RecognizerHandle
	generator  GeneratorHandle
}

// New creates a pipeline. Collaborator handles are fixed for its lifetime.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Extractor == nil {
		return nil, errors.New("media extractor is required")
	}
	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "brevio")
	}
	return &Pipeline{
		workDir:    workDir,
		extractor:  cfg.Extractor,
		recognizer: cfg.Recognizer,
		generator:  cfg.Generator,
	}, nil
}

// RecognizerReady reports whether transcription can run and its breaker is not open.
func (p *Pipeline) RecognizerReady() bool {
	return p.recognizer.Ready() == nil && !circuitOpen(p.recognizer.recognizer)
}

// GeneratorReady reports whether summarization can run and its breaker is not open.
func (p *Pipeline) GeneratorReady() bool {
	return p.generator.Ready() == nil && !circuitOpen(p.generator.generator)
}

// Summarize runs every stage for url. Any returned error is a *Error.
// The request directory is removed before Summarize returns.
func (p *Pipeline) Summarize(ctx context.Context, url string) (*Result, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, InvalidRequest(MsgMissingURL)
	}

	requestID := requestIDFrom(ctx)
	log := logger.With(zap.String("request_id", requestID), zap.String("url", url))
	started := time.Now()

	dir, err := p.createRequestDir(requestID)
	if err != nil {
		log.Error("Failed to create request directory", zap.Error(err))
		return nil, unexpected(err)
	}
	defer p.cleanup(log, dir)

	audioPath, duration, pErr := p.acquireAudio(ctx, log, url, dir)
	if pErr != nil {
		return nil, pErr
	}

	transcript, pErr := p.transcribe(ctx, log, audioPath)
	if pErr != nil {
		return nil, pErr
	}

	summary, pErr := p.summarize(ctx, log, transcript)
	if pErr != nil {
		return nil, pErr
	}

	log.Info("Summarization completed",
		zap.Float64("duration_seconds", duration),
		zap.Int("transcript_length", len(transcript)),
		zap.Int("summary_length", len(summary)),
		zap.Duration("elapsed", time.Since(started)))

	return &Result{
		RequestID:            requestID,
		Summary:              summary,
		Transcript:           transcript,
		AudioDurationSeconds: duration,
	}, nil
}

func (p *Pipeline) createRequestDir(requestID string) (string, error) {
	if err := os.MkdirAll(p.workDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}
	// Clients may repeat an id, so the suffix keeps each directory private.
	dir, err := os.MkdirTemp(p.workDir, requestID+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create request dir: %w", err)
	}
	return dir, nil
}

func (p *Pipeline) cleanup(log *zap.Logger, dir string) {
	if err := os.RemoveAll(dir); err != nil {
		log.Warn("Failed to remove request directory", zap.String("dir", dir), zap.Error(err))
		return
	}
	log.Debug("Request directory removed", zap.String("dir", dir))
}

func (p *Pipeline) acquireAudio(ctx context.Context, log *zap.Logger, url, dir string) (string, float64, *Error) {
	log.Info("Downloading audio")

	res, err := p.extractor.Extract(ctx, url, ExtractOptions{
		Format:     AudioFormat,
		AudioCodec: AudioCodec,
		NoPlaylist: true,
		OutputPath: filepath.Join(dir, AudioFileName),
	})
	if err != nil {
		log.Error("Audio download failed", zap.Error(err))
		return "", 0, downloadFailed(err)
	}

	if res != nil && res.DurationSeconds > MaxDurationSeconds {
		log.Warn("Audio too long", zap.Float64("duration_seconds", res.DurationSeconds))
		return "", 0, newError(KindDurationExceeded, MsgDurationExceeded, nil)
	}

	path, ok := LocateArtifact(dir, res)
	if !ok {
		log.Error("Audio artifact not found", zap.String("dir", dir))
		return "", 0, newError(KindAudioNotFound, MsgAudioNotFound, nil)
	}

	var duration float64
	if res != nil {
		duration = res.DurationSeconds
	}
	log.Info("Audio downloaded",
		zap.String("path", path),
		zap.Float64("duration_seconds", duration))

	return path, duration, nil
}

func (p *Pipeline) transcribe(ctx context.Context, log *zap.Logger, audioPath string) (string, *Error) {
	if err := p.recognizer.Ready(); err != nil {
		log.Error("Speech recognizer unavailable", zap.Error(err))
		return "", newError(KindTranscriptionUnavailable, MsgTranscriptionUnavailable, err)
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		log.Error("Failed to read audio artifact", zap.Error(err))
		return "", unexpected(fmt.Errorf("failed to read audio: %w", err))
	}

	log.Info("Transcribing audio", zap.Int("size", len(audio)))

	results, err := p.recognizer.recognizer.Recognize(ctx, audio, DefaultRecognitionConfig)
	if err != nil {
		log.Error("Speech recognition failed", zap.Error(err))
		return "", unexpected(err)
	}

	transcript := JoinTranscript(results)
	if strings.TrimSpace(transcript) == "" {
		log.Warn("Empty transcript", zap.Int("results", len(results)))
		return "", newError(KindEmptyTranscript, MsgEmptyTranscript, nil)
	}

	log.Info("Transcription completed", zap.Int("text_length", len(transcript)))
	return transcript, nil
}

func (p *Pipeline) summarize(ctx context.Context, log *zap.Logger, transcript string) (string, *Error) {
	if err := p.generator.Ready(); err != nil {
		log.Error("Text generator unavailable", zap.Error(err))
		return "", newError(KindSummarizerUnavailable, MsgSummarizerUnavailable, err)
	}

	log.Info("Generating summary")

	summary, err := p.generator.generator.Generate(ctx, BuildPrompt(transcript))
	if err != nil {
		if errors.Is(err, ErrContentBlocked) {
			log.Warn("Summary blocked by safety settings", zap.Error(err))
			return "", newError(KindContentBlocked, MsgContentBlocked, err)
		}
		log.Error("Summary generation failed", zap.Error(err))
		return "", summarizationFailed(err)
	}

	return summary, nil
}
