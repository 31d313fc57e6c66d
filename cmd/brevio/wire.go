package main

import (
	"context"
	"fmt"
	"time"

	"brevio/internal/config"
	"brevio/internal/generator"
	"brevio/internal/media"
	"brevio/internal/pipeline"
	"brevio/internal/queue"
	"brevio/internal/server"
	"brevio/internal/speech"
	"brevio/internal/storage"
	"brevio/pkg/cache"
	"brevio/pkg/logger"
	"brevio/pkg/resilience"

	"go.uber.org/zap"
)

// cleanups runs registered release functions in reverse order.
type cleanups []func()

func (c *cleanups) add(fn func()) {
	*c = append(*c, fn)
}

func (c cleanups) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func buildPipeline(ctx context.Context, cfg *config.Config, release *cleanups) (*pipeline.Pipeline, error) {
	p, err := pipeline.New(pipeline.Config{
		WorkDir:    cfg.Media.WorkDir,
		Extractor:  media.NewYtDlp(cfg.Media.YtDlpBinary),
		Recognizer: buildRecognizer(ctx, cfg, release),
		Generator:  buildGenerator(ctx, cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	return p, nil
}

func buildRecognizer(ctx context.Context, cfg *config.Config, release *cleanups) pipeline.RecognizerHandle {
	client, err := speech.NewClient(ctx, cfg.Speech.CredentialsFile)
	if err != nil {
		logger.Warn("Speech-to-Text unavailable, transcription requests will fail", zap.Error(err))
		return pipeline.RecognizerUnavailable(err)
	}
	release.add(func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close speech client", zap.Error(err))
		}
	})
	return pipeline.RecognizerReady(client)
}

func buildGenerator(ctx context.Context, cfg *config.Config) pipeline.GeneratorHandle {
	var (
		gen pipeline.TextGenerator
		err error
	)

	switch cfg.Generator.Provider {
	case config.ProviderOpenAI:
		gen, err = generator.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	default:
		gen, err = generator.NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	}

	if err != nil {
		logger.Warn("Text generator unavailable, summarization requests will fail",
			zap.String("provider", cfg.Generator.Provider),
			zap.Error(err))
		return pipeline.GeneratorUnavailable(err)
	}
	return pipeline.GeneratorReady(gen)
}

// buildServerOptions connects the optional integrations. Any that fail to
// connect are disabled with a warning.
func buildServerOptions(ctx context.Context, cfg *config.Config, release *cleanups) server.Options {
	opts := server.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		BodyLimit:   cfg.Server.BodyLimit,
		Limiter:     buildLimiter(cfg, release),
	}

	if cfg.Postgres.DSN != "" {
		db, err := storage.NewPostgresStorage(ctx, cfg.Postgres.DSN, cfg.Postgres.MigrationsDir)
		if err != nil {
			logger.Warn("Request journal disabled", zap.Error(err))
		} else {
			release.add(db.Close)
			opts.Journal = db
		}
	}

	if cfg.RabbitMQ.URL != "" {
		mq, err := queue.NewRabbitMQ(cfg.RabbitMQ.URL)
		if err != nil {
			logger.Warn("Summary events disabled", zap.Error(err))
		} else {
			release.add(func() { _ = mq.Close() })
			opts.Events = mq
		}
	}

	return opts
}

func buildLimiter(cfg *config.Config, release *cleanups) resilience.Limiter {
	if cfg.RateLimit.Requests <= 0 {
		logger.Info("Rate limiting disabled")
		return nil
	}

	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err == nil {
			release.add(func() { _ = redisCache.Close() })
			logger.Info("Using Redis rate limiter",
				zap.Int("requests", cfg.RateLimit.Requests),
				zap.Duration("window", cfg.RateLimit.Window))
			return resilience.NewWindowLimiter(redisCache, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		}
		logger.Warn("Redis unavailable, falling back to in-memory rate limiter", zap.Error(err))
	}

	// One token per window/requests so a full bucket spans exactly one window.
	interval := cfg.RateLimit.Window / time.Duration(cfg.RateLimit.Requests)
	if interval <= 0 {
		interval = time.Millisecond
	}
	return resilience.NewRateLimiter(cfg.RateLimit.Requests, interval)
}
