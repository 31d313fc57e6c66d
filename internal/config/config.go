package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"brevio/pkg/logger"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const DefaultPath = "configs/config.yaml"

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Server struct {
		Addr        string   `yaml:"addr" env:"SERVER_ADDR" env-default:":5000"`
		CORSOrigins []string `yaml:"cors_origins" env:"SERVER_CORS_ORIGINS" env-default:"*"`
		BodyLimit   int      `yaml:"body_limit" env:"SERVER_BODY_LIMIT" env-default:"1048576"`
	} `yaml:"server"`

	Log struct {
		Debug bool `yaml:"debug" env:"LOG_DEBUG" env-default:"false"`
	} `yaml:"log"`

	Media struct {
		YtDlpBinary string `yaml:"ytdlp_binary" env:"YTDLP_BINARY" env-default:"yt-dlp"`
		WorkDir     string `yaml:"work_dir" env:"MEDIA_WORK_DIR"`
	} `yaml:"media"`

	Speech struct {
		CredentialsFile string `yaml:"credentials_file" env:"GOOGLE_APPLICATION_CREDENTIALS"`
	} `yaml:"speech"`

	Generator struct {
		Provider string `yaml:"provider" env:"GENERATOR_PROVIDER" env-default:"gemini"`
	} `yaml:"generator"`

	Gemini struct {
		APIKey string `yaml:"api_key" env:"GEMINI_API_KEY"`
		Model  string `yaml:"model" env:"GEMINI_MODEL" env-default:"gemini-1.5-pro-latest"`
	} `yaml:"gemini"`

	OpenAI struct {
		APIKey string `yaml:"api_key" env:"OPENAI_API_KEY"`
		Model  string `yaml:"model" env:"OPENAI_MODEL" env-default:"gpt-4o-mini"`
	} `yaml:"openai"`

	Postgres struct {
		DSN           string `yaml:"dsn" env:"POSTGRES_DSN"`
		MigrationsDir string `yaml:"migrations_dir" env:"POSTGRES_MIGRATIONS_DIR" env-default:"migrations"`
	} `yaml:"postgres"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
		DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	} `yaml:"redis"`

	RabbitMQ struct {
		URL string `yaml:"url" env:"RABBITMQ_URL"`
	} `yaml:"rabbitmq"`

	RateLimit struct {
		Requests int           `yaml:"requests" env:"RATE_LIMIT_REQUESTS" env-default:"30"`
		Window   time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW" env-default:"1m"`
	} `yaml:"rate_limit"`
}

// LoadConfig reads the YAML file at path (if it exists) and overlays the environment.
// A .env file in the working directory is loaded first.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath
	}

	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("Config loaded successfully", zap.String("path", path))
	return &cfg, nil
}

// Validate fills gaps left by an incomplete file and rejects unusable values.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		c.Server.Addr = ":5000"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Server.BodyLimit <= 0 {
		c.Server.BodyLimit = 1 << 20
	}
	if c.Media.YtDlpBinary == "" {
		c.Media.YtDlpBinary = "yt-dlp"
	}
	if c.Generator.Provider == "" {
		c.Generator.Provider = ProviderGemini
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-1.5-pro-latest"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Postgres.MigrationsDir == "" {
		c.Postgres.MigrationsDir = "migrations"
	}

	switch c.Generator.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown generator provider %q", c.Generator.Provider)
	}

	if c.RateLimit.Requests < 0 {
		return fmt.Errorf("rate_limit.requests must not be negative")
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		c.RateLimit.Window = time.Minute
	}

	return nil
}

// GeneratorAPIKey returns the key of the selected provider.
func (c *Config) GeneratorAPIKey() string {
	if c.Generator.Provider == ProviderOpenAI {
		return c.OpenAI.APIKey
	}
	return c.Gemini.APIKey
}
