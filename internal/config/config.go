package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
	"github.com/kirillkom/theo-assistant/internal/infrastructure/resilience"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	ModeLocal = "local"
	ModeNATS  = "nats"
)

type Config struct {
	APIPort  string
	LogLevel string

	LLMProvider           string
	OllamaURL             string
	OllamaGenModel        string
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	OpenAIModel           string
	LLMCallTimeoutSeconds int

	PipelineTimeoutSeconds int
	PipelineConcurrency    int
	PipelineMode           string
	CatalogPath            string

	NATSURL     string
	NATSSubject string

	PostgresDSN string

	APIRateLimitRPS       float64
	APIRateLimitBurst     int
	APIMaxInFlight        int
	APIBackpressureWaitMS int
	MaxUploadBytes        int64

	RetryMaxAttempts          int
	BreakerEnabled            bool
	BreakerMinRequests        int
	BreakerFailureRatio       float64
	BreakerOpenTimeoutSeconds int

	WorkerMetricsPort string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		LLMProvider:           strings.ToLower(mustEnv("LLM_PROVIDER", ProviderOllama)),
		OllamaURL:             mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:        mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),
		OpenAIAPIKey:          mustEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:         mustEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:           mustEnv("OPENAI_MODEL", "gpt-4o-mini"),
		LLMCallTimeoutSeconds: mustEnvInt("LLM_CALL_TIMEOUT_SECONDS", 45),

		PipelineTimeoutSeconds: mustEnvInt("PIPELINE_TIMEOUT_SECONDS", 120),
		PipelineConcurrency:    mustEnvInt("PIPELINE_CONCURRENCY", 4),
		PipelineMode:           strings.ToLower(mustEnv("PIPELINE_MODE", ModeLocal)),
		CatalogPath:            mustEnv("CATALOG_PATH", ""),

		NATSURL:     mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject: mustEnv("NATS_SUBJECT", "theo.pipeline.process"),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		APIRateLimitRPS:       mustEnvFloat("API_RATE_LIMIT_RPS", 5),
		APIRateLimitBurst:     mustEnvInt("API_RATE_LIMIT_BURST", 10),
		APIMaxInFlight:        mustEnvInt("API_MAX_IN_FLIGHT", 16),
		APIBackpressureWaitMS: mustEnvInt("API_BACKPRESSURE_WAIT_MS", 250),
		MaxUploadBytes:        int64(mustEnvInt("MAX_UPLOAD_BYTES", 10<<20)),

		RetryMaxAttempts:          mustEnvInt("RETRY_MAX_ATTEMPTS", 3),
		BreakerEnabled:            mustEnvBool("BREAKER_ENABLED", true),
		BreakerMinRequests:        mustEnvInt("BREAKER_MIN_REQUESTS", 6),
		BreakerFailureRatio:       mustEnvFloat("BREAKER_FAILURE_RATIO", 0.5),
		BreakerOpenTimeoutSeconds: mustEnvInt("BREAKER_OPEN_TIMEOUT_SECONDS", 20),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

// LoadDotEnv reads .env style files into the environment. Missing files are ignored
// and variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Validate reports a configuration error when no usable text generation setup exists.
func (c Config) Validate() error {
	var problems []error
	switch c.LLMProvider {
	case ProviderOllama:
		if strings.TrimSpace(c.OllamaURL) == "" || strings.TrimSpace(c.OllamaGenModel) == "" {
			problems = append(problems, errors.New("OLLAMA_URL and OLLAMA_GEN_MODEL are required for the ollama provider"))
		}
	case ProviderOpenAI:
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			problems = append(problems, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
	default:
		problems = append(problems, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}
	switch c.PipelineMode {
	case ModeLocal:
	case ModeNATS:
		if strings.TrimSpace(c.NATSURL) == "" || strings.TrimSpace(c.NATSSubject) == "" {
			problems = append(problems, errors.New("NATS_URL and NATS_SUBJECT are required in nats mode"))
		}
	default:
		problems = append(problems, fmt.Errorf("unknown PIPELINE_MODE %q", c.PipelineMode))
	}
	if c.PipelineConcurrency <= 0 {
		problems = append(problems, errors.New("PIPELINE_CONCURRENCY must be positive"))
	}
	if len(problems) > 0 {
		return domain.WrapError(domain.ErrConfiguration, "validate config", errors.Join(problems...))
	}
	return nil
}

func (c Config) PipelineTimeout() time.Duration {
	if c.PipelineTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.PipelineTimeoutSeconds) * time.Second
}

func (c Config) LLMCallTimeout() time.Duration {
	if c.LLMCallTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.LLMCallTimeoutSeconds) * time.Second
}

func (c Config) BackpressureWait() time.Duration {
	return time.Duration(c.APIBackpressureWaitMS) * time.Millisecond
}

// Resilience derives the call policy shared by the providers and the NATS client.
// Non-positive values keep the policy defaults.
func (c Config) Resilience() resilience.Policy {
	out := resilience.DefaultPolicy()
	out.AttemptTimeout = c.LLMCallTimeout()
	if c.RetryMaxAttempts > 0 {
		out.Retry.MaxAttempts = c.RetryMaxAttempts
	}
	out.Breaker.Enabled = c.BreakerEnabled
	if c.BreakerMinRequests > 0 {
		out.Breaker.MinRequests = uint32(c.BreakerMinRequests)
	}
	if c.BreakerFailureRatio > 0 && c.BreakerFailureRatio <= 1 {
		out.Breaker.FailureRatio = c.BreakerFailureRatio
	}
	if c.BreakerOpenTimeoutSeconds > 0 {
		out.Breaker.OpenTimeout = time.Duration(c.BreakerOpenTimeoutSeconds) * time.Second
	}
	return out
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
