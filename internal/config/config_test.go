package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"LLM_PROVIDER", "PIPELINE_MODE", "PIPELINE_TIMEOUT_SECONDS", "PIPELINE_CONCURRENCY", "POSTGRES_DSN", "API_RATE_LIMIT_RPS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.LLMProvider != ProviderOllama {
		t.Fatalf("expected default provider ollama, got %q", cfg.LLMProvider)
	}
	if cfg.PipelineMode != ModeLocal {
		t.Fatalf("expected default mode local, got %q", cfg.PipelineMode)
	}
	if cfg.PipelineTimeout() != 120*time.Second {
		t.Fatalf("expected default timeout 120s, got %v", cfg.PipelineTimeout())
	}
	if cfg.PostgresDSN != "" {
		t.Fatalf("expected run audit disabled by default, got %q", cfg.PostgresDSN)
	}
	if cfg.APIRateLimitRPS != 5 {
		t.Fatalf("expected default rps 5, got %v", cfg.APIRateLimitRPS)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PIPELINE_CONCURRENCY", "8")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("BREAKER_ENABLED", "false")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("LLM_CALL_TIMEOUT_SECONDS", "10")
	t.Setenv("BREAKER_MIN_REQUESTS", "12")
	t.Setenv("BREAKER_FAILURE_RATIO", "1.5")
	t.Setenv("BREAKER_OPEN_TIMEOUT_SECONDS", "45")
	t.Setenv("MAX_UPLOAD_BYTES", "not-a-number")

	cfg := Load()
	if cfg.LLMProvider != ProviderOpenAI || cfg.PipelineConcurrency != 8 || cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("expected fallback upload limit, got %d", cfg.MaxUploadBytes)
	}
	res := cfg.Resilience()
	if res.Breaker.Enabled || res.Retry.MaxAttempts != 5 || res.AttemptTimeout != 10*time.Second {
		t.Fatalf("unexpected resilience policy: %+v", res)
	}
	if res.Breaker.MinRequests != 12 || res.Breaker.OpenTimeout != 45*time.Second {
		t.Fatalf("unexpected breaker policy: %+v", res.Breaker)
	}
	if res.Breaker.FailureRatio != 0.5 {
		t.Fatalf("expected out of range failure ratio to keep default, got %v", res.Breaker.FailureRatio)
	}
}

func TestValidateRejectsMissingCapability(t *testing.T) {
	cases := map[string]Config{
		"unknown provider": {LLMProvider: "bard", PipelineMode: ModeLocal, PipelineConcurrency: 1},
		"openai no key":    {LLMProvider: ProviderOpenAI, PipelineMode: ModeLocal, PipelineConcurrency: 1},
		"ollama no url":    {LLMProvider: ProviderOllama, OllamaGenModel: "m", PipelineMode: ModeLocal, PipelineConcurrency: 1},
		"unknown mode":     {LLMProvider: ProviderOpenAI, OpenAIAPIKey: "k", PipelineMode: "grpc", PipelineConcurrency: 1},
		"no concurrency":   {LLMProvider: ProviderOpenAI, OpenAIAPIKey: "k", PipelineMode: ModeLocal},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			err := cfg.Validate()
			if !domain.IsKind(err, domain.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("THEO_TEST_FROM_FILE=file\nTHEO_TEST_PRESET=file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("THEO_TEST_PRESET", "env")
	t.Cleanup(func() { os.Unsetenv("THEO_TEST_FROM_FILE") })

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("THEO_TEST_FROM_FILE"); got != "file" {
		t.Fatalf("expected value from file, got %q", got)
	}
	if got := os.Getenv("THEO_TEST_PRESET"); got != "env" {
		t.Fatalf("expected preset value to win, got %q", got)
	}
}
