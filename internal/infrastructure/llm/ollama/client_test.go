package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
	"github.com/kirillkom/theo-assistant/internal/infrastructure/resilience"
)

func testExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Policy{
		Retry: resilience.RetryPolicy{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
	}, nil)
}

func TestGenerateSendsTaskOptions(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"  {\"items\":[]}  "}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL + "/", Model: "llama3.1"}, testExecutor())
	out, err := client.Generate(context.Background(), domain.GenerationRequest{
		Task:   domain.TaskChecklist,
		System: "sys",
		Prompt: "benefit?",
		JSON:   true,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != `{"items":[]}` {
		t.Fatalf("unexpected output %q", out)
	}
	if payload["model"] != "llama3.1" || payload["format"] != "json" || payload["system"] != "sys" || payload["stream"] != false {
		t.Fatalf("unexpected payload: %v", payload)
	}
	options, _ := payload["options"].(map[string]any)
	if options["temperature"] != 0.2 {
		t.Fatalf("unexpected options: %v", options)
	}
}

func TestGenerateOmitsFormatForProse(t *testing.T) {
	var raw string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		b, _ := json.Marshal(payload)
		raw = string(b)
		_, _ = w.Write([]byte(`{"response":"Olá"}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Model: "m"}, testExecutor())
	if _, err := client.Generate(context.Background(), domain.GenerationRequest{Task: domain.TaskEmpathy, Prompt: "p"}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Contains(raw, `"format"`) {
		t.Fatalf("format must be omitted for prose: %s", raw)
	}
}

func TestGenerateRetriesServerErrorsAndIncludesBody(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Model: "m"}, testExecutor())
	_, err := client.Generate(context.Background(), domain.GenerationRequest{Task: domain.TaskRationale, Prompt: "p"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestGenerateDoesNotRetryBadRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad prompt", http.StatusBadRequest)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Model: "m"}, testExecutor())
	_, err := client.Generate(context.Background(), domain.GenerationRequest{Task: domain.TaskDocument, Prompt: "p"})
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 attempt, got %d", calls.Load())
	}
}

func TestGenerateMissingModelIsConfigurationError(t *testing.T) {
	client := New(Config{BaseURL: "http://localhost:11434"}, testExecutor())
	_, err := client.Generate(context.Background(), domain.GenerationRequest{Task: domain.TaskChat, Prompt: "p"})
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestGenerateUnknownModelIsConfigurationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model 'x' not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Model: "x"}, testExecutor())
	_, err := client.Generate(context.Background(), domain.GenerationRequest{Task: domain.TaskExtract, Prompt: "p"})
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestGenerateEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"   "}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Model: "m"}, testExecutor())
	_, err := client.Generate(context.Background(), domain.GenerationRequest{Task: domain.TaskEmpathy, Prompt: "p"})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}
