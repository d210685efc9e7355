package ollama

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
	"github.com/kirillkom/theo-assistant/internal/infrastructure/resilience"
)

// Temperatures per task: extraction and checklists want stable output, prose can vary.
var taskTemperature = map[domain.GenerationTask]float64{
	domain.TaskExtract:   0,
	domain.TaskChecklist: 0.2,
	domain.TaskRationale: 0.4,
	domain.TaskDocument:  0.3,
	domain.TaskEmpathy:   0.7,
	domain.TaskChat:      0.6,
}

type Config struct {
	BaseURL     string
	Model       string
	HTTPTimeout time.Duration
}

// Client implements ports.TextGenerator over the Ollama /api/generate endpoint.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultPolicy(), nil)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system,omitempty"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if c.baseURL == "" || c.model == "" {
		return "", domain.WrapError(domain.ErrConfiguration, "ollama generate", errors.New("base url and model are required"))
	}

	body := generateRequest{
		Model:   c.model,
		System:  req.System,
		Prompt:  req.Prompt,
		Stream:  false,
		Options: map[string]any{"temperature": taskTemperature[req.Task]},
	}
	if req.JSON {
		body.Format = "json"
	}

	var text string
	operation := "ollama.generate." + string(req.Task)
	err := c.executor.Execute(ctx, operation, func(callCtx context.Context) error {
		var response struct {
			Response string `json:"response"`
		}
		if err := c.postJSON(callCtx, "/api/generate", body, &response, "generate"); err != nil {
			return err
		}
		text = strings.TrimSpace(response.Response)
		return nil
	}, classifyOllamaError)
	if err != nil {
		return "", wrapTemporaryIfNeeded(operation, err)
	}
	if text == "" {
		return "", domain.WrapError(domain.ErrTemporary, operation, errors.New("empty response"))
	}
	return text, nil
}
