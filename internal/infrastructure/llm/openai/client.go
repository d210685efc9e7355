package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
	"github.com/kirillkom/theo-assistant/internal/infrastructure/resilience"
)

const defaultModel = "gpt-4o-mini"

var taskTemperature = map[domain.GenerationTask]float64{
	domain.TaskExtract:   0,
	domain.TaskChecklist: 0.2,
	domain.TaskRationale: 0.4,
	domain.TaskDocument:  0.3,
	domain.TaskEmpathy:   0.7,
	domain.TaskChat:      0.6,
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	HTTPTimeout time.Duration
}

// Client implements ports.TextGenerator with the chat completions API.
// SDK retries are disabled; the resilience executor owns retry and breaking.
type Client struct {
	client   openai.Client
	model    string
	hasKey   bool
	executor *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultPolicy(), nil)
	}
	return &Client{
		client:   openai.NewClient(opts...),
		model:    model,
		hasKey:   strings.TrimSpace(cfg.APIKey) != "",
		executor: executor,
	}
}

func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if !c.hasKey {
		return "", domain.WrapError(domain.ErrConfiguration, "openai generate", errors.New("api key is not set"))
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(taskTemperature[req.Task]),
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	var text string
	operation := "openai.generate." + string(req.Task)
	err := c.executor.Execute(ctx, operation, func(callCtx context.Context) error {
		resp, err := c.client.Chat.Completions.New(callCtx, params)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return domain.WrapError(domain.ErrTemporary, operation, errors.New("no choices returned"))
		}
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	}, classifyError)
	if err != nil {
		return "", mapError(operation, err)
	}
	if text == "" {
		return "", domain.WrapError(domain.ErrTemporary, operation, errors.New("empty response"))
	}
	return text, nil
}

func classifyError(err error) resilience.ErrorClassification {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return resilience.ClassifyStatus(apiErr.StatusCode)
	}
	return resilience.ClassifyTransport(err)
}

// mapError turns provider failures into domain kinds. A rejected key means there is
// no usable credential, which the pipeline reports as a configuration error.
func mapError(operation string, err error) error {
	if domain.IsKind(err, domain.ErrTemporary) || domain.IsKind(err, domain.ErrConfiguration) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return domain.WrapError(domain.ErrConfiguration, operation, err)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return domain.WrapError(domain.ErrInvalidInput, operation, err)
		}
	}
	if classifyError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
