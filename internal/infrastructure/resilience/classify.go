package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
)

// ClassifyStatus decides how an HTTP status from a text-generation provider is handled.
// Throttling and server errors are retried; auth and request errors are not.
func ClassifyStatus(status int) ErrorClassification {
	switch {
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		return ErrorClassification{Retryable: true, RecordFailure: true}
	case status >= 500:
		return ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return ErrorClassification{Retryable: false, RecordFailure: false}
	}
}

// ClassifyTransport handles errors that carry no HTTP status.
func ClassifyTransport(err error) ErrorClassification {
	switch {
	case err == nil:
		return ErrorClassification{}
	case errors.Is(err, context.Canceled):
		return ErrorClassification{Retryable: false, RecordFailure: false}
	case domain.IsKind(err, domain.ErrConfiguration), domain.IsKind(err, domain.ErrInvalidInput):
		return ErrorClassification{Retryable: false, RecordFailure: false}
	case domain.IsKind(err, domain.ErrTemporary), errors.Is(err, context.DeadlineExceeded):
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return ErrorClassification{Retryable: false, RecordFailure: true}
}
