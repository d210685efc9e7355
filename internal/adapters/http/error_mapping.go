package httpadapter

import (
	"context"
	"errors"
	"net/http"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is the stable machine-readable code sent next to the message.
func errorCode(err error) string {
	switch domain.KindName(err) {
	case "invalid_input":
		return "invalid_input"
	case "configuration":
		return "configuration_error"
	case "not_found":
		return "not_found"
	case "unauthorized":
		return "unauthorized"
	case "temporary":
		return "temporarily_unavailable"
	case "timeout":
		return "timeout"
	default:
		return "internal_error"
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError && !domain.IsKind(err, domain.ErrConfiguration) {
		message = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: message, Code: errorCode(err)})
}

func writeErrorMessage(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}
