package nats

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
)

const defaultRequestTimeout = 3 * time.Minute

type requestEnvelope struct {
	ReportText string `json:"report_text"`
}

type replyEnvelope struct {
	Result *domain.AggregateResult `json:"result,omitempty"`
	Error  *replyError             `json:"error,omitempty"`
}

type replyError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// remoteError keeps the worker's message while matching the original kind with errors.Is.
type remoteError struct {
	kind    error
	message string
}

func (e *remoteError) Error() string { return e.message }

func (e *remoteError) Unwrap() error { return e.kind }

func encodeRequest(reportText string) ([]byte, error) {
	if !utf8.ValidString(reportText) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "encode pipeline request", errors.New("report text is not valid UTF-8"))
	}
	return json.Marshal(requestEnvelope{ReportText: reportText})
}

func decodeRequest(data []byte) (string, error) {
	var req requestEnvelope
	if err := json.Unmarshal(data, &req); err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "decode pipeline request", err)
	}
	return req.ReportText, nil
}

func encodeReply(result *domain.AggregateResult, err error) []byte {
	env := replyEnvelope{Result: result}
	if err != nil {
		env = replyEnvelope{Error: &replyError{Kind: domain.KindName(err), Message: err.Error()}}
	}
	data, marshalErr := json.Marshal(env)
	if marshalErr != nil {
		data, _ = json.Marshal(replyEnvelope{Error: &replyError{Kind: "internal", Message: marshalErr.Error()}})
	}
	return data
}

func decodeReply(data []byte) (*domain.AggregateResult, error) {
	var env replyEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "decode pipeline reply", err)
	}
	if env.Error != nil {
		kind := domain.KindFromName(env.Error.Kind)
		if kind == nil {
			return nil, fmt.Errorf("remote pipeline: %s", env.Error.Message)
		}
		return nil, &remoteError{kind: kind, message: env.Error.Message}
	}
	if env.Result == nil {
		return nil, domain.WrapError(domain.ErrTemporary, "decode pipeline reply", errors.New("reply carries neither result nor error"))
	}
	return env.Result, nil
}
