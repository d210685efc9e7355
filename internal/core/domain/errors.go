package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrTemporary     = errors.New("temporary failure")
	ErrConfiguration = errors.New("configuration error")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// KindName returns a stable label for the semantic kind carried by err.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case IsKind(err, ErrInvalidInput):
		return "invalid_input"
	case IsKind(err, ErrConfiguration):
		return "configuration"
	case IsKind(err, ErrNotFound):
		return "not_found"
	case IsKind(err, ErrUnauthorized):
		return "unauthorized"
	case IsKind(err, ErrTemporary):
		return "temporary"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}

// KindFromName is the inverse of KindName for errors crossing a process boundary.
func KindFromName(name string) error {
	switch name {
	case "invalid_input":
		return ErrInvalidInput
	case "configuration":
		return ErrConfiguration
	case "not_found":
		return ErrNotFound
	case "unauthorized":
		return ErrUnauthorized
	case "temporary":
		return ErrTemporary
	case "timeout":
		return context.DeadlineExceeded
	default:
		return nil
	}
}
