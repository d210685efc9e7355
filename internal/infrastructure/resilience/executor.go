package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
)

type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

// CallObserver receives retry and breaker events, keyed by operation and provider.
type CallObserver interface {
	ObserveRetry(operation string)
	ObserveBreakerState(provider, state string)
}

// Executor runs provider calls under a Policy. Operations are named
// "<provider>.<action>[.<task>]"; every task of one provider shares a breaker,
// so an outage trips once instead of once per pipeline stage.
type Executor struct {
	policy   Policy
	observer CallObserver

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewExecutor(policy Policy, observer CallObserver) *Executor {
	return &Executor{
		policy:   policy.withDefaults(),
		observer: observer,
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

func (e *Executor) Execute(ctx context.Context, operation string, fn func(context.Context) error, classify ErrorClassifier) error {
	if fn == nil {
		return fmt.Errorf("resilience: nil call for %q", operation)
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unnamed"
	}
	if classify == nil {
		classify = failFast
	}

	if !e.policy.Breaker.Enabled {
		return e.retry(ctx, op, fn, classify)
	}
	provider := providerOf(op)
	_, err := e.breaker(provider, classify).Execute(func() (struct{}, error) {
		return struct{}{}, e.retry(ctx, op, fn, classify)
	})
	if IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, provider+" circuit", err)
	}
	return err
}

func (e *Executor) retry(ctx context.Context, op string, fn func(context.Context) error, classify ErrorClassifier) error {
	attempts := e.policy.Retry.MaxAttempts
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := e.attempt(ctx, fn)
		if err == nil || attempt >= attempts || !classify(err).Retryable {
			return err
		}

		wait := e.policy.Retry.backoff(attempt)
		slog.Warn("provider_call_retry",
			"operation", op,
			"attempt", attempt,
			"max_attempts", attempts,
			"backoff_ms", wait.Milliseconds(),
			"error_kind", domain.KindName(err),
			"error", err.Error(),
		)
		if e.observer != nil {
			e.observer.ObserveRetry(op)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

// attempt marks a call cut by AttemptTimeout as temporary; the caller's own
// deadline is returned untouched.
func (e *Executor) attempt(ctx context.Context, fn func(context.Context) error) error {
	if e.policy.AttemptTimeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, e.policy.AttemptTimeout)
	defer cancel()
	err := fn(attemptCtx)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrTemporary, "provider attempt timeout", err)
	}
	return err
}

func (e *Executor) breaker(provider string, classify ErrorClassifier) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, ok := e.breakers[provider]; ok {
		return cb
	}
	bp := e.policy.Breaker
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        provider,
		MaxRequests: bp.HalfOpenCalls,
		Timeout:     bp.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= bp.MinRequests &&
				float64(counts.TotalFailures) >= bp.FailureRatio*float64(counts.Requests)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classify(err).RecordFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("provider_breaker_state", "provider", name, "from", from.String(), "to", to.String())
			if e.observer != nil {
				e.observer.ObserveBreakerState(name, to.String())
			}
		},
	})
	e.breakers[provider] = cb
	return cb
}

// providerOf keeps the first segment of an operation name: "ollama.generate.extract" -> "ollama".
func providerOf(operation string) string {
	provider, _, _ := strings.Cut(operation, ".")
	return provider
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func failFast(error) ErrorClassification {
	return ErrorClassification{Retryable: false, RecordFailure: true}
}
