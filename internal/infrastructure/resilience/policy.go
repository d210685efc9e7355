package resilience

import "time"

// Policy governs calls to text generation providers and to remote pipeline workers.
type Policy struct {
	// AttemptTimeout bounds one provider call. Zero leaves only the caller's deadline.
	AttemptTimeout time.Duration
	Retry          RetryPolicy
	Breaker        BreakerPolicy
}

type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// BreakerPolicy trips one breaker per provider once enough of its recent calls failed.
type BreakerPolicy struct {
	Enabled       bool
	MinRequests   uint32
	FailureRatio  float64
	OpenTimeout   time.Duration
	HalfOpenCalls uint32
}

// DefaultPolicy suits a local or hosted model answering in tens of seconds:
// backoff grows to a couple of seconds so a throttled provider can recover
// inside one pipeline run.
func DefaultPolicy() Policy {
	return Policy{
		AttemptTimeout: 45 * time.Second,
		Retry: RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: 250 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
			Multiplier:     2,
		},
		Breaker: BreakerPolicy{
			Enabled:       true,
			MinRequests:   6,
			FailureRatio:  0.5,
			OpenTimeout:   20 * time.Second,
			HalfOpenCalls: 1,
		},
	}
}

func (p Policy) withDefaults() Policy {
	out := p
	def := DefaultPolicy()

	if out.AttemptTimeout < 0 {
		out.AttemptTimeout = 0
	}

	r := &out.Retry
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = def.Retry.MaxAttempts
	}
	if r.InitialBackoff <= 0 {
		r.InitialBackoff = def.Retry.InitialBackoff
	}
	if r.MaxBackoff <= 0 {
		r.MaxBackoff = def.Retry.MaxBackoff
	}
	r.MaxBackoff = max(r.MaxBackoff, r.InitialBackoff)
	if r.Multiplier < 1 {
		r.Multiplier = def.Retry.Multiplier
	}

	b := &out.Breaker
	if b.MinRequests == 0 {
		b.MinRequests = def.Breaker.MinRequests
	}
	if b.FailureRatio <= 0 || b.FailureRatio > 1 {
		b.FailureRatio = def.Breaker.FailureRatio
	}
	if b.OpenTimeout <= 0 {
		b.OpenTimeout = def.Breaker.OpenTimeout
	}
	if b.HalfOpenCalls == 0 {
		b.HalfOpenCalls = def.Breaker.HalfOpenCalls
	}
	return out
}

// backoff returns the wait before the given retry, starting at 1.
func (r RetryPolicy) backoff(retry int) time.Duration {
	wait := float64(r.InitialBackoff)
	for i := 1; i < retry; i++ {
		wait *= r.Multiplier
		if wait >= float64(r.MaxBackoff) {
			return r.MaxBackoff
		}
	}
	return min(time.Duration(wait), r.MaxBackoff)
}
