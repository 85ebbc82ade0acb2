package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// DefaultBackoff is the fixed retry schedule shared by all call sites. The
// schedule is positional, not adaptive: attempt N sleeps Backoff[N-1] before
// retrying.
var DefaultBackoff = []time.Duration{
	200 * time.Millisecond,
	600 * time.Millisecond,
	1200 * time.Millisecond,
}

// maxJitter is the upper bound of the random per-attempt jitter added to the
// backoff schedule.
const maxJitter = 100 * time.Millisecond

// CallConfig describes one resilient call site.
type CallConfig struct {
	// Dependency is the logical name keying the circuit breaker.
	Dependency string

	// Timeout bounds a single attempt. The underlying call is not
	// guaranteed to be cancelled on expiry; only its result is discarded.
	Timeout time.Duration

	// MaxAttempts is the total number of attempts including the first.
	// Default: 1 (no retries).
	MaxAttempts int

	// Backoff is the fixed sleep schedule between attempts. Defaults to
	// DefaultBackoff.
	Backoff []time.Duration

	// Breaker configures the dependency's circuit breaker on first use.
	Breaker BreakerConfig
}

func (c CallConfig) withDefaults() CallConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if len(c.Backoff) == 0 {
		c.Backoff = DefaultBackoff
	}
	return c
}

// Wrapper executes upstream calls with a per-attempt timeout, a fixed retry
// schedule and a per-dependency circuit breaker.
type Wrapper struct {
	breakers *Breakers
}

// NewWrapper creates a wrapper over the given breaker registry.
func NewWrapper(breakers *Breakers) *Wrapper {
	return &Wrapper{breakers: breakers}
}

// Breakers exposes the underlying registry for observability endpoints.
func (w *Wrapper) Breakers() *Breakers {
	return w.breakers
}

type attemptResult[T any] struct {
	val T
	err error
}

// Call runs fn under cfg's resilience policy. The breaker counter moves at
// most once per Call: a success resets it, a fully exhausted failure
// increments it. A rejected call (breaker open) touches nothing. A definitive
// NOT_RATED outcome counts as a success for the breaker: the dependency
// answered, it just had nothing for this entity.
func Call[T any](ctx context.Context, w *Wrapper, cfg CallConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()
	var zero T

	cb := w.breakers.Get(cfg.Dependency, cfg.Breaker)
	if err := cb.Allow(cfg.Dependency); err != nil {
		return zero, err
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := runWithTimeout(ctx, cfg, fn)
		if err == nil {
			cb.RecordSuccess()
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsTransient(err) {
			break
		}
		if attempt >= cfg.MaxAttempts-1 {
			break
		}

		zap.L().Warn("retrying dependency call",
			zap.String("dependency", cfg.Dependency),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		delay := cfg.Backoff[min(attempt, len(cfg.Backoff)-1)]
		delay += time.Duration(rand.Int64N(int64(maxJitter)))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			cb.RecordFailure()
			return zero, lastErr
		case <-timer.C:
		}
	}

	// The breaker tracks dependency health, not coverage. An unrated entity
	// is a healthy answer and must not push the breaker toward open.
	if CodeOf(lastErr) == CodeNotRated {
		cb.RecordSuccess()
		return zero, lastErr
	}

	cb.RecordFailure()
	if CodeOf(lastErr) == CodeUnknown {
		lastErr = NewError(CodeFetchError, cfg.Dependency, lastErr)
	}
	return zero, lastErr
}

// runWithTimeout races fn against the per-attempt timer. On expiry the
// attempt fails with TIMEOUT; a result arriving after its logical deadline is
// delivered into a buffered channel nobody reads, which is the
// ignore-after-deadline guard.
func runWithTimeout[T any](ctx context.Context, cfg CallConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	done := make(chan attemptResult[T], 1)
	go func() {
		// The attempt runs on its own goroutine, so a panicking dependency
		// must be converted to an error here or it takes the process down.
		defer func() {
			if r := recover(); r != nil {
				zap.L().Error("dependency call panicked",
					zap.String("dependency", cfg.Dependency),
					zap.Any("panic", r),
				)
				done <- attemptResult[T]{err: Errorf(CodeFetchError, cfg.Dependency, "panic: %v", r)}
			}
		}()
		val, err := fn(attemptCtx)
		done <- attemptResult[T]{val: val, err: err}
	}()

	select {
	case res := <-done:
		return res.val, res.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return zero, NewError(CodeTimeout, cfg.Dependency, ctx.Err())
		}
		return zero, Errorf(CodeTimeout, cfg.Dependency, "attempt exceeded %s", cfg.Timeout)
	}
}
