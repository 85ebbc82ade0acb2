package resilience

import (
	"sync"
	"time"
)

// BreakerConfig controls a single circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before the
	// breaker opens. Default: 5.
	FailureThreshold int

	// Cooldown is how long the breaker stays open. Once it has elapsed the
	// breaker closes again without a probe request. Default: 60s.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the defaults used for generic dependencies.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         60 * time.Second,
	}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 60 * time.Second
	}
	return c
}

// CircuitBreaker guards one dependency. It opens after FailureThreshold
// consecutive failures and closes again once Cooldown has elapsed since the
// last failure. The reset is optimistic: there is no half-open probe state;
// after the cooldown the next call goes straight through.
type CircuitBreaker struct {
	cfg BreakerConfig

	mu                  sync.Mutex
	consecutiveFailures int
	lastFailureTime     time.Time
	open                bool

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewCircuitBreaker creates a breaker with the given config.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		cfg:     cfg.withDefaults(),
		nowFunc: time.Now,
	}
}

// WithNow replaces the breaker's clock. Test use only.
func (cb *CircuitBreaker) WithNow(now func() time.Time) *CircuitBreaker {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.nowFunc = now
	return cb
}

// Allow reports whether a call may proceed. When the breaker is open and the
// cooldown has not elapsed it returns a CIRCUIT_BREAKER_OPEN error without
// the underlying call being attempted.
func (cb *CircuitBreaker) Allow(dependency string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.open {
		return nil
	}
	if cb.nowFunc().Sub(cb.lastFailureTime) > cb.cfg.Cooldown {
		// Optimistic reset after cooldown, regardless of outcome.
		cb.open = false
		cb.consecutiveFailures = 0
		return nil
	}
	return NewError(CodeCircuitOpen, dependency, nil)
}

// RecordSuccess resets the failure counter and closes the breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures = 0
	cb.open = false
}

// RecordFailure increments the consecutive-failure counter and opens the
// breaker once the threshold is reached.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures++
	cb.lastFailureTime = cb.nowFunc()
	if cb.consecutiveFailures >= cb.cfg.FailureThreshold {
		cb.open = true
	}
}

// Snapshot returns the breaker's observable state.
func (cb *CircuitBreaker) Snapshot() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	open := cb.open
	if open && cb.nowFunc().Sub(cb.lastFailureTime) > cb.cfg.Cooldown {
		open = false
	}
	return BreakerState{
		ConsecutiveFailures: cb.consecutiveFailures,
		LastFailureTime:     cb.lastFailureTime,
		Open:                open,
	}
}

// BreakerState is a read-only view of a circuit breaker.
type BreakerState struct {
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailureTime     time.Time `json:"last_failure_time"`
	Open                bool      `json:"open"`
}

// Breakers is a process-wide registry of per-dependency circuit breakers.
// Safe for concurrent use from overlapping requests.
type Breakers struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	nowFunc  func() time.Time
}

// NewBreakers creates an empty breaker registry.
func NewBreakers() *Breakers {
	return &Breakers{
		breakers: make(map[string]*CircuitBreaker),
		nowFunc:  time.Now,
	}
}

// WithNow replaces the clock used by breakers created after this call.
// Test use only.
func (b *Breakers) WithNow(now func() time.Time) *Breakers {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nowFunc = now
	return b
}

// Get returns the breaker for the named dependency, creating it with cfg on
// first use. The config of an existing breaker is not changed.
func (b *Breakers) Get(dependency string, cfg BreakerConfig) *CircuitBreaker {
	b.mu.RLock()
	cb, ok := b.breakers[dependency]
	b.mu.RUnlock()
	if ok {
		return cb
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok = b.breakers[dependency]; ok {
		return cb
	}
	cb = NewCircuitBreaker(cfg)
	cb.nowFunc = b.nowFunc
	b.breakers[dependency] = cb
	return cb
}

// States returns a snapshot of every registered breaker, keyed by dependency.
func (b *Breakers) States() map[string]BreakerState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	states := make(map[string]BreakerState, len(b.breakers))
	for name, cb := range b.breakers {
		states[name] = cb.Snapshot()
	}
	return states
}
