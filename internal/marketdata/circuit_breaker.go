package marketdata

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CircuitState is the fault-isolation state of one provider's circuit.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

// CircuitBreakerConfig tunes the breaker's thresholds.
type CircuitBreakerConfig struct {
	FailureThreshold        int
	RecoveryTimeout         time.Duration
	HalfOpenSuccessThreshold int
}

// DefaultCircuitBreakerConfig matches the defaults in SPEC_FULL.md §4.C.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold:         5,
		RecoveryTimeout:          60 * time.Second,
		HalfOpenSuccessThreshold: 2,
	}
}

type circuit struct {
	state              CircuitState
	failureCount       int
	halfOpenSuccesses  int
	lastFailure        time.Time
	hasLastFailure     bool
}

// CircuitBreaker is a per-provider, in-memory, not-persisted fault isolator.
// It is safe for concurrent use; a panicking callback cannot poison the
// underlying mutex the way the source language's Mutex can, but the breaker
// still recovers and logs if a state-transition callback panics, so the
// lock is always released.
type CircuitBreaker struct {
	mu       sync.Mutex
	circuits map[ProviderID]*circuit
	config   CircuitBreakerConfig
	log      zerolog.Logger
}

// NewCircuitBreaker builds a breaker with the default configuration.
func NewCircuitBreaker(log zerolog.Logger) *CircuitBreaker {
	return NewCircuitBreakerWithConfig(DefaultCircuitBreakerConfig(), log)
}

// NewCircuitBreakerWithConfig builds a breaker with custom thresholds.
func NewCircuitBreakerWithConfig(cfg CircuitBreakerConfig, log zerolog.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		circuits: make(map[ProviderID]*circuit),
		config:   cfg,
		log:      log.With().Str("component", "circuit_breaker").Logger(),
	}
}

func (b *CircuitBreaker) entry(provider ProviderID) *circuit {
	c, ok := b.circuits[provider]
	if !ok {
		c = &circuit{state: StateClosed}
		b.circuits[provider] = c
	}
	return c
}

// IsAllowed reports whether a request to provider may proceed, transitioning
// Open -> HalfOpen once the recovery timeout has elapsed.
func (b *CircuitBreaker) IsAllowed(provider ProviderID) (allowed bool) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Str("provider", string(provider)).Msg("circuit breaker recovered from panic in IsAllowed")
			allowed = false
		}
		b.mu.Unlock()
	}()
	b.mu.Lock()

	c := b.entry(provider)
	switch c.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		return true
	case StateOpen:
		if c.hasLastFailure && time.Since(c.lastFailure) >= b.config.RecoveryTimeout {
			b.log.Info().Str("provider", string(provider)).Msg("circuit transitioning Open -> HalfOpen")
			c.state = StateHalfOpen
			c.halfOpenSuccesses = 0
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess resets the failure count (Closed) or advances toward
// closing the circuit (HalfOpen).
func (b *CircuitBreaker) RecordSuccess(provider ProviderID) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Str("provider", string(provider)).Msg("circuit breaker recovered from panic in RecordSuccess")
		}
		b.mu.Unlock()
	}()
	b.mu.Lock()

	c := b.entry(provider)
	switch c.state {
	case StateClosed:
		c.failureCount = 0
	case StateHalfOpen:
		c.halfOpenSuccesses++
		if c.halfOpenSuccesses >= b.config.HalfOpenSuccessThreshold {
			b.log.Info().Str("provider", string(provider)).Msg("circuit closing after recovery successes")
			c.state = StateClosed
			c.failureCount = 0
			c.halfOpenSuccesses = 0
			c.hasLastFailure = false
		}
	case StateOpen:
		// Unexpected: IsAllowed should have transitioned to HalfOpen first.
	}
}

// RecordFailure increments the failure count and may open the circuit; any
// failure while HalfOpen immediately reopens it.
func (b *CircuitBreaker) RecordFailure(provider ProviderID) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Str("provider", string(provider)).Msg("circuit breaker recovered from panic in RecordFailure")
		}
		b.mu.Unlock()
	}()
	b.mu.Lock()

	c := b.entry(provider)
	c.failureCount++
	c.lastFailure = time.Now()
	c.hasLastFailure = true

	switch c.state {
	case StateClosed:
		if c.failureCount >= b.config.FailureThreshold {
			b.log.Info().Str("provider", string(provider)).Int("failures", c.failureCount).Msg("circuit opening")
			c.state = StateOpen
		}
	case StateHalfOpen:
		b.log.Info().Str("provider", string(provider)).Msg("circuit reopening after failure in HalfOpen")
		c.state = StateOpen
		c.halfOpenSuccesses = 0
	case StateOpen:
		// already open
	}
}

// State returns the current state for a provider (StateClosed if unseen).
func (b *CircuitBreaker) State(provider ProviderID) CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.circuits[provider]
	if !ok {
		return StateClosed
	}
	return c.state
}
