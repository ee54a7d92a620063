package marketdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_E2E5(t *testing.T) {
	breaker := NewCircuitBreakerWithConfig(CircuitBreakerConfig{
		FailureThreshold:         3,
		RecoveryTimeout:          10 * time.Millisecond,
		HalfOpenSuccessThreshold: 2,
	}, zerolog.Nop())

	provider := ProviderID("TEST")

	for i := 0; i < 3; i++ {
		breaker.RecordFailure(provider)
	}
	assert.Equal(t, StateOpen, breaker.State(provider))
	assert.False(t, breaker.IsAllowed(provider))

	time.Sleep(20 * time.Millisecond)

	assert.True(t, breaker.IsAllowed(provider))
	assert.Equal(t, StateHalfOpen, breaker.State(provider))

	breaker.RecordSuccess(provider)
	assert.Equal(t, StateHalfOpen, breaker.State(provider))
	breaker.RecordSuccess(provider)
	assert.Equal(t, StateClosed, breaker.State(provider))
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	breaker := NewCircuitBreakerWithConfig(CircuitBreakerConfig{
		FailureThreshold:         1,
		RecoveryTimeout:          5 * time.Millisecond,
		HalfOpenSuccessThreshold: 2,
	}, zerolog.Nop())
	provider := ProviderID("TEST")

	breaker.RecordFailure(provider)
	assert.Equal(t, StateOpen, breaker.State(provider))

	time.Sleep(10 * time.Millisecond)
	assert.True(t, breaker.IsAllowed(provider))
	assert.Equal(t, StateHalfOpen, breaker.State(provider))

	breaker.RecordFailure(provider)
	assert.Equal(t, StateOpen, breaker.State(provider))
}

func TestCircuitBreaker_ClosedSuccessResetsFailureCount(t *testing.T) {
	breaker := NewCircuitBreaker(zerolog.Nop())
	provider := ProviderID("TEST")

	breaker.RecordFailure(provider)
	breaker.RecordFailure(provider)
	breaker.RecordSuccess(provider)
	assert.Equal(t, StateClosed, breaker.State(provider))

	for i := 0; i < 4; i++ {
		breaker.RecordFailure(provider)
	}
	assert.Equal(t, StateClosed, breaker.State(provider), "reset count means 4 more failures shouldn't open (threshold 5)")
}
