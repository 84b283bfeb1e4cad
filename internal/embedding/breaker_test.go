package embedding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	b := NewCircuitBreaker(3, time.Hour)
	require.Equal(t, "closed", b.State())
	require.True(t, b.Allow())

	b.RecordFailure()
	b.RecordFailure()
	require.Equal(t, "closed", b.State(), "should stay closed below threshold")
	require.True(t, b.Allow())

	b.RecordFailure()
	require.Equal(t, "open", b.State())
	require.False(t, b.Allow(), "open breaker should reject calls before cooldown elapses")
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	b := NewCircuitBreaker(1, 20*time.Millisecond)
	b.RecordFailure()
	require.Equal(t, "open", b.State())
	require.False(t, b.Allow())

	time.Sleep(30 * time.Millisecond)
	require.True(t, b.Allow(), "cooldown elapsed, breaker should allow a half-open trial")
	require.Equal(t, "half_open", b.State())

	b.RecordSuccess()
	require.Equal(t, "closed", b.State())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewCircuitBreaker(1, 10*time.Millisecond)
	b.RecordFailure()
	time.Sleep(15 * time.Millisecond)
	require.True(t, b.Allow())
	require.Equal(t, "half_open", b.State())

	b.RecordFailure()
	require.Equal(t, "open", b.State())
	require.False(t, b.Allow())
}
