package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newHubBreaker(clock *fakeClock, opts ...Option) *Breaker {
	opts = append([]Option{WithClock(clock.now), WithCooldown(time.Minute)}, opts...)
	return New("proof-hub", opts...)
}

func TestBreaker_HubOutageOpensAfterConsecutiveFailures(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := newHubBreaker(clock, WithFailureThreshold(3))

	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "proof-hub", b.Name())

	assert.False(t, b.RecordFailure().Opened)
	assert.False(t, b.RecordFailure().Opened)
	assert.True(t, b.Allow(), "below threshold the hub is still called")

	assert.True(t, b.RecordFailure().Opened)
	assert.True(t, b.IsOpen())
	assert.False(t, b.Allow(), "open breaker skips the hub")
}

func TestBreaker_SuccessBetweenFailuresKeepsItClosed(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := newHubBreaker(clock, WithFailureThreshold(2))

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	assert.False(t, b.IsOpen())
}

func TestBreaker_CooldownThenTrialCallsClose(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := newHubBreaker(clock, WithFailureThreshold(1), WithSuccessThreshold(2))

	b.RecordFailure()
	require.True(t, b.IsOpen())

	clock.advance(59 * time.Second)
	assert.False(t, b.Allow())

	clock.advance(time.Second)
	require.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
	assert.Equal(t, "half-open", b.State().String())

	assert.False(t, b.RecordSuccess().Closed)
	assert.True(t, b.RecordSuccess().Closed)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_FailedTrialReopens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := newHubBreaker(clock, WithFailureThreshold(1))

	b.RecordFailure()
	clock.advance(time.Minute)
	require.True(t, b.Allow())

	assert.True(t, b.RecordFailure().Opened)
	assert.True(t, b.IsOpen())
	assert.False(t, b.Allow(), "a fresh cooldown starts")
}

func TestBreaker_Reset(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := newHubBreaker(clock, WithFailureThreshold(1))

	b.RecordFailure()
	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_OptionsIgnoreNonPositive(t *testing.T) {
	b := New("proof-hub", WithFailureThreshold(0), WithSuccessThreshold(-1), WithCooldown(0))

	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	assert.False(t, b.IsOpen(), "default threshold of five still applies")

	b.RecordFailure()
	assert.True(t, b.IsOpen())
	assert.False(t, b.Allow(), "default cooldown still applies")
}
