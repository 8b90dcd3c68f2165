package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	var transitions []State
	b := New("redis", Config{MaxRequests: 1, Timeout: time.Hour, ConsecutiveFailures: 2}, zerolog.Nop(),
		func(_ string, _, to State) { transitions = append(transitions, to) })

	boom := errors.New("boom")
	assert.ErrorIs(t, b.Execute(func() error { return boom }), boom)
	assert.True(t, b.Healthy())
	assert.ErrorIs(t, b.Execute(func() error { return boom }), boom)

	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Healthy())
	require.Equal(t, []State{StateOpen}, transitions)

	called := false
	err := b.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, called)
}

func TestBreaker_HalfOpenRecovers(t *testing.T) {
	b := New("redis", Config{MaxRequests: 1, Timeout: 10 * time.Millisecond, ConsecutiveFailures: 1}, zerolog.Nop())

	_ = b.Execute(func() error { return errors.New("down") })
	require.Equal(t, StateOpen, b.State())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_DefaultThreshold(t *testing.T) {
	b := New("redis", Config{Timeout: time.Hour}, zerolog.Nop())
	for i := 0; i < 4; i++ {
		_ = b.Execute(func() error { return errors.New("down") })
	}
	assert.Equal(t, StateClosed, b.State())
	_ = b.Execute(func() error { return errors.New("down") })
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, "redis", b.Name())
}
