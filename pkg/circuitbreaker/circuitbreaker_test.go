package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("downstream unavailable")

func TestTripsAfterThreshold(t *testing.T) {
	cb := New(Settings{Name: "test", FailureThreshold: 3, Cooldown: time.Minute})

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errDown }), errDown)
	}
	assert.Equal(t, StateOpen, cb.State())

	// Open breaker rejects without invoking the call.
	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New(Settings{Name: "test", FailureThreshold: 2, Cooldown: time.Minute})

	require.Error(t, cb.Execute(func() error { return errDown }))
	require.NoError(t, cb.Execute(func() error { return nil }))
	require.Error(t, cb.Execute(func() error { return errDown }))

	assert.Equal(t, StateClosed, cb.State(), "single failures between successes must not trip")
}

func TestHalfOpenProbeClosesOnSuccess(t *testing.T) {
	var transitions []string
	cb := New(Settings{
		Name:             "test",
		FailureThreshold: 1,
		Cooldown:         time.Millisecond,
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+">"+to.String())
		},
	})

	require.Error(t, cb.Execute(func() error { return errDown }))
	require.Equal(t, StateOpen, cb.state)

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, cb.Execute(func() error { return nil }))

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []string{"closed>open", "open>half-open", "half-open>closed"}, transitions)
}

func TestHalfOpenProbeReopensOnFailure(t *testing.T) {
	cb := New(Settings{Name: "test", FailureThreshold: 3, Cooldown: 50 * time.Millisecond})

	for i := 0; i < 3; i++ {
		require.Error(t, cb.Execute(func() error { return errDown }))
	}

	time.Sleep(60 * time.Millisecond)
	require.Error(t, cb.Execute(func() error { return errDown }))
	assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrOpen)
}
