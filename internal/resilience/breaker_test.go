package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_PassesThroughSuccess(t *testing.T) {
	b := NewBreaker("test", Config{})

	calls := 0
	err := b.Execute(func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker("test", Config{ConsecutiveFailures: 3})
	boom := errors.New("provider down")

	for i := 0; i < 3; i++ {
		err := b.Execute(func() error { return boom })
		require.ErrorIs(t, err, boom)
	}

	calls := 0
	err := b.Execute(func() error {
		calls++
		return nil
	})

	require.Error(t, err)
	assert.True(t, IsOpen(err))
	assert.Equal(t, 0, calls)
}

func TestBreaker_CancellationDoesNotTrip(t *testing.T) {
	b := NewBreaker("test", Config{ConsecutiveFailures: 2})

	for i := 0; i < 10; i++ {
		err := b.Execute(func() error { return context.Canceled })
		require.ErrorIs(t, err, context.Canceled)
	}

	err := b.Execute(func() error { return nil })
	assert.NoError(t, err)
}

func TestIsOpen_OtherErrors(t *testing.T) {
	assert.False(t, IsOpen(errors.New("something else")))
	assert.False(t, IsOpen(nil))
}
