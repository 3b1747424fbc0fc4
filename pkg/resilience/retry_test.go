package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sepantapay/payment-service/pkg/resilience"
)

var errTransient = errors.New("transient")
var errPermanent = errors.New("permanent")

func isTransient(err error) bool { return errors.Is(err, errTransient) }

func TestRetrierSucceedsFirstAttempt(t *testing.T) {
	r := resilience.NewFixedRetrier(3, time.Millisecond, isTransient)

	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetrierRecoversWithinBudget(t *testing.T) {
	r := resilience.NewFixedRetrier(3, time.Millisecond, isTransient)

	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrierExhaustsBudget(t *testing.T) {
	r := resilience.NewFixedRetrier(3, time.Millisecond, isTransient)

	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls, "attempt budget counts the first call")
}

func TestRetrierStopsOnPermanentError(t *testing.T) {
	r := resilience.NewFixedRetrier(3, time.Millisecond, isTransient)

	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errPermanent
	})

	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, calls, "a non-retryable failure must not be retried")
}

func TestRetrierNilPredicateRetriesEverything(t *testing.T) {
	r := resilience.NewFixedRetrier(2, time.Millisecond, nil)

	calls := 0
	_ = r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errPermanent
	})

	assert.Equal(t, 2, calls)
}

func TestRetrierHonorsContextDuringDelay(t *testing.T) {
	r := resilience.NewFixedRetrier(3, time.Hour, isTransient)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := r.Do(ctx, func(ctx context.Context) error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestFixedBackoff(t *testing.T) {
	b := &resilience.FixedBackoff{Delay: 5 * time.Second}
	assert.Equal(t, 5*time.Second, b.NextDelay(0))
	assert.Equal(t, 5*time.Second, b.NextDelay(7))
}

func TestExponentialBackoff(t *testing.T) {
	b := &resilience.ExponentialBackoff{
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2,
	}
	assert.Equal(t, time.Second, b.NextDelay(0))
	assert.Equal(t, 2*time.Second, b.NextDelay(1))
	assert.Equal(t, 4*time.Second, b.NextDelay(2))
	assert.Equal(t, 10*time.Second, b.NextDelay(6), "delays cap at MaxDelay")
	assert.Equal(t, time.Second, b.NextDelay(-1))
}
