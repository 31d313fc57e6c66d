package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_Closed(t *testing.T) {
	cb := NewCircuitBreaker(3, 5*time.Second)

	err := cb.Execute(func() error {
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, 5*time.Second)

	testErr := errors.New("test error")

	for i := 0; i < 3; i++ {
		err := cb.Execute(func() error {
			return testErr
		})
		assert.Error(t, err)
	}

	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})

	assert.Equal(t, ErrCircuitOpen, err)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker(2, 100*time.Millisecond)

	testErr := errors.New("test error")

	for i := 0; i < 2; i++ {
		cb.Execute(func() error {
			return testErr
		})
	}

	assert.Equal(t, StateOpen, cb.GetState())

	time.Sleep(150 * time.Millisecond)

	err := cb.Execute(func() error {
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(2, 50*time.Millisecond)

	for i := 0; i < 2; i++ {
		cb.Execute(func() error {
			return errors.New("error")
		})
	}

	time.Sleep(80 * time.Millisecond)

	err := cb.Execute(func() error {
		return errors.New("still failing")
	})

	assert.EqualError(t, err, "still failing")
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(2, 100*time.Millisecond)
	ctx := context.Background()

	allowed, _ := rl.Allow(ctx, "a")
	assert.True(t, allowed)
	allowed, _ = rl.Allow(ctx, "a")
	assert.True(t, allowed)
	allowed, _ = rl.Allow(ctx, "a")
	assert.False(t, allowed)

	time.Sleep(150 * time.Millisecond)

	allowed, err := rl.Allow(ctx, "a")
	assert.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)
	ctx := context.Background()

	allowed, _ := rl.Allow(ctx, "a")
	assert.True(t, allowed)
	allowed, _ = rl.Allow(ctx, "a")
	assert.False(t, allowed)

	allowed, _ = rl.Allow(ctx, "b")
	assert.True(t, allowed)
}

func TestRateLimiter_Prune(t *testing.T) {
	rl := NewRateLimiter(1, time.Millisecond)
	ctx := context.Background()

	rl.Allow(ctx, "stale")
	time.Sleep(5 * time.Millisecond)

	rl.mu.Lock()
	rl.prune(time.Now())
	_, ok := rl.buckets["stale"]
	rl.mu.Unlock()

	assert.False(t, ok)
}

type MockCounter struct {
	mock.Mock
}

func (m *MockCounter) Increment(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCounter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	args := m.Called(ctx, key, ttl)
	return args.Error(0)
}

func (m *MockCounter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestWindowLimiter_FirstHitSetsExpiry(t *testing.T) {
	counter := new(MockCounter)
	ctx := context.Background()

	wl := NewWindowLimiter(counter, 2, time.Minute)
	wl.now = func() time.Time { return time.Unix(120, 0) }

	counter.On("Increment", ctx, "ratelimit:10.0.0.1:2").Return(int64(1), nil)
	counter.On("Expire", ctx, "ratelimit:10.0.0.1:2", time.Minute).Return(nil)

	allowed, err := wl.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	counter.AssertExpectations(t)
}

func TestWindowLimiter_OverLimit(t *testing.T) {
	counter := new(MockCounter)
	ctx := context.Background()

	wl := NewWindowLimiter(counter, 2, time.Minute)
	wl.now = func() time.Time { return time.Unix(120, 0) }

	counter.On("Increment", ctx, "ratelimit:10.0.0.1:2").Return(int64(3), nil)

	allowed, err := wl.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)

	counter.AssertNotCalled(t, "Expire", mock.Anything, mock.Anything, mock.Anything)
}

func TestWindowLimiter_CounterError(t *testing.T) {
	counter := new(MockCounter)
	ctx := context.Background()

	wl := NewWindowLimiter(counter, 2, time.Minute)

	counter.On("Increment", ctx, mock.Anything).Return(int64(0), errors.New("redis down"))

	allowed, err := wl.Allow(ctx, "10.0.0.1")
	assert.Error(t, err)
	assert.False(t, allowed)
}
