package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"brevio/pkg/cache"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

type CircuitBreaker struct {
	maxFailures  uint32
	timeout      time.Duration
	state        State
	failures     uint32
	lastFailTime time.Time
	mu           sync.RWMutex
}

func NewCircuitBreaker(maxFailures uint32, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures: maxFailures,
		timeout:     timeout,
		state:       StateClosed,
	}
}

func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()

	if cb.state == StateOpen {
		if time.Since(cb.lastFailTime) > cb.timeout {
			cb.state = StateHalfOpen
			cb.failures = 0
		} else {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}

	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailTime = time.Now()

		if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
			cb.state = StateOpen
		}

		return err
	}

	if cb.state == StateHalfOpen {
		cb.state = StateClosed
	}

	cb.failures = 0
	return nil
}

func (cb *CircuitBreaker) GetState() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

const maxBuckets = 4096

type bucket struct {
	tokens   int
	lastTime time.Time
}

// RateLimiter is an in-process token bucket kept per key.
type RateLimiter struct {
	rate     int
	interval time.Duration
	buckets  map[string]*bucket
	mu       sync.Mutex
}

func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		rate:     rate,
		interval: interval,
		buckets:  make(map[string]*bucket),
	}
}

func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	b, ok := rl.buckets[key]
	if !ok {
		if len(rl.buckets) >= maxBuckets {
			rl.prune(now)
		}
		b = &bucket{tokens: rl.rate, lastTime: now}
		rl.buckets[key] = b
	}

	elapsed := now.Sub(b.lastTime)
	tokensToAdd := int(elapsed / rl.interval)
	if tokensToAdd > 0 {
		b.tokens += tokensToAdd
		if b.tokens > rl.rate {
			b.tokens = rl.rate
		}
		b.lastTime = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true, nil
	}

	return false, nil
}

// prune drops buckets that have been idle long enough to be full again.
// Callers must hold rl.mu.
func (rl *RateLimiter) prune(now time.Time) {
	idle := time.Duration(rl.rate) * rl.interval
	for key, b := range rl.buckets {
		if now.Sub(b.lastTime) >= idle {
			delete(rl.buckets, key)
		}
	}
}

// WindowLimiter is a fixed-window counter stored in a shared cache.
type WindowLimiter struct {
	counter cache.Counter
	limit   int64
	window  time.Duration
	now     func() time.Time
}

func NewWindowLimiter(counter cache.Counter, limit int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{
		counter: counter,
		limit:   int64(limit),
		window:  window,
		now:     time.Now,
	}
}

func (wl *WindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	counterKey := cache.RateLimitKey(key, wl.window, wl.now())

	count, err := wl.counter.Increment(ctx, counterKey)
	if err != nil {
		return false, err
	}

	if count == 1 {
		if err := wl.counter.Expire(ctx, counterKey, wl.window); err != nil {
			return false, err
		}
	}

	return count <= wl.limit, nil
}
