package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures a rate limiter. A zero Rate disables limiting
// at the transport level.
type RateLimiterConfig struct {
	// Name identifies this rate limiter in logs.
	Name string `yaml:"name" mapstructure:"name"`
	// Rate is the number of requests allowed per second.
	Rate float64 `yaml:"rate" mapstructure:"rate" validate:"gte=0"`
	// Burst is the maximum burst size.
	Burst int `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
	// OnLimit is called when a request has to wait for a token.
	OnLimit func(name string) `yaml:"-" mapstructure:"-"`
}

// Enabled reports whether the config asks for limiting.
func (c RateLimiterConfig) Enabled() bool {
	return c.Rate > 0
}

// RateLimiter implements a token bucket rate limiter. It is safe for use by
// the many goroutines a multiplexer drain starts at once.
type RateLimiter struct {
	config RateLimiterConfig

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 10.0
	}
	if config.Burst <= 0 {
		config.Burst = int(config.Rate)
		if config.Burst < 1 {
			config.Burst = 1
		}
	}

	return &RateLimiter{
		config:     config,
		tokens:     float64(config.Burst),
		lastRefill: time.Now(),
	}
}

// Wait blocks until a request is allowed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	waitTime := rl.reserve()
	if waitTime <= 0 {
		return nil
	}
	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}

	timer := time.NewTimer(waitTime)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		rl.cancelReservation()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// refill adds tokens based on time elapsed. Callers hold mu.
func (rl *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.lastRefill = now

	rl.tokens += elapsed * rl.config.Rate
	if rl.tokens > float64(rl.config.Burst) {
		rl.tokens = float64(rl.config.Burst)
	}
}

// reserve takes one token, possibly driving the bucket negative, and
// returns how long the caller must wait for it.
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	rl.tokens--
	if rl.tokens >= 0 {
		return 0
	}
	return time.Duration(-rl.tokens / rl.config.Rate * float64(time.Second))
}

func (rl *RateLimiter) cancelReservation() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens++
}
