package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Fallbacks applied by normalize when a Config field is zero.
const (
	defaultInitialDelay = 100 * time.Millisecond
	defaultMaxDelay     = 5 * time.Second
	defaultMultiplier   = 2.0

	// maxMultiplier caps runaway growth factors before they overflow the
	// delay arithmetic.
	maxMultiplier = 1000
)

// Jitter source shared by every retry loop in the process.
var (
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NonRetryableError marks an error the retry loop must surface at once.
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable wraps an error so Do gives up instead of retrying it.
// Endpoints use it to punch shutdown through a reconnect budget.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable reports whether err carries the non-retryable marker.
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return errors.As(err, &nre)
}

// Config bounds one retry loop.
type Config struct {
	// MaxAttempts is the total number of tries; non-positive means one.
	MaxAttempts int
	// InitialDelay separates the first failure from the second attempt.
	InitialDelay time.Duration
	// MaxDelay caps the grown delay.
	MaxDelay time.Duration
	// Multiplier grows the delay after every failed attempt.
	Multiplier float64
	// AddJitter stretches each sleep by up to a quarter, so colliding
	// loops drift apart.
	AddJitter bool
}

// DefaultConfig is the general-purpose profile for transient faults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
		Multiplier:   defaultMultiplier,
		AddJitter:    true,
	}
}

// Fixed returns a constant-delay profile with no jitter. This is the room
// connect budget: the server treats reconnect storms leniently, and a
// predictable count * delay bound matters more than herd avoidance for a
// single client.
func Fixed(attempts int, delay time.Duration) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: delay,
		MaxDelay:     delay,
		Multiplier:   1.0,
		AddJitter:    false,
	}
}

// normalize fills zero fields with the package defaults and rejects
// configs no loop can run.
func (cfg Config) normalize() (Config, error) {
	switch {
	case cfg.InitialDelay < 0:
		return cfg, errors.New("retry: InitialDelay cannot be negative")
	case cfg.MaxDelay < 0:
		return cfg, errors.New("retry: MaxDelay cannot be negative")
	case cfg.Multiplier < 0:
		return cfg, errors.New("retry: Multiplier cannot be negative")
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = defaultInitialDelay
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = defaultMultiplier
	} else if cfg.Multiplier > maxMultiplier {
		cfg.Multiplier = maxMultiplier
	}

	if cfg.MaxDelay < cfg.InitialDelay {
		return cfg, errors.New("retry: MaxDelay must be >= InitialDelay")
	}
	return cfg, nil
}

// next grows the delay by the multiplier, capped at MaxDelay.
func (cfg Config) next(delay time.Duration) time.Duration {
	grown := float64(delay) * cfg.Multiplier
	if grown > float64(cfg.MaxDelay) || grown > float64(time.Duration(1<<63-1)) {
		return cfg.MaxDelay
	}
	return time.Duration(grown)
}

// sleep pauses for delay plus any configured jitter, or until ctx ends.
func (cfg Config) sleep(ctx context.Context, delay time.Duration) error {
	if cfg.AddJitter {
		if quarter := int64(delay / 4); quarter > 0 {
			randMu.Lock()
			delay += time.Duration(randSource.Int63n(quarter))
			randMu.Unlock()
		}
	}

	timer := time.NewTimer(delay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs fn until it succeeds, the attempt budget runs out, ctx ends or
// fn fails non-retryably. The error after exhaustion wraps fn's last one.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	cfg, err := cfg.normalize()
	if err != nil {
		return err
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if IsNonRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled before attempt %d: %w", attempt, ctx.Err())
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		if err := cfg.sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled during backoff for attempt %d: %w", attempt+1, err)
		}
		delay = cfg.next(delay)
	}

	return fmt.Errorf("retry failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// DoWithResult is Do for operations that produce a value. The zero T
// comes back alongside any error.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	return result, err
}
