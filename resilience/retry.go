package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// ErrAttemptsExhausted is wrapped by the error Do returns when every attempt failed.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Policy controls how Do retries.
type Policy struct {
	// MaxAttempts counts the first call. Defaults to 3.
	MaxAttempts int
	// Initial is the wait after the first failure. Defaults to 100ms.
	Initial time.Duration
	// Max caps a single wait. Defaults to 10s.
	Max time.Duration
	// Factor multiplies the wait after each failure. Defaults to 2.
	Factor float64
	// Jitter spreads each wait by up to this fraction in either direction.
	Jitter float64
	// Retryable decides whether a failure is worth another attempt.
	// Defaults to anything but context cancellation.
	Retryable func(error) bool
	// OnRetry runs before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.Initial <= 0 {
		p.Initial = 100 * time.Millisecond
	}
	if p.Max <= 0 {
		p.Max = 10 * time.Second
	}
	if p.Factor < 1 {
		p.Factor = 2
	}
	if p.Retryable == nil {
		p.Retryable = NotCanceled
	}
	return p
}

// NotCanceled reports whether err is something other than a context
// cancellation or deadline.
func NotCanceled(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts
// run out or ctx is done. The attempt number passed to fn starts at 1.
func Do(ctx context.Context, p Policy, fn func(attempt int) error) error {
	p = p.withDefaults()

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = fn(attempt); err == nil {
			return nil
		}
		if !p.Retryable(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		wait := p.Wait(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, p.MaxAttempts, err)
}

// Wait returns the pause after the given failed attempt.
func (p Policy) Wait(attempt int) time.Duration {
	p = p.withDefaults()
	d := float64(p.Initial) * math.Pow(p.Factor, float64(attempt-1))
	if p.Jitter > 0 {
		d += d * p.Jitter * (rand.Float64()*2 - 1)
	}
	if d > float64(p.Max) {
		d = float64(p.Max)
	}
	if d <= 0 {
		d = float64(p.Initial)
	}
	return time.Duration(d)
}
