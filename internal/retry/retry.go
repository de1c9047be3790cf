// Package retry runs an operation under a bounded, named retry policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned when every attempt ran without success.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy is an ordered list of waits; waits[i] elapses before attempt i.
// The number of waits is the maximum number of attempts.
type Policy struct {
	name  string
	waits []time.Duration
	sleep Sleeper
}

// Schedule builds a policy that attempts at each offset from the start, e.g.
// Schedule("page", 0, 100*time.Millisecond, 500*time.Millisecond). Offsets
// must be non-decreasing; an offset earlier than its predecessor runs
// immediately after it.
func Schedule(name string, offsets ...time.Duration) Policy {
	waits := make([]time.Duration, len(offsets))
	var prev time.Duration
	for i, off := range offsets {
		if off < prev {
			off = prev
		}
		waits[i] = off - prev
		prev = off
	}
	return Policy{name: name, waits: waits}
}

// Fixed attempts immediately and then every interval, attempts times total.
func Fixed(name string, attempts int, interval time.Duration) Policy {
	waits := make([]time.Duration, max(attempts, 0))
	for i := 1; i < len(waits); i++ {
		waits[i] = interval
	}
	return Policy{name: name, waits: waits}
}

// Backoff attempts immediately and then waits initial, initial*factor, ...
// capped at limit.
func Backoff(name string, attempts int, initial, limit time.Duration, factor float64) Policy {
	if factor < 1 {
		factor = 1
	}
	waits := make([]time.Duration, max(attempts, 0))
	next := initial
	for i := 1; i < len(waits); i++ {
		waits[i] = next
		next = time.Duration(float64(next) * factor)
		if limit > 0 && next > limit {
			next = limit
		}
	}
	return Policy{name: name, waits: waits}
}

// WithSleeper returns a copy of p that waits with s.
func (p Policy) WithSleeper(s Sleeper) Policy {
	p.sleep = s
	return p
}

// Name identifies the policy in logs.
func (p Policy) Name() string { return p.name }

// MaxAttempts is the number of attempts the policy allows.
func (p Policy) MaxAttempts() int { return len(p.waits) }

// Waits returns a copy of the per-attempt waits.
func (p Policy) Waits() []time.Duration {
	out := make([]time.Duration, len(p.waits))
	copy(out, p.waits)
	return out
}

// Func is one attempt. Returning done=true stops the loop. A non-nil error
// does not stop it; the last error is reported if every attempt fails.
type Func func(ctx context.Context, attempt int) (done bool, err error)

// Do runs fn under p. It returns nil on the first attempt that reports done,
// ctx.Err() if the context ends first, or an error wrapping ErrExhausted.
func Do(ctx context.Context, p Policy, fn Func) error {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for i, wait := range p.waits {
		if wait > 0 {
			if err := sleep(ctx, wait); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		done, err := fn(ctx, i+1)
		if done {
			return nil
		}
		if err != nil {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("%w after %d attempts (%s): %w", ErrExhausted, len(p.waits), p.name, lastErr)
	}
	return fmt.Errorf("%w after %d attempts (%s)", ErrExhausted, len(p.waits), p.name)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
