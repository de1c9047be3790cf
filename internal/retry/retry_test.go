package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingSleeper(waits *[]time.Duration) Sleeper {
	return func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
}

func TestSchedule_Waits(t *testing.T) {
	p := Schedule("page", 0, 100*time.Millisecond, 500*time.Millisecond, time.Second, 2*time.Second)

	want := []time.Duration{0, 100 * time.Millisecond, 400 * time.Millisecond, 500 * time.Millisecond, time.Second}
	if diff := cmp.Diff(want, p.Waits()); diff != "" {
		t.Errorf("waits mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 5, p.MaxAttempts())
	assert.Equal(t, "page", p.Name())
}

func TestSchedule_OutOfOrderOffsets(t *testing.T) {
	p := Schedule("odd", 500*time.Millisecond, 100*time.Millisecond)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 0}, p.Waits())
}

func TestFixed(t *testing.T) {
	p := Fixed("fixed", 3, time.Second)
	assert.Equal(t, []time.Duration{0, time.Second, time.Second}, p.Waits())
	assert.Equal(t, 0, Fixed("none", -1, time.Second).MaxAttempts())
}

func TestBackoff(t *testing.T) {
	p := Backoff("backoff", 5, 100*time.Millisecond, 300*time.Millisecond, 2)
	want := []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	assert.Equal(t, want, p.Waits())
}

func TestDo_StopsOnDone(t *testing.T) {
	var slept []time.Duration
	p := Schedule("page", 0, 100*time.Millisecond, 500*time.Millisecond).WithSleeper(recordingSleeper(&slept))

	var attempts []int
	err := Do(context.Background(), p, func(ctx context.Context, attempt int) (bool, error) {
		attempts = append(attempts, attempt)
		return attempt == 2, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, attempts)
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, slept)
}

func TestDo_Exhausted(t *testing.T) {
	var slept []time.Duration
	p := Fixed("fixed", 3, time.Millisecond).WithSleeper(recordingSleeper(&slept))
	boom := errors.New("boom")

	calls := 0
	err := Do(context.Background(), p, func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return false, boom
	})

	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Fixed("fixed", 3, 50*time.Millisecond)

	calls := 0
	err := Do(ctx, p, func(ctx context.Context, attempt int) (bool, error) {
		calls++
		cancel()
		return false, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_RealSleep(t *testing.T) {
	p := Schedule("short", 0, 20*time.Millisecond)
	start := time.Now()

	err := Do(context.Background(), p, func(ctx context.Context, attempt int) (bool, error) {
		return false, nil
	})

	assert.ErrorIs(t, err, ErrExhausted)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
