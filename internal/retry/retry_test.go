package retry

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timvw/iorepl/internal/mux/muxtest"
)

var splitCmd = []string{"tmux", "send-keys", "-t", "s.0", `tmux split-window -p 50 -c "$PWD"`, "ENTER"}

// sleeps records every requested pause instead of sleeping.
type sleeps []time.Duration

func (s *sleeps) sleep(d time.Duration) { *s = append(*s, d) }

func TestUntilStatus_StopsAtFirstSuccess(t *testing.T) {
	r := muxtest.NewRunner()
	r.Script(splitCmd, 1, 1, 0, 1)
	var slept sleeps

	attempts, err := UntilStatus(context.Background(), r, 0, splitCmd, Options{Sleep: slept.sleep})
	require.NoError(t, err)

	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, r.Count(splitCmd...), "must stop right after the first success")
	assert.Equal(t, sleeps{DefaultInterval, DefaultInterval, DefaultInterval}, slept)
}

func TestUntilStatus_RunsAtLeastOnce(t *testing.T) {
	tests := []struct {
		name   string
		target int
		status int
	}{
		{"target 0, command succeeds", 0, 0},
		{"target 1, command fails", 1, 1},
		{"target 2, command exits 2", 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := muxtest.NewRunner()
			r.Script(splitCmd, tt.status)

			attempts, err := UntilStatus(context.Background(), r, tt.target, splitCmd, Options{Sleep: func(time.Duration) {}})
			require.NoError(t, err)
			assert.Equal(t, 1, attempts)
			assert.Equal(t, 1, r.Count(splitCmd...))
		})
	}
}

func TestUntilStatus_TargetOneRetriesSuccess(t *testing.T) {
	r := muxtest.NewRunner()
	r.Script(splitCmd, 0, 0, 1)

	attempts, err := UntilStatus(context.Background(), r, 1, splitCmd, Options{Sleep: func(time.Duration) {}})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestUntilStatus_CustomInterval(t *testing.T) {
	r := muxtest.NewRunner()
	r.Script(splitCmd, 1, 0)
	var slept sleeps

	_, err := UntilStatus(context.Background(), r, 0, splitCmd, Options{Interval: time.Second, Sleep: slept.sleep})
	require.NoError(t, err)
	assert.Equal(t, sleeps{time.Second, time.Second}, slept)
}

func TestUntilStatus_OnAttempt(t *testing.T) {
	r := muxtest.NewRunner()
	r.Script(splitCmd, 1, 1, 0)

	var seen [][2]int
	_, err := UntilStatus(context.Background(), r, 0, splitCmd, Options{
		Sleep:     func(time.Duration) {},
		OnAttempt: func(attempt, status int) { seen = append(seen, [2]int{attempt, status}) },
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 1}, {2, 1}, {3, 0}}, seen)
}

func TestUntilStatus_UnreachableTarget(t *testing.T) {
	for _, target := range []int{-1, 256} {
		r := muxtest.NewRunner()
		_, err := UntilStatus(context.Background(), r, target, splitCmd, Options{})
		assert.ErrorIs(t, err, ErrUnreachableTarget)
		assert.Empty(t, r.Calls(), "nothing must run for target %d", target)
	}
}

func TestUntilStatus_EmptyCommand(t *testing.T) {
	_, err := UntilStatus(context.Background(), muxtest.NewRunner(), 0, nil, Options{})
	assert.Error(t, err)
}

func TestUntilStatus_RunnerErrorIsNotRetried(t *testing.T) {
	r := muxtest.NewRunner()
	boom := errors.New("exec: \"tmux\": executable file not found in $PATH")
	r.Fail(splitCmd, boom)

	attempts, err := UntilStatus(context.Background(), r, 0, splitCmd, Options{Sleep: func(time.Duration) {}})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, attempts)
	assert.Equal(t, 1, r.Count(splitCmd...))
}

func TestUntilStatus_MaxAttempts(t *testing.T) {
	r := muxtest.NewRunner()
	r.Script(splitCmd, 1)

	attempts, err := UntilStatus(context.Background(), r, 0, splitCmd, Options{MaxAttempts: 4, Sleep: func(time.Duration) {}})
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, 4, r.Count(splitCmd...))
}

func TestUntilStatus_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := muxtest.NewRunner()
	r.Script(splitCmd, 1)
	r.OnRun(func(call int, _ []string) {
		if call == 5 {
			cancel()
		}
	})

	attempts, err := UntilStatus(ctx, r, 0, splitCmd, Options{Sleep: func(time.Duration) {}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 5, attempts)
}

func TestUntilStatus_RealSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	r := muxtest.NewRunner()
	r.Script(splitCmd, 1)

	start := time.Now()
	_, err := UntilStatus(ctx, r, 0, splitCmd, Options{Interval: time.Hour})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Minute)
}

// Known limitation: with the default options a command that never reports
// the target status is retried forever. The loop is observed past a large
// number of attempts and then the goroutine is ended from inside the fake
// runner, since nothing in UntilStatus will ever return.
func TestUntilStatus_NeverReachedRetriesForever(t *testing.T) {
	const observed = 10000

	r := muxtest.NewRunner()
	r.Script(splitCmd, 1)
	r.OnRun(func(call int, _ []string) {
		if call > observed {
			runtime.Goexit()
		}
	})

	returned := false
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		_, _ = UntilStatus(context.Background(), r, 0, splitCmd, Options{Sleep: func(time.Duration) {}})
		returned = true
	}()

	select {
	case <-exited:
	case <-time.After(10 * time.Second):
		t.Fatal("retry loop did not reach the observation point")
	}
	assert.False(t, returned, "UntilStatus must not give up on its own")
	assert.Equal(t, observed+1, r.Count(splitCmd...))
}

func TestInitialStatus(t *testing.T) {
	for _, target := range []int{0, 1, 2, 255} {
		assert.NotEqual(t, target, initialStatus(target), "target %d", target)
	}
}
