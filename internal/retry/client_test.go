package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/llm"
)

type recordedSleeps struct{ waits []time.Duration }

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func transient(msg string) llm.Step { return llm.Step{Err: errors.New(msg)} }

func TestCompleteRetriesTransientThenSucceeds(t *testing.T) {
	base := 5 * time.Second
	for k := 0; k <= 2; k++ {
		steps := make([]llm.Step, 0, k+1)
		for range k {
			steps = append(steps, transient("529 overloaded_error"))
		}
		steps = append(steps, llm.Step{Text: "done"})

		caller := llm.NewScriptedCaller(steps...)
		sleeps := &recordedSleeps{}
		retries := 0
		c := NewClient(caller, DefaultPolicy(), time.Minute,
			WithSleeper(sleeps.sleep),
			WithRetryHook(func(llm.Request, int, time.Duration, error) { retries++ }))

		text, err := c.Complete(t.Context(), llm.Request{Stage: "section"})
		require.NoError(t, err)
		assert.Equal(t, "done", text)
		assert.Equal(t, k+1, caller.Calls())
		assert.Equal(t, k, retries)

		want := make([]time.Duration, 0, k)
		for i := range k {
			want = append(want, base*(1<<i))
		}
		if k == 0 {
			assert.Empty(t, sleeps.waits)
		} else {
			assert.Equal(t, want, sleeps.waits)
		}
	}
}

func TestCompleteExhaustsRetries(t *testing.T) {
	caller := llm.NewScriptedCaller(
		transient("request timeout"),
		transient("rate_limit_error"),
		transient("connection reset"),
		llm.Step{Text: "never reached"},
	)
	sleeps := &recordedSleeps{}
	c := NewClient(caller, DefaultPolicy(), time.Minute, WithSleeper(sleeps.sleep))

	_, err := c.Complete(t.Context(), llm.Request{Stage: "section"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 3, caller.Calls(), "no attempt beyond the budget")
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, sleeps.waits)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryGeneration))
}

func TestCompleteFatalPropagatesImmediately(t *testing.T) {
	badRequest := ferrors.GenerationError("generation service returned 400").Fatal().Build()
	caller := llm.NewScriptedCaller(llm.Step{Err: badRequest}, llm.Step{Text: "unused"})
	sleeps := &recordedSleeps{}
	c := NewClient(caller, DefaultPolicy(), time.Minute, WithSleeper(sleeps.sleep))

	_, err := c.Complete(t.Context(), llm.Request{Stage: "scaffold"})
	require.ErrorIs(t, err, badRequest)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 1, caller.Calls())
	assert.Empty(t, sleeps.waits)
}

func TestCompleteAppliesPerCallTimeout(t *testing.T) {
	calls := 0
	slow := llm.CallerFunc(func(ctx context.Context, _ llm.Request) (string, error) {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "ok", nil
	})
	sleeps := &recordedSleeps{}
	c := NewClient(slow, DefaultPolicy(), 10*time.Millisecond, WithSleeper(sleeps.sleep))

	text, err := c.Complete(t.Context(), llm.Request{Stage: "section"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 2, calls)
}

func TestCompleteStopsOnParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	caller := llm.CallerFunc(func(context.Context, llm.Request) (string, error) {
		cancel()
		return "", errors.New("network unreachable")
	})
	c := NewClient(caller, DefaultPolicy(), time.Minute)

	_, err := c.Complete(ctx, llm.Request{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"overloaded text", errors.New("Error code: 529 - overloaded"), true},
		{"bad request text", errors.New("invalid_request_error: max_tokens too large"), false},
		{"classified retryable", ferrors.NetworkError("reset").Build(), true},
		{"classified rate limit", ferrors.GenerationError("429").RateLimit().Build(), true},
		{"classified auth", ferrors.AuthError("bad key").Build(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
