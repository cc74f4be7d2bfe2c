package retry

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/llm"
	"github.com/craigdanielk/web-builder/internal/logfields"
	"github.com/craigdanielk/web-builder/internal/metrics"
)

// ErrRetriesExhausted is returned (wrapped) once every allowed attempt failed transiently.
var ErrRetriesExhausted = stderrors.New("retries exhausted")

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// RetryHook observes each scheduled retry.
type RetryHook func(req llm.Request, attempt int, wait time.Duration, err error)

// Client wraps an llm.Caller with a per-call timeout and backoff retries.
type Client struct {
	caller   llm.Caller
	policy   Policy
	timeout  time.Duration
	sleep    Sleeper
	recorder metrics.Recorder
	hooks    []RetryHook
}

// Option configures a Client.
type Option func(*Client)

// WithSleeper replaces the real timer, mainly for tests.
func WithSleeper(s Sleeper) Option { return func(c *Client) { c.sleep = s } }

// WithRecorder reports retries and exhaustion.
func WithRecorder(r metrics.Recorder) Option { return func(c *Client) { c.recorder = r } }

// WithRetryHook registers a callback invoked before each backoff wait.
func WithRetryHook(h RetryHook) Option { return func(c *Client) { c.hooks = append(c.hooks, h) } }

// NewClient builds a retrying client. A non-positive timeout disables the per-call deadline.
func NewClient(caller llm.Caller, policy Policy, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		caller:   caller,
		policy:   policy,
		timeout:  timeout,
		sleep:    sleepContext,
		recorder: metrics.NoopRecorder{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Complete issues req, retrying transient failures with backoff.
// Fatal failures are returned immediately; exhaustion wraps ErrRetriesExhausted.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	attempts := c.policy.Attempts()
	for attempt := 1; ; attempt++ {
		text, err := c.once(ctx, req)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !IsRetryable(err) {
			return "", err
		}
		if attempt >= attempts {
			c.recorder.IncRetriesExhausted(req.Stage)
			slog.Error("Generation call failed after retries",
				logfields.Stage(req.Stage), logfields.Attempt(attempt), logfields.Error(err))
			return "", errors.WrapError(fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, err),
				errors.CategoryGeneration, "generation service unavailable").
				Fatal().
				WithContext("stage", req.Stage).
				WithContext("attempts", attempts).
				Build()
		}

		wait := c.policy.Delay(attempt)
		slog.Info("Retrying after failure",
			logfields.Stage(req.Stage), logfields.Attempt(attempt), logfields.Backoff(wait), logfields.Error(err))
		c.recorder.IncRetry(req.Stage)
		for _, h := range c.hooks {
			h(req, attempt, wait, err)
		}
		if err := c.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
}

func (c *Client) once(ctx context.Context, req llm.Request) (string, error) {
	if c.timeout <= 0 {
		return c.caller.Complete(ctx, req)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.caller.Complete(callCtx, req)
}

var retryableTerms = []string{
	"timeout", "rate_limit", "overloaded", "529", "503", "500", "connection", "network",
}

// IsRetryable classifies err as transient (timeout, rate limit, overload, 5xx, network) or fatal.
func IsRetryable(err error) bool {
	if err == nil || stderrors.Is(err, context.Canceled) {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if ce, ok := errors.AsClassified(err); ok {
		return ce.IsTransient()
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, term := range retryableTerms {
		if strings.Contains(msg, term) {
			return true
		}
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
