package retry

import (
	"time"

	"github.com/craigdanielk/web-builder/internal/config"
)

// Policy is the attempt budget and backoff schedule for one generation call.
type Policy struct {
	Mode config.RetryBackoffMode
	// Base is the wait before the first retry.
	Base time.Duration
	// Cap bounds every wait.
	Cap time.Duration
	// MaxAttempts counts the first call.
	MaxAttempts int
}

// DefaultPolicy waits 5s, 10s between three attempts (cap 60s).
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffExponential, Base: 5 * time.Second, Cap: time.Minute, MaxAttempts: 3}
}

// FromConfig derives a policy from the retry section. Unset or unknown values
// keep the defaults, and a base above the cap is clamped to it.
func FromConfig(rc config.RetryConfig) Policy {
	p := DefaultPolicy()
	if rc.MaxAttempts > 0 {
		p.MaxAttempts = rc.MaxAttempts
	}
	if rc.Base > 0 {
		p.Base = rc.Base
	}
	if rc.MaxDelay > 0 {
		p.Cap = rc.MaxDelay
	}
	if m := config.NormalizeRetryBackoff(string(rc.Backoff)); m != "" {
		p.Mode = m
	}
	p.Base = min(p.Base, p.Cap)
	return p
}

// Attempts is the total number of calls the policy allows.
func (p Policy) Attempts() int { return max(p.MaxAttempts, 1) }

// Delay is the wait before retry n (1-based). Exponential mode yields Base×2^(n-1).
func (p Policy) Delay(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	var d time.Duration
	switch p.Mode {
	case config.RetryBackoffFixed:
		d = p.Base
	case config.RetryBackoffLinear:
		d = time.Duration(n) * p.Base
	default:
		if n > 30 {
			return p.Cap
		}
		d = p.Base << (n - 1)
	}
	if d > p.Cap || d <= 0 {
		return p.Cap
	}
	return d
}

// Schedule lists every wait the policy can impose, in order.
func (p Policy) Schedule() []time.Duration {
	out := make([]time.Duration, 0, p.Attempts()-1)
	for n := 1; n < p.Attempts(); n++ {
		out = append(out, p.Delay(n))
	}
	return out
}
