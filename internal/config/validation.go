package config

import (
	"fmt"

	ferrors "github.com/craigdanielk/web-builder/internal/foundation/errors"
)

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	budgets := []struct {
		name  string
		value int
	}{
		{"budgets.scaffold", c.Budgets.Scaffold},
		{"budgets.section", c.Budgets.Section},
		{"budgets.review", c.Budgets.Review},
		{"budgets.pinned_floor", c.Budgets.PinnedFloor},
	}
	for _, b := range budgets {
		if b.value <= 0 {
			return invalid(b.name, fmt.Sprintf("must be positive, got %d", b.value))
		}
	}
	if c.Retry.MaxAttempts <= 0 {
		return invalid("retry.max_attempts", fmt.Sprintf("must be positive, got %d", c.Retry.MaxAttempts))
	}
	if c.Retry.Base < 0 {
		return invalid("retry.base", "must not be negative")
	}
	if c.Retry.Timeout <= 0 {
		return invalid("retry.timeout", "must be positive")
	}
	if NormalizeRetryBackoff(string(c.Retry.Backoff)) == "" {
		return invalid("retry.backoff", fmt.Sprintf("unknown mode %q", c.Retry.Backoff))
	}
	if NormalizeLogLevel(string(c.Logging.Level)) == "" {
		return invalid("logging.level", fmt.Sprintf("unknown level %q", c.Logging.Level))
	}
	if NormalizeReviewMode(string(c.Review.Mode)) == "" {
		return invalid("review.mode", fmt.Sprintf("unknown mode %q", c.Review.Mode))
	}
	return nil
}

func invalid(field, msg string) error {
	return ferrors.ConfigError(field+": "+msg).WithContext("field", field).Build()
}
