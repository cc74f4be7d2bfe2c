package config

import "strings"

// RetryBackoffMode is the delay growth between retries of a service call.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// LogLevel is the minimum level written by the process logger.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat selects the slog handler.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// ReviewMode selects which validator the review stage runs.
type ReviewMode string

const (
	// ReviewModeAuto runs the deterministic validator when section files exist
	// and falls back to judgment otherwise.
	ReviewModeAuto          ReviewMode = "auto"
	ReviewModeDeterministic ReviewMode = "deterministic"
	ReviewModeJudgment      ReviewMode = "judgment"
)

var (
	backoffModes = map[string]RetryBackoffMode{
		"fixed":       RetryBackoffFixed,
		"constant":    RetryBackoffFixed,
		"linear":      RetryBackoffLinear,
		"exponential": RetryBackoffExponential,
		"exp":         RetryBackoffExponential,
	}
	logLevels = map[string]LogLevel{
		"":        LogLevelInfo,
		"debug":   LogLevelDebug,
		"info":    LogLevelInfo,
		"warn":    LogLevelWarn,
		"warning": LogLevelWarn,
		"error":   LogLevelError,
	}
	reviewModes = map[string]ReviewMode{
		"":              ReviewModeAuto,
		"auto":          ReviewModeAuto,
		"deterministic": ReviewModeDeterministic,
		"judgment":      ReviewModeJudgment,
		"judgement":     ReviewModeJudgment,
	}
)

// lookup folds case and surrounding space before consulting table; unknown
// input yields the zero value.
func lookup[T ~string](table map[string]T, raw string) T {
	return table[strings.ToLower(strings.TrimSpace(raw))]
}

// NormalizeRetryBackoff returns the typed mode, or "" for unknown input.
func NormalizeRetryBackoff(raw string) RetryBackoffMode { return lookup(backoffModes, raw) }

// NormalizeLogLevel returns the typed level, or "" for unknown input. An
// empty value means info.
func NormalizeLogLevel(raw string) LogLevel { return lookup(logLevels, raw) }

// NormalizeReviewMode returns the typed mode, or "" for unknown input. An
// empty value means auto.
func NormalizeReviewMode(raw string) ReviewMode { return lookup(reviewModes, raw) }

// NormalizeLogFormat is lenient: anything but json is text.
func NormalizeLogFormat(raw string) LogFormat {
	if lookup(map[string]LogFormat{"json": LogFormatJSON}, raw) == LogFormatJSON {
		return LogFormatJSON
	}
	return LogFormatText
}
