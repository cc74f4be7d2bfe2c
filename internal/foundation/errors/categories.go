package errors

// ErrorCategory routes an error to a process exit code and decides the
// defaults of its convenience constructor.
type ErrorCategory string

const (
	// Usage and input.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryAuth       ErrorCategory = "auth"

	// Collaborators outside the process.
	CategoryNetwork    ErrorCategory = "network"
	CategoryGeneration ErrorCategory = "generation"
	CategoryHelper     ErrorCategory = "helper"

	// Pipeline and artifacts.
	CategoryStage      ErrorCategory = "stage"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryDeploy     ErrorCategory = "deploy"
	CategoryEventStore ErrorCategory = "eventstore"

	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // aborts the run
	SeverityError   ErrorSeverity = "error"   // fails the current operation
	SeverityWarning ErrorSeverity = "warning" // run continues degraded
)

// RetryStrategy tells the retrying call client whether another attempt can help.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryBackoff    RetryStrategy = "backoff"
	RetryRateLimit  RetryStrategy = "rate_limit"
	RetryUserAction RetryStrategy = "user"
)

type profile struct {
	severity ErrorSeverity
	retry    RetryStrategy
	exit     int
}

var profiles = map[ErrorCategory]profile{
	CategoryValidation: {SeverityFatal, RetryNever, 2}, // bad usage, illegal resume, collision
	CategoryAuth:       {SeverityError, RetryUserAction, 5},
	CategoryConfig:     {SeverityFatal, RetryNever, 7},
	CategoryNetwork:    {SeverityError, RetryBackoff, 8},
	CategoryGeneration: {SeverityError, RetryNever, 8},
	CategoryHelper:     {SeverityWarning, RetryNever, 8},
	CategoryInternal:   {SeverityFatal, RetryNever, 10},
	CategoryStage:      {SeverityFatal, RetryNever, 11},
	CategoryFileSystem: {SeverityError, RetryNever, 11},
	CategoryDeploy:     {SeverityFatal, RetryNever, 11},
	CategoryRuntime:    {SeverityError, RetryNever, 12},
	CategoryEventStore: {SeverityError, RetryNever, 12},
}

// ExitCode is the process status for a failure in c. Unknown categories exit 1.
func (c ErrorCategory) ExitCode() int {
	if p, ok := profiles[c]; ok {
		return p.exit
	}
	return 1
}
