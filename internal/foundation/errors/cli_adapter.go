package errors

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
)

// CLIErrorAdapter turns a failed command into a message, a log record and an exit code.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter. A nil logger uses slog.Default.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger}
}

// ExitCodeFor maps err to a process status: 0 for nil, the category's code
// for classified errors, 1 otherwise.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if ce, ok := AsClassified(err); ok {
		return ce.category.ExitCode()
	}
	return 1
}

// FormatError renders err for stderr. Quiet mode shows the message and any
// "hint" context; verbose mode shows the whole chain.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	ce, ok := AsClassified(err)
	switch {
	case !ok:
		return fmt.Sprintf("Error: %v", err)
	case a.verbose:
		return err.Error()
	case ce.category == CategoryInternal:
		return "Internal error occurred (use -v for details)"
	}
	msg := "Error: " + ce.message
	if hint, ok := ce.context.GetString("hint"); ok {
		msg += "\nHint: " + hint
	}
	return msg
}

// HandleError prints err and exits with its code. It returns only for nil.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	if a.shouldLog(err) {
		a.logError(err)
	}
	fmt.Fprintln(os.Stderr, a.FormatError(err))
	os.Exit(a.ExitCodeFor(err))
}

func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}
	ce, ok := AsClassified(err)
	return !ok || ce.IsFatal()
}

func (a *CLIErrorAdapter) logError(err error) {
	ce, ok := AsClassified(err)
	if !ok {
		a.logger.Error("Unclassified error", "error", err)
		return
	}
	level := slog.LevelError
	if ce.severity == SeverityWarning {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{slog.String("category", string(ce.category))}
	for _, k := range slices.Sorted(maps.Keys(ce.context)) {
		attrs = append(attrs, slog.Any(k, ce.context[k]))
	}
	if ce.CanRetry() {
		attrs = append(attrs, slog.Bool("retryable", true))
	}
	if ce.cause != nil {
		attrs = append(attrs, slog.String("cause", ce.cause.Error()))
	}
	a.logger.LogAttrs(context.Background(), level, ce.message, attrs...)
}
