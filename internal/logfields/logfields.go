package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyProject    = "project"
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyUnit       = "unit"
	KeyFile       = "file"
	KeyPath       = "path"
	KeyAttempt    = "attempt"
	KeyBackoff    = "backoff"
	KeyBudget     = "budget"
	KeyModel      = "model"
	KeySource     = "source"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Project(name string) slog.Attr        { return slog.String(KeyProject, name) }
func RunID(id string) slog.Attr            { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr          { return slog.String(KeyStage, name) }
func Unit(ordinal int) slog.Attr           { return slog.Int(KeyUnit, ordinal) }
func File(name string) slog.Attr           { return slog.String(KeyFile, name) }
func Path(p string) slog.Attr              { return slog.String(KeyPath, p) }
func Attempt(n int) slog.Attr              { return slog.Int(KeyAttempt, n) }
func Backoff(d time.Duration) slog.Attr    { return slog.Duration(KeyBackoff, d) }
func Budget(tokens int) slog.Attr          { return slog.Int(KeyBudget, tokens) }
func Model(m string) slog.Attr             { return slog.String(KeyModel, m) }
func Source(s string) slog.Attr            { return slog.String(KeySource, s) }
func DurationMS(d time.Duration) slog.Attr { return slog.Int64(KeyDurationMS, d.Milliseconds()) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
