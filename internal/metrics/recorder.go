package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
	ResultSkipped  ResultLabel = "skipped"
)

// UnitFlag labels a post-processing outcome for a generated unit.
type UnitFlag string

const (
	UnitGenerated        UnitFlag = "generated"
	UnitTruncated        UnitFlag = "truncated"
	UnitRepaired         UnitFlag = "repaired"
	UnitClientDirective  UnitFlag = "client_directive_added"
	UnitExportNormalized UnitFlag = "export_normalized"
	UnitReused           UnitFlag = "reused"
)

// Recorder defines observability hooks for run, stage and unit metrics.
// All methods must be safe to call on the NoopRecorder.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncRunOutcome(outcome string) // outcome: success|warning|failed|canceled
	IncRetry(stage string)
	IncRetriesExhausted(stage string)
	ObserveUnitDuration(d time.Duration)
	IncUnitFlag(flag UnitFlag)
	IncIssue(check, severity string)
	SetSectionWorkers(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncRunOutcome(string)                       {}
func (NoopRecorder) IncRetry(string)                            {}
func (NoopRecorder) IncRetriesExhausted(string)                 {}
func (NoopRecorder) ObserveUnitDuration(time.Duration)          {}
func (NoopRecorder) IncUnitFlag(UnitFlag)                       {}
func (NoopRecorder) IncIssue(string, string)                    {}
func (NoopRecorder) SetSectionWorkers(int)                      {}
