package stages

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/craigdanielk/web-builder/internal/metrics"
	"github.com/craigdanielk/web-builder/internal/version"
)

// Outcome is the typed enumeration of final run result states.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// IssueCode enumerates machine-parseable issue identifiers.
// These codes are a stable contract and should only be appended.
type IssueCode string

const (
	IssueCanceled          IssueCode = "RUN_CANCELED"
	IssueGenericStageError IssueCode = "GENERIC_STAGE_ERROR"
	IssueRetriesExhausted  IssueCode = "RETRIES_EXHAUSTED"
	IssueGenerationFailure IssueCode = "GENERATION_FAILURE"
	IssueAuthFailure       IssueCode = "AUTH_FAILURE"
	IssueHelperFailure     IssueCode = "HELPER_FAILURE"
	IssueValidationFailed  IssueCode = "VALIDATION_FAILED"
	IssueDeployFailure     IssueCode = "DEPLOY_FAILURE"
)

// IssueSeverity represents normalized severity levels.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a structured entry describing a discrete problem encountered during a run.
type Issue struct {
	Code      IssueCode     `json:"code"`
	Stage     Name          `json:"stage"`
	Severity  IssueSeverity `json:"severity"`
	Message   string        `json:"message"`
	Transient bool          `json:"transient"`
}

// Count aggregates counts of outcomes for a stage.
type Count struct {
	Success  int `json:"success"`
	Warning  int `json:"warning"`
	Fatal    int `json:"fatal"`
	Canceled int `json:"canceled"`
	Skipped  int `json:"skipped"`
}

// Report captures high-level facts about one pipeline run.
type Report struct {
	RunID          string
	Project        string
	Start          time.Time
	End            time.Time
	Errors         []error
	Warnings       []error
	StageDurations map[Name]time.Duration
	StageKinds     map[Name]ErrorKind
	StageCounts    map[Name]Count
	Issues         []Issue
	Outcome        Outcome
	// Unit accounting for the sections stage.
	Units          int
	UnitsRepaired  int
	UnitsTruncated int
	UnitsReused    int
	Retries        int
	// StartStage is the first stage executed (differs from extract/scaffold on --skip-to).
	StartStage Name
	Version    string
}

// NewReport constructs an empty report for a run.
func NewReport(runID, project string) *Report {
	return &Report{
		RunID:          runID,
		Project:        project,
		Start:          time.Now(),
		StageDurations: make(map[Name]time.Duration),
		StageKinds:     make(map[Name]ErrorKind),
		StageCounts:    make(map[Name]Count),
		Version:        version.Version,
	}
}

// AddIssue appends a structured issue and mirrors severity into Errors/Warnings slices.
func (r *Report) AddIssue(code IssueCode, stage Name, severity IssueSeverity, msg string, transient bool, err error) {
	r.Issues = append(r.Issues, Issue{Code: code, Stage: stage, Severity: severity, Message: msg, Transient: transient})
	if err == nil {
		return
	}
	switch severity {
	case SeverityError:
		r.Errors = append(r.Errors, err)
	case SeverityWarning:
		r.Warnings = append(r.Warnings, err)
	}
}

// RecordStageResult updates counters and emits metrics (if recorder non-nil).
func (r *Report) RecordStageResult(stage Name, res Result, recorder metrics.Recorder) {
	if r.StageCounts == nil {
		r.StageCounts = make(map[Name]Count)
	}
	sc := r.StageCounts[stage]
	var label metrics.ResultLabel
	switch res {
	case ResultSuccess:
		sc.Success++
		label = metrics.ResultSuccess
	case ResultWarning:
		sc.Warning++
		label = metrics.ResultWarning
	case ResultFatal:
		sc.Fatal++
		label = metrics.ResultFatal
	case ResultCanceled:
		sc.Canceled++
		label = metrics.ResultCanceled
	case ResultSkipped:
		sc.Skipped++
		label = metrics.ResultSkipped
	}
	r.StageCounts[stage] = sc
	if recorder != nil && label != "" {
		recorder.IncStageResult(string(stage), label)
	}
}

// Finish sets the end time of the report.
func (r *Report) Finish() { r.End = time.Now() }

// DeriveOutcome sets the Outcome field based on recorded errors/warnings.
func (r *Report) DeriveOutcome() {
	if len(r.Errors) > 0 {
		for _, e := range r.Errors {
			var se *Error
			if errors.As(e, &se) && se.Kind == ErrorCanceled {
				r.Outcome = OutcomeCanceled
				return
			}
		}
		r.Outcome = OutcomeFailed
		return
	}
	if len(r.Warnings) > 0 {
		r.Outcome = OutcomeWarning
		return
	}
	r.Outcome = OutcomeSuccess
}

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	dur := r.End.Sub(r.Start)
	return fmt.Sprintf("project=%s run=%s duration=%s stages=%d units=%d repaired=%d truncated=%d reused=%d retries=%d errors=%d warnings=%d outcome=%s",
		r.Project, r.RunID, dur.Truncate(time.Millisecond), len(r.StageDurations), r.Units, r.UnitsRepaired,
		r.UnitsTruncated, r.UnitsReused, r.Retries, len(r.Errors), len(r.Warnings), string(r.Outcome))
}

// Persist writes run-report.json and run-report.txt atomically into root.
func (r *Report) Persist(root string) error {
	if r.End.IsZero() {
		r.Finish()
		r.DeriveOutcome()
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return fmt.Errorf("ensure root for report: %w", err)
	}
	jb, err := json.MarshalIndent(r.Serializable(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	if err := writeAtomic(filepath.Join(root, "run-report.json"), jb); err != nil {
		return fmt.Errorf("write report json: %w", err)
	}
	if err := writeAtomic(filepath.Join(root, "run-report.txt"), []byte(r.Summary()+"\n")); err != nil {
		return fmt.Errorf("write report summary: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Serializable returns a copy with error fields converted to strings for JSON output.
func (r *Report) Serializable() *ReportSerializable {
	s := &ReportSerializable{
		RunID:          r.RunID,
		Project:        r.Project,
		Start:          r.Start,
		End:            r.End,
		Errors:         make([]string, len(r.Errors)),
		Warnings:       make([]string, len(r.Warnings)),
		StageDurations: make(map[string]int64, len(r.StageDurations)),
		StageKinds:     make(map[string]string, len(r.StageKinds)),
		StageCounts:    make(map[string]Count, len(r.StageCounts)),
		Issues:         r.Issues,
		Outcome:        string(r.Outcome),
		Units:          r.Units,
		UnitsRepaired:  r.UnitsRepaired,
		UnitsTruncated: r.UnitsTruncated,
		UnitsReused:    r.UnitsReused,
		Retries:        r.Retries,
		StartStage:     string(r.StartStage),
		Version:        r.Version,
	}
	if s.Issues == nil {
		s.Issues = []Issue{}
	}
	for k, v := range r.StageDurations {
		s.StageDurations[string(k)] = v.Milliseconds()
	}
	for k, v := range r.StageKinds {
		s.StageKinds[string(k)] = string(v)
	}
	for k, v := range r.StageCounts {
		s.StageCounts[string(k)] = v
	}
	for i, e := range r.Errors {
		s.Errors[i] = e.Error()
	}
	for i, w := range r.Warnings {
		s.Warnings[i] = w.Error()
	}
	return s
}

// ReportSerializable mirrors Report with string errors for JSON output.
type ReportSerializable struct {
	RunID          string            `json:"run_id"`
	Project        string            `json:"project"`
	Start          time.Time         `json:"start"`
	End            time.Time         `json:"end"`
	Errors         []string          `json:"errors"`
	Warnings       []string          `json:"warnings"`
	StageDurations map[string]int64  `json:"stage_durations_ms"`
	StageKinds     map[string]string `json:"stage_error_kinds"`
	StageCounts    map[string]Count  `json:"stage_counts"`
	Issues         []Issue           `json:"issues"`
	Outcome        string            `json:"outcome"`
	Units          int               `json:"units"`
	UnitsRepaired  int               `json:"units_repaired"`
	UnitsTruncated int               `json:"units_truncated"`
	UnitsReused    int               `json:"units_reused"`
	Retries        int               `json:"retries"`
	StartStage     string            `json:"start_stage,omitempty"`
	Version        string            `json:"version,omitempty"`
}
