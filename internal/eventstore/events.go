package eventstore

import (
	"encoding/json"
	"time"
)

// Event type names. They are persisted, so only append.
const (
	TypeRunStarted     = "RunStarted"
	TypeStageStarted   = "StageStarted"
	TypeStageCompleted = "StageCompleted"
	TypeRetryScheduled = "RetryScheduled"
	TypeUnitCompleted  = "UnitCompleted"
	TypeRunCompleted   = "RunCompleted"
)

func newBase(runID, project, eventType string, payload any) (BaseEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return BaseEvent{}, wrap(err, ErrMarshalPayloadFailed).
			WithContext("run_id", runID).
			WithContext("type", eventType).
			Build()
	}
	return BaseEvent{
		EventRunID:     runID,
		EventProject:   project,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   data,
	}, nil
}

// RunStartedMeta describes how a run was started.
type RunStartedMeta struct {
	StartStage string `json:"start_stage"`
	SourceURL  string `json:"source_url,omitempty"`
	Parallel   bool   `json:"parallel"`
	Workers    int    `json:"workers,omitempty"`
	Version    string `json:"version,omitempty"`
}

// RunStarted is emitted once when the orchestrator begins.
type RunStarted struct {
	BaseEvent
	Meta RunStartedMeta
}

// NewRunStarted creates a RunStarted event.
func NewRunStarted(runID, project string, meta RunStartedMeta) (*RunStarted, error) {
	base, err := newBase(runID, project, TypeRunStarted, meta)
	if err != nil {
		return nil, err
	}
	return &RunStarted{BaseEvent: base, Meta: meta}, nil
}

// StageStarted is emitted on entry into a stage.
type StageStarted struct {
	BaseEvent
	Stage string
}

// NewStageStarted creates a StageStarted event.
func NewStageStarted(runID, project, stage string) (*StageStarted, error) {
	base, err := newBase(runID, project, TypeStageStarted, map[string]any{"stage": stage})
	if err != nil {
		return nil, err
	}
	return &StageStarted{BaseEvent: base, Stage: stage}, nil
}

// StageCompleted is emitted when a stage finishes, whatever its result.
type StageCompleted struct {
	BaseEvent
	Stage    string
	Result   string
	Duration time.Duration
	Error    string
}

// NewStageCompleted creates a StageCompleted event. errMsg is empty on success.
func NewStageCompleted(runID, project, stage, result string, duration time.Duration, errMsg string) (*StageCompleted, error) {
	base, err := newBase(runID, project, TypeStageCompleted, map[string]any{
		"stage":       stage,
		"result":      result,
		"duration_ms": duration.Milliseconds(),
		"error":       errMsg,
	})
	if err != nil {
		return nil, err
	}
	return &StageCompleted{BaseEvent: base, Stage: stage, Result: result, Duration: duration, Error: errMsg}, nil
}

// RetryScheduled is emitted before each backoff wait of the generation client.
type RetryScheduled struct {
	BaseEvent
	Stage   string
	Attempt int
	Backoff time.Duration
	Error   string
}

// NewRetryScheduled creates a RetryScheduled event.
func NewRetryScheduled(runID, project, stage string, attempt int, backoff time.Duration, errMsg string) (*RetryScheduled, error) {
	base, err := newBase(runID, project, TypeRetryScheduled, map[string]any{
		"stage":      stage,
		"attempt":    attempt,
		"backoff_ms": backoff.Milliseconds(),
		"error":      errMsg,
	})
	if err != nil {
		return nil, err
	}
	return &RetryScheduled{BaseEvent: base, Stage: stage, Attempt: attempt, Backoff: backoff, Error: errMsg}, nil
}

// UnitOutcome is the payload of a UnitCompleted event.
type UnitOutcome struct {
	Ordinal    int    `json:"index"`
	File       string `json:"file"`
	Truncated  bool   `json:"truncated"`
	Repaired   bool   `json:"repaired"`
	Reused     bool   `json:"reused"`
	DurationMS int64  `json:"duration_ms"`
}

// UnitCompleted is emitted after a section unit is generated or reused.
type UnitCompleted struct {
	BaseEvent
	Unit UnitOutcome
}

// NewUnitCompleted creates a UnitCompleted event.
func NewUnitCompleted(runID, project string, u UnitOutcome) (*UnitCompleted, error) {
	base, err := newBase(runID, project, TypeUnitCompleted, u)
	if err != nil {
		return nil, err
	}
	return &UnitCompleted{BaseEvent: base, Unit: u}, nil
}

// RunTotals is the payload of a RunCompleted event.
type RunTotals struct {
	Outcome    string `json:"outcome"`
	DurationMS int64  `json:"duration_ms"`
	Units      int    `json:"units"`
	Repaired   int    `json:"repaired"`
	Truncated  int    `json:"truncated"`
	Reused     int    `json:"reused"`
	Retries    int    `json:"retries"`
	Errors     int    `json:"errors"`
	Warnings   int    `json:"warnings"`
	FailStage  string `json:"fail_stage,omitempty"`
	FailError  string `json:"fail_error,omitempty"`
}

// RunCompleted is emitted once at the end of every run.
type RunCompleted struct {
	BaseEvent
	Totals RunTotals
}

// NewRunCompleted creates a RunCompleted event.
func NewRunCompleted(runID, project string, totals RunTotals) (*RunCompleted, error) {
	base, err := newBase(runID, project, TypeRunCompleted, totals)
	if err != nil {
		return nil, err
	}
	return &RunCompleted{BaseEvent: base, Totals: totals}, nil
}
