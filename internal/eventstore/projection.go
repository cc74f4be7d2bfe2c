// Package eventstore records pipeline run events in SQLite and rebuilds
// read models from them.
package eventstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const (
	runStatusRunning   = "running"
	runStatusCompleted = "completed"
	runStatusFailed    = "failed"
)

// StageSummary is one stage's latest result within a run.
type StageSummary struct {
	Name     string        `json:"name"`
	Result   string        `json:"result"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// RunSummary is a read model summarizing a finished or in-progress run.
type RunSummary struct {
	RunID        string         `json:"run_id"`
	Project      string         `json:"project"`
	Status       string         `json:"status"` // "running", "completed", "failed"
	StartStage   string         `json:"start_stage,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Duration     time.Duration  `json:"duration,omitempty"`
	Stages       []StageSummary `json:"stages"`
	Units        int            `json:"units"`
	Repaired     int            `json:"repaired"`
	Truncated    int            `json:"truncated"`
	Reused       int            `json:"reused"`
	Retries      int            `json:"retries"`
	Outcome      string         `json:"outcome,omitempty"`
	ErrorStage   string         `json:"error_stage,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

func (s *RunSummary) clone() *RunSummary {
	cp := *s
	cp.Stages = append([]StageSummary(nil), s.Stages...)
	return &cp
}

// RunHistoryProjection maintains an in-memory view of run history,
// reconstructed from events stored in the event store.
type RunHistoryProjection struct {
	mu       sync.RWMutex
	store    Store
	runs     map[string]*RunSummary
	history  []*RunSummary // finished runs, newest first
	maxSize  int
	lastSync time.Time
}

// NewRunHistoryProjection creates a new projection backed by the given store.
func NewRunHistoryProjection(store Store, maxHistorySize int) *RunHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &RunHistoryProjection{
		store:   store,
		runs:    make(map[string]*RunSummary),
		history: make([]*RunSummary, 0, maxHistorySize),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from all events in the store.
func (p *RunHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return wrap(err, ErrProjectionRebuildFailed).Build()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.runs = make(map[string]*RunSummary)
	p.history = make([]*RunSummary, 0, p.maxSize)
	for _, event := range events {
		p.applyEventLocked(event)
	}
	p.sortHistoryLocked()
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	p.pruneRunsLocked()

	p.lastSync = time.Now()
	return nil
}

// Apply processes a single event and updates the projection.
func (p *RunHistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyEventLocked(event)
}

func (p *RunHistoryProjection) applyEventLocked(event Event) {
	summary := applyTo(p.runs, event)
	if summary != nil && summary.Status != runStatusRunning {
		p.addToHistoryLocked(summary)
	}
}

// applyTo folds event into the summary for its run, creating it on first sight.
func applyTo(runs map[string]*RunSummary, event Event) *RunSummary {
	runID := event.RunID()
	if runID == "" {
		return nil
	}
	summary, exists := runs[runID]
	if !exists {
		summary = &RunSummary{
			RunID:     runID,
			Project:   event.Project(),
			Status:    runStatusRunning,
			StartedAt: event.Timestamp(),
		}
		runs[runID] = summary
	}

	switch event.Type() {
	case TypeRunStarted:
		summary.StartedAt = event.Timestamp()
		var meta RunStartedMeta
		if err := json.Unmarshal(event.Payload(), &meta); err == nil {
			summary.StartStage = meta.StartStage
		}

	case TypeStageCompleted:
		var payload struct {
			Stage      string `json:"stage"`
			Result     string `json:"result"`
			DurationMS int64  `json:"duration_ms"`
			Error      string `json:"error"`
		}
		if err := json.Unmarshal(event.Payload(), &payload); err != nil {
			return summary
		}
		st := StageSummary{
			Name:     payload.Stage,
			Result:   payload.Result,
			Duration: time.Duration(payload.DurationMS) * time.Millisecond,
			Error:    payload.Error,
		}
		replaced := false
		for i := range summary.Stages {
			if summary.Stages[i].Name == st.Name {
				summary.Stages[i] = st
				replaced = true
			}
		}
		if !replaced {
			summary.Stages = append(summary.Stages, st)
		}

	case TypeRetryScheduled:
		summary.Retries++

	case TypeUnitCompleted:
		var u UnitOutcome
		if err := json.Unmarshal(event.Payload(), &u); err != nil {
			return summary
		}
		summary.Units++
		if u.Repaired {
			summary.Repaired++
		}
		if u.Truncated {
			summary.Truncated++
		}
		if u.Reused {
			summary.Reused++
		}

	case TypeRunCompleted:
		now := event.Timestamp()
		summary.CompletedAt = &now
		summary.Duration = now.Sub(summary.StartedAt)
		summary.Status = runStatusCompleted
		var totals RunTotals
		if err := json.Unmarshal(event.Payload(), &totals); err == nil {
			summary.Outcome = totals.Outcome
			summary.ErrorStage = totals.FailStage
			summary.ErrorMessage = totals.FailError
			if totals.Outcome == "failed" || totals.Outcome == "canceled" {
				summary.Status = runStatusFailed
			}
		}
	}
	return summary
}

func (p *RunHistoryProjection) addToHistoryLocked(summary *RunSummary) {
	for _, h := range p.history {
		if h.RunID == summary.RunID {
			return
		}
	}
	p.history = append([]*RunSummary{summary}, p.history...)
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	p.pruneRunsLocked()
}

// pruneRunsLocked drops finished runs that fell out of the bounded history.
// Caller must hold p.mu (write lock).
func (p *RunHistoryProjection) pruneRunsLocked() {
	keep := make(map[string]struct{}, len(p.history))
	for _, h := range p.history {
		keep[h.RunID] = struct{}{}
	}
	for id, summary := range p.runs {
		if summary.Status == runStatusRunning {
			continue
		}
		if _, ok := keep[id]; !ok {
			delete(p.runs, id)
		}
	}
}

// sortHistoryLocked sorts history by start time, newest first.
func (p *RunHistoryProjection) sortHistoryLocked() {
	for i := 1; i < len(p.history); i++ {
		for j := i; j > 0 && p.history[j].StartedAt.After(p.history[j-1].StartedAt); j-- {
			p.history[j], p.history[j-1] = p.history[j-1], p.history[j]
		}
	}
}

// GetHistory returns finished runs, newest first.
func (p *RunHistoryProjection) GetHistory() []*RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]*RunSummary, len(p.history))
	for i, h := range p.history {
		result[i] = h.clone()
	}
	return result
}

// GetRun returns the summary for a specific run.
func (p *RunHistoryProjection) GetRun(runID string) (*RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	summary, exists := p.runs[runID]
	if !exists {
		return nil, false
	}
	return summary.clone(), true
}

// GetLastCompletedRun returns the most recently finished run for project
// (any project when project is empty).
func (p *RunHistoryProjection) GetLastCompletedRun(project string) *RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, h := range p.history {
		if project == "" || h.Project == project {
			return h.clone()
		}
	}
	return nil
}

// LastSyncTime returns when the projection was last synchronized.
func (p *RunHistoryProjection) LastSyncTime() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSync
}

// LatestRun folds the newest run of project straight from the store. It
// returns nil when the project has no recorded events.
func LatestRun(ctx context.Context, store Store, project string) (*RunSummary, error) {
	runID, err := store.LatestRunID(ctx, project)
	if err != nil || runID == "" {
		return nil, err
	}
	events, err := store.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	runs := map[string]*RunSummary{}
	var summary *RunSummary
	for _, e := range events {
		if s := applyTo(runs, e); s != nil {
			summary = s
		}
	}
	return summary, nil
}
