package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/craigdanielk/web-builder/internal/eventstore"
	"github.com/craigdanielk/web-builder/internal/llm"
	"github.com/craigdanielk/web-builder/internal/logfields"
	"github.com/craigdanielk/web-builder/internal/stages"
)

// Emitter turns run lifecycle callbacks into stored and published events.
// Recording failures are logged once per kind and never fail the run.
type Emitter struct {
	runID   string
	project string
	store   eventstore.Store
	pub     Publisher

	mu     sync.Mutex
	warned map[string]bool
}

// NewEmitter returns an emitter for one run. store and pub may be nil.
func NewEmitter(runID, project string, store eventstore.Store, pub Publisher) *Emitter {
	if pub == nil {
		pub = NoopPublisher{}
	}
	return &Emitter{runID: runID, project: project, store: store, pub: pub, warned: map[string]bool{}}
}

// RunID returns the run the emitter records for.
func (e *Emitter) RunID() string { return e.runID }

// RunStarted records the beginning of the run.
func (e *Emitter) RunStarted(meta eventstore.RunStartedMeta) {
	e.emit(eventstore.NewRunStarted(e.runID, e.project, meta))
}

// OnStageStart implements stages.Observer.
func (e *Emitter) OnStageStart(stage stages.Name) {
	e.emit(eventstore.NewStageStarted(e.runID, e.project, string(stage)))
}

// OnStageComplete implements stages.Observer.
func (e *Emitter) OnStageComplete(stage stages.Name, d time.Duration, res stages.Result, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	e.emit(eventstore.NewStageCompleted(e.runID, e.project, string(stage), string(res), d, msg))
}

// OnRunComplete implements stages.Observer.
func (e *Emitter) OnRunComplete(report *stages.Report) {
	totals := eventstore.RunTotals{
		Outcome:    string(report.Outcome),
		DurationMS: report.End.Sub(report.Start).Milliseconds(),
		Units:      report.Units,
		Repaired:   report.UnitsRepaired,
		Truncated:  report.UnitsTruncated,
		Reused:     report.UnitsReused,
		Retries:    report.Retries,
		Errors:     len(report.Errors),
		Warnings:   len(report.Warnings),
	}
	for _, is := range report.Issues {
		if is.Severity == stages.SeverityError {
			totals.FailStage = string(is.Stage)
			totals.FailError = is.Message
			break
		}
	}
	e.emit(eventstore.NewRunCompleted(e.runID, e.project, totals))
}

// OnRetry has the shape of retry.RetryHook.
func (e *Emitter) OnRetry(req llm.Request, attempt int, wait time.Duration, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	e.emit(eventstore.NewRetryScheduled(e.runID, e.project, req.Stage, attempt, wait, msg))
}

// UnitCompleted records one finished section unit. Safe for concurrent use.
func (e *Emitter) UnitCompleted(u eventstore.UnitOutcome) {
	e.emit(eventstore.NewUnitCompleted(e.runID, e.project, u))
}

func (e *Emitter) emit(ev eventstore.Event, err error) {
	if err != nil {
		e.warnOnce("build", err)
		return
	}
	ctx := context.Background()
	if e.store != nil {
		if err := e.store.Append(ctx, ev); err != nil {
			e.warnOnce("store", err)
		}
	}
	if err := e.pub.Publish(ctx, ev); err != nil {
		e.warnOnce("publish", err)
	}
}

func (e *Emitter) warnOnce(kind string, err error) {
	e.mu.Lock()
	seen := e.warned[kind]
	e.warned[kind] = true
	e.mu.Unlock()
	if seen {
		slog.Debug("Run event not recorded", "sink", kind, logfields.Error(err))
		return
	}
	slog.Warn("Run event not recorded", "sink", kind, logfields.RunID(e.runID), logfields.Error(err))
}

var _ stages.Observer = (*Emitter)(nil)
