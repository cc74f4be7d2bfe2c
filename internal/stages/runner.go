package stages

import (
	"context"
	"log/slog"
	"time"

	"github.com/craigdanielk/web-builder/internal/logfields"
	"github.com/craigdanielk/web-builder/internal/metrics"
)

// Env carries the per-run collaborators the runner reports into.
type Env struct {
	Report   *Report
	Observer Observer
	Recorder metrics.Recorder
}

func (e *Env) observer() Observer {
	if e.Observer == nil {
		return NoopObserver{}
	}
	return e.Observer
}

func (e *Env) recorder() metrics.Recorder {
	if e.Recorder == nil {
		return metrics.NoopRecorder{}
	}
	return e.Recorder
}

// RunStages executes stages in order, recording timing and stopping on the first fatal error.
// Warning-kind stage errors are recorded and the run continues.
func RunStages(ctx context.Context, env *Env, defs []Def) error {
	obs := env.observer()
	rec := env.recorder()
	if len(defs) > 0 && env.Report.StartStage == "" {
		env.Report.StartStage = defs[0].Name
	}

	for _, st := range defs {
		select {
		case <-ctx.Done():
			se := NewCanceledError(st.Name, ctx.Err())
			env.Report.StageKinds[st.Name] = se.Kind
			env.Report.AddIssue(IssueCanceled, st.Name, SeverityError, se.Error(), false, se)
			env.Report.RecordStageResult(st.Name, ResultCanceled, rec)
			obs.OnStageComplete(st.Name, 0, ResultCanceled, se)
			return se
		default:
		}

		obs.OnStageStart(st.Name)
		slog.Info("Stage started", logfields.Stage(string(st.Name)))

		t0 := time.Now()
		err := st.Fn(ctx)
		dur := time.Since(t0)
		env.Report.StageDurations[st.Name] = dur

		out := ClassifyStageResult(st.Name, err)
		if out.Error != nil {
			env.Report.StageKinds[st.Name] = out.Error.Kind
			env.Report.AddIssue(out.IssueCode, out.Stage, out.Severity, out.Error.Error(), out.Transient, out.Error)
		}
		env.Report.RecordStageResult(st.Name, out.Result, rec)
		obs.OnStageComplete(st.Name, dur, out.Result, errOrNil(out.Error))

		switch {
		case out.Abort:
			slog.Error("Stage failed", logfields.Stage(string(st.Name)), logfields.DurationMS(dur), logfields.Error(out.Error))
			return out.Error
		case out.Error != nil:
			slog.Warn("Stage completed with warnings", logfields.Stage(string(st.Name)), logfields.DurationMS(dur), logfields.Error(out.Error))
		default:
			slog.Info("Stage completed", logfields.Stage(string(st.Name)), logfields.DurationMS(dur))
		}
	}
	return nil
}

// Complete finalizes the report and notifies observers exactly once per run.
func Complete(env *Env) {
	env.Report.Finish()
	env.Report.DeriveOutcome()
	env.observer().OnRunComplete(env.Report)
}

func errOrNil(se *Error) error {
	if se == nil {
		return nil
	}
	return se
}

// Skipped records stages that were bypassed by a resume request.
func Skipped(env *Env, names ...Name) {
	for _, n := range names {
		env.Report.RecordStageResult(n, ResultSkipped, env.recorder())
		slog.Debug("Stage skipped", logfields.Stage(string(n)))
	}
}
