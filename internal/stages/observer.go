package stages

import (
	"time"

	"github.com/craigdanielk/web-builder/internal/metrics"
)

// Observer receives callbacks around stage execution and run lifecycle.
type Observer interface {
	OnStageStart(stage Name)
	OnStageComplete(stage Name, duration time.Duration, result Result, err error)
	OnRunComplete(report *Report)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnStageStart(Name)                                  {}
func (NoopObserver) OnStageComplete(Name, time.Duration, Result, error) {}
func (NoopObserver) OnRunComplete(*Report)                              {}

// RecorderObserver adapts metrics.Recorder into an Observer.
type RecorderObserver struct{ Recorder metrics.Recorder }

func (r RecorderObserver) OnStageStart(Name) {}

func (r RecorderObserver) OnStageComplete(stage Name, d time.Duration, _ Result, _ error) {
	if r.Recorder != nil {
		r.Recorder.ObserveStageDuration(string(stage), d)
	}
}

func (r RecorderObserver) OnRunComplete(report *Report) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.ObserveRunDuration(report.End.Sub(report.Start))
	r.Recorder.IncRunOutcome(string(report.Outcome))
}

// Observers fans callbacks out to every member in order.
type Observers []Observer

func (o Observers) OnStageStart(stage Name) {
	for _, ob := range o {
		ob.OnStageStart(stage)
	}
}

func (o Observers) OnStageComplete(stage Name, d time.Duration, res Result, err error) {
	for _, ob := range o {
		ob.OnStageComplete(stage, d, res, err)
	}
}

func (o Observers) OnRunComplete(report *Report) {
	for _, ob := range o {
		ob.OnRunComplete(report)
	}
}
