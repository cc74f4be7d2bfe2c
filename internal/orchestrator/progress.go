package orchestrator

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/craigdanielk/web-builder/internal/logfields"
)

// progress logs a heartbeat while sections are being generated, so long
// parallel runs show movement between unit completions.
type progress struct {
	total int
	done  atomic.Int64
	start time.Time
	sched gocron.Scheduler
}

// startProgress schedules the heartbeat. A non-positive interval or a
// scheduler error leaves counting in place without logging.
func startProgress(project string, total int, interval time.Duration) *progress {
	p := &progress{total: total, start: time.Now()}
	if interval <= 0 {
		return p
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		slog.Debug("Progress heartbeat disabled", logfields.Error(err))
		return p
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(p.log, project),
		gocron.WithName("sections-progress"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		slog.Debug("Progress heartbeat disabled", logfields.Error(err))
		_ = s.Shutdown()
		return p
	}
	s.Start()
	p.sched = s
	return p
}

func (p *progress) unitDone() { p.done.Add(1) }

func (p *progress) log(project string) {
	slog.Info("Sections in progress",
		logfields.Project(project),
		"done", p.done.Load(),
		"total", p.total,
		"elapsed", time.Since(p.start).Truncate(time.Second).String())
}

func (p *progress) stop() {
	if p.sched == nil {
		return
	}
	if err := p.sched.Shutdown(); err != nil {
		slog.Debug("Stopping progress heartbeat failed", logfields.Error(err))
	}
}
