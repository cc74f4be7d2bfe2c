// Package orchestrator runs the generation stages for one project. It checks
// that a resume is legal before touching anything, wires the collaborators
// named by the configuration, and commits a checkpoint after every stage.
package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/craigdanielk/web-builder/internal/checkpoint"
	"github.com/craigdanielk/web-builder/internal/config"
	"github.com/craigdanielk/web-builder/internal/events"
	"github.com/craigdanielk/web-builder/internal/eventstore"
	"github.com/craigdanielk/web-builder/internal/extraction"
	"github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/helper"
	"github.com/craigdanielk/web-builder/internal/llm"
	"github.com/craigdanielk/web-builder/internal/logfields"
	"github.com/craigdanielk/web-builder/internal/metrics"
	"github.com/craigdanielk/web-builder/internal/retry"
	"github.com/craigdanielk/web-builder/internal/stages"
	"github.com/craigdanielk/web-builder/internal/version"
)

// Orchestrator builds projects according to one configuration.
type Orchestrator struct {
	cfg      *config.Config
	caller   llm.Caller
	executor helper.Executor
	sleeper  retry.Sleeper
	store    eventstore.Store
	pub      events.Publisher
	out      io.Writer
	newRunID func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCaller replaces the generation service client. The orchestrator still
// wraps it in the retrying client.
func WithCaller(c llm.Caller) Option { return func(o *Orchestrator) { o.caller = c } }

// WithHelperExecutor replaces the subprocess executor used for helpers and npm.
func WithHelperExecutor(e helper.Executor) Option { return func(o *Orchestrator) { o.executor = e } }

// WithSleeper replaces the retry backoff sleeper.
func WithSleeper(s retry.Sleeper) Option { return func(o *Orchestrator) { o.sleeper = s } }

// WithEventStore records run events into s instead of the configured path.
// The caller keeps ownership of s.
func WithEventStore(s eventstore.Store) Option { return func(o *Orchestrator) { o.store = s } }

// WithPublisher fans run events out through p instead of the configured NATS server.
func WithPublisher(p events.Publisher) Option { return func(o *Orchestrator) { o.pub = p } }

// WithOutput receives the human-readable review and pre-flight reports.
func WithOutput(w io.Writer) Option { return func(o *Orchestrator) { o.out = w } }

// WithRunIDs replaces the run identifier source.
func WithRunIDs(f func() string) Option { return func(o *Orchestrator) { o.newRunID = f } }

// New returns an orchestrator for cfg.
func New(cfg *config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{cfg: cfg, out: io.Discard, newRunID: uuid.NewString}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one build. Usage errors (bad options, project collision,
// illegal resume, missing artifacts) are returned before any file changes
// with a nil report. Otherwise the report is always returned and the error is
// the first fatal stage error.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*stages.Report, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	log := slog.With(logfields.Project(opts.Project))
	projectDir := o.cfg.Paths.ProjectDir(opts.Project)

	rs, err := o.prepare(opts, projectDir)
	if err != nil {
		return nil, err
	}
	if opts.Clean {
		if err := os.RemoveAll(projectDir); err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "remove project output").
				WithContext("path", projectDir).Build()
		}
		log.Info("Removed existing output", logfields.Path(projectDir))
	}

	runID := o.newRunID()
	log = log.With(logfields.RunID(runID))
	registry := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)
	store, pub, closeSinks := o.openSinks(ctx)
	defer closeSinks()

	emitter := events.NewEmitter(runID, opts.Project, store, pub)
	report := stages.NewReport(runID, opts.Project)
	rs.runID = runID
	rs.report = report
	rs.recorder = recorder
	rs.emitter = emitter

	env := &stages.Env{
		Report:   report,
		Observer: stages.Observers{stages.RecorderObserver{Recorder: recorder}, emitter},
		Recorder: recorder,
	}
	defs := rs.pipeline(env)
	start := stages.Name("")
	if len(defs) > 0 {
		start = defs[0].Name
	}
	emitter.RunStarted(eventstore.RunStartedMeta{
		StartStage: string(start),
		SourceURL:  opts.FromURL,
		Parallel:   rs.parallel(),
		Workers:    rs.workers(),
		Version:    version.Version,
	})
	log.Info("Run started", logfields.Stage(string(start)), "parallel", rs.parallel())

	runErr := stages.RunStages(ctx, env, defs)
	report.Retries = int(rs.retries.Load())
	if opts.FromURL != "" {
		extraction.LogGapSummary(projectDir, opts.Project)
	}
	stages.Complete(env)

	if err := report.Persist(projectDir); err != nil {
		log.Warn("Could not persist run report", logfields.Error(err))
	}
	if path := o.cfg.Observability.MetricsTextfile; path != "" {
		if err := metrics.WriteTextfile(o.cfg.Paths.Resolve(path), registry); err != nil {
			log.Warn("Could not write metrics textfile", logfields.Error(err))
		}
	}
	log.Info("Run complete", "summary", report.Summary())
	return report, runErr
}

// pipeline assembles the stage list for this run and records stages that a
// resume bypasses.
func (rs *runState) pipeline(env *stages.Env) []stages.Def {
	fromURL := rs.opts.FromURL != ""
	p := stages.NewPipeline().
		AddIf(fromURL, stages.Extract, rs.commit(stages.Extract, stageExtract)).
		AddIf(fromURL, stages.Identify, rs.commit(stages.Identify, stageIdentify)).
		Add(stages.Scaffold, rs.commit(stages.Scaffold, stageScaffold)).
		Add(stages.Sections, rs.commit(stages.Sections, stageSections)).
		Add(stages.Assemble, rs.commit(stages.Assemble, stageAssemble)).
		Add(stages.Review, rs.commit(stages.Review, stageReview)).
		AddIf(rs.opts.deploys(), stages.Deploy, rs.commit(stages.Deploy, stageDeploy))
	if rs.opts.SkipTo == "" {
		return p.Build()
	}
	var skipped []stages.Name
	for _, d := range p.Defs {
		if d.Name.Before(rs.opts.SkipTo) {
			skipped = append(skipped, d.Name)
		}
	}
	stages.Skipped(env, skipped...)
	return p.From(rs.opts.SkipTo).Build()
}

// commit runs a stage body and saves the checkpoint when it succeeded or
// only warned. Fatal and canceled stages leave the previous checkpoint.
func (rs *runState) commit(name stages.Name, body func(context.Context, *runState) (any, error)) stages.Fn {
	return func(ctx context.Context) error {
		data, err := body(ctx, rs)
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return stages.NewCanceledError(name, cerr)
			}
			se, ok := stages.AsError(err)
			if !ok {
				return stages.NewFatalError(name, err)
			}
			if se.Kind != stages.ErrorWarning {
				return se
			}
		}
		if serr := rs.checkpoints.Save(rs.opts.Project, name, data); serr != nil {
			return stages.NewFatalError(name, serr)
		}
		return err
	}
}

// openSinks resolves the event store and publisher. Either failing to open
// only disables that sink.
func (o *Orchestrator) openSinks(ctx context.Context) (eventstore.Store, events.Publisher, func()) {
	var closers []func() error
	obs := o.cfg.Observability

	var store eventstore.Store = o.store
	if store == nil && obs.EventStorePath != "" {
		path := obs.EventStorePath
		if path != ":memory:" {
			path = o.cfg.Paths.Resolve(path)
		}
		s, err := eventstore.NewSQLiteStore(path)
		if err != nil {
			slog.Warn("Event store unavailable, run events will not be recorded", logfields.Path(path), logfields.Error(err))
		} else {
			store = s
			closers = append(closers, s.Close)
		}
	}

	var pub events.Publisher = o.pub
	if pub == nil && obs.NATSURL != "" {
		p, err := events.NewNATSPublisher(ctx, obs.NATSURL, obs.NATSSubject)
		if err != nil {
			slog.Warn("Event publisher unavailable", "url", obs.NATSURL, logfields.Error(err))
		} else {
			pub = p
			closers = append(closers, p.Close)
		}
	}

	return store, pub, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Debug("Closing event sink failed", logfields.Error(err))
			}
		}
	}
}

// Checkpoints returns the checkpoint store for the configured output root.
func (o *Orchestrator) Checkpoints() *checkpoint.Store {
	return checkpoint.NewStore(o.cfg.Paths.OutputDir())
}
