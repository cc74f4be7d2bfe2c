package orchestrator

import (
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/craigdanielk/web-builder/internal/checkpoint"
	"github.com/craigdanielk/web-builder/internal/config"
	"github.com/craigdanielk/web-builder/internal/events"
	"github.com/craigdanielk/web-builder/internal/extraction"
	"github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/helper"
	"github.com/craigdanielk/web-builder/internal/llm"
	"github.com/craigdanielk/web-builder/internal/logfields"
	"github.com/craigdanielk/web-builder/internal/metrics"
	"github.com/craigdanielk/web-builder/internal/preset"
	"github.com/craigdanielk/web-builder/internal/retry"
	"github.com/craigdanielk/web-builder/internal/scaffold"
	"github.com/craigdanielk/web-builder/internal/stages"
	"github.com/craigdanielk/web-builder/internal/unit"
	"github.com/craigdanielk/web-builder/internal/validate"
)

// runState carries artifacts between the stages of one run.
type runState struct {
	o    *Orchestrator
	cfg  *config.Config
	opts Options

	runID       string
	projectDir  string
	sectionsDir string
	checkpoints *checkpoint.Store
	runner      *helper.Runner
	extractor   *extraction.Extractor

	report   *stages.Report
	recorder metrics.Recorder
	emitter  *events.Emitter
	retries  atomic.Int64
	client   llm.Caller

	brief           string
	preset          *preset.Preset
	taxonomy        *preset.Taxonomy
	extractionDir   string
	sectionContexts map[string]string
	identification  *extraction.Identification
	siteSpec        *scaffold.SiteSpec
	scaffold        *scaffold.Scaffold
	generated       []unit.Generated
	extras          []string

	// mu guards report counters, completed and checkpoint commits made from
	// unit workers.
	mu sync.Mutex
	// completed marks finished units by ordinal during sections.
	completed []bool
}

// prepare validates the request against what is on disk and loads every
// input the first stage needs. It never writes.
func (o *Orchestrator) prepare(opts Options, projectDir string) (*runState, error) {
	paths := o.cfg.Paths
	var runnerOpts []helper.Option
	if o.executor != nil {
		runnerOpts = append(runnerOpts, helper.WithExecutor(o.executor))
	}
	runner := helper.NewRunner(o.cfg.Helpers.Node, paths.HelpersDir(), paths.Root, runnerOpts...)
	rs := &runState{
		o:           o,
		cfg:         o.cfg,
		opts:        opts,
		projectDir:  projectDir,
		sectionsDir: filepath.Join(projectDir, validate.SectionsDir),
		checkpoints: o.Checkpoints(),
		runner:      runner,
		extractor:   extraction.NewExtractor(runner, paths, o.cfg.Helpers),
		recorder:    metrics.NoopRecorder{},
	}
	log := slog.With(logfields.Project(opts.Project))

	if opts.SkipTo == "" {
		if !opts.Clean && scaffold.Exists(projectDir) {
			return nil, usage(ErrProjectExists).
				WithContext("path", projectDir).
				WithContext("hint", "resume with --skip-to <stage> or start over with --clean").Build()
		}
	} else {
		verdict, err := rs.checkpoints.CanSkipTo(opts.Project, opts.SkipTo)
		if err != nil {
			return nil, err
		}
		if !verdict.Allowed {
			return nil, usage(ErrStageOrder).
				WithContext("target", string(opts.SkipTo)).
				WithContext("checkpoint", string(verdict.Checkpoint.Stage)).
				WithContext("required", string(verdict.Required)).Build()
		}
		if verdict.Optimistic {
			log.Warn("No checkpoint found; resuming from files on disk", logfields.Stage(string(opts.SkipTo)))
		}
	}

	if opts.FromURL == "" {
		if err := rs.loadLocalInputs(); err != nil {
			return nil, err
		}
	}
	if opts.SkipTo == "" || opts.SkipTo == stages.Sections {
		if _, err := rs.loadTaxonomy(); err != nil {
			return nil, err
		}
	}

	if opts.SkipTo != "" {
		sc, err := rs.resumeScaffold()
		if err != nil {
			return nil, err
		}
		rs.scaffold = sc
		log.Info("Resuming from existing scaffold", "sections", len(sc.Units), "source", string(sc.Source))
		if stages.Sections.Before(opts.SkipTo) {
			gen, err := loadGenerated(rs.sectionsDir, sc.Units)
			if err != nil {
				return nil, err
			}
			rs.generated = gen
			rs.extras = readExtras(projectDir)
		}
	}
	return rs, nil
}

// loadLocalInputs reads the preset, brief and any reference-site artifacts
// left by an earlier URL-sourced run.
func (rs *runState) loadLocalInputs() error {
	paths := rs.cfg.Paths
	log := slog.With(logfields.Project(rs.opts.Project))

	name, err := resolvePreset(paths.PresetDir(), rs.opts.Preset, rs.opts.Project)
	if err != nil {
		return err
	}
	p, err := preset.Load(paths.PresetDir(), name)
	if err != nil {
		return err
	}
	rs.preset = p

	// A clean run ignores artifacts in the project directory it is about to remove.
	keep := !rs.opts.Clean
	ssPath := filepath.Join(rs.projectDir, extraction.SiteSpecFile)
	if keep && fileExists(ssPath) {
		ss, err := scaffold.LoadSiteSpec(ssPath)
		if err != nil {
			log.Warn("Ignoring unreadable site spec", logfields.Path(ssPath), logfields.Error(err))
		} else {
			rs.siteSpec = ss
		}
	}

	if rs.opts.SkipTo == "" && rs.siteSpec == nil {
		briefPath := paths.BriefFile(rs.opts.Project)
		data, err := os.ReadFile(briefPath)
		if stderrors.Is(err, fs.ErrNotExist) {
			return usage(ErrMissingArtifact).WithContext("artifact", "brief").WithContext("path", briefPath).Build()
		}
		if err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "read brief").WithContext("path", briefPath).Build()
		}
		rs.brief = string(data)
	}

	rs.extractionDir = extraction.LatestDir(filepath.Join(paths.OutputDir(), "extractions"), rs.opts.Project, name)
	if rs.extractionDir != "" {
		log.Info("Resolved extraction directory", logfields.Path(rs.extractionDir))
	}
	if !keep {
		return nil
	}
	id, err := extraction.LoadIdentification(rs.projectDir)
	if err != nil {
		log.Warn("Could not load identification", logfields.Error(err))
	}
	rs.identification = id
	if id != nil && len(id.DetectedPlugins) > 0 {
		log.Info("Identification loaded", "plugins", id.DetectedPlugins)
	}
	rs.sectionContexts = extraction.LoadSectionContexts(rs.projectDir)
	return nil
}

// resolvePreset prefers an explicit name, then a preset named after the
// project (left by URL mode), then the only preset available.
func resolvePreset(dir, requested, project string) (string, error) {
	if requested == "" && fileExists(filepath.Join(dir, project+".md")) {
		return project, nil
	}
	return preset.Resolve(dir, requested)
}

// resumeScaffold prefers the site spec's rich sections over scaffold.md.
func (rs *runState) resumeScaffold() (*scaffold.Scaffold, error) {
	if rs.siteSpec != nil {
		return scaffold.FromSiteSpec(rs.siteSpec), nil
	}
	if !scaffold.Exists(rs.projectDir) {
		return nil, usage(ErrMissingArtifact).
			WithContext("artifact", "scaffold").
			WithContext("path", scaffold.Path(rs.projectDir)).Build()
	}
	sc, err := scaffold.Load(rs.projectDir)
	if err != nil {
		return nil, err
	}
	return sc, sc.RequireUnits()
}

// loadGenerated reads the section file of every planned unit.
func loadGenerated(dir string, specs []unit.Spec) ([]unit.Generated, error) {
	out := make([]unit.Generated, 0, len(specs))
	for _, s := range specs {
		path := filepath.Join(dir, s.FileName())
		data, err := os.ReadFile(path)
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, usage(ErrMissingArtifact).WithContext("artifact", "section").WithContext("path", path).Build()
		}
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "read section").WithContext("path", path).Build()
		}
		g := unit.NewGenerated(s, string(data))
		g.Reused = true
		out = append(out, g)
	}
	return out, nil
}

// service returns the retrying client, creating the underlying service client on
// first use so resumes that never call the service need no credentials.
func (rs *runState) service() (llm.Caller, error) {
	if rs.client != nil {
		return rs.client, nil
	}
	base := rs.o.caller
	if base == nil {
		key, err := rs.cfg.APIKey()
		if err != nil {
			return nil, err
		}
		base = llm.NewAnthropicCaller(key, rs.cfg.Retry.Timeout)
	}
	opts := []retry.Option{
		retry.WithRecorder(rs.recorder),
		retry.WithRetryHook(rs.emitter.OnRetry),
		retry.WithRetryHook(func(llm.Request, int, time.Duration, error) { rs.retries.Add(1) }),
	}
	if rs.o.sleeper != nil {
		opts = append(opts, retry.WithSleeper(rs.o.sleeper))
	}
	rs.client = retry.NewClient(base, retry.FromConfig(rs.cfg.Retry), rs.cfg.Retry.Timeout, opts...)
	return rs.client, nil
}

func (rs *runState) loadTaxonomy() (*preset.Taxonomy, error) {
	if rs.taxonomy == nil {
		t, err := preset.LoadTaxonomy(rs.cfg.Paths.TaxonomyFile())
		if err != nil {
			return nil, err
		}
		rs.taxonomy = t
	}
	return rs.taxonomy, nil
}

func (rs *runState) parallel() bool {
	if rs.opts.Parallel != nil {
		return *rs.opts.Parallel
	}
	return rs.cfg.Parallel.Enabled
}

func (rs *runState) workers() int {
	if !rs.parallel() {
		return 1
	}
	return max(rs.cfg.Parallel.MaxWorkers, 1)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
