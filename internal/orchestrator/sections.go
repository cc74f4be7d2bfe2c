package orchestrator

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/craigdanielk/web-builder/internal/contextinject"
	"github.com/craigdanielk/web-builder/internal/eventstore"
	"github.com/craigdanielk/web-builder/internal/extraction"
	"github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/logfields"
	"github.com/craigdanielk/web-builder/internal/metrics"
	"github.com/craigdanielk/web-builder/internal/stages"
	"github.com/craigdanielk/web-builder/internal/unit"
	"github.com/craigdanielk/web-builder/internal/unitgen"
)

// ExtraComponentsFile lists library components referenced by generated
// sections, for the deploy stage.
const ExtraComponentsFile = "extra-components.json"

const referenceSnapshotFile = "reference.html"

// sectionWork generates one unit. It owns the unit's file and nothing else.
type sectionWork func(ctx context.Context, idx int) error

// stageSections generates every planned unit, reusing files from an earlier
// run unless regeneration was requested.
func stageSections(ctx context.Context, rs *runState) (any, error) {
	specs := rs.scaffold.Units
	frame, err := rs.frame(len(specs))
	if err != nil {
		return nil, err
	}
	client, err := rs.service()
	if err != nil {
		return nil, err
	}
	gen := unitgen.NewGenerator(client, rs.cfg.Models.Section, frame, unitgen.WithRecorder(rs.recorder))
	inj := contextinject.New(rs.cfg.Budgets.Section, contextinject.DefaultSources(rs.injectionDeps())...)

	if err := os.MkdirAll(rs.sectionsDir, 0o750); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "create sections directory").
			WithContext("path", rs.sectionsDir).Build()
	}

	results := make([]unit.Generated, len(specs))
	var todo []int
	for i, spec := range specs {
		if !rs.opts.Regenerate {
			if g, ok := reuseUnit(rs.sectionsDir, spec); ok {
				results[i] = g
				if err := rs.unitFinished(g, len(specs), 0); err != nil {
					return nil, err
				}
				continue
			}
		}
		todo = append(todo, i)
	}
	if reused := len(specs) - len(todo); reused > 0 {
		slog.Info("Reusing existing sections", logfields.Project(rs.opts.Project), "reused", reused, "remaining", len(todo))
	}

	if len(todo) > 0 {
		inj.Prepare(ctx, specs)
		prog := startProgress(rs.opts.Project, len(todo), rs.cfg.Observability.ProgressInterval)
		defer prog.stop()

		work := func(ctx context.Context, idx int) error {
			start := time.Now()
			spec := specs[idx]
			ictx, err := inj.Build(ctx, spec)
			if err != nil {
				return err
			}
			if ictx.Elevated {
				slog.Info("Section budget raised", logfields.File(spec.FileName()), logfields.Budget(ictx.Budget))
			}
			g, err := gen.Generate(ctx, spec, ictx, ictx.Budget)
			if err != nil {
				return err
			}
			path := filepath.Join(rs.sectionsDir, g.File)
			if err := os.WriteFile(path, []byte(g.Text), 0o600); err != nil {
				return errors.WrapError(err, errors.CategoryFileSystem, "write section").
					WithContext("path", path).Build()
			}
			results[idx] = g
			prog.unitDone()
			return rs.unitFinished(g, len(specs), time.Since(start))
		}

		if rs.parallel() {
			workers := min(rs.workers(), len(todo))
			rs.recorder.SetSectionWorkers(workers)
			slog.Info("Generating sections in parallel", "sections", len(todo), "workers", workers)
			err = runParallel(ctx, todo, workers, work)
		} else {
			rs.recorder.SetSectionWorkers(1)
			err = runSequential(ctx, todo, work)
		}
		if err != nil {
			return nil, err
		}
	}

	rs.generated = results
	rs.extras = mergeExtras(readExtras(rs.projectDir), results)
	if err := writeExtras(rs.projectDir, rs.extras); err != nil {
		return nil, err
	}
	if err := unit.WriteManifest(rs.projectDir, unit.BuildManifest(results)); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "write sections manifest").Build()
	}
	return map[string]any{"section_count": len(results)}, nil
}

func runSequential(ctx context.Context, todo []int, work sectionWork) error {
	for _, idx := range todo {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := work(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

// runParallel dispatches units to at most workers goroutines. After the first
// failure no new unit is dispatched, but units already running finish.
func runParallel(ctx context.Context, todo []int, workers int, work sectionWork) error {
	p := pool.New().WithMaxGoroutines(workers).WithErrors().WithFirstError()
	var failed atomic.Bool
	for _, idx := range todo {
		if failed.Load() || ctx.Err() != nil {
			break
		}
		p.Go(func() error {
			if failed.Load() {
				return nil
			}
			if err := work(ctx, idx); err != nil {
				failed.Store(true)
				return err
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// unitFinished records a completed unit and commits the per-unit checkpoint.
func (rs *runState) unitFinished(g unit.Generated, total int, d time.Duration) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.report.Units++
	switch {
	case g.Reused:
		rs.report.UnitsReused++
		rs.recorder.IncUnitFlag(metrics.UnitReused)
	case g.Flags.Repaired:
		rs.report.UnitsRepaired++
	case g.Flags.Truncated:
		rs.report.UnitsTruncated++
	}
	rs.emitter.UnitCompleted(eventstore.UnitOutcome{
		Ordinal:    g.Ordinal,
		File:       g.File,
		Truncated:  g.Flags.Truncated,
		Repaired:   g.Flags.Repaired,
		Reused:     g.Reused,
		DurationMS: d.Milliseconds(),
	})
	if len(rs.completed) != total {
		rs.completed = make([]bool, total)
	}
	if g.Ordinal >= 0 && g.Ordinal < total {
		rs.completed[g.Ordinal] = true
	}
	return rs.checkpoints.Save(rs.opts.Project, stages.Sections, map[string]int{
		"last_section_index": contiguousPrefix(rs.completed),
		"section_count":      total,
	})
}

// contiguousPrefix returns the highest index i with done[0..i] all set, or -1.
// Parallel workers finish out of order, so a later unit completing never
// advances the checkpoint past an unfinished earlier one.
func contiguousPrefix(done []bool) int {
	last := -1
	for i, ok := range done {
		if !ok {
			break
		}
		last = i
	}
	return last
}

// reuseUnit loads a section file left by an earlier run.
func reuseUnit(dir string, spec unit.Spec) (unit.Generated, bool) {
	data, err := os.ReadFile(filepath.Join(dir, spec.FileName()))
	if err != nil || len(data) == 0 {
		return unit.Generated{}, false
	}
	g := unit.NewGenerated(spec, string(data))
	g.Reused = true
	return g, true
}

// frame builds the project-wide part of every section prompt.
func (rs *runState) frame(total int) (unitgen.Frame, error) {
	tax, err := rs.loadTaxonomy()
	if err != nil {
		return unitgen.Frame{}, err
	}
	path := rs.cfg.Paths.TemplateFile(rs.preset.Engine.InstructionTemplate())
	instructions, err := os.ReadFile(path)
	if err != nil {
		return unitgen.Frame{}, errors.WrapError(err, errors.CategoryConfig, "read section instructions").
			WithContext("path", path).Build()
	}
	slog.Info("Section frame ready", "engine", string(rs.preset.Engine), "sections", total)
	f := unitgen.Frame{
		StyleHeader:  rs.preset.StyleHeader,
		Total:        total,
		Taxonomy:     tax,
		Instructions: string(instructions),
	}
	if rs.siteSpec != nil {
		f.SiteStyle = rs.siteSpec.Style
	}
	return f, nil
}

// injectionDeps gathers context sources. Helper-backed sources are enabled
// only when the helpers directory exists.
func (rs *runState) injectionDeps() contextinject.Deps {
	paths := rs.cfg.Paths
	d := contextinject.Deps{
		Identification:  rs.identification,
		Injection:       extraction.LoadInjectionData(rs.extractionDir),
		SectionContexts: rs.sectionContexts,
		PresetContent:   rs.preset.Content,
		SearchIndexPath: filepath.Join(paths.ComponentsDir(), "registry", "animation_search_index.json"),
		PinnedFloor:     rs.cfg.Budgets.PinnedFloor,
		ContextTimeout:  rs.cfg.Helpers.ContextTimeout,
		SmallTimeout:    rs.cfg.Helpers.SmallTimeout,
	}
	if rs.extractionDir != "" {
		if snap := filepath.Join(rs.extractionDir, referenceSnapshotFile); fileExists(snap) {
			d.SnapshotPath = snap
		}
	}
	if fileExists(paths.HelpersDir()) {
		d.Helper = rs.runner
	}
	return d
}

func readExtras(projectDir string) []string {
	data, err := os.ReadFile(filepath.Join(projectDir, ExtraComponentsFile))
	if err != nil {
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		slog.Warn("Ignoring unreadable extra components list", logfields.Error(err))
		return nil
	}
	return out
}

func mergeExtras(prior []string, units []unit.Generated) []string {
	out := slices.Clone(prior)
	for _, u := range units {
		out = append(out, u.ExtraComponents...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func writeExtras(projectDir string, extras []string) error {
	if extras == nil {
		extras = []string{}
	}
	data, err := json.MarshalIndent(extras, "", "  ")
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "encode extra components").Build()
	}
	path := filepath.Join(projectDir, ExtraComponentsFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write extra components").
			WithContext("path", path).Build()
	}
	return nil
}
