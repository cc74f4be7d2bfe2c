package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/craigdanielk/web-builder/internal/assemble"
	"github.com/craigdanielk/web-builder/internal/config"
	"github.com/craigdanielk/web-builder/internal/deploy"
	"github.com/craigdanielk/web-builder/internal/extraction"
	"github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/logfields"
	"github.com/craigdanielk/web-builder/internal/preset"
	"github.com/craigdanielk/web-builder/internal/scaffold"
	"github.com/craigdanielk/web-builder/internal/stages"
	"github.com/craigdanielk/web-builder/internal/validate"
)

func stageExtract(ctx context.Context, rs *runState) (any, error) {
	res, err := rs.extractor.Extract(ctx, rs.opts.FromURL, rs.opts.Project)
	if err != nil {
		return nil, err
	}
	rs.extractionDir = res.Dir
	rs.brief = res.Brief
	rs.sectionContexts = res.SectionContexts
	p, err := preset.Load(rs.cfg.Paths.PresetDir(), res.Preset)
	if err != nil {
		return nil, err
	}
	rs.preset = p
	if res.SiteSpecPath != "" {
		ss, err := scaffold.LoadSiteSpec(res.SiteSpecPath)
		if err != nil {
			slog.Warn("Generated site spec is invalid, falling back to a model scaffold", logfields.Error(err))
		} else {
			rs.siteSpec = ss
		}
	}
	return map[string]any{"extraction_dir": res.Dir, "source_url": rs.opts.FromURL}, nil
}

func stageIdentify(ctx context.Context, rs *runState) (any, error) {
	if rs.extractionDir == "" {
		return nil, nil
	}
	rs.identification = rs.extractor.Identify(ctx, rs.extractionDir, rs.opts.Project)
	return map[string]any{"identified": rs.identification != nil}, nil
}

func stageScaffold(ctx context.Context, rs *runState) (any, error) {
	var sc *scaffold.Scaffold
	if rs.siteSpec != nil {
		sc = scaffold.FromSiteSpec(rs.siteSpec)
		slog.Info("Scaffold built from site spec", logfields.Project(rs.opts.Project), "sections", len(sc.Units))
	} else {
		tax, err := rs.loadTaxonomy()
		if err != nil {
			return nil, err
		}
		client, err := rs.service()
		if err != nil {
			return nil, err
		}
		gen := scaffold.NewGenerator(client, rs.cfg.Models.Scaffold, rs.cfg.Budgets.Scaffold)
		sc, err = gen.Generate(ctx, scaffold.Input{
			Project:        rs.opts.Project,
			Brief:          rs.brief,
			Preset:         rs.preset,
			Taxonomy:       tax,
			Identification: rs.identification,
		})
		if err != nil {
			return nil, err
		}
	}
	if err := sc.RequireUnits(); err != nil {
		return nil, err
	}
	if err := scaffold.Write(rs.projectDir, sc.Text); err != nil {
		return nil, err
	}
	rs.scaffold = sc
	return map[string]any{"section_count": len(sc.Units), "source": string(sc.Source)}, nil
}

func stageAssemble(_ context.Context, rs *runState) (any, error) {
	path, err := assemble.Write(rs.projectDir, rs.generated, assemble.ProjectPage)
	if err != nil {
		return nil, err
	}
	slog.Info("Page assembled", logfields.Path(path), "sections", len(rs.generated))
	return map[string]any{"page": assemble.PageFile}, nil
}

// stageReview validates the generated units. Review findings never fail the
// stage: error-severity issues downgrade it to a warning and gate deploy.
func stageReview(ctx context.Context, rs *runState) (any, error) {
	var (
		rep      *validate.Report
		markdown string
	)
	if rs.cfg.Review.Mode == config.ReviewModeJudgment {
		rep, markdown = rs.judgmentReview(ctx)
	}
	if rep == nil {
		rep = validate.Deterministic{}.Validate(rs.generated)
	}
	if err := validate.Persist(rs.projectDir, rep, markdown); err != nil {
		return nil, err
	}
	for _, is := range rep.Issues {
		rs.recorder.IncIssue(is.Check, string(is.Severity))
	}
	fmt.Fprintln(rs.o.out, validate.RenderConsole(rep))

	data := map[string]any{"passed": rep.Passed, "errors": len(rep.Errors()), "warnings": len(rep.Warnings())}
	if !rep.Passed {
		return data, stages.NewWarnError(stages.Review,
			errors.ValidationError(fmt.Sprintf("review found %d error(s)", len(rep.Errors()))).
				WithContext("report", filepath.Join(rs.projectDir, validate.JSONFile)).Build())
	}
	return data, nil
}

// judgmentReview asks the service for a consistency review. A failed call
// falls back to the deterministic validator.
func (rs *runState) judgmentReview(ctx context.Context) (*validate.Report, string) {
	client, err := rs.service()
	if err == nil {
		j := validate.NewJudgment(client, rs.cfg.Models.Review, rs.cfg.Budgets.Review)
		var (
			rep *validate.Report
			md  string
		)
		rep, md, err = j.Review(ctx, rs.preset.StyleHeader, rs.generated)
		if err == nil {
			return rep, md
		}
	}
	slog.Warn("Judgment review unavailable, using deterministic checks", logfields.Error(err))
	return nil, ""
}

// stageDeploy runs the pre-flight gate and writes the site.
func stageDeploy(ctx context.Context, rs *runState) (any, error) {
	pre, err := validate.Preflight(rs.projectDir)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(rs.o.out, validate.RenderConsole(pre))
	if !pre.Passed {
		if !rs.opts.Force {
			return nil, stages.NewFatalError(stages.Deploy, usage(ErrDeployRefused).
				WithContext("errors", len(pre.Errors())).
				WithContext("hint", "fix the issues above or deploy with --force").Build())
		}
		slog.Warn("Deploying despite pre-flight errors", logfields.Project(rs.opts.Project), "errors", len(pre.Errors()))
	}

	var plugins []string
	if rs.identification != nil {
		plugins = rs.identification.DetectedPlugins
	}
	d := deploy.New(rs.runner, deploy.Options{
		Install:        rs.cfg.Deploy.Install,
		InstallTimeout: rs.cfg.Helpers.InstallTimeout,
		GitSnapshot:    rs.cfg.Deploy.GitSnapshot,
		ComponentsDir:  rs.cfg.Paths.ComponentsDir(),
	})
	res, err := d.Deploy(ctx, deploy.Input{
		RunID:             rs.runID,
		Project:           rs.opts.Project,
		SiteDir:           filepath.Join(rs.projectDir, deploy.SiteDirName),
		SectionsDir:       rs.sectionsDir,
		Units:             rs.generated,
		Preset:            rs.preset,
		Plugins:           plugins,
		AnimationAnalysis: extraction.LoadInjectionData(rs.extractionDir).AnimationAnalysis,
		ExtraComponents:   rs.extras,
	})
	if err != nil {
		return nil, err
	}
	data := map[string]any{"site_dir": res.SiteDir, "commit": res.Commit, "installed": res.Installed}
	if len(res.Warnings) > 0 {
		return data, stages.NewWarnError(stages.Deploy,
			errors.DeployError(strings.Join(res.Warnings, "; ")).Warning().Build())
	}
	return data, nil
}
