// Package extraction runs the reference-site helpers for URL-sourced builds:
// extracting a preset and brief, building a site spec, and identifying
// section and animation patterns.
package extraction

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/craigdanielk/web-builder/internal/config"
	"github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/helper"
	"github.com/craigdanielk/web-builder/internal/logfields"
)

// Extractor drives the extraction helpers.
type Extractor struct {
	runner  *helper.Runner
	paths   config.PathsConfig
	helpers config.HelpersConfig
	newID   func() string
}

// NewExtractor returns an extractor using runner for every helper call.
func NewExtractor(runner *helper.Runner, paths config.PathsConfig, helpers config.HelpersConfig) *Extractor {
	return &Extractor{
		runner:  runner,
		paths:   paths,
		helpers: helpers,
		newID:   func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:8] },
	}
}

// Result is what a successful extraction produced.
type Result struct {
	Dir             string
	Preset          string
	Brief           string
	SectionContexts map[string]string
	// SiteSpecPath is empty when no site spec could be built.
	SiteSpecPath string
}

// Extract runs the preset and brief extraction helpers into a fresh
// extraction directory, then builds section contexts and the site spec. The
// first two steps are load-bearing and fail the stage; the rest degrade.
func (e *Extractor) Extract(ctx context.Context, url, project string) (*Result, error) {
	dir := e.paths.ExtractionDir(project + "-" + e.newID())
	res := &Result{Dir: dir, Preset: project}
	log := slog.With(logfields.Project(project), logfields.Path(dir))

	log.Info("Generating preset from URL", "url", url)
	if _, err := e.runner.RunScript(ctx, helper.Script{
		Name:    "url-to-preset.js",
		Args:    []string{url, project, "--extraction-dir", dir},
		Timeout: e.helpers.ExtractionTimeout,
	}); err != nil {
		return nil, fatal(err, "preset extraction failed")
	}
	if _, err := os.Stat(e.paths.PresetFile(project)); err != nil {
		return nil, errors.HelperError("preset was not generated").Fatal().
			WithContext("path", e.paths.PresetFile(project)).Build()
	}

	log.Info("Generating brief from URL")
	if _, err := e.runner.RunScript(ctx, helper.Script{
		Name:    "url-to-brief.js",
		Args:    []string{url, project, "--extraction-dir", dir},
		Timeout: e.helpers.BriefTimeout,
	}); err != nil {
		return nil, fatal(err, "brief extraction failed")
	}
	brief, err := os.ReadFile(e.paths.BriefFile(project))
	if err != nil {
		return nil, errors.HelperError("brief was not generated").Fatal().
			WithContext("path", e.paths.BriefFile(project)).Build()
	}
	res.Brief = string(brief)

	res.SectionContexts = e.sectionContexts(ctx, dir)
	if len(res.SectionContexts) > 0 {
		if err := writeJSON(filepath.Join(e.paths.ProjectDir(project), SectionContextsFile), res.SectionContexts); err != nil {
			log.Warn("Could not persist section contexts", logfields.Error(err))
		}
	}
	res.SiteSpecPath = e.buildSiteSpec(ctx, dir, project)
	return res, nil
}

func (e *Extractor) sectionContexts(ctx context.Context, dir string) map[string]string {
	extraction := readOptionalJSON(filepath.Join(dir, ExtractionDataFile))
	mapped := readOptionalJSON(filepath.Join(dir, MappedSectionsFile))
	if extraction == nil || mapped == nil {
		slog.Warn("Extraction data not found, continuing without section contexts", logfields.Path(dir))
		return nil
	}
	var raw map[string]json.RawMessage
	err := e.runner.Call(ctx, helper.Func{
		Module:   "section-context",
		Function: "buildAllSectionContexts",
		Args:     []any{extraction, mapped},
		Timeout:  e.helpers.ContextTimeout,
	}, &raw)
	if err != nil {
		slog.Warn("Could not build section contexts, continuing without them", logfields.Error(err))
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		var s string
		if json.Unmarshal(v, &s) == nil {
			out[k] = s
		} else {
			out[k] = string(v)
		}
	}
	slog.Info("Loaded section contexts", "sections", len(out))
	return out
}

func (e *Extractor) buildSiteSpec(ctx context.Context, dir, project string) string {
	if !fileExists(filepath.Join(dir, ExtractionDataFile)) || !fileExists(filepath.Join(dir, MappedSectionsFile)) {
		return ""
	}
	if !e.runner.HasScript("build-site-spec.js") {
		slog.Warn("Site spec builder not found, skipping site spec")
		return ""
	}
	if _, err := e.runner.RunScript(ctx, helper.Script{
		Name:    "build-site-spec.js",
		Args:    []string{dir, project},
		Timeout: e.helpers.AnalysisTimeout,
	}); err != nil {
		slog.Warn("Site spec build failed", logfields.Error(err))
		return ""
	}
	path := filepath.Join(e.paths.ProjectDir(project), SiteSpecFile)
	if !fileExists(path) {
		return ""
	}
	return path
}

// LoadSectionContexts reads persisted section contexts for a resumed run.
func LoadSectionContexts(projectDir string) map[string]string {
	data := readOptionalJSON(filepath.Join(projectDir, SectionContextsFile))
	if data == nil {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func fatal(err error, msg string) error {
	return errors.WrapError(err, errors.CategoryHelper, msg).Fatal().Build()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
