package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"

	"github.com/craigdanielk/web-builder/internal/helper"
	"github.com/craigdanielk/web-builder/internal/logfields"
)

const identifierScript = "lib/pattern-identifier.js"

// Identify runs the pattern identifier over an extraction directory, writes
// gap-report.json and identification.json into the project directory, and
// enriches the identification with icon and logo assets. Any failure yields
// nil: identification only refines prompts.
func (e *Extractor) Identify(ctx context.Context, extractionDir, project string) *Identification {
	log := slog.With(logfields.Project(project))
	if !e.runner.HasScript(identifierScript) {
		log.Warn("Pattern identifier not found, skipping identification")
		return nil
	}
	out, err := e.runner.RunScript(ctx, helper.Script{
		Name:    identifierScript,
		Args:    []string{extractionDir, project},
		Dir:     e.runner.HelpersDir(),
		Timeout: e.helpers.AnalysisTimeout,
	})
	if err != nil {
		log.Warn("Pattern identification failed", logfields.Error(err))
		return nil
	}
	id, err := decodeIdentification(out.Stdout)
	if err != nil {
		log.Warn("Could not parse identification output, continuing without it", logfields.Error(err))
		return nil
	}

	projectDir := e.paths.ProjectDir(project)
	if err := writeJSON(filepath.Join(projectDir, GapReportFile), id.GapReport); err != nil {
		log.Warn("Could not write gap report", logfields.Error(err))
	}

	counts := id.GapReport.Counts()
	log.Info("Patterns identified",
		"color_system", orUnknown(id.ColorSystem.System),
		"accents", len(id.ColorSystem.Accents),
		"sections", id.SectionCount,
		"high_confidence", id.HighConfidence,
		"animation_patterns", len(id.AnimationPatterns),
		"gaps", len(id.GapReport.Gaps),
		"gaps_high", counts.High,
		"gaps_medium", counts.Medium,
		"gaps_low", counts.Low)

	data := readOptionalJSON(filepath.Join(extractionDir, ExtractionDataFile))
	if assets, err := ReadAssets(data); err == nil {
		Enrich(id, assets)
	}
	if err := SaveIdentification(projectDir, id); err != nil {
		log.Warn("Could not write identification", logfields.Error(err))
	}
	return id
}

// Enrich copies icon library, logo and SVG assets into the identification.
func Enrich(id *Identification, a Assets) {
	if a.IconLibrary != nil && a.IconLibrary.Library != "" {
		id.IconLibrary = a.IconLibrary
		slog.Info("Icon library detected", "library", a.IconLibrary.Library, "icons", a.IconLibrary.Count)
	}
	if len(a.Logos) > 0 {
		id.ExtractedLogos = a.Logos
	}
	if len(a.SVGs) > 0 {
		id.ExtractedSVGs = a.SVGs
	}
}

func decodeIdentification(stdout []byte) (*Identification, error) {
	var id Identification
	err := json.Unmarshal(bytes.TrimSpace(stdout), &id)
	if err == nil {
		return &id, nil
	}
	// Identifiers that log before printing still end with the JSON line.
	if line := helper.LastLine(stdout); line != nil && json.Unmarshal(line, &id) == nil {
		return &id, nil
	}
	return nil, err
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
