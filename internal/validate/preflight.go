package validate

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/logfields"
	"github.com/craigdanielk/web-builder/internal/unit"
	"github.com/craigdanielk/web-builder/internal/unitgen"
)

// Project layout read by Preflight.
const (
	SectionsDir  = "sections"
	PageFile     = "page.tsx"
	ScaffoldFile = "scaffold.md"
)

// minContentChars is the trimmed length below which a section is empty.
const minContentChars = 50

// ReadSections loads the section files of a project in file name order.
// Ordinal comes from the NN- prefix; files without one get -1.
func ReadSections(projectDir string) ([]unit.Generated, error) {
	dir := filepath.Join(projectDir, SectionsDir)
	matches, err := filepath.Glob(filepath.Join(dir, "*.tsx"))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "list section files").Build()
	}
	sort.Strings(matches)
	out := make([]unit.Generated, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "read section file").
				WithContext("path", path).Build()
		}
		name := filepath.Base(path)
		g := unit.Generated{Ordinal: ordinalOf(name), File: name, Text: string(data)}
		if g.Ordinal >= 0 {
			g.Archetype = archetypeOf(name)
			g.Component = unit.ComponentName(g.Ordinal, g.Archetype)
		}
		out = append(out, g)
	}
	return out, nil
}

// archetypeOf reverses unit.FileName: "02-social_proof.tsx" is SOCIAL-PROOF.
func archetypeOf(name string) string {
	_, rest, _ := strings.Cut(strings.TrimSuffix(name, ".tsx"), "-")
	return strings.ToUpper(strings.ReplaceAll(rest, "_", "-"))
}

func ordinalOf(name string) int {
	prefix, _, ok := strings.Cut(name, "-")
	if !ok {
		return -1
	}
	n, err := strconv.Atoi(prefix)
	if err != nil {
		return -1
	}
	return n - 1
}

// Preflight re-reads the project's section files, repairs truncated files
// in place, and checks that the scaffold and page are present and that the
// page references every section. Deterministic checks run on the repaired
// text and are merged into the same report.
func Preflight(projectDir string) (*Report, error) {
	units, err := ReadSections(projectDir)
	if err != nil {
		return nil, err
	}
	r := NewReport(ModePreflight, len(units))
	if len(units) == 0 {
		r.Add(SectionsDir, SeverityError, CheckNoSections, "No section files found in sections/")
	}

	repaired := 0
	for _, u := range units {
		if len(strings.TrimSpace(u.Text)) < minContentChars {
			r.Add(u.File, SeverityError, CheckNearlyEmpty, fmt.Sprintf("%s is nearly empty (%d chars)", u.File, len(u.Text)))
			continue
		}
		text := u.Text
		res := unitgen.Repair(text, u.File)
		switch {
		case res.Repaired:
			path := filepath.Join(projectDir, SectionsDir, u.File)
			if err := os.WriteFile(path, []byte(res.Text), 0o600); err != nil {
				return nil, errors.WrapError(err, errors.CategoryFileSystem, "write repaired section").
					WithContext("path", path).Build()
			}
			text = res.Text
			repaired++
			r.Add(u.File, SeverityWarning, CheckTruncationFixed, u.File+" was truncated — auto-repaired")
			for _, w := range res.Warnings {
				r.Add(u.File, SeverityWarning, CheckTruncationFixed, w)
			}
		case res.Truncated:
			r.Add(u.File, SeverityError, CheckNotTruncated, u.File+" is truncated and could not be auto-repaired")
		}
		checkUnit(r, u.File, text)
	}
	if repaired > 0 {
		slog.Warn("Auto-repaired truncated sections", "count", repaired, logfields.Path(projectDir))
	}

	if _, err := os.Stat(filepath.Join(projectDir, ScaffoldFile)); err != nil {
		r.Add(ScaffoldFile, SeverityWarning, CheckScaffold, "scaffold.md not found")
	}
	page, err := os.ReadFile(filepath.Join(projectDir, PageFile))
	if err != nil {
		r.Add(PageFile, SeverityWarning, CheckPage, "page.tsx not found (will be created during assembly)")
		return r, nil
	}
	for _, u := range units {
		stem := strings.TrimSuffix(u.File, ".tsx")
		_, short, _ := strings.Cut(stem, "-")
		if !strings.Contains(string(page), stem) && (short == "" || !strings.Contains(string(page), short)) {
			r.Add(u.File, SeverityWarning, CheckPageReference, u.File+" not imported in page.tsx")
		}
	}
	return r, nil
}
