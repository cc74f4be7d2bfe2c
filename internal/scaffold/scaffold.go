// Package scaffold produces the ordered list of units to generate, either by
// asking the generation service (from a brief and preset) or directly from a
// reference site's site spec.
package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/unit"
)

// FileName is the scaffold artifact inside a project directory.
const FileName = "scaffold.md"

// Source records how a scaffold was produced.
type Source string

const (
	SourceModel    Source = "model"
	SourceSiteSpec Source = "site-spec"
)

// Scaffold is the ordered unit plan for a project.
type Scaffold struct {
	Units  []unit.Spec
	Text   string
	Source Source
}

var lineRe = regexp.MustCompile(`^\d+\.\s+([\w][\w-]*)\s*\|\s*([\w][\w-]*)\s*\|\s*(.+)`)

// Parse reads lines of the form "N. ARCHETYPE | variant | content direction".
// Bold markers are stripped first so "1. **NAV | sticky** | ..." also parses.
// Ordinals are assigned in line order starting at zero.
func Parse(text string) []unit.Spec {
	var specs []unit.Spec
	for _, line := range strings.Split(text, "\n") {
		cleaned := strings.ReplaceAll(strings.TrimSpace(line), "**", "")
		m := lineRe.FindStringSubmatch(cleaned)
		if m == nil {
			continue
		}
		specs = append(specs, unit.Spec{
			Ordinal:   len(specs),
			Archetype: strings.TrimSpace(m[1]),
			Variant:   strings.TrimSpace(m[2]),
			Content:   strings.TrimSpace(m[3]),
		})
	}
	return specs
}

// Path returns output/<project>/scaffold.md.
func Path(projectDir string) string {
	return filepath.Join(projectDir, FileName)
}

// Write stores the scaffold text.
func Write(projectDir, text string) error {
	if err := os.MkdirAll(projectDir, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create project directory").
			WithContext("path", projectDir).Build()
	}
	if err := os.WriteFile(Path(projectDir), []byte(text), 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write scaffold").
			WithContext("path", Path(projectDir)).Build()
	}
	return nil
}

// Load reads and parses a scaffold written by an earlier run. A missing file
// is a usage error: resuming past scaffold requires it.
func Load(projectDir string) (*Scaffold, error) {
	data, err := os.ReadFile(Path(projectDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ValidationError("no scaffold found; run without --skip-to first").
				WithContext("path", Path(projectDir)).Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read scaffold").
			WithContext("path", Path(projectDir)).Build()
	}
	s := &Scaffold{Text: string(data), Source: SourceModel, Units: ParseAny(string(data))}
	return s, nil
}

// RequireUnits fails when a scaffold produced no units.
func (s *Scaffold) RequireUnits() error {
	if len(s.Units) == 0 {
		return errors.StageError("no sections parsed from scaffold").Fatal().
			WithContext("source", string(s.Source)).Build()
	}
	return nil
}

// Exists reports whether a scaffold artifact is present.
func Exists(projectDir string) bool {
	_, err := os.Stat(Path(projectDir))
	return err == nil
}

// percent formats a 0..1 confidence the way scaffold listings show it.
func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}
