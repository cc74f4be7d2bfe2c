// Package validate checks generated sections before they are deployed.
//
// The deterministic validator is preferred: it makes no external calls and
// always produces the same report for the same files. The judgment validator
// asks the generation service for a consistency review and is used only when
// configured or when no section files exist to check.
package validate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/craigdanielk/web-builder/internal/foundation/errors"
)

// Severity of an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Check identifiers.
const (
	CheckFileExists      = "file_exists"
	CheckUseClient       = "use_client"
	CheckExportDefault   = "export_default"
	CheckBraceBalance    = "brace_balance"
	CheckNoEmoji         = "no_emoji"
	CheckNoPlaceholder   = "no_placeholder_images"
	CheckValidImports    = "valid_imports"
	CheckNotTruncated    = "not_truncated"
	CheckNearlyEmpty     = "nearly_empty"
	CheckTruncationFixed = "truncation_repaired"
	CheckScaffold        = "scaffold_present"
	CheckPage            = "page_present"
	CheckPageReference   = "page_reference"
	CheckNoSections      = "sections_present"
	CheckConsistency     = "consistency"
)

// Mode names which validator produced a report.
type Mode string

const (
	ModeDeterministic Mode = "deterministic"
	ModeJudgment      Mode = "judgment"
	ModePreflight     Mode = "preflight"
)

// Issue is one finding.
type Issue struct {
	File     string   `json:"file"`
	Severity Severity `json:"severity"`
	Check    string   `json:"check"`
	Message  string   `json:"message"`
}

// Report is the outcome of a validation pass. Passed is true iff no issue
// has error severity.
type Report struct {
	Mode         Mode    `json:"mode"`
	Passed       bool    `json:"passed"`
	SectionCount int     `json:"section_count"`
	ErrorCount   int     `json:"error_count"`
	WarningCount int     `json:"warning_count"`
	Issues       []Issue `json:"issues"`
}

// NewReport returns an empty passing report.
func NewReport(mode Mode, sections int) *Report {
	return &Report{Mode: mode, Passed: true, SectionCount: sections, Issues: []Issue{}}
}

// Add records an issue and keeps the counters and Passed in step.
func (r *Report) Add(file string, sev Severity, check, msg string) {
	r.Issues = append(r.Issues, Issue{File: file, Severity: sev, Check: check, Message: msg})
	if sev == SeverityError {
		r.ErrorCount++
		r.Passed = false
	} else {
		r.WarningCount++
	}
}

// Merge appends other's issues.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	for _, is := range other.Issues {
		r.Add(is.File, is.Severity, is.Check, is.Message)
	}
}

// Errors returns the error-severity issues.
func (r *Report) Errors() []Issue { return r.filter(SeverityError) }

// Warnings returns the warning-severity issues.
func (r *Report) Warnings() []Issue { return r.filter(SeverityWarning) }

func (r *Report) filter(sev Severity) []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Severity == sev {
			out = append(out, is)
		}
	}
	return out
}

// File names written by Persist.
const (
	JSONFile     = "review.json"
	MarkdownFile = "review.md"
)

// Markdown renders the human-readable review.
func (r *Report) Markdown() string {
	var b strings.Builder
	title := "Deterministic"
	if r.Mode == ModeJudgment {
		title = "Judgment"
	}
	fmt.Fprintf(&b, "# Consistency Review (%s)\n\n", title)
	result := "FAIL"
	if r.Passed {
		result = "PASS"
	}
	fmt.Fprintf(&b, "**Result:** %s\n", result)
	fmt.Fprintf(&b, "**Sections reviewed:** %d\n", r.SectionCount)
	fmt.Fprintf(&b, "**Errors:** %d\n", r.ErrorCount)
	fmt.Fprintf(&b, "**Warnings:** %d\n\n", r.WarningCount)
	if len(r.Issues) == 0 {
		b.WriteString("No issues found.\n")
		return b.String()
	}
	b.WriteString("## Issues\n\n")
	for _, is := range r.Issues {
		icon := "⚠️"
		if is.Severity == SeverityError {
			icon = "❌"
		}
		fmt.Fprintf(&b, "- %s **%s** [%s]: %s\n", icon, is.File, is.Check, is.Message)
	}
	return b.String()
}

// Persist writes review.json and review.md into dir. When markdown is
// non-empty it is written instead of the rendered report.
func Persist(dir string, r *Report, markdown string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create review directory").
			WithContext("path", dir).Build()
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "encode review").Build()
	}
	if markdown == "" {
		markdown = r.Markdown()
	}
	for name, content := range map[string][]byte{JSONFile: data, MarkdownFile: []byte(markdown)} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, content, 0o600); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "write review").
				WithContext("path", path).Build()
		}
	}
	return nil
}

// Load reads a persisted review.json. A missing file yields nil.
func Load(dir string) (*Report, error) {
	data, err := os.ReadFile(filepath.Join(dir, JSONFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read review").Build()
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "parse review").Build()
	}
	return &r, nil
}
