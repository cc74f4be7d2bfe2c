package orchestrator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/craigdanielk/web-builder/internal/stages"
)

// Options are the per-run signals from the command line.
type Options struct {
	Project string
	// Preset overrides preset selection in standard mode.
	Preset string
	// FromURL switches to reference-site mode: extract and identify run first.
	FromURL string
	// SkipTo resumes at the named stage using artifacts already on disk.
	SkipTo stages.Name
	// Deploy appends the deploy stage.
	Deploy bool
	// Force deploys even when pre-flight validation reports errors.
	Force bool
	// Clean deletes the project directory before starting.
	Clean bool
	// Regenerate discards existing section files instead of reusing them.
	Regenerate bool
	// Parallel overrides the configured scheduling model when non-nil.
	Parallel *bool
}

// resumable are the stages a run may be resumed at.
var resumable = []stages.Name{stages.Sections, stages.Assemble, stages.Review, stages.Deploy}

func (o Options) validate() error {
	if strings.TrimSpace(o.Project) == "" {
		return usage(ErrInvalidOptions).WithContext("reason", "project name is required").Build()
	}
	if strings.ContainsAny(o.Project, `/\`) || o.Project == "." || o.Project == ".." {
		return usage(ErrInvalidOptions).WithContext("reason", "project name must be a single path element").
			WithContext("project", o.Project).Build()
	}
	if o.SkipTo == "" {
		return nil
	}
	if !slices.Contains(resumable, o.SkipTo) {
		return usage(ErrInvalidOptions).
			WithContext("reason", fmt.Sprintf("cannot skip to %q", o.SkipTo)).
			WithContext("allowed", joinNames(resumable)).Build()
	}
	if o.Clean {
		return usage(ErrInvalidOptions).WithContext("reason", "clean cannot be combined with skip-to").Build()
	}
	if o.FromURL != "" {
		return usage(ErrInvalidOptions).WithContext("reason", "from-url cannot be combined with skip-to").Build()
	}
	return nil
}

// deploys reports whether the run ends with the deploy stage.
func (o Options) deploys() bool { return o.Deploy || o.SkipTo == stages.Deploy }

func joinNames(names []stages.Name) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}
