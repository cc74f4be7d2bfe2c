package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/craigdanielk/web-builder/internal/logfields"
	"github.com/craigdanielk/web-builder/internal/orchestrator"
	"github.com/craigdanielk/web-builder/internal/stages"
)

// newOrchestrator is replaced in tests to inject a stub generation service.
var newOrchestrator = orchestrator.New

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Project    string `arg:"" help:"Project name (brief file and output directory)"`
	Preset     string `short:"p" help:"Preset name under the presets directory"`
	FromURL    string `name:"from-url" help:"Extract the design of a reference site first"`
	SkipTo     string `name:"skip-to" enum:",sections,assemble,review,deploy" default:"" help:"Resume at a stage using artifacts on disk (sections|assemble|review|deploy)"`
	Deploy     bool   `help:"Deploy the assembled site after review"`
	Force      bool   `help:"Deploy even when pre-flight validation reports errors"`
	Clean      bool   `help:"Delete the project directory before starting"`
	Regenerate bool   `help:"Regenerate sections instead of reusing existing files"`
	Parallel   bool   `xor:"scheduling" help:"Generate sections concurrently"`
	Sequential bool   `xor:"scheduling" help:"Generate sections one at a time"`
}

func (b *BuildCmd) options() orchestrator.Options {
	opts := orchestrator.Options{
		Project:    b.Project,
		Preset:     b.Preset,
		FromURL:    b.FromURL,
		SkipTo:     stages.Name(b.SkipTo),
		Deploy:     b.Deploy,
		Force:      b.Force,
		Clean:      b.Clean,
		Regenerate: b.Regenerate,
	}
	switch {
	case b.Parallel:
		opts.Parallel = &b.Parallel
	case b.Sequential:
		parallel := false
		opts.Parallel = &parallel
	}
	return opts
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("Starting build", logfields.Project(b.Project), "skip_to", b.SkipTo, "from_url", b.FromURL)
	report, err := newOrchestrator(cfg, orchestrator.WithOutput(g.Out)).Run(ctx, b.options())
	if report != nil {
		_, _ = fmt.Fprintln(g.Out, report.Summary())
	}
	return err
}
