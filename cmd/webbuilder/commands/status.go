package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/craigdanielk/web-builder/internal/checkpoint"
	"github.com/craigdanielk/web-builder/internal/config"
	"github.com/craigdanielk/web-builder/internal/eventstore"
	"github.com/craigdanielk/web-builder/internal/logfields"
	"github.com/craigdanielk/web-builder/internal/stages"
)

// StatusCmd implements the 'status' command.
type StatusCmd struct {
	Project string `arg:"" help:"Project name"`
}

func (s *StatusCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if _, err := projectDir(cfg, s.Project); err != nil {
		return err
	}

	cp, err := checkpoint.NewStore(cfg.Paths.OutputDir()).Load(s.Project)
	if err != nil {
		return err
	}
	if cp == nil {
		_, _ = fmt.Fprintf(g.Out, "%s: no checkpoint\n", s.Project)
	} else {
		_, _ = fmt.Fprintf(g.Out, "%s: checkpoint at %s (%s)\n", s.Project, cp.Stage, cp.Timestamp.Format(time.RFC3339))
		_, _ = fmt.Fprintf(g.Out, "resumable at: %s\n", resumeTargets(cp))
	}

	run, err := latestRun(context.Background(), cfg, s.Project)
	if err != nil {
		slog.Warn("Run history unavailable", logfields.Error(err))
		return nil
	}
	if run != nil {
		printRun(g.Out, run)
	}
	return nil
}

// resumeTargets lists the stages a --skip-to may name given cp.
func resumeTargets(cp *checkpoint.Checkpoint) string {
	var out []string
	for _, n := range []stages.Name{stages.Sections, stages.Assemble, stages.Review, stages.Deploy} {
		if checkpoint.Evaluate(cp, n).Allowed {
			out = append(out, string(n))
		}
	}
	if len(out) == 0 {
		return "none"
	}
	return strings.Join(out, ", ")
}

// latestRun reads the event store without creating it.
func latestRun(ctx context.Context, cfg *config.Config, project string) (*eventstore.RunSummary, error) {
	if cfg.Observability.EventStorePath == "" {
		return nil, nil
	}
	path := cfg.Paths.Resolve(cfg.Observability.EventStorePath)
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	store, err := eventstore.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()
	return eventstore.LatestRun(ctx, store, project)
}

func printRun(w io.Writer, run *eventstore.RunSummary) {
	_, _ = fmt.Fprintf(w, "last run %s: %s", run.RunID, run.Status)
	if run.Outcome != "" {
		_, _ = fmt.Fprintf(w, " (%s)", run.Outcome)
	}
	_, _ = fmt.Fprintf(w, ", started %s\n", run.StartedAt.Format(time.RFC3339))
	for _, st := range run.Stages {
		_, _ = fmt.Fprintf(w, "  %-9s %-8s %s\n", st.Name, st.Result, st.Duration.Truncate(time.Millisecond))
	}
	_, _ = fmt.Fprintf(w, "units=%d repaired=%d truncated=%d reused=%d retries=%d\n",
		run.Units, run.Repaired, run.Truncated, run.Reused, run.Retries)
	if run.ErrorStage != "" {
		_, _ = fmt.Fprintf(w, "failed at %s: %s\n", run.ErrorStage, run.ErrorMessage)
	}
}
