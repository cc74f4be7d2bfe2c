package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/craigdanielk/web-builder/internal/assemble"
	"github.com/craigdanielk/web-builder/internal/logfields"
	"github.com/craigdanielk/web-builder/internal/validate"
	"github.com/craigdanielk/web-builder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Project  string        `arg:"" help:"Project name"`
	Debounce time.Duration `help:"Quiet period before rebuilding" default:"500ms"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	dir, err := projectDir(cfg, w.Project)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rebuild := rebuilder(dir, g.Out)
	if err := rebuild(ctx, nil); err != nil {
		return err
	}
	sw, err := watch.New(filepath.Join(dir, validate.SectionsDir), w.Debounce, rebuild)
	if err != nil {
		return err
	}
	return sw.Run(ctx)
}

// rebuilder re-assembles the page from the files on disk and reviews it.
func rebuilder(dir string, out io.Writer) watch.Handler {
	return func(_ context.Context, changed []string) error {
		if len(changed) > 0 {
			slog.Info("Rebuilding after section change", "files", changed)
		}
		units, err := validate.ReadSections(dir)
		if err != nil {
			return err
		}
		path, err := assemble.Write(dir, units, assemble.ProjectPage)
		if err != nil {
			return err
		}
		slog.Info("Page assembled", logfields.Path(path), "sections", len(units))
		rep := validate.Deterministic{}.Validate(units)
		if err := validate.Persist(dir, rep, ""); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, validate.RenderConsole(rep))
		return nil
	}
}
