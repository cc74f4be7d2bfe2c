package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/craigdanielk/web-builder/internal/config"
	"github.com/craigdanielk/web-builder/internal/foundation/errors"
)

// LogLevelEnv overrides the configured log level.
const LogLevelEnv = "WEBBUILDER_LOG_LEVEL"

// Global is state shared by every subcommand.
type Global struct {
	Out io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"webbuilder.yaml"`
	Root    string           `help:"Override paths.root from the configuration"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" help:"Run the pipeline for a project"`
	Validate ValidateCmd `cmd:"" help:"Run pre-flight validation over a project's sections"`
	Status   StatusCmd   `cmd:"" help:"Show the checkpoint and latest run of a project"`
	Watch    WatchCmd    `cmd:"" help:"Re-assemble and review when section files change"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	configureLogging(c.level(""), config.LogFormatText)
	return nil
}

// LoadConfig reads the configuration and applies its logging settings.
func (c *CLI) LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	if c.Root != "" {
		cfg.Paths.Root = c.Root
	}
	configureLogging(c.level(cfg.Logging.Level), cfg.Logging.Format)
	return cfg, nil
}

// level resolves --verbose, then the environment, then the configured level.
func (c *CLI) level(configured config.LogLevel) slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	if raw := os.Getenv(LogLevelEnv); raw != "" {
		if env := config.NormalizeLogLevel(raw); env != "" {
			configured = env
		}
	}
	switch configured {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func configureLogging(level slog.Level, format config.LogFormat) {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if format == config.LogFormatJSON {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

// projectDir returns the project's output directory, rejecting names that
// would escape it.
func projectDir(cfg *config.Config, project string) (string, error) {
	if project == "" || project != filepath.Base(project) || project == "." || project == ".." {
		return "", errors.ValidationError("project name must be a single path element").
			WithContext("project", project).Build()
	}
	return cfg.Paths.ProjectDir(project), nil
}
