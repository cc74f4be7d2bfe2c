package helper

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/logfields"
)

// ErrUnavailable marks a helper that is missing, failed, timed out, or
// produced output that could not be used.
var ErrUnavailable = stderrors.New("helper unavailable")

// Command is one process to execute.
type Command struct {
	Name  string
	Args  []string
	Dir   string
	Stdin []byte
}

// Output holds the captured process streams.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Executor starts processes. The default implementation uses os/exec; tests
// substitute a scripted one.
type Executor interface {
	Execute(ctx context.Context, cmd Command) (Output, error)
}

// ExecExecutor runs commands with os/exec.
type ExecExecutor struct{}

// Execute runs cmd to completion. A non-zero exit is reported through
// Output.ExitCode together with an *exec.ExitError.
func (ExecExecutor) Execute(ctx context.Context, c Command) (Output, error) {
	// #nosec G204 -- helper programs and arguments come from configuration.
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}
	return out, err
}

// Invocation describes a blocking helper run.
type Invocation struct {
	Command
	Timeout time.Duration
}

// Runner executes helper programs from a fixed helpers directory.
type Runner struct {
	node       string
	helpersDir string
	rootDir    string
	exec       Executor
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor replaces the process executor.
func WithExecutor(e Executor) Option {
	return func(r *Runner) { r.exec = e }
}

// NewRunner returns a runner that invokes node (the binary name or path) for
// scripts under helpersDir. rootDir is the working directory for top-level
// scripts.
func NewRunner(node, helpersDir, rootDir string, opts ...Option) *Runner {
	r := &Runner{node: node, helpersDir: helpersDir, rootDir: rootDir, exec: ExecExecutor{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HelpersDir returns the directory helper scripts are resolved against.
func (r *Runner) HelpersDir() string { return r.helpersDir }

// ScriptPath resolves a helper script relative to the helpers directory.
func (r *Runner) ScriptPath(script string) string {
	return filepath.Join(r.helpersDir, script)
}

// HasScript reports whether a helper script exists on disk.
func (r *Runner) HasScript(script string) bool {
	_, err := os.Stat(r.ScriptPath(script))
	return err == nil
}

// Run executes inv with its timeout. A non-zero exit, a timeout, or a failure
// to start yields an error wrapping ErrUnavailable. Cancellation of the parent
// context is returned unchanged.
func (r *Runner) Run(ctx context.Context, inv Invocation) (Output, error) {
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}
	start := time.Now()
	out, err := r.exec.Execute(ctx, inv.Command)
	elapsed := time.Since(start)

	if err == nil && out.ExitCode == 0 {
		slog.Debug("Helper finished",
			logfields.Source(inv.Name),
			logfields.DurationMS(elapsed))
		return out, nil
	}
	if cerr := ctx.Err(); cerr != nil && !stderrors.Is(cerr, context.DeadlineExceeded) {
		return out, cerr
	}

	var reason string
	switch {
	case stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		reason = fmt.Sprintf("timed out after %s", inv.Timeout)
	case err != nil && out.ExitCode == 0:
		reason = err.Error()
	default:
		reason = fmt.Sprintf("exit status %d", out.ExitCode)
	}
	return out, unavailable(inv.Command, reason, out.Stderr)
}

// Script is a helper program run directly by node.
type Script struct {
	// Name is resolved against the helpers directory.
	Name string
	Args []string
	// Dir defaults to the root directory.
	Dir     string
	Timeout time.Duration
}

// RunScript runs `node <helpersDir>/<name> args...`.
func (r *Runner) RunScript(ctx context.Context, s Script) (Output, error) {
	path := r.ScriptPath(s.Name)
	if !r.HasScript(s.Name) {
		return Output{}, unavailable(Command{Name: r.node, Args: []string{path}}, "script not found", nil)
	}
	dir := s.Dir
	if dir == "" {
		dir = r.rootDir
	}
	return r.Run(ctx, Invocation{
		Command: Command{Name: r.node, Args: append([]string{path}, s.Args...), Dir: dir},
		Timeout: s.Timeout,
	})
}

func unavailable(cmd Command, reason string, stderr []byte) error {
	b := errors.WrapError(fmt.Errorf("%w: %s", ErrUnavailable, reason), errors.CategoryHelper, "helper program failed").
		WithContext("command", cmd.Name)
	if len(cmd.Args) > 0 {
		b = b.WithContext("target", cmd.Args[0])
	}
	if tail := tail(stderr, 500); tail != "" {
		b = b.WithContext("stderr", tail)
	}
	return b.Build()
}

func tail(b []byte, n int) string {
	b = bytes.TrimSpace(b)
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(b)
}
