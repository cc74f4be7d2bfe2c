// Package unitgen generates one page section per unit spec and normalizes
// the service output into a well-formed component file.
package unitgen

import (
	"context"
	"log/slog"
	"time"

	"github.com/craigdanielk/web-builder/internal/contextinject"
	"github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/llm"
	"github.com/craigdanielk/web-builder/internal/logfields"
	"github.com/craigdanielk/web-builder/internal/metrics"
	"github.com/craigdanielk/web-builder/internal/unit"
)

// StageTag is the llm.Request stage for section calls.
const StageTag = "section"

// Generator drives one generation call per unit. It holds no per-unit
// state and is safe for concurrent use across distinct units.
type Generator struct {
	client   llm.Caller
	model    string
	frame    Frame
	recorder metrics.Recorder
}

// Option configures a Generator.
type Option func(*Generator)

// WithRecorder records unit durations and post-processing flags.
func WithRecorder(r metrics.Recorder) Option {
	return func(g *Generator) { g.recorder = r }
}

// NewGenerator returns a generator. client is normally a retry.Client.
func NewGenerator(client llm.Caller, model string, frame Frame, opts ...Option) *Generator {
	g := &Generator{client: client, model: model, frame: frame, recorder: metrics.NoopRecorder{}}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Prompt renders the prompt Generate would send.
func (g *Generator) Prompt(spec unit.Spec, ictx contextinject.InjectionContext) string {
	return BuildPrompt(g.frame, spec, ictx.Text())
}

// Generate calls the service for spec and post-processes the response.
// Any service failure is fatal for the unit; content anomalies are flagged
// on the result instead.
func (g *Generator) Generate(ctx context.Context, spec unit.Spec, ictx contextinject.InjectionContext, budget int) (unit.Generated, error) {
	start := time.Now()
	file := spec.FileName()
	text, err := g.client.Complete(ctx, llm.Request{
		Model:     g.model,
		MaxTokens: budget,
		Prompt:    g.Prompt(spec, ictx),
		Stage:     StageTag,
	})
	if err != nil {
		if ctx.Err() != nil {
			return unit.Generated{}, ctx.Err()
		}
		if ce, ok := errors.AsClassified(err); ok {
			return unit.Generated{}, ce.WithContext("file", file)
		}
		return unit.Generated{}, errors.WrapError(err, errors.CategoryGeneration, "section generation failed").
			Fatal().WithContext("file", file).Build()
	}

	code, flags, warnings := Process(text, spec)
	out := unit.NewGenerated(spec, code)
	out.Flags = flags
	out.ExtraComponents = ictx.ExtraComponents

	g.recordFlags(flags)
	g.recorder.ObserveUnitDuration(time.Since(start))
	switch {
	case flags.Repaired:
		slog.Warn("Section truncated; repaired", logfields.File(file))
	case flags.Truncated:
		slog.Error("Section truncated; could not repair", logfields.File(file))
	}
	for _, w := range warnings {
		slog.Warn(w, logfields.File(file))
	}
	return out, nil
}

func (g *Generator) recordFlags(f unit.Flags) {
	g.recorder.IncUnitFlag(metrics.UnitGenerated)
	if f.Truncated {
		g.recorder.IncUnitFlag(metrics.UnitTruncated)
	}
	if f.Repaired {
		g.recorder.IncUnitFlag(metrics.UnitRepaired)
	}
	if f.ClientDirectiveAdded {
		g.recorder.IncUnitFlag(metrics.UnitClientDirective)
	}
	if f.ExportNormalized {
		g.recorder.IncUnitFlag(metrics.UnitExportNormalized)
	}
}
