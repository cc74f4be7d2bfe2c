// Package contextinject composes the per-unit context handed to the
// generation service alongside the base section prompt.
//
// Each Source is optional and absent-safe: a source that is missing or fails
// contributes nothing. Sources run in a fixed priority order so identical
// inputs always produce identical prompts.
package contextinject

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/craigdanielk/web-builder/internal/logfields"
	"github.com/craigdanielk/web-builder/internal/unit"
)

// Source names in priority order.
const (
	SourceReference      = "reference"
	SourceAnimation      = "animation"
	SourceAsset          = "asset"
	SourceIdentification = "identification"
	SourcePinnedScroll   = "pinned-scroll"
	SourcePlugin         = "plugin"
	SourceIcon           = "icon"
	SourceVisualFallback = "visual-fallback"
	SourceCardEmbed      = "card-embed"
	SourceUIComponents   = "ui-components"
)

// Contribution is what one source adds for one unit.
type Contribution struct {
	// Text is inserted into the prompt verbatim, including surrounding newlines.
	Text string
	// Budget, when positive, replaces the default section budget.
	Budget int
	// MinBudget, when positive, is a floor applied after Budget.
	MinBudget int
	// ExtraComponents are library component files the text refers to.
	ExtraComponents []string
}

// Request is the input to a source. Earlier sources' output is visible
// through Prior because some sources react to what came before them.
type Request struct {
	Spec  unit.Spec
	prior map[string]Contribution
}

// Prior returns the text contributed by an earlier source for this unit.
func (r *Request) Prior(source string) string {
	return r.prior[source].Text
}

// Source contributes one kind of context.
type Source interface {
	Name() string
	Contribute(ctx context.Context, req *Request) (Contribution, error)
}

// Preparer is implemented by sources that compute all units at once.
type Preparer interface {
	Prepare(ctx context.Context, specs []unit.Spec) error
}

// Block is one non-empty contribution in an InjectionContext.
type Block struct {
	Source string
	Text   string
}

// InjectionContext is the assembled per-unit context. It is never persisted.
type InjectionContext struct {
	Blocks          []Block
	Budget          int
	ExtraComponents []string
	// Elevated is set when a source raised the budget floor.
	Elevated bool
}

// Text concatenates the blocks in priority order.
func (c InjectionContext) Text() string {
	var b strings.Builder
	for _, blk := range c.Blocks {
		b.WriteString(blk.Text)
	}
	return b.String()
}

// Has reports whether a source contributed.
func (c InjectionContext) Has(source string) bool {
	for _, blk := range c.Blocks {
		if blk.Source == source {
			return true
		}
	}
	return false
}

// Injector runs sources in order.
type Injector struct {
	sources    []Source
	baseBudget int
}

// New returns an injector. baseBudget is the default section budget.
func New(baseBudget int, sources ...Source) *Injector {
	return &Injector{sources: sources, baseBudget: baseBudget}
}

// Prepare lets sources that work on the whole unit list precompute. Failures
// are logged and leave that source empty.
func (inj *Injector) Prepare(ctx context.Context, specs []unit.Spec) {
	for _, s := range inj.sources {
		p, ok := s.(Preparer)
		if !ok {
			continue
		}
		if err := p.Prepare(ctx, specs); err != nil {
			slog.Warn("Context source unavailable", logfields.Source(s.Name()), logfields.Error(err))
		}
	}
}

// Build composes the context for one unit. Only cancellation is returned as
// an error; a failing source is skipped. The budget override is resolved here
// so it is in force before the generation call.
func (inj *Injector) Build(ctx context.Context, spec unit.Spec) (InjectionContext, error) {
	out := InjectionContext{Budget: inj.baseBudget}
	req := &Request{Spec: spec, prior: make(map[string]Contribution, len(inj.sources))}
	floor := 0
	extras := map[string]struct{}{}

	for _, s := range inj.sources {
		if err := ctx.Err(); err != nil {
			return InjectionContext{}, err
		}
		c, err := s.Contribute(ctx, req)
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return InjectionContext{}, cerr
			}
			slog.Warn("Context source unavailable",
				logfields.Source(s.Name()),
				logfields.Unit(spec.Ordinal),
				logfields.Error(err))
			continue
		}
		req.prior[s.Name()] = c
		if c.Text != "" {
			out.Blocks = append(out.Blocks, Block{Source: s.Name(), Text: c.Text})
		}
		if c.Budget > 0 {
			out.Budget = c.Budget
		}
		floor = max(floor, c.MinBudget)
		for _, f := range c.ExtraComponents {
			extras[f] = struct{}{}
		}
	}
	if floor > out.Budget {
		out.Budget = floor
		out.Elevated = true
	}
	for f := range extras {
		out.ExtraComponents = append(out.ExtraComponents, f)
	}
	sort.Strings(out.ExtraComponents)
	return out, nil
}

// wrap surrounds a block with the blank-line padding the prompt expects.
func wrap(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return "\n" + text + "\n"
}
