package stages

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Name is a strongly-typed identifier for a pipeline stage.
type Name string

// Canonical stage names in pipeline order.
const (
	Extract  Name = "extract"
	Identify Name = "identify"
	Scaffold Name = "scaffold"
	Sections Name = "sections"
	Assemble Name = "assemble"
	Review   Name = "review"
	Deploy   Name = "deploy"
)

var order = []Name{Extract, Identify, Scaffold, Sections, Assemble, Review, Deploy}

// Order returns the fixed total order of stages.
func Order() []Name { return slices.Clone(order) }

// Index returns the position of name in the stage order, or -1 if unknown.
func Index(name Name) int { return slices.Index(order, name) }

// Valid reports whether name is a known stage.
func (n Name) Valid() bool { return Index(n) >= 0 }

// Before reports whether n strictly precedes other.
func (n Name) Before(other Name) bool { return Index(n) < Index(other) }

// Parse converts user input into a stage name.
func Parse(raw string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(raw)))
	if !n.Valid() {
		return "", fmt.Errorf("unknown stage %q (valid: %s)", raw, joinNames(order))
	}
	return n, nil
}

func joinNames(names []Name) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}

// Fn is a discrete unit of pipeline work.
type Fn func(ctx context.Context) error

// Def pairs a stage name with its executing function.
type Def struct {
	Name Name
	Fn   Fn
}

// Pipeline is a fluent builder for ordered stage definitions.
type Pipeline struct{ Defs []Def }

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline { return &Pipeline{Defs: make([]Def, 0, len(order))} }

// Add appends a stage unconditionally.
func (p *Pipeline) Add(name Name, fn Fn) *Pipeline {
	p.Defs = append(p.Defs, Def{Name: name, Fn: fn})
	return p
}

// AddIf appends a stage only if cond is true.
func (p *Pipeline) AddIf(cond bool, name Name, fn Fn) *Pipeline {
	if cond {
		p.Add(name, fn)
	}
	return p
}

// From drops every stage before start. Unknown start keeps the pipeline intact.
func (p *Pipeline) From(start Name) *Pipeline {
	if !start.Valid() {
		return p
	}
	kept := p.Defs[:0]
	for _, d := range p.Defs {
		if !d.Name.Before(start) {
			kept = append(kept, d)
		}
	}
	p.Defs = kept
	return p
}

// Build returns a defensive copy of the stage definitions slice.
func (p *Pipeline) Build() []Def {
	out := make([]Def, len(p.Defs))
	copy(out, p.Defs)
	return out
}
