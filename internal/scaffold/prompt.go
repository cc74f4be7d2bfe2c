package scaffold

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/craigdanielk/web-builder/internal/extraction"
	"github.com/craigdanielk/web-builder/internal/llm"
	"github.com/craigdanielk/web-builder/internal/logfields"
	"github.com/craigdanielk/web-builder/internal/preset"
)

// Input is everything the model-driven scaffold needs.
type Input struct {
	Project        string
	Brief          string
	Preset         *preset.Preset
	Taxonomy       *preset.Taxonomy
	Identification *extraction.Identification
}

// Generator asks the generation service for a scaffold.
type Generator struct {
	client llm.Caller
	model  string
	budget int
}

// NewGenerator returns a scaffold generator. client is normally a retrying client.
func NewGenerator(client llm.Caller, model string, budget int) *Generator {
	return &Generator{client: client, model: model, budget: budget}
}

// Generate builds the prompt, calls the service and parses the result.
func (g *Generator) Generate(ctx context.Context, in Input) (*Scaffold, error) {
	text, err := g.client.Complete(ctx, llm.Request{
		Model:     g.model,
		MaxTokens: g.budget,
		Prompt:    BuildPrompt(in),
		Stage:     "scaffold",
	})
	if err != nil {
		return nil, err
	}
	s := &Scaffold{Text: text, Source: SourceModel, Units: Parse(text)}
	slog.Info("Scaffold generated", logfields.Project(in.Project), "sections", len(s.Units))
	return s, nil
}

// BuildPrompt renders the scaffold prompt, appending reference-site hints
// when an identification is available.
func BuildPrompt(in Input) string {
	sequence := preset.SequenceFallback
	presetName := ""
	if in.Preset != nil {
		sequence = in.Preset.Sequence
		presetName = in.Preset.Name
	}
	var b strings.Builder
	fmt.Fprintf(&b, `You are a senior web designer creating a page specification for a new website.

## Client Brief
%s

## Industry Preset — Default Section Sequence
%s

## Available Section Archetypes
%s

## Instructions

Based on the client brief, generate a page specification. Use the industry
preset's section sequence as your starting point, then adapt it:

1. ADD sections if the brief mentions needs not covered by the default sequence
2. REMOVE sections that aren't relevant to this specific client
3. REORDER if the client's priorities suggest a different flow
4. SELECT the best variant for each section based on the brief's specifics

Output format — a numbered section list:

Page: %s
Preset: %s

1. ARCHETYPE | variant | content direction for this section
2. ARCHETYPE | variant | content direction for this section
...

For each section's content direction, write 1-2 sentences describing what
specific content goes here — specific to THIS client, not generic.

Do NOT generate any code. This is a specification only.
Keep total sections between 6 and 14.`, in.Brief, sequence, in.Taxonomy.ArchetypeList(), in.Project, presetName)

	if hints := identificationHints(in.Identification); len(hints) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(hints, "\n"))
	}
	return b.String()
}

type altHint struct {
	words []string
	hint  string
}

var lowConfidenceAlternatives = []altHint{
	{[]string{"tested", "approved", "numbers", "stat", "metric", "field"}, " → Consider STATS or TESTIMONIALS"},
	{[]string{"product", "format", "access", "pricing", "plan"}, " → Consider PRODUCT-SHOWCASE or PRICING"},
	{[]string{"carbon", "sustain", "environ", "planet", "clean"}, " → Consider ABOUT or FEATURES with sustainability variant"},
}

var pluginHints = []struct{ plugin, hint string }{
	{"SplitText", "  - SplitText → Use in HERO (character reveal), CTA (word reveal), TESTIMONIALS (line reveal)"},
	{"Observer", "  - Observer → Use in GALLERY (swipe gestures) or HERO (scroll velocity effects)"},
	{"Flip", "  - Flip → Use in PRODUCT-SHOWCASE (filter grid) or PORTFOLIO (expand card)"},
	{"DrawSVG", "  - DrawSVG → Use in HOW-IT-WORKS (step reveal) or FEATURES (icon stroke draw)"},
}

func identificationHints(id *extraction.Identification) []string {
	if id == nil {
		return nil
	}
	var hints []string

	var low []extraction.MappedSection
	for _, s := range id.MappedSections {
		if s.ConfidenceOr(1) < 0.5 {
			low = append(low, s)
		}
	}
	if len(low) > 0 {
		hints = append(hints,
			"\n## Reference Site Section Analysis",
			"The reference site was analyzed. These sections had low-confidence archetype mappings — consider better alternatives:")
		for _, s := range low {
			label := s.Label
			if label == "" {
				label = "Unknown"
			}
			if r := []rune(label); len(r) > 80 {
				label = string(r[:80])
			}
			arch := s.Archetype
			if arch == "" {
				arch = "?"
			}
			alt := ""
			lower := strings.ToLower(label)
			for _, a := range lowConfidenceAlternatives {
				if containsAny(lower, a.words) {
					alt = a.hint
					break
				}
			}
			hints = append(hints, fmt.Sprintf(`  - "%s" (class: %s) → mapped as %s at %s confidence%s`,
				label, s.ClassNames, arch, percent(s.ConfidenceOr(0)), alt))
		}
	}

	if len(id.DetectedPlugins) > 0 {
		hints = append(hints,
			fmt.Sprintf("\n## Detected Animation Plugins: %s", strings.Join(id.DetectedPlugins, ", ")),
			"The reference site uses these GSAP plugins. Include sections that showcase these capabilities:")
		for _, p := range pluginHints {
			if slices.Contains(id.DetectedPlugins, p.plugin) {
				hints = append(hints, p.hint)
			}
		}
	}

	if len(id.ColorSystem.Accents) > 0 {
		accents := make([]string, 0, len(id.ColorSystem.Accents))
		for _, a := range id.ColorSystem.Accents {
			tw := a.Tailwind
			if tw == "" {
				tw = "?"
			}
			accents = append(accents, tw)
		}
		system := id.ColorSystem.System
		if system == "" {
			system = "unknown"
		}
		hints = append(hints, fmt.Sprintf("\n## Extracted Color System: %s (%s)", system, strings.Join(accents, ", ")))
	}
	return hints
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
