package unitgen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/craigdanielk/web-builder/internal/preset"
	"github.com/craigdanielk/web-builder/internal/unit"
)

// Frame is the project-wide part of every section prompt.
type Frame struct {
	StyleHeader string
	// SiteStyle holds site-spec style tokens. When set, units carrying
	// structured data are described as JSON instead of by the style header.
	SiteStyle    map[string]any
	Total        int
	Taxonomy     *preset.Taxonomy
	Instructions string
}

const promptIntro = "You are a senior frontend developer generating a single website section\n" +
	"as a React + Tailwind CSS component."

const structuredGuidance = `IMPORTANT: If the section spec contains "components.matched" with import_statement values,
use those EXACT import statements. Do not construct your own import paths.
If images are provided with src URLs, use them as backgroundImage CSS — not <img> tags.
The generation_guidance field indicates confidence level — follow its instructions.`

// sectionSpec fixes the key order of the structured section block.
type sectionSpec struct {
	Archetype          string         `json:"archetype"`
	Variant            string         `json:"variant"`
	Confidence         float64        `json:"confidence"`
	Content            map[string]any `json:"content"`
	Images             []any          `json:"images"`
	Icons              map[string]any `json:"icons"`
	Animations         map[string]any `json:"animations"`
	Components         map[string]any `json:"components"`
	GenerationGuidance string         `json:"generation_guidance"`
}

// BuildPrompt renders the section prompt for spec with injected context.
func BuildPrompt(f Frame, spec unit.Spec, injected string) string {
	var b strings.Builder
	b.WriteString(promptIntro)
	b.WriteString("\n\n")
	b.WriteString(styleBlock(f, spec))
	b.WriteString("\n\n## Structural Reference\n")
	b.WriteString(f.Taxonomy.StructureFor(spec.Archetype))
	b.WriteString("\n")
	b.WriteString(injected)
	b.WriteString("\n")
	b.WriteString(f.Instructions)
	b.WriteString("\nComponent name: ")
	b.WriteString(spec.ComponentName())
	return b.String()
}

func styleBlock(f Frame, spec unit.Spec) string {
	if f.SiteStyle != nil && spec.Structured != nil {
		return structuredBlock(f.SiteStyle, spec)
	}
	return fmt.Sprintf("%s\n\n## Section Specification\nNumber: %d of %d\nArchetype: %s\nVariant: %s\nContent Direction: %s",
		f.StyleHeader, spec.Number(), f.Total, spec.Archetype, spec.Variant, spec.Content)
}

func structuredBlock(style map[string]any, spec unit.Spec) string {
	s := spec.Structured
	confidence := 1.0
	if spec.Confidence != nil {
		confidence = *spec.Confidence
	}
	styleJSON := marshalIndent(style)
	specJSON := marshalIndent(sectionSpec{
		Archetype:          spec.Archetype,
		Variant:            spec.Variant,
		Confidence:         confidence,
		Content:            s.Content,
		Images:             s.Images,
		Icons:              s.Icons,
		Animations:         s.Animations,
		Components:         s.Components,
		GenerationGuidance: s.GenerationGuidance,
	})
	return "STYLE TOKENS (use these exact values — colors as hex, fonts as names, spacing as rem):\n" +
		styleJSON +
		"\n\nSECTION SPEC (structured data — use exact values, do not interpret or paraphrase):\n" +
		specJSON +
		"\n\n" + structuredGuidance
}

// marshalIndent keeps markup characters unescaped so the model sees them as written.
func marshalIndent(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
