// Package unit defines the planned (Spec) and generated (Generated) forms of a
// page section together with the naming rules that keep per-unit files stable.
package unit

import (
	"fmt"
	"strings"

	"github.com/inful/mdfp"
	"gopkg.in/yaml.v3"
)

// Spec is one planned content unit.
type Spec struct {
	// Zero-based, contiguous and unique within a project.
	Ordinal   int    `json:"index" yaml:"index"`
	Archetype string `json:"archetype" yaml:"archetype"`
	Variant   string `json:"variant" yaml:"variant"`
	// Free-text content direction (scaffold lines) or the first heading of a site-spec section.
	Content    string   `json:"content" yaml:"content"`
	Confidence *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	// Structured side-data, present only when the scaffold came from a site spec.
	Structured *Structured `json:"structured,omitempty" yaml:"-"`
}

// Structured carries site-spec section data passed verbatim to the generator.
type Structured struct {
	Content            map[string]any `json:"content"`
	Images             []any          `json:"images"`
	Icons              map[string]any `json:"icons"`
	Animations         map[string]any `json:"animations"`
	Components         map[string]any `json:"components"`
	GenerationGuidance string         `json:"generation_guidance"`
	ConfidenceTier     string         `json:"confidence_tier,omitempty"`
	ConfidenceNote     string         `json:"confidence_note,omitempty"`
	SourceRect         map[string]any `json:"source_rect,omitempty"`
}

// Number is the one-based position used in file and component names.
func (s Spec) Number() int { return s.Ordinal + 1 }

// FileName is the unit's file identity, a pure function of ordinal and archetype.
func (s Spec) FileName() string {
	return FileName(s.Ordinal, s.Archetype)
}

// ComponentName is the React component identifier for the unit.
func (s Spec) ComponentName() string {
	return ComponentName(s.Ordinal, s.Archetype)
}

// FileName returns NN-archetype.tsx with the archetype lower-cased and dashes as underscores.
func FileName(ordinal int, archetype string) string {
	return Stem(ordinal, archetype) + ".tsx"
}

// Stem is FileName without the extension, as used in import paths.
func Stem(ordinal int, archetype string) string {
	name := strings.ReplaceAll(strings.ToLower(archetype), "-", "_")
	return fmt.Sprintf("%02d-%s", ordinal+1, name)
}

// ComponentName returns SectionNNARCHETYPE with dashes removed.
func ComponentName(ordinal int, archetype string) string {
	return fmt.Sprintf("Section%02d%s", ordinal+1, strings.ReplaceAll(archetype, "-", ""))
}

// Flags records what post-processing did to a unit.
type Flags struct {
	Truncated            bool `json:"truncated"`
	Repaired             bool `json:"repaired"`
	ClientDirectiveAdded bool `json:"client_directive_added"`
	ExportNormalized     bool `json:"export_normalized"`
}

// Generated is the output of running the generator over one Spec.
type Generated struct {
	Ordinal   int    `json:"index"`
	Archetype string `json:"archetype"`
	File      string `json:"file"`
	Component string `json:"component"`
	Text      string `json:"-"`
	Flags     Flags  `json:"flags"`
	// Extra library component files referenced by injected context.
	ExtraComponents []string `json:"extra_components,omitempty"`
	// Reused is set when a resumed run kept an existing file instead of regenerating.
	Reused bool `json:"reused,omitempty"`
}

// NewGenerated binds text to the identity derived from spec.
func NewGenerated(spec Spec, text string) Generated {
	return Generated{
		Ordinal:   spec.Ordinal,
		Archetype: spec.Archetype,
		File:      spec.FileName(),
		Component: spec.ComponentName(),
		Text:      text,
	}
}

// Stem is the file identity without extension.
func (g Generated) Stem() string { return strings.TrimSuffix(g.File, ".tsx") }

// Fingerprint hashes the unit identity and text so resumed runs can detect edited files.
func (g Generated) Fingerprint() string {
	header, err := yaml.Marshal(struct {
		Index     int    `yaml:"index"`
		Archetype string `yaml:"archetype"`
		File      string `yaml:"file"`
	}{g.Ordinal, g.Archetype, g.File})
	if err != nil {
		return ""
	}
	return mdfp.CalculateFingerprintFromParts(strings.TrimSuffix(string(header), "\n"), g.Text)
}
