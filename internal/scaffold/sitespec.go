package scaffold

import (
	"bytes"
	_ "embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/unit"
)

//go:embed site-spec.schema.json
var siteSpecSchemaDoc string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func siteSpecSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(siteSpecSchemaDoc))
		if err != nil {
			schemaErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("site-spec.schema.json", doc); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("site-spec.schema.json")
	})
	return schema, schemaErr
}

// SiteSpec is the deterministic description of a reference site built during
// extraction.
type SiteSpec struct {
	Style    map[string]any `json:"style"`
	Sections []SiteSection  `json:"sections"`
}

// SiteSection is one section of a site spec.
type SiteSection struct {
	Index              int            `json:"index"`
	Archetype          string         `json:"archetype"`
	Variant            string         `json:"variant"`
	Confidence         *float64       `json:"confidence"`
	Content            map[string]any `json:"content"`
	Images             []any          `json:"images"`
	Icons              map[string]any `json:"icons"`
	Animations         map[string]any `json:"animations"`
	Components         map[string]any `json:"components"`
	SourceRect         map[string]any `json:"source_rect"`
	ConfidenceTier     string         `json:"confidence_tier"`
	ConfidenceNote     string         `json:"confidence_note"`
	GenerationGuidance string         `json:"generation_guidance"`
}

// FirstHeading returns the section's first content heading, or "".
func (s SiteSection) FirstHeading() string {
	hs, ok := s.Content["headings"].([]any)
	if !ok || len(hs) == 0 {
		return ""
	}
	h, _ := hs[0].(string)
	return h
}

// ParseSiteSpec validates data against the site spec schema and decodes it.
func ParseSiteSpec(data []byte) (*SiteSpec, error) {
	sch, err := siteSpecSchema()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "compile site spec schema").Build()
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "site spec is not valid JSON").Build()
	}
	if err := sch.Validate(doc); err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "site spec does not match schema").Build()
	}
	var ss SiteSpec
	if err := json.Unmarshal(data, &ss); err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "decode site spec").Build()
	}
	return &ss, nil
}

// LoadSiteSpec reads and validates a site spec. A missing file yields nil.
func LoadSiteSpec(path string) (*SiteSpec, error) {
	data, err := os.ReadFile(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read site spec").WithContext("path", path).Build()
	}
	ss, err := ParseSiteSpec(data)
	if err != nil {
		if ce, ok := errors.AsClassified(err); ok {
			return nil, ce.WithContext("path", path)
		}
		return nil, err
	}
	return ss, nil
}

const (
	defaultArchetype  = "FEATURES"
	defaultVariant    = "icon-grid"
	defaultConfidence = 0.5
)

// FromSiteSpec converts site spec sections into unit specs in document order,
// filling archetype, variant and confidence defaults. No service call is made.
func FromSiteSpec(ss *SiteSpec) *Scaffold {
	units := make([]unit.Spec, 0, len(ss.Sections))
	for i, s := range ss.Sections {
		arch := s.Archetype
		if arch == "" {
			arch = defaultArchetype
		}
		variant := s.Variant
		if variant == "" {
			variant = defaultVariant
		}
		conf := defaultConfidence
		if s.Confidence != nil {
			conf = *s.Confidence
		}
		content := s.Content
		if content == nil {
			content = map[string]any{}
		}
		units = append(units, unit.Spec{
			Ordinal:    i,
			Archetype:  arch,
			Variant:    variant,
			Content:    s.FirstHeading(),
			Confidence: &conf,
			Structured: &unit.Structured{
				Content:            content,
				Images:             nonNilSlice(s.Images),
				Icons:              nonNilMap(s.Icons),
				Animations:         nonNilMap(s.Animations),
				Components:         nonNilMap(s.Components),
				GenerationGuidance: s.GenerationGuidance,
				ConfidenceTier:     s.ConfidenceTier,
				ConfidenceNote:     s.ConfidenceNote,
				SourceRect:         s.SourceRect,
			},
		})
	}
	return &Scaffold{Units: units, Source: SourceSiteSpec, Text: RenderV2(units)}
}

// RenderV2 renders the scaffold.md listing for site-spec units.
func RenderV2(units []unit.Spec) string {
	lines := make([]string, 0, len(units))
	for _, u := range units {
		conf := defaultConfidence
		if u.Confidence != nil {
			conf = *u.Confidence
		}
		hint := u.Content
		if r := []rune(hint); len(r) > 60 {
			hint = string(r[:60])
		}
		lines = append(lines, fmt.Sprintf("%d. %s | %s | confidence=%s | %s",
			u.Number(), u.Archetype, u.Variant, percent(conf), hint))
	}
	return fmt.Sprintf("# Scaffold (v2 - from site-spec.json)\n\n%s\n", strings.Join(lines, "\n"))
}

// ParseAny parses a scaffold.md in either format: model-written lines or
// the v2 listing (whose third column is the confidence).
func ParseAny(text string) []unit.Spec {
	specs := Parse(text)
	if !strings.HasPrefix(text, "# Scaffold (v2") {
		return specs
	}
	for i := range specs {
		parts := strings.SplitN(specs[i].Content, "|", 2)
		if len(parts) == 2 && strings.HasPrefix(strings.TrimSpace(parts[0]), "confidence=") {
			specs[i].Content = strings.TrimSpace(parts[1])
		}
	}
	return specs
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nonNilSlice(s []any) []any {
	if s == nil {
		return []any{}
	}
	return s
}
