package scaffold

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craigdanielk/web-builder/internal/extraction"
	ferrors "github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/llm"
	"github.com/craigdanielk/web-builder/internal/preset"
	"github.com/craigdanielk/web-builder/internal/unit"
)

func TestParse(t *testing.T) {
	text := `Page: acme
Preset: saas

1. **NAV | sticky-transparent** | Logo left, links right
2. **HERO** | full-bleed | Big promise headline
3. CTA | simple | Book a demo
not a section line
4. FEATURES|icon-grid|Three benefits`

	specs := Parse(text)
	require.Len(t, specs, 4)
	assert.Equal(t, unit.Spec{Ordinal: 0, Archetype: "NAV", Variant: "sticky-transparent", Content: "Logo left, links right"}, specs[0])
	assert.Equal(t, "HERO", specs[1].Archetype)
	assert.Equal(t, "full-bleed", specs[1].Variant)
	assert.Equal(t, 2, specs[2].Ordinal)
	assert.Equal(t, "Three benefits", specs[3].Content)
}

func TestParseEmpty(t *testing.T) {
	s := &Scaffold{Units: Parse("nothing useful"), Source: SourceModel}
	err := s.RequireUnits()
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryStage))
}

const siteSpecJSON = `{
  "style": {"colors": {"accent": "#3355ff"}},
  "sections": [
    {"index": 0, "archetype": "HERO", "variant": "full-bleed", "confidence": 0.92,
     "content": {"headings": ["Build faster with Acme"]}, "images": [{"src": "https://cdn.acme.test/hero.jpg"}],
     "generation_guidance": "high confidence"},
    {"index": 1, "content": {}}
  ]
}`

func TestFromSiteSpec(t *testing.T) {
	ss, err := ParseSiteSpec([]byte(siteSpecJSON))
	require.NoError(t, err)

	s := FromSiteSpec(ss)
	require.Len(t, s.Units, 2)
	assert.Equal(t, SourceSiteSpec, s.Source)

	hero := s.Units[0]
	assert.Equal(t, "HERO", hero.Archetype)
	assert.Equal(t, "Build faster with Acme", hero.Content)
	require.NotNil(t, hero.Structured)
	assert.Len(t, hero.Structured.Images, 1)
	assert.Equal(t, "high confidence", hero.Structured.GenerationGuidance)

	second := s.Units[1]
	assert.Equal(t, "FEATURES", second.Archetype)
	assert.Equal(t, "icon-grid", second.Variant)
	require.NotNil(t, second.Confidence)
	assert.InDelta(t, 0.5, *second.Confidence, 1e-9)

	want := "# Scaffold (v2 - from site-spec.json)\n\n" +
		"1. HERO | full-bleed | confidence=92% | Build faster with Acme\n" +
		"2. FEATURES | icon-grid | confidence=50% | \n"
	assert.Equal(t, want, s.Text)

	reparsed := ParseAny(s.Text)
	require.Len(t, reparsed, 2)
	assert.Equal(t, "Build faster with Acme", reparsed[0].Content)
	assert.Empty(t, reparsed[1].Content)
}

func TestParseSiteSpecRejectsSchemaViolation(t *testing.T) {
	_, err := ParseSiteSpec([]byte(`{"sections": [{"archetype": "HERO"}]}`))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

	_, err = ParseSiteSpec([]byte(`{"sections": [{"index": 0, "confidence": 3}]}`))
	require.Error(t, err)
}

func TestLoadSiteSpecMissing(t *testing.T) {
	ss, err := LoadSiteSpec(filepath.Join(t.TempDir(), "site-spec.json"))
	require.NoError(t, err)
	assert.Nil(t, ss)
}

func TestWriteAndLoad(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	assert.False(t, Exists(dir))

	require.NoError(t, Write(dir, "1. HERO | split | Lead\n2. CTA | simple | Close\n"))
	assert.True(t, Exists(dir))
	s, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, s.Units, 2)
	assert.Equal(t, "CTA", s.Units[1].Archetype)
}

func TestBuildPromptWithIdentification(t *testing.T) {
	var id extraction.Identification
	require.NoError(t, json.Unmarshal([]byte(`{
		"mappedSections": [
			{"label": "Tested in the field", "archetype": "FEATURES", "confidence": 0.3, "classNames": "stats"},
			{"label": "Confident", "archetype": "HERO", "confidence": 0.9}
		],
		"detectedPlugins": ["SplitText", "Flip"],
		"colorSystem": {"system": "tailwind", "accents": [{"tailwind": "indigo-500"}, {}]}
	}`), &id))

	p := preset.Parse("saas", []byte("## Default Section Sequence\n\n```\nHERO\nCTA\n```\n"))
	tax := preset.ParseTaxonomy([]byte("### HERO\n\n- `split`\n"))
	prompt := BuildPrompt(Input{Project: "acme", Brief: "We sell widgets.", Preset: p, Taxonomy: tax, Identification: &id})

	assert.Contains(t, prompt, "## Client Brief\nWe sell widgets.")
	assert.Contains(t, prompt, "## Industry Preset — Default Section Sequence\nHERO\nCTA")
	assert.Contains(t, prompt, "\nHERO\n  - split")
	assert.Contains(t, prompt, "Page: acme\nPreset: saas")
	assert.Contains(t, prompt, `  - "Tested in the field" (class: stats) → mapped as FEATURES at 30% confidence → Consider STATS or TESTIMONIALS`)
	assert.NotContains(t, prompt, `"Confident"`)
	assert.Contains(t, prompt, "## Detected Animation Plugins: SplitText, Flip")
	assert.Contains(t, prompt, "  - Flip → Use in PRODUCT-SHOWCASE")
	assert.NotContains(t, prompt, "  - Observer")
	assert.Contains(t, prompt, "## Extracted Color System: tailwind (indigo-500, ?)")
}

func TestGeneratorCallsService(t *testing.T) {
	caller := llm.NewScriptedCaller(llm.Step{Text: "1. HERO | split | Lead\n2. CTA | simple | Close"})
	g := NewGenerator(caller, "model-x", 2048)

	s, err := g.Generate(t.Context(), Input{Project: "acme", Brief: "b", Taxonomy: &preset.Taxonomy{}})
	require.NoError(t, err)
	require.Len(t, s.Units, 2)

	reqs := caller.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "model-x", reqs[0].Model)
	assert.Equal(t, 2048, reqs[0].MaxTokens)
	assert.Equal(t, "scaffold", reqs[0].Stage)
}

func TestSchemaFileIsValidJSON(t *testing.T) {
	data, err := os.ReadFile("site-spec.schema.json")
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}
