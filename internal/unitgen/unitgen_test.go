package unitgen

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craigdanielk/web-builder/internal/contextinject"
	"github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/llm"
	"github.com/craigdanielk/web-builder/internal/preset"
	"github.com/craigdanielk/web-builder/internal/unit"
)

const wellFormed = `"use client";

import { motion } from "framer-motion";

export default function Section01HERO() {
  return (
    <motion.section className="py-24">
      <h2>Section01HERO</h2>
    </motion.section>
  );
}
`

const truncatedMidAttribute = `"use client";

import { motion } from "framer-motion";

export default function Section01HERO() {
  return (
    <motion.section className="py-24">
      <h2 className="text-4xl">Ship faster</h2>
      <p className="mt-4 text-lg`

func TestInspectWellFormed(t *testing.T) {
	c := Inspect(wellFormed)
	assert.False(t, c.Truncated(), "%+v", c)
}

func TestInspectSyntaxThatIsNotMarkup(t *testing.T) {
	tests := map[string]string{
		"generic":    "export default function A() {\n  const [v] = useState<string>(\"\");\n  return <div>{v}</div>;\n}\n",
		"comparison": "export default function A() {\n  if (a < b) { return null; }\n  return null;\n}\n",
		"apostrophe": "export default function A() {\n  return <p>Don't stop</p>;\n}\n",
		"comment":    "export default function A() {\n  // a { stray\n  /* ( */\n  return <>{items.map((i) => <Card key={i} />)}</>;\n}\n",
		"template":   "export default function A() {\n  const c = `px-${size} {`;\n  return <div className={c} />;\n}\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			assert.False(t, Inspect(src).Truncated(), "%+v", Inspect(src))
		})
	}
}

func TestRepairIsNoOpOnWellFormed(t *testing.T) {
	res := Repair(wellFormed, "01-hero.tsx")
	assert.Equal(t, RepairResult{Text: wellFormed}, res)
}

func TestRepairDropsPartialTagAndClosesScopes(t *testing.T) {
	res := Repair(truncatedMidAttribute, "01-hero.tsx")
	require.True(t, res.Truncated)
	require.True(t, res.Repaired)
	assert.True(t, strings.HasSuffix(res.Text, "Ship faster</h2>\n</motion.section>\n)\n}\n"), res.Text)
	assert.NotContains(t, res.Text, "mt-4")
	assert.False(t, Inspect(res.Text).Truncated())

	again := Repair(res.Text, "01-hero.tsx")
	assert.Equal(t, res.Text, again.Text)
	assert.False(t, again.Truncated)
}

func TestRepairClosesOpenText(t *testing.T) {
	src := "function Hero() {\n  return (\n    <section>\n      <h1>Hel"
	res := Repair(src, "01-hero.tsx")
	assert.True(t, res.Repaired)
	assert.Equal(t, "function Hero() {\n  return (\n    <section>\n      <h1>Hel\n</h1>\n</section>\n)\n}\n", res.Text)

	out, flags, _ := Process(src, unit.Spec{Ordinal: 0, Archetype: "HERO"})
	assert.True(t, flags.ExportNormalized)
	assert.True(t, strings.HasSuffix(out, "}\n\nexport default Hero;\n"), out)
}

func TestRepairLeavesMissingExportToNormalization(t *testing.T) {
	src := "function Hero() {\n  return <div />;\n}\n"
	res := Repair(src, "01-hero.tsx")
	assert.False(t, res.Truncated)
	assert.Equal(t, src, res.Text)
	assert.False(t, Inspect(src).HasExport)
}

func TestRepairUnrepairable(t *testing.T) {
	for _, src := range []string{
		"",
		"const x = 1",
		"export default function A() {}\n}",
	} {
		res := Repair(src, "x.tsx")
		assert.True(t, res.Truncated, src)
		assert.False(t, res.Repaired, src)
		assert.Equal(t, src, res.Text)
	}
}

func TestRepairWarnsOnHeavyRepair(t *testing.T) {
	src := "export default function A() {\n  return (\n    <Outer>\n      <Middle>\n        <Inner>\n          <Deep>\n            <Deeper>\n              text"
	res := Repair(src, "03-cta.tsx")
	require.True(t, res.Repaired)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "03-cta.tsx was heavily repaired")
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "code", StripFences("```tsx\ncode\n```"))
	assert.Equal(t, "code", StripFences("```\ncode\n```\n"))
	assert.Equal(t, "plain\n", StripFences("plain\n"))
}

func TestEnsureClientDirective(t *testing.T) {
	out, added := EnsureClientDirective("import gsap from \"gsap\";\n")
	assert.True(t, added)
	assert.Equal(t, "\"use client\";\n\nimport gsap from \"gsap\";\n", out)

	_, added = EnsureClientDirective("'use client'\nimport { useState } from \"react\";")
	assert.False(t, added)

	_, added = EnsureClientDirective("export default function A() { return null; }")
	assert.False(t, added)
}

func TestEnsureDefaultExport(t *testing.T) {
	out, changed := EnsureDefaultExport("export function Section01HERO() {}", "Section01HERO")
	assert.True(t, changed)
	assert.Equal(t, "export default function Section01HERO() {}", out)

	out, changed = EnsureDefaultExport("export const Section01HERO = () => null;", "Section01HERO")
	assert.True(t, changed)
	assert.Equal(t, "const Section01HERO = () => null;\n\nexport default Section01HERO;\n", out)

	out, changed = EnsureDefaultExport("function Other() {}\n", "Section01HERO")
	assert.True(t, changed)
	assert.Equal(t, "function Other() {}\n\nexport default Other;\n", out)

	out, changed = EnsureDefaultExport("const x = 1;", "Section01HERO")
	assert.True(t, changed)
	assert.Equal(t, "const x = 1;\n\nexport default Section01HERO;\n", out)

	out, changed = EnsureDefaultExport(wellFormed, "Section01HERO")
	assert.False(t, changed)
	assert.Equal(t, wellFormed, out)
}

func TestProcessIdempotent(t *testing.T) {
	spec := unit.Spec{Ordinal: 0, Archetype: "HERO", Variant: "full-bleed"}
	out, flags, _ := Process(wellFormed, spec)
	assert.Equal(t, wellFormed, out)
	assert.Equal(t, unit.Flags{}, flags)

	first, flags, _ := Process("```tsx\n"+truncatedMidAttribute+"\n```", spec)
	assert.Equal(t, unit.Flags{Truncated: true, Repaired: true}, flags)
	second, flags, _ := Process(first, spec)
	assert.Equal(t, first, second)
	assert.Equal(t, unit.Flags{}, flags)
}

func testFrame() Frame {
	return Frame{
		StyleHeader:  "═══ STYLE CONTEXT ═══\nwarm\n══════════",
		Total:        3,
		Taxonomy:     preset.ParseTaxonomy([]byte("### HERO\n**Structure:** headline, subhead, CTA\n")),
		Instructions: "Return only the component code.\n",
	}
}

func TestBuildPromptLegacy(t *testing.T) {
	spec := unit.Spec{Ordinal: 1, Archetype: "FEATURES", Variant: "icon-grid", Content: "three benefits"}
	p := BuildPrompt(testFrame(), spec, "\nINJECTED\n")
	assert.True(t, strings.HasPrefix(p, promptIntro+"\n\n═══ STYLE CONTEXT ═══"))
	assert.Contains(t, p, "## Section Specification\nNumber: 2 of 3\nArchetype: FEATURES\nVariant: icon-grid\nContent Direction: three benefits")
	assert.Contains(t, p, "## Structural Reference\n"+preset.NoStructureReference+"\n\nINJECTED\n\nReturn only the component code.\n")
	assert.True(t, strings.HasSuffix(p, "Component name: Section02FEATURES"))
	assert.Equal(t, "Section02FEATURES", llm.ComponentNameFromPrompt(p))
}

func TestBuildPromptStructured(t *testing.T) {
	f := testFrame()
	f.SiteStyle = map[string]any{"accent": "#ff5500"}
	conf := 0.8
	spec := unit.Spec{Ordinal: 0, Archetype: "HERO", Variant: "split", Confidence: &conf,
		Structured: &unit.Structured{Content: map[string]any{"headings": []any{"<b>Fast</b>"}}}}
	p := BuildPrompt(f, spec, "")
	assert.Contains(t, p, "STYLE TOKENS (use these exact values")
	assert.Contains(t, p, `"accent": "#ff5500"`)
	assert.Contains(t, p, `"confidence": 0.8`)
	assert.Contains(t, p, `"<b>Fast</b>"`)
	assert.Contains(t, p, "## Structural Reference\nheadline, subhead, CTA\n")
	assert.NotContains(t, p, "## Section Specification")
}

func TestGenerate(t *testing.T) {
	caller := llm.NewScriptedCaller(llm.Step{Text: "```tsx\nimport { useState } from \"react\";\n\nexport function Section02FEATURES() {\n  return <div />;\n}\n```"})
	g := NewGenerator(caller, "model-x", testFrame())
	spec := unit.Spec{Ordinal: 1, Archetype: "FEATURES", Variant: "icon-grid"}
	ictx := contextinject.InjectionContext{
		Blocks:          []contextinject.Block{{Source: "reference", Text: "\nREF\n"}},
		ExtraComponents: []string{"fade.tsx"},
	}

	got, err := g.Generate(context.Background(), spec, ictx, 8192)
	require.NoError(t, err)

	reqs := caller.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "model-x", reqs[0].Model)
	assert.Equal(t, 8192, reqs[0].MaxTokens)
	assert.Equal(t, StageTag, reqs[0].Stage)
	assert.Contains(t, reqs[0].Prompt, "\nREF\n")

	assert.Equal(t, "02-features.tsx", got.File)
	assert.Equal(t, "Section02FEATURES", got.Component)
	assert.Equal(t, []string{"fade.tsx"}, got.ExtraComponents)
	assert.True(t, got.Flags.ClientDirectiveAdded)
	assert.True(t, got.Flags.ExportNormalized)
	assert.False(t, got.Flags.Truncated)
	assert.True(t, strings.HasPrefix(got.Text, "\"use client\";\n\nimport { useState }"))
	assert.Contains(t, got.Text, "export default function Section02FEATURES()")
}

func TestGenerateFailureIsFatal(t *testing.T) {
	caller := llm.NewScriptedCaller(llm.Step{Err: stderrors.New("invalid_request")})
	g := NewGenerator(caller, "m", testFrame())
	_, err := g.Generate(context.Background(), unit.Spec{Archetype: "HERO"}, contextinject.InjectionContext{}, 4096)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryGeneration))
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.True(t, ce.IsFatal())
	file, _ := ce.Context().GetString("file")
	assert.Equal(t, "01-hero.tsx", file)
}
