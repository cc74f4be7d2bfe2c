package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craigdanielk/web-builder/internal/helper"
	"github.com/craigdanielk/web-builder/internal/preset"
	"github.com/craigdanielk/web-builder/internal/unit"
)

type fakeInstaller struct {
	calls []helper.Invocation
	err   error
}

func (f *fakeInstaller) Run(_ context.Context, inv helper.Invocation) (helper.Output, error) {
	f.calls = append(f.calls, inv)
	return helper.Output{}, f.err
}

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

const gsapPreset = `# Acme

Motion: scroll-driven / gsap

heading_font: Playfair Display
body_font: Inter
heading_weight: 700
`

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func fixture(t *testing.T) (Input, string) {
	t.Helper()
	root := t.TempDir()
	sectionsDir := filepath.Join(root, "sections")
	specs := []unit.Spec{
		{Ordinal: 0, Archetype: "HERO", Variant: "full-bleed"},
		{Ordinal: 1, Archetype: "FEATURES", Variant: "icon-grid"},
	}
	var units []unit.Generated
	for _, s := range specs {
		code := "\"use client\";\n\nexport default function " + s.ComponentName() + "() {\n  return <section />;\n}\n"
		writeTestFile(t, filepath.Join(sectionsDir, s.FileName()), code)
		units = append(units, unit.NewGenerated(s, code))
	}

	lib := filepath.Join(root, "library")
	writeTestFile(t, filepath.Join(lib, RegistryFile), `{"components": {
		"hero-parallax": {"status": "ready", "archetypes": ["HERO"], "source_file": "scroll/hero-parallax.tsx", "dependencies": ["motion", "@gsap", "react-intersection-observer"]},
		"pricing-flip":  {"status": "ready", "archetypes": ["PRICING"], "file": "interactive/pricing-flip.tsx"},
		"future":        {"status": "placeholder", "file": "x.tsx"}
	}}`)
	writeTestFile(t, filepath.Join(lib, "scroll", "hero-parallax.tsx"), "import { motion } from \"motion/react\";\nexport default function HeroParallax() { return null; }\n")
	writeTestFile(t, filepath.Join(lib, "background", "aurora-background.tsx"), "export default function Aurora() { return null; }\n")

	return Input{
		RunID:           "run-1",
		Project:         "acme-coffee",
		SiteDir:         filepath.Join(root, "site"),
		SectionsDir:     sectionsDir,
		Units:           units,
		Preset:          preset.Parse("acme", []byte(gsapPreset)),
		Plugins:         []string{"SplitText", "Unknown", "DrawSVG"},
		ExtraComponents: []string{"background/aurora-background.tsx", "background/aurora-background.tsx", "missing/nope.tsx"},
	}, lib
}

func TestDeployWritesSite(t *testing.T) {
	in, lib := fixture(t)
	inst := &fakeInstaller{}
	d := New(inst, Options{Install: true, GitSnapshot: true, ComponentsDir: lib})

	res, err := d.Deploy(t.Context(), in)
	require.NoError(t, err)

	assert.True(t, res.Scaffolded)
	assert.Equal(t, 2, res.Sections)
	assert.Equal(t, 1, res.Components)
	assert.Equal(t, 1, res.Extras)
	assert.True(t, res.Installed)
	assert.NotEmpty(t, res.Commit)
	assert.Contains(t, res.Warnings, "extra component not found: missing/nope.tsx")

	for _, rel := range []string{
		"package.json", "tsconfig.json", "next.config.ts", "postcss.config.mjs", "eslint.config.mjs", ".gitignore",
		"src/app/globals.css", "src/app/layout.tsx", "src/app/page.tsx", "src/lib/utils.ts", "src/lib/gsap-setup.ts",
		"src/components/sections/01-hero.tsx", "src/components/sections/02-features.tsx",
		"src/components/animations/hero-parallax.tsx", "src/components/animations/aurora-background.tsx",
	} {
		assert.FileExists(t, filepath.Join(in.SiteDir, filepath.FromSlash(rel)))
	}

	var pkg packageJSON
	data, err := os.ReadFile(filepath.Join(in.SiteDir, "package.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &pkg))
	assert.Equal(t, "^3.14.2", pkg.Dependencies["gsap"])
	assert.Equal(t, "latest", pkg.Dependencies["react-intersection-observer"])
	assert.NotContains(t, pkg.Dependencies, "motion")
	assert.NotContains(t, pkg.Dependencies, "@gsap")
	assert.Equal(t, []string{"react-intersection-observer"}, res.AddedDependencies)

	anim, err := os.ReadFile(filepath.Join(in.SiteDir, "src/components/animations/hero-parallax.tsx"))
	require.NoError(t, err)
	assert.Contains(t, string(anim), `from "framer-motion"`)

	page, err := os.ReadFile(filepath.Join(in.SiteDir, "src/app/page.tsx"))
	require.NoError(t, err)
	assert.Contains(t, string(page), `import Section01HERO from "@/components/sections/01-hero";`)

	require.Len(t, inst.calls, 1)
	assert.Equal(t, "npm", inst.calls[0].Name)
	assert.Equal(t, in.SiteDir, inst.calls[0].Dir)
}

func TestDeployKeepsExistingScaffold(t *testing.T) {
	in, lib := fixture(t)
	writeTestFile(t, filepath.Join(in.SiteDir, "package.json"), `{"name":"custom","dependencies":{"next":"15.0.0"}}`)

	res, err := New(nil, Options{ComponentsDir: lib}).Deploy(t.Context(), in)
	require.NoError(t, err)
	assert.False(t, res.Scaffolded)
	assert.NoFileExists(t, filepath.Join(in.SiteDir, "tsconfig.json"))

	data, err := os.ReadFile(filepath.Join(in.SiteDir, "package.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"custom"`)
	assert.Contains(t, string(data), `"15.0.0"`)
}

func TestDeployInstallFailureIsWarning(t *testing.T) {
	in, _ := fixture(t)
	inst := &fakeInstaller{err: helper.ErrUnavailable}

	res, err := New(inst, Options{Install: true}).Deploy(t.Context(), in)
	require.NoError(t, err)
	assert.False(t, res.Installed)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "npm install")
}

func TestDeployMissingSectionIsFatal(t *testing.T) {
	in, _ := fixture(t)
	require.NoError(t, os.Remove(filepath.Join(in.SectionsDir, "02-features.tsx")))

	_, err := New(nil, Options{}).Deploy(t.Context(), in)
	require.Error(t, err)
	assert.NoDirExists(t, in.SiteDir)
}

func TestDependencies(t *testing.T) {
	framer := Dependencies(preset.EngineFramerMotion, false)
	assert.NotContains(t, framer, "gsap")
	assert.Contains(t, framer, "framer-motion")

	gsap := Dependencies(preset.EngineGSAP, true)
	assert.Contains(t, gsap, "gsap")
	assert.Contains(t, gsap, "@lottiefiles/dotlottie-react")
}

func TestHasLottie(t *testing.T) {
	assert.True(t, hasLottie([]byte(`{"lottieFiles":[{"url":"https://x/a.json"}]}`), nil))
	assert.True(t, hasLottie([]byte(`{"assets":{"lottie":["https://x/b.json"]}}`), nil))
	assert.False(t, hasLottie([]byte(`{"lottieFiles":[]}`), []string{"<div />"}))
	assert.True(t, hasLottie(nil, []string{"<DotLottieReact src=\"/a.lottie\" />"}))
	assert.False(t, hasLottie([]byte(`not json`), nil))
}

func TestLayoutTSX(t *testing.T) {
	layout := LayoutTSX("acme-coffee-co", preset.Fonts{Heading: "Playfair Display", Body: "Inter", HeadingWeight: "700"})

	assert.Contains(t, layout, `import { Playfair_Display, Inter } from "next/font/google";`)
	assert.Contains(t, layout, `const playfair_display = Playfair_Display({ subsets: ["latin"], weight: "700" });`)
	assert.Contains(t, layout, `const inter = Inter({ subsets: ["latin"], weight: ["400", "500", "700"] });`)
	assert.Contains(t, layout, `title: "Acme Coffee Co",`)
	assert.Contains(t, layout, `style={{ fontFamily: "'Playfair Display', system-ui, sans-serif" }}`)
}

func TestLayoutTSXCustomFont(t *testing.T) {
	layout := LayoutTSX("acme", preset.Fonts{Heading: "Brand Sans", Body: "Brand Sans"})

	assert.NotContains(t, layout, "next/font/google")
	assert.Contains(t, layout, "import \"./globals.css\";\n\nexport const metadata")
}

func TestGSAPSetup(t *testing.T) {
	assert.Empty(t, GSAPSetup([]string{"Unknown"}))

	setup := GSAPSetup([]string{"SplitText", "DrawSVG"})
	assert.Contains(t, setup, `import { DrawSVGPlugin } from "gsap/DrawSVGPlugin";`)
	assert.Contains(t, setup, "gsap.registerPlugin(ScrollTrigger, SplitText, DrawSVGPlugin);")
	assert.Contains(t, setup, "export { gsap, ScrollTrigger, SplitText, DrawSVGPlugin };")
}

func TestGlobalsCSS(t *testing.T) {
	css := GlobalsCSS(preset.Fonts{Body: "Inter"}, preset.EngineFramerMotion)
	assert.Contains(t, css, `font-family: "Inter", sans-serif;`)
	assert.NotContains(t, css, "@keyframes marquee")
	assert.Contains(t, GlobalsCSS(preset.Fonts{Body: "Inter"}, preset.EngineGSAP), "@keyframes marquee")
}

func TestSnapshotSkipsUnchangedTree(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, ".gitignore"), "node_modules/\n")
	writeTestFile(t, filepath.Join(dir, "page.tsx"), "export default function Page() {}\n")
	writeTestFile(t, filepath.Join(dir, "node_modules", "pkg", "index.js"), "module.exports = 1;\n")

	first, err := Snapshot(dir, "first", fixedTime)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := Snapshot(dir, "second", fixedTime)
	require.NoError(t, err)
	assert.Empty(t, second)

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	_, err = commit.File("node_modules/pkg/index.js")
	assert.True(t, errors.Is(err, object.ErrFileNotFound))
}
