package contextinject

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craigdanielk/web-builder/internal/extraction"
	"github.com/craigdanielk/web-builder/internal/helper"
	"github.com/craigdanielk/web-builder/internal/unit"
)

// fakeHelper answers helper calls by "module.function".
type fakeHelper struct {
	mu      sync.Mutex
	results map[string]any
	errs    map[string]error
	calls   []helper.Func
}

func newFakeHelper() *fakeHelper {
	return &fakeHelper{results: map[string]any{}, errs: map[string]error{}}
}

func (f *fakeHelper) Call(_ context.Context, fn helper.Func, out any) error {
	key := fn.Module + "." + fn.Function
	f.mu.Lock()
	f.calls = append(f.calls, fn)
	res, ok := f.results[key]
	err := f.errs[key]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if !ok {
		return helper.ErrUnavailable
	}
	data, merr := json.Marshal(res)
	if merr != nil {
		return merr
	}
	return json.Unmarshal(data, out)
}

func (f *fakeHelper) called(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Module+"."+c.Function == key {
			n++
		}
	}
	return n
}

type staticSource struct {
	name string
	c    Contribution
	err  error
}

func (s staticSource) Name() string { return s.name }
func (s staticSource) Contribute(context.Context, *Request) (Contribution, error) {
	return s.c, s.err
}

func sourceNames(ictx InjectionContext) []string {
	var out []string
	for _, b := range ictx.Blocks {
		out = append(out, b.Source)
	}
	return out
}

func TestBuildOrderAndDegrade(t *testing.T) {
	inj := New(4096,
		staticSource{name: "a", c: Contribution{Text: "\nA\n"}},
		staticSource{name: "b", err: stderrors.New("boom")},
		staticSource{name: "c", c: Contribution{}},
		staticSource{name: "d", c: Contribution{Text: "\nD\n", ExtraComponents: []string{"z.tsx", "a.tsx", "z.tsx"}}},
	)
	ictx, err := inj.Build(context.Background(), unit.Spec{Ordinal: 0, Archetype: "HERO"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d"}, sourceNames(ictx))
	assert.Equal(t, "\nA\n\nD\n", ictx.Text())
	assert.Equal(t, 4096, ictx.Budget)
	assert.Equal(t, []string{"a.tsx", "z.tsx"}, ictx.ExtraComponents)
	assert.False(t, ictx.Elevated)
}

func TestBuildBudgetOverrideThenFloor(t *testing.T) {
	inj := New(4096,
		staticSource{name: "anim", c: Contribution{Budget: 6000}},
		staticSource{name: "pin", c: Contribution{MinBudget: 8192}},
	)
	ictx, err := inj.Build(context.Background(), unit.Spec{})
	require.NoError(t, err)
	assert.Equal(t, 8192, ictx.Budget)
	assert.True(t, ictx.Elevated)

	inj = New(4096,
		staticSource{name: "anim", c: Contribution{Budget: 10000}},
		staticSource{name: "pin", c: Contribution{MinBudget: 8192}},
	)
	ictx, err = inj.Build(context.Background(), unit.Spec{})
	require.NoError(t, err)
	assert.Equal(t, 10000, ictx.Budget)
	assert.False(t, ictx.Elevated)
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(4096, staticSource{name: "a"}).Build(ctx, unit.Spec{})
	assert.ErrorIs(t, err, context.Canceled)
}

func testIdentification() *extraction.Identification {
	return &extraction.Identification{
		DetectedPlugins: []string{"SplitText", "Flip"},
		SectionColorProfile: extraction.SectionColorProfile{SectionColors: map[string]extraction.SectionColor{
			"1": {Accent: "emerald-500"},
		}},
		SectionMapping: map[string]extraction.SectionMap{
			"1": {
				Animations: []extraction.AnimationMatch{
					{Pattern: "fade-up", BestMatch: "fade-up-stagger"},
					{Pattern: "marquee"},
					{Pattern: "parallax", BestMatch: "parallax-layer"},
				},
				UIComponents: []string{"tabs", "accordion"},
			},
		},
	}
}

func TestIdentificationSource(t *testing.T) {
	src := NewIdentificationSource(testIdentification())
	c, err := src.Contribute(context.Background(), &Request{Spec: unit.Spec{Ordinal: 1}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(c.Text, "\n## Section Accent Color\n"))
	assert.Contains(t, c.Text, "This section's accent color is emerald-500")
	assert.Contains(t, c.Text, "Registry component: fade-up-stagger")
	assert.NotContains(t, c.Text, "parallax", "only the first two animations are considered")
	assert.Contains(t, c.Text, "Detected: tabs, accordion")

	c, err = src.Contribute(context.Background(), &Request{Spec: unit.Spec{Ordinal: 0}})
	require.NoError(t, err)
	assert.Empty(t, c.Text)

	c, err = NewIdentificationSource(nil).Contribute(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Empty(t, c.Text)
}

func TestUsesPinnedScroll(t *testing.T) {
	assert.True(t, UsesPinnedScroll("use gsap-PINNED-horizontal", nil))
	assert.True(t, UsesPinnedScroll("scrollTrigger: { pin: true, scrub: 1 }", nil))
	assert.False(t, UsesPinnedScroll("pin: true only", nil))
	assert.False(t, UsesPinnedScroll("", &extraction.Identification{}))
	assert.True(t, UsesPinnedScroll("", &extraction.Identification{PinnedScrollDetected: true}))
}

func TestPinnedScrollRaisesBudgetBeforeCall(t *testing.T) {
	h := newFakeHelper()
	h.results["animation-injector.buildAllAnimationContexts"] = map[string]any{
		"contexts": map[string]any{
			"0": map[string]any{"animationContext": "Use gsap-pinned-horizontal for the gallery", "tokenBudget": 6000},
		},
		"allComponentFiles": []string{"pinned.tsx"},
	}
	inj := New(4096,
		NewAnimationSource(h, json.RawMessage(`{"patterns":[]}`), "preset", nil, 0),
		NewPinnedScrollSource(nil, 8192),
	)
	specs := []unit.Spec{{Ordinal: 0, Archetype: "GALLERY", Variant: "horizontal"}}
	inj.Prepare(context.Background(), specs)

	ictx, err := inj.Build(context.Background(), specs[0])
	require.NoError(t, err)
	assert.Equal(t, []string{SourceAnimation, SourcePinnedScroll}, sourceNames(ictx))
	assert.Equal(t, 8192, ictx.Budget)
	assert.True(t, ictx.Elevated)
	assert.Contains(t, ictx.Text(), "CRITICAL: Use `containerAnimation` for ANY nested animations")
}

func TestAnimationSourceLegacyShape(t *testing.T) {
	h := newFakeHelper()
	h.results["animation-injector.buildAllAnimationContexts"] = map[string]any{
		"0": map[string]any{"animationContext": "fade in", "tokenBudget": 5000},
		"1": "not an object",
	}
	src := NewAnimationSource(h, json.RawMessage(`{}`), "", nil, 0)
	require.NoError(t, src.Prepare(context.Background(), []unit.Spec{{Ordinal: 0}, {Ordinal: 1}}))

	c, err := src.Contribute(context.Background(), &Request{Spec: unit.Spec{Ordinal: 0}})
	require.NoError(t, err)
	assert.Equal(t, "\nfade in\n", c.Text)
	assert.Equal(t, 5000, c.Budget)

	c, err = src.Contribute(context.Background(), &Request{Spec: unit.Spec{Ordinal: 1}})
	require.NoError(t, err)
	assert.Empty(t, c.Text)
}

func TestAnimationSourceSkippedWithoutAnalysis(t *testing.T) {
	h := newFakeHelper()
	src := NewAnimationSource(h, nil, "", nil, 0)
	require.NoError(t, src.Prepare(context.Background(), nil))
	assert.Zero(t, h.called("animation-injector.buildAllAnimationContexts"))
}

func TestPluginSource(t *testing.T) {
	c, err := NewPluginSource(testIdentification()).Contribute(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, "\n═══ GSAP PLUGIN CONTEXT ═══\nDetected plugins: SplitText, Flip\n"+
		"Use these plugins where appropriate for this section.\n═══════════════════════════\n", c.Text)
}

func TestVisualFallbackSkippedWhenAssetHasImagery(t *testing.T) {
	h := newFakeHelper()
	h.results["asset-injector.getVisualFallback"] = map[string]any{"block": "gradient mesh", "componentFiles": []string{"mesh.tsx"}}
	src := NewVisualFallbackSource(h, 0)

	req := &Request{Spec: unit.Spec{Archetype: "FEATURES", Variant: "bento-grid"}, prior: map[string]Contribution{
		SourceAsset: {Text: "\nHero Image: /a.png\n"},
	}}
	c, err := src.Contribute(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, c.Text)
	assert.Zero(t, h.called("asset-injector.getVisualFallback"))

	req.prior = map[string]Contribution{}
	c, err = src.Contribute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "\ngradient mesh\n", c.Text)
	assert.Equal(t, []string{"mesh.tsx"}, c.ExtraComponents)
	require.Len(t, h.calls, 1)
	assert.Equal(t, []any{"FEATURES", 0, true, 6}, h.calls[0].Args)
}

func TestCardEmbedOnlyForProductShowcaseDemos(t *testing.T) {
	h := newFakeHelper()
	h.results["animation-injector.buildCardEmbeddedDemos"] = map[string]any{"block": "demo cards", "componentFiles": []string{"split.tsx"}}
	src := NewCardEmbedSource(h, testIdentification(), 0)

	c, err := src.Contribute(context.Background(), &Request{Spec: unit.Spec{Archetype: "FEATURES", Variant: "demo-cards"}})
	require.NoError(t, err)
	assert.Empty(t, c.Text)

	c, err = src.Contribute(context.Background(), &Request{Spec: unit.Spec{Archetype: "product-showcase", Variant: "Demo-Cards"}})
	require.NoError(t, err)
	assert.Equal(t, "\ndemo cards\n", c.Text)
}

func TestUIComponentSourceLoadsIndex(t *testing.T) {
	dir := t.TempDir()
	index := filepath.Join(dir, "animation_search_index.json")
	require.NoError(t, os.WriteFile(index, []byte(`{"tabs":["tabs.tsx"]}`), 0o600))

	h := newFakeHelper()
	h.results["pattern-identifier.matchUIComponents"] = []any{map[string]any{"pattern": "tabs"}}
	h.results["pattern-identifier.buildUIComponentBlock"] = map[string]any{"block": "use tabs", "componentFiles": []string{"tabs.tsx"}}
	src := NewUIComponentSource(h, testIdentification(), index, 0)

	c, err := src.Contribute(context.Background(), &Request{Spec: unit.Spec{Ordinal: 1}})
	require.NoError(t, err)
	assert.Equal(t, "\nuse tabs\n", c.Text)
	assert.Equal(t, []string{"tabs.tsx"}, c.ExtraComponents)
	assert.JSONEq(t, `{"tabs":["tabs.tsx"]}`, string(h.calls[0].Args[1].(json.RawMessage)))

	c, err = src.Contribute(context.Background(), &Request{Spec: unit.Spec{Ordinal: 0}})
	require.NoError(t, err)
	assert.Empty(t, c.Text)
}

func TestReferenceSourcePrefersSectionContext(t *testing.T) {
	dir := t.TempDir()
	snap := filepath.Join(dir, "reference.html")
	require.NoError(t, os.WriteFile(snap, []byte(`<html><body>
<header><nav><a href="/">Home</a><a href="/pricing">Pricing</a></nav></header>
<section><h1>Ship faster</h1><p>Build   sites in minutes.</p><button>Start</button><img src="x.png" alt="Dashboard"><script>var x = 1;</script></section>
</body></html>`), 0o600))

	src := NewReferenceSource(map[string]string{"0": "helper context"}, snap)
	c, err := src.Contribute(context.Background(), &Request{Spec: unit.Spec{Ordinal: 0}})
	require.NoError(t, err)
	assert.Equal(t, "\nhelper context\n", c.Text)

	c, err = src.Contribute(context.Background(), &Request{Spec: unit.Spec{Ordinal: 1}})
	require.NoError(t, err)
	assert.Contains(t, c.Text, "## Reference Snapshot (section 2, <section>)")
	assert.Contains(t, c.Text, "Headings: Ship faster")
	assert.Contains(t, c.Text, "Copy: Build sites in minutes.")
	assert.Contains(t, c.Text, "Actions: Start")
	assert.Contains(t, c.Text, "Image alt text: Dashboard")
	assert.NotContains(t, c.Text, "var x")

	c, err = src.Contribute(context.Background(), &Request{Spec: unit.Spec{Ordinal: 5}})
	require.NoError(t, err)
	assert.Empty(t, c.Text)
}

func TestReferenceSourceMissingSnapshot(t *testing.T) {
	src := NewReferenceSource(nil, filepath.Join(t.TempDir(), "absent.html"))
	c, err := src.Contribute(context.Background(), &Request{Spec: unit.Spec{Ordinal: 0}})
	require.NoError(t, err)
	assert.Empty(t, c.Text)
}

func TestDefaultSourcesDeterministic(t *testing.T) {
	h := newFakeHelper()
	h.results["icon-mapper.buildIconContextBlock"] = "## Icons\nuse lucide Zap"
	h.errs["asset-injector.getVisualFallback"] = helper.ErrUnavailable

	inj := New(4096, DefaultSources(Deps{
		Helper:          h,
		Identification:  testIdentification(),
		SectionContexts: map[string]string{"1": "ref"},
		PinnedFloor:     8192,
	})...)
	specs := []unit.Spec{{Ordinal: 0, Archetype: "HERO"}, {Ordinal: 1, Archetype: "FEATURES", Variant: "grid"}}
	inj.Prepare(context.Background(), specs)

	first, err := inj.Build(context.Background(), specs[1])
	require.NoError(t, err)
	second, err := inj.Build(context.Background(), specs[1])
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{SourceReference, SourceIdentification, SourcePlugin, SourceIcon}, sourceNames(first))
	assert.Equal(t, 4096, first.Budget)
}
