package assemble

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/x/exp/golden"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/unit"
)

func units(archetypes ...string) []unit.Generated {
	out := make([]unit.Generated, len(archetypes))
	for i, a := range archetypes {
		out[i] = unit.NewGenerated(unit.Spec{Ordinal: i, Archetype: a}, "")
	}
	return out
}

func TestAssembleGolden(t *testing.T) {
	page, err := Assemble(units("HERO", "FEATURES", "CTA"), ProjectPage)
	require.NoError(t, err)
	golden.RequireEqual(t, []byte(page))
}

func TestAssembleSitePage(t *testing.T) {
	page, err := Assemble(units("HERO", "SOCIAL-PROOF"), SitePage)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(page, "import Section01HERO from \"@/components/sections/01-hero\";\n"))
	assert.Contains(t, page, "import Section02SOCIALPROOF from \"@/components/sections/02-social_proof\";\n")
	assert.NotContains(t, page, "import React")
}

func TestAssembleOrdersByOrdinalOnce(t *testing.T) {
	in := units("HERO", "FEATURES", "PRICING", "FAQ", "CTA", "FOOTER")
	want, err := Assemble(in, ProjectPage)
	require.NoError(t, err)

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]unit.Generated(nil), in...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got, err := Assemble(shuffled, ProjectPage)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	last := -1
	for _, u := range in {
		tag := "<" + u.Component + " />"
		assert.Equal(t, 1, strings.Count(want, tag))
		idx := strings.Index(want, tag)
		assert.Greater(t, idx, last)
		last = idx
	}
}

func TestAssembleRejectsDuplicateOrdinal(t *testing.T) {
	in := units("HERO", "CTA")
	in[1].Ordinal = 0
	_, err := Assemble(in, ProjectPage)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "acme")
	path, err := Write(dir, units("HERO"), ProjectPage)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<Section01HERO />")
}
