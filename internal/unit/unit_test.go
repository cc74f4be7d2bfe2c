package unit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNaming(t *testing.T) {
	tests := []struct {
		ordinal   int
		archetype string
		file      string
		component string
	}{
		{0, "HERO", "01-hero.tsx", "Section01HERO"},
		{4, "PRODUCT-SHOWCASE", "05-product_showcase.tsx", "Section05PRODUCTSHOWCASE"},
		{11, "HOW-IT-WORKS", "12-how_it_works.tsx", "Section12HOWITWORKS"},
	}
	for _, tt := range tests {
		s := Spec{Ordinal: tt.ordinal, Archetype: tt.archetype}
		assert.Equal(t, tt.file, s.FileName())
		assert.Equal(t, tt.component, s.ComponentName())
		assert.Equal(t, tt.ordinal+1, s.Number())
	}
}

func TestFingerprintStableAndSensitive(t *testing.T) {
	spec := Spec{Ordinal: 1, Archetype: "FEATURES", Variant: "icon-grid"}
	a := NewGenerated(spec, "export default function X() {}")
	b := NewGenerated(spec, "export default function X() {}")
	c := NewGenerated(spec, "export default function Y() {}")

	require.NotEmpty(t, a.Fingerprint())
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.Equal(t, "02-features", a.Stem())
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	units := []Generated{
		NewGenerated(Spec{Ordinal: 1, Archetype: "CTA"}, "b"),
		NewGenerated(Spec{Ordinal: 0, Archetype: "HERO"}, "a"),
	}
	units[0].Flags.Repaired = true

	require.NoError(t, WriteManifest(dir, BuildManifest(units)))
	m, err := ReadManifest(dir)
	require.NoError(t, err)
	require.Len(t, m.Units, 2)
	assert.Equal(t, "01-hero.tsx", m.Units[0].File)

	e, ok := m.Lookup("02-cta.tsx")
	require.True(t, ok)
	assert.True(t, e.Flags.Repaired)

	empty, err := ReadManifest(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, empty.Units)
}
