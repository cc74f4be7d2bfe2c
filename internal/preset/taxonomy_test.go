package preset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTaxonomy = `# Section Taxonomy

## Core

### HERO

- ` + "`full-bleed`" + ` full-viewport image with overlay
- ` + "`split`" + ` text left, media right

**Structure:** section > container > h1 + subhead + CTA row

### FEATURES

- ` + "`icon-grid`" + ` three-column grid

**Structure:** populate on first use

### CTA

- ` + "`simple`" + `
`

func TestParseTaxonomy(t *testing.T) {
	tax := ParseTaxonomy([]byte(sampleTaxonomy))
	require.Len(t, tax.Archetypes, 3)

	hero, ok := tax.Lookup("HERO")
	require.True(t, ok)
	assert.Equal(t, []string{"full-bleed", "split"}, hero.Variants)
	assert.Equal(t, "section > container > h1 + subhead + CTA row", hero.Structure)

	assert.Equal(t, NoStructureReference, tax.StructureFor("FEATURES"))
	assert.Equal(t, NoStructureReference, tax.StructureFor("CTA"))
	assert.Equal(t, NoStructureReference, tax.StructureFor("PRICING"))
	assert.Equal(t, "section > container > h1 + subhead + CTA row", tax.StructureFor("HERO"))
}

func TestArchetypeList(t *testing.T) {
	tax := ParseTaxonomy([]byte(sampleTaxonomy))
	want := "\nHERO\n  - full-bleed\n  - split\n\nFEATURES\n  - icon-grid\n\nCTA\n  - simple"
	assert.Equal(t, want, tax.ArchetypeList())

	var nilTax *Taxonomy
	assert.Empty(t, nilTax.ArchetypeList())
	_, ok := nilTax.Lookup("HERO")
	assert.False(t, ok)
}
