package preset

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/craigdanielk/web-builder/internal/foundation/errors"
)

// NoStructureReference is used when the taxonomy has no usable structure for an archetype.
const NoStructureReference = "[No structural reference yet — infer from archetype and variant]"

// Archetype is one taxonomy entry.
type Archetype struct {
	Name      string
	Variants  []string
	Structure string
}

// Taxonomy is the controlled vocabulary of section archetypes and variants.
type Taxonomy struct {
	Archetypes []Archetype
	index      map[string]int
}

var structureRe = regexp.MustCompile(`(?s)\*\*Structure:\*\*\s*(.+?)(?:\n\*\*|\z)`)

// ParseTaxonomy reads level-3 headings as archetypes, list items that open
// with a code span as variants, and an optional **Structure:** paragraph. A
// structure that still says "populate on first use" is ignored.
func ParseTaxonomy(content []byte) *Taxonomy {
	t := &Taxonomy{index: map[string]int{}}
	root := goldmark.New().Parser().Parse(text.NewReader(content))

	// Byte offsets of each archetype heading so the raw section can be
	// sliced for the structure paragraph.
	var starts []int
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *gmast.Heading:
			if node.Level != 3 {
				continue
			}
			name := strings.TrimSpace(plainText(node, content))
			if name == "" {
				continue
			}
			t.index[name] = len(t.Archetypes)
			t.Archetypes = append(t.Archetypes, Archetype{Name: name})
			starts = append(starts, headingOffset(node))
		case *gmast.List:
			if len(t.Archetypes) == 0 {
				continue
			}
			cur := &t.Archetypes[len(t.Archetypes)-1]
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				if v := leadingCodeSpan(item, content); v != "" {
					cur.Variants = append(cur.Variants, v)
				}
			}
		}
	}

	for i := range t.Archetypes {
		end := len(content)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		if starts[i] < 0 || starts[i] > end {
			continue
		}
		m := structureRe.FindSubmatch(content[starts[i]:end])
		if m == nil {
			continue
		}
		s := strings.TrimSpace(string(m[1]))
		if !strings.Contains(strings.ToLower(s), "populate on first use") {
			t.Archetypes[i].Structure = s
		}
	}
	return t
}

// LoadTaxonomy reads and parses the taxonomy file.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "read section taxonomy").
			WithContext("path", path).Build()
	}
	return ParseTaxonomy(data), nil
}

// Lookup returns the named archetype.
func (t *Taxonomy) Lookup(name string) (Archetype, bool) {
	if t == nil {
		return Archetype{}, false
	}
	i, ok := t.index[name]
	if !ok {
		return Archetype{}, false
	}
	return t.Archetypes[i], true
}

// StructureFor returns the structural reference text for an archetype.
func (t *Taxonomy) StructureFor(name string) string {
	if a, ok := t.Lookup(name); ok && a.Structure != "" {
		return a.Structure
	}
	return NoStructureReference
}

// ArchetypeList renders the archetypes and variants for the scaffold prompt.
func (t *Taxonomy) ArchetypeList() string {
	if t == nil {
		return ""
	}
	var lines []string
	for _, a := range t.Archetypes {
		lines = append(lines, "\n"+a.Name)
		for _, v := range a.Variants {
			lines = append(lines, fmt.Sprintf("  - %s", v))
		}
	}
	return strings.Join(lines, "\n")
}

func headingOffset(h *gmast.Heading) int {
	lines := h.Lines()
	if lines.Len() == 0 {
		return -1
	}
	start := lines.At(0).Start
	// Back up over the "### " marker so the slice starts at the heading line.
	return max(start-4, 0)
}

func leadingCodeSpan(item gmast.Node, src []byte) string {
	block := item.FirstChild()
	if block == nil {
		return ""
	}
	first := block.FirstChild()
	cs, ok := first.(*gmast.CodeSpan)
	if !ok {
		return ""
	}
	var b strings.Builder
	for c := cs.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*gmast.Text); ok {
			b.Write(t.Segment.Value(src))
		}
	}
	return strings.TrimSpace(b.String())
}
