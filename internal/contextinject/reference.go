package contextinject

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ReferenceSource contributes the reference-site context for a unit: the
// helper-built section context when present, otherwise a summary of the
// matching region of a saved HTML snapshot.
type ReferenceSource struct {
	contexts     map[string]string
	snapshotPath string

	once     sync.Once
	snapshot []Region
}

// NewReferenceSource returns a reference source. Both inputs may be empty.
func NewReferenceSource(contexts map[string]string, snapshotPath string) *ReferenceSource {
	return &ReferenceSource{contexts: contexts, snapshotPath: snapshotPath}
}

func (s *ReferenceSource) Name() string { return SourceReference }

func (s *ReferenceSource) Contribute(_ context.Context, req *Request) (Contribution, error) {
	if text, ok := s.contexts[strconv.Itoa(req.Spec.Ordinal)]; ok {
		return Contribution{Text: wrap(text)}, nil
	}
	if s.snapshotPath == "" {
		return Contribution{}, nil
	}
	var err error
	s.once.Do(func() {
		var f *os.File
		f, err = os.Open(s.snapshotPath)
		if err != nil {
			if os.IsNotExist(err) {
				err = nil
			}
			return
		}
		defer func() { _ = f.Close() }()
		s.snapshot, err = ParseSnapshot(f)
	})
	if err != nil {
		return Contribution{}, err
	}
	if req.Spec.Ordinal >= len(s.snapshot) {
		return Contribution{}, nil
	}
	return Contribution{Text: wrap(s.snapshot[req.Spec.Ordinal].Render(req.Spec.Number()))}, nil
}

// Region is the visible content of one top-level page region.
type Region struct {
	Tag      string
	Headings []string
	Copy     []string
	Actions  []string
	Images   []string
}

const (
	maxCopy    = 3
	maxActions = 6
	maxImages  = 4
	copyRunes  = 160
)

var regionTags = map[atom.Atom]bool{
	atom.Header:  true,
	atom.Nav:     true,
	atom.Section: true,
	atom.Footer:  true,
}

// ParseSnapshot splits an HTML page into its outermost header, nav, section
// and footer elements in document order.
func ParseSnapshot(r io.Reader) ([]Region, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse reference snapshot: %w", err)
	}
	var regions []Region
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && regionTags[n.DataAtom] {
			reg := Region{Tag: n.Data}
			collect(n, &reg)
			regions = append(regions, reg)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return regions, nil
}

func collect(n *html.Node, reg *Region) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Svg:
			return
		case atom.H1, atom.H2, atom.H3:
			if t := textOf(n); t != "" {
				reg.Headings = append(reg.Headings, t)
			}
			return
		case atom.P:
			if t := textOf(n); t != "" && len(reg.Copy) < maxCopy {
				reg.Copy = append(reg.Copy, truncateRunes(t, copyRunes))
			}
			return
		case atom.A, atom.Button:
			if t := textOf(n); t != "" && len(reg.Actions) < maxActions {
				reg.Actions = append(reg.Actions, t)
			}
			return
		case atom.Img:
			if alt := attr(n, "alt"); alt != "" && len(reg.Images) < maxImages {
				reg.Images = append(reg.Images, alt)
			}
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, reg)
	}
}

// Render formats the region as a prompt block.
func (r Region) Render(number int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Reference Snapshot (section %d, <%s>)", number, r.Tag)
	line := func(label string, items []string) {
		if len(items) > 0 {
			fmt.Fprintf(&b, "\n%s: %s", label, strings.Join(items, " | "))
		}
	}
	line("Headings", r.Headings)
	line("Copy", r.Copy)
	line("Actions", r.Actions)
	line("Image alt text", r.Images)
	b.WriteString("\nMirror this content hierarchy; rewrite the copy for the client.")
	return b.String()
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
