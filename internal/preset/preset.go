// Package preset parses industry preset documents and the section taxonomy.
//
// Presets are semi-structured Markdown. The parsers here are adapters with a
// documented grammar and a defined fallback for every field, so a malformed
// preset degrades to defaults instead of failing the build.
package preset

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/craigdanielk/web-builder/internal/foundation/errors"
)

const (
	// StyleHeaderFallback is used when a preset has no style context block.
	StyleHeaderFallback = "[Style header not found in preset — check preset format]"
	// SequenceFallback is used when a preset has no default section sequence.
	SequenceFallback = "See preset file"
	// DefaultFont applies to missing or unusable font declarations.
	DefaultFont = "Inter"

	styleHeaderStart = "═══ STYLE CONTEXT ═══"
	sequenceHeading  = "Default Section Sequence"
	templateName     = "_template"
)

// Engine is the animation engine a preset targets. It is chosen once per
// project and selects instruction templates and deploy dependencies.
type Engine string

const (
	EngineFramerMotion Engine = "framer-motion"
	EngineGSAP         Engine = "gsap"
)

// InstructionTemplate is the section instruction file for the engine.
func (e Engine) InstructionTemplate() string {
	if e == EngineGSAP {
		return "section-instructions-gsap.md"
	}
	return "section-instructions-framer.md"
}

// Fonts are the typefaces declared by a preset.
type Fonts struct {
	Heading string
	Body    string
	// HeadingWeight is empty when the preset does not declare one.
	HeadingWeight string
}

// Preset is a parsed preset document.
type Preset struct {
	Name        string
	Content     string
	StyleHeader string
	Sequence    string
	Engine      Engine
	Fonts       Fonts
}

// Parse extracts every preset field, applying fallbacks where absent.
func Parse(name string, content []byte) *Preset {
	s := string(content)
	return &Preset{
		Name:        name,
		Content:     s,
		StyleHeader: StyleHeader(s),
		Sequence:    Sequence(content),
		Engine:      DetectEngine(s),
		Fonts:       ParseFonts(s),
	}
}

// Load reads and parses <dir>/<name>.md.
func Load(dir, name string) (*Preset, error) {
	path := filepath.Join(dir, name+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.ConfigError(fmt.Sprintf("preset %q not found", name)).
				WithContext("path", path).Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read preset").
			WithContext("path", path).Build()
	}
	return Parse(name, data), nil
}

// List returns the preset names in dir, sorted, excluding the template.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".md")
		if name == templateName {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Resolve picks the preset to use: the requested one, or the only available
// preset when none was requested.
func Resolve(dir, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	names, err := List(dir)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "list presets").WithContext("path", dir).Build()
	}
	if len(names) == 1 {
		return names[0], nil
	}
	return "", errors.ConfigError("a preset must be selected").
		WithContext("available", strings.Join(names, ", ")).Build()
}

// StyleHeader returns the block starting at the line containing the style
// context marker through the next line made only of ═ characters (at least 10).
func StyleHeader(content string) string {
	lines := strings.Split(content, "\n")
	start := -1
	for i, line := range lines {
		if strings.Contains(line, styleHeaderStart) {
			start = i
			break
		}
	}
	if start < 0 {
		return StyleHeaderFallback
	}
	for j := start + 1; j < len(lines); j++ {
		if isRule(lines[j]) {
			block := strings.Join(lines[start:j+1], "\n")
			return strings.TrimSpace(block[strings.Index(block, styleHeaderStart):])
		}
	}
	return StyleHeaderFallback
}

func isRule(line string) bool {
	line = strings.TrimSpace(line)
	n := 0
	for _, r := range line {
		if r != '═' {
			return false
		}
		n++
	}
	return n >= 10
}

// Sequence returns the contents of the first fenced code block after the
// "Default Section Sequence" heading and before the next heading.
func Sequence(content []byte) string {
	root := goldmark.New().Parser().Parse(text.NewReader(content))
	inSection := false
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *gmast.Heading:
			if inSection {
				return SequenceFallback
			}
			inSection = strings.TrimSpace(plainText(node, content)) == sequenceHeading
		case *gmast.FencedCodeBlock:
			if inSection {
				return strings.TrimSpace(blockText(node, content))
			}
		}
	}
	return SequenceFallback
}

var engineRe = regexp.MustCompile(`Motion:.*?/\s*(gsap|framer-motion)`)

// DetectEngine reads the engine from the preset's Motion line. Default framer-motion.
func DetectEngine(content string) Engine {
	if m := engineRe.FindStringSubmatch(content); m != nil {
		return Engine(m[1])
	}
	return EngineFramerMotion
}

var (
	headingFontRe   = regexp.MustCompile(`heading_font:\s*([A-Za-z][A-Za-z0-9_ ]+)`)
	bodyFontRe      = regexp.MustCompile(`body_font:\s*([A-Za-z][A-Za-z0-9_ ]+)`)
	headingWeightRe = regexp.MustCompile(`heading_weight:\s*(\d+)`)
	yamlMarkers     = []string{"---", "palette", "bg_primary", "accent"}
)

// ParseFonts reads heading_font, body_font and heading_weight. Both fonts fall
// back to Inter if either capture picked up neighbouring YAML.
func ParseFonts(content string) Fonts {
	f := Fonts{Heading: DefaultFont, Body: DefaultFont}
	if m := headingFontRe.FindStringSubmatch(content); m != nil {
		f.Heading = strings.TrimSpace(m[1])
	}
	if m := bodyFontRe.FindStringSubmatch(content); m != nil {
		f.Body = strings.TrimSpace(m[1])
	}
	for _, marker := range yamlMarkers {
		if strings.Contains(f.Heading, marker) || strings.Contains(f.Body, marker) {
			f.Heading, f.Body = DefaultFont, DefaultFont
			break
		}
	}
	if m := headingWeightRe.FindStringSubmatch(content); m != nil {
		f.HeadingWeight = m[1]
	}
	return f
}

// ImportName converts a font display name to its next/font/google identifier.
func ImportName(font string) string {
	return strings.ReplaceAll(font, " ", "_")
}

func plainText(n gmast.Node, src []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if t, ok := c.(*gmast.Text); ok {
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		}
		return gmast.WalkContinue, nil
	})
	return b.String()
}

func blockText(n gmast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}
