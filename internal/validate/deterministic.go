package validate

import (
	"fmt"
	"strings"

	"github.com/craigdanielk/web-builder/internal/unit"
	"github.com/craigdanielk/web-builder/internal/unitgen"
)

// PlaceholderPatterns are stock image hosts that must not ship.
var PlaceholderPatterns = []string{
	"/api/placeholder", "via.placeholder.com", "placehold.co",
	"placekitten.com", "picsum.photos", "placeholder.svg",
	"example.com/image", "unsplash.com/random",
}

var emojiRanges = [][2]rune{
	{0x1F600, 0x1F64F},
	{0x1F300, 0x1F5FF},
	{0x1F680, 0x1F6FF},
	{0x1F1E0, 0x1F1FF},
	{0x2702, 0x27B0},
	{0x1F900, 0x1F9FF},
	{0x1FA00, 0x1FA6F},
	{0x1FA70, 0x1FAFF},
}

func isEmoji(r rune) bool {
	for _, rg := range emojiRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}

// Deterministic runs structural checks with no external calls.
type Deterministic struct{}

// Validate checks every unit. Units are reported in the order given.
func (Deterministic) Validate(units []unit.Generated) *Report {
	r := NewReport(ModeDeterministic, len(units))
	for _, u := range units {
		checkUnit(r, u.File, u.Text)
		if u.Flags.Truncated && !u.Flags.Repaired {
			r.Add(u.File, SeverityError, CheckNotTruncated, "Section was truncated and could not be repaired")
		}
	}
	return r
}

func checkUnit(r *Report, file, code string) {
	if !unitgen.HasClientDirective(code) {
		if unitgen.NeedsClientDirective(code) {
			r.Add(file, SeverityError, CheckUseClient, "Missing 'use client' directive")
		} else {
			r.Add(file, SeverityWarning, CheckUseClient, "Missing 'use client' directive (no client markers found)")
		}
	}
	if !unitgen.HasDefaultExport(code) {
		r.Add(file, SeverityError, CheckExportDefault, "Missing 'export default' — component won't render")
	}

	check := unitgen.Inspect(code)
	if !check.Balanced {
		r.Add(file, SeverityError, CheckBraceBalance, "Unbalanced braces, brackets or JSX tags")
	}
	if !check.EndsProperly {
		r.Add(file, SeverityWarning, CheckNotTruncated, "File may be truncated — ends with: ..."+tail(code, 20))
	}

	if found := emojiIn(code, 3); len(found) > 0 {
		r.Add(file, SeverityWarning, CheckNoEmoji, fmt.Sprintf("Contains emoji characters: %q", found))
	}
	for _, p := range PlaceholderPatterns {
		if strings.Contains(code, p) {
			r.Add(file, SeverityWarning, CheckNoPlaceholder, "Contains placeholder image URL: "+p)
		}
	}
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "import ") {
			continue
		}
		short := truncate(line, 80)
		if strings.Contains(line, "from ''") || strings.Contains(line, `from ""`) {
			r.Add(file, SeverityError, CheckValidImports, "Empty import source: "+short)
		}
		if strings.Contains(line, "from 'motion/react'") || strings.Contains(line, `from "motion/react"`) {
			r.Add(file, SeverityWarning, CheckValidImports, "Import from 'motion/react' should be 'framer-motion': "+short)
		}
	}
}

func emojiIn(code string, limit int) []string {
	var out []string
	run := []rune{}
	flush := func() {
		if len(run) > 0 && len(out) < limit {
			out = append(out, string(run))
		}
		run = run[:0]
	}
	for _, r := range code {
		if isEmoji(r) {
			run = append(run, r)
			continue
		}
		flush()
	}
	flush()
	return out
}

func tail(s string, n int) string {
	s = strings.TrimRight(s, " \t\r\n")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
