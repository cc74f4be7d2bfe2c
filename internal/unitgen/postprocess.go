package unitgen

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/craigdanielk/web-builder/internal/unit"
)

var (
	fenceOpenRe  = regexp.MustCompile("\\A\\s*```[\\w-]*[ \\t]*\\n?")
	fenceCloseRe = regexp.MustCompile("\\n?```\\s*\\z")
)

// StripFences removes a code fence wrapped around the whole response.
func StripFences(text string) string {
	text = fenceOpenRe.ReplaceAllString(text, "")
	return fenceCloseRe.ReplaceAllString(text, "")
}

// ClientMarkers are references that require the client directive.
var ClientMarkers = []string{
	"framer-motion", "motion.", "useState", "useEffect",
	"useRef", "useCallback", "useMemo", "gsap", "ScrollTrigger",
	"DotLottieReact", "lucide-react",
}

const clientDirective = `"use client";`

// NeedsClientDirective reports whether code references any client marker.
func NeedsClientDirective(code string) bool {
	for _, m := range ClientMarkers {
		if strings.Contains(code, m) {
			return true
		}
	}
	return false
}

// HasClientDirective reports whether code starts with a use client directive.
func HasClientDirective(code string) bool {
	code = strings.TrimLeftFunc(code, unicode.IsSpace)
	return strings.HasPrefix(code, `"use client"`) || strings.HasPrefix(code, `'use client'`)
}

// EnsureClientDirective prepends the directive when a marker is present and
// the directive is not.
func EnsureClientDirective(code string) (string, bool) {
	if !NeedsClientDirective(code) || HasClientDirective(code) {
		return code, false
	}
	return clientDirective + "\n\n" + code, true
}

// EnsureDefaultExport makes name the default export. A matching exported
// function is rewritten in place and an exported const loses its export
// keyword; otherwise an export statement is appended. When name is never
// declared but another component is, that component is exported instead.
func EnsureDefaultExport(code, name string) (string, bool) {
	if HasDefaultExport(code) {
		return code, false
	}
	if !regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`).MatchString(code) {
		if declared := DeclaredComponent(code); declared != "" {
			name = declared
		}
	}
	q := regexp.QuoteMeta(name)
	if fn := regexp.MustCompile(`export\s+function\s+` + q + `\b`); fn.MatchString(code) {
		return fn.ReplaceAllLiteralString(code, "export default function "+name), true
	}
	if c := regexp.MustCompile(`export\s+const\s+` + q + `\b`); c.MatchString(code) {
		code = c.ReplaceAllLiteralString(code, "const "+name)
	}
	return strings.TrimRightFunc(code, unicode.IsSpace) + "\n\nexport default " + name + ";\n", true
}

// Process applies fence stripping, truncation repair and directive and
// export normalization in that order. It is idempotent.
func Process(raw string, spec unit.Spec) (string, unit.Flags, []string) {
	var flags unit.Flags
	code := StripFences(raw)

	rr := Repair(code, spec.FileName())
	code = rr.Text
	flags.Truncated = rr.Truncated
	flags.Repaired = rr.Repaired

	code, flags.ClientDirectiveAdded = EnsureClientDirective(code)
	code, flags.ExportNormalized = EnsureDefaultExport(code, spec.ComponentName())
	return code, flags, rr.Warnings
}
