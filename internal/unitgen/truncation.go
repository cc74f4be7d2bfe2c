package unitgen

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// The structural grammar is deliberately small. Outside string literals and
// comments, {} () and [] must nest, and every JSX element opened with <name
// or <> must be closed by </name>, </> or a self-closing />. A unit is
// complete when that holds and its last non-empty line ends in }, }; or an
// export default statement.

type scopeKind int

const (
	scopeBrace scopeKind = iota
	scopeParen
	scopeBracket
	// scopeTag is an opening tag whose attributes are still being read.
	scopeTag
	// scopeElement is an open JSX element whose children are being read.
	scopeElement
)

type scope struct {
	kind  scopeKind
	name  string
	start int
}

func (s scope) closer() string {
	switch s.kind {
	case scopeBrace:
		return "}"
	case scopeParen:
		return ")"
	case scopeBracket:
		return "]"
	case scopeTag:
		return "/>"
	default:
		return "</" + s.name + ">"
	}
}

// structure is the result of scanning a unit.
type structure struct {
	open []scope
	// stray counts closers with no matching opener.
	stray int
	// cut is the offset of a string, comment or tag left unterminated at the
	// end of input, or -1.
	cut int
}

func (s structure) balanced() bool {
	return len(s.open) == 0 && s.stray == 0 && s.cut < 0
}

func scanStructure(src string) structure {
	st := structure{cut: -1}
	top := func() *scope {
		if len(st.open) == 0 {
			return nil
		}
		return &st.open[len(st.open)-1]
	}
	closeKind := func(k scopeKind) {
		for i := len(st.open) - 1; i >= 0; i-- {
			if st.open[i].kind == k {
				st.open = st.open[:i]
				return
			}
			if st.open[i].kind == scopeTag || st.open[i].kind == scopeElement {
				break
			}
		}
		st.stray++
	}

	n := len(src)
	for i := 0; i < n; i++ {
		c := src[i]
		t := top()

		switch {
		case t != nil && t.kind == scopeElement:
			switch c {
			case '{':
				st.open = append(st.open, scope{kind: scopeBrace, start: i})
			case '<':
				end, ok := scanTagStart(src, i, &st)
				if !ok {
					st.cut = i
					return st
				}
				i = end
			}

		case t != nil && t.kind == scopeTag:
			switch {
			case c == '"' || c == '\'':
				end := strings.IndexByte(src[i+1:], c)
				if end < 0 {
					st.cut = t.start
					return st
				}
				i += end + 1
			case c == '{':
				st.open = append(st.open, scope{kind: scopeBrace, start: i})
			case c == '/' && i+1 < n && src[i+1] == '>':
				st.open = st.open[:len(st.open)-1]
				i++
			case c == '>':
				t.kind = scopeElement
			}

		default:
			switch c {
			case '/':
				if i+1 < n && src[i+1] == '/' {
					nl := strings.IndexByte(src[i:], '\n')
					if nl < 0 {
						return st
					}
					i += nl
				} else if i+1 < n && src[i+1] == '*' {
					end := strings.Index(src[i+2:], "*/")
					if end < 0 {
						st.cut = i
						return st
					}
					i += end + 3
				}
			case '"', '\'', '`':
				end, ok := skipString(src, i)
				if !ok {
					st.cut = i
					return st
				}
				i = end
			case '{':
				st.open = append(st.open, scope{kind: scopeBrace, start: i})
			case '(':
				st.open = append(st.open, scope{kind: scopeParen, start: i})
			case '[':
				st.open = append(st.open, scope{kind: scopeBracket, start: i})
			case '}':
				closeKind(scopeBrace)
			case ')':
				closeKind(scopeParen)
			case ']':
				closeKind(scopeBracket)
			case '<':
				if !jsxContext(src, i) {
					continue
				}
				end, ok := scanTagStart(src, i, &st)
				if !ok {
					st.cut = i
					return st
				}
				i = end
			}
		}
	}
	if t := innermostTag(st.open); t >= 0 {
		st.cut = st.open[t].start
	}
	return st
}

// scanTagStart handles '<' at i in JSX position: an opening tag, a fragment
// or a closing tag. It returns the index of the last byte consumed and false
// when the input ends inside a closing tag.
func scanTagStart(src string, i int, st *structure) (int, bool) {
	n := len(src)
	if i+1 >= n {
		return i, false
	}
	switch next := src[i+1]; {
	case next == '/':
		end := strings.IndexByte(src[i:], '>')
		if end < 0 {
			return i, false
		}
		name := strings.TrimSpace(src[i+2 : i+end])
		for j := len(st.open) - 1; j >= 0; j-- {
			if st.open[j].kind == scopeElement && st.open[j].name == name {
				st.open = st.open[:j]
				return i + end, true
			}
		}
		st.stray++
		return i + end, true
	case next == '>':
		st.open = append(st.open, scope{kind: scopeElement, start: i})
		return i + 1, true
	case isNameStart(next):
		j := i + 1
		for j < n && isNameByte(src[j]) {
			j++
		}
		st.open = append(st.open, scope{kind: scopeTag, name: src[i+1 : j], start: i})
		return j - 1, true
	}
	return i, true
}

func skipString(src string, i int) (int, bool) {
	q := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case q:
			return j, true
		case '\n':
			if q != '`' {
				// Unterminated single-line literal; resume after it.
				return j, true
			}
		}
	}
	return len(src), false
}

// jsxContext reports whether '<' at i starts JSX rather than a comparison or
// a type argument, judged by the preceding token.
func jsxContext(src string, i int) bool {
	if i+1 >= len(src) || !(isNameStart(src[i+1]) || src[i+1] == '>') {
		return false
	}
	j := i - 1
	for j >= 0 && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
		j--
	}
	if j < 0 {
		return true
	}
	if strings.ContainsRune("([{,;:?=&|!>", rune(src[j])) {
		return true
	}
	return strings.HasSuffix(src[:j+1], "return") &&
		(j < len("return") || !isNameByte(src[j-len("return")]))
}

func innermostTag(open []scope) int {
	for i := len(open) - 1; i >= 0; i-- {
		if open[i].kind == scopeTag {
			return i
		}
	}
	return -1
}

func isNameStart(c byte) bool {
	return c == '_' || c == '$' || unicode.IsLetter(rune(c))
}

func isNameByte(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9') || c == '.' || c == '-' || c == ':'
}

var (
	defaultExportRe   = regexp.MustCompile(`export\s+default\s+`)
	defaultExportAsRe = regexp.MustCompile(`export\s*\{[^}]*\bas\s+default\b[^}]*\}`)
	exportStatementRe = regexp.MustCompile(`export\s+default\s+.+;?\s*$`)
	componentFuncRe   = regexp.MustCompile(`function\s+([A-Z][a-zA-Z0-9]*)\s*[(\s]`)
	componentConstRe  = regexp.MustCompile(`const\s+([A-Z][a-zA-Z0-9]*)\s*=`)
)

// Repairs that change the length by more than this are reported.
const heavyRepairThreshold = 50

// HasDefaultExport reports whether code declares a default export.
func HasDefaultExport(code string) bool {
	return defaultExportRe.MatchString(code) || defaultExportAsRe.MatchString(code)
}

func endsProperly(code string) bool {
	last := ""
	for _, line := range strings.Split(code, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			last = t
		}
	}
	return exportStatementRe.MatchString(last) || strings.HasSuffix(last, "}") || strings.HasSuffix(last, "};")
}

// Check describes a unit against the structural grammar. HasExport is
// informational; a missing export is fixed by EnsureDefaultExport.
type Check struct {
	HasExport    bool
	Balanced     bool
	EndsProperly bool
}

// Truncated reports whether the structure is incomplete.
func (c Check) Truncated() bool {
	return !c.Balanced || !c.EndsProperly
}

// Inspect checks code without modifying it.
func Inspect(code string) Check {
	if strings.TrimSpace(code) == "" {
		return Check{}
	}
	return Check{
		HasExport:    HasDefaultExport(code),
		Balanced:     scanStructure(code).balanced(),
		EndsProperly: endsProperly(code),
	}
}

// RepairResult is the outcome of Repair.
type RepairResult struct {
	Text      string
	Truncated bool
	Repaired  bool
	Warnings  []string
}

const maxCuts = 4

// Repair closes a structurally incomplete unit. It drops a trailing
// unterminated string, comment or tag and closes open scopes innermost first.
// The text is returned unchanged when it is complete or cannot be made so.
func Repair(code, name string) RepairResult {
	if !Inspect(code).Truncated() {
		return RepairResult{Text: code}
	}
	out := code
	applied := false

	st := scanStructure(out)
	for i := 0; st.cut >= 0 && i < maxCuts; i++ {
		out = strings.TrimRightFunc(out[:st.cut], unicode.IsSpace)
		st = scanStructure(out)
		applied = true
	}
	if st.cut < 0 && st.stray == 0 && len(st.open) > 0 {
		var b strings.Builder
		b.WriteString(strings.TrimRightFunc(out, unicode.IsSpace))
		for i := len(st.open) - 1; i >= 0; i-- {
			b.WriteString("\n")
			b.WriteString(st.open[i].closer())
		}
		b.WriteString("\n")
		out = b.String()
		applied = true
	}

	if !applied || Inspect(out).Truncated() {
		return RepairResult{Text: code, Truncated: true}
	}
	res := RepairResult{Text: out, Truncated: true, Repaired: true}
	if diff := len(out) - len(code); diff > heavyRepairThreshold || diff < -heavyRepairThreshold {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s was heavily repaired; consider regenerating", name))
	}
	return res
}

// DeclaredComponent returns the first component declared in code.
func DeclaredComponent(code string) string {
	if m := componentFuncRe.FindStringSubmatch(code); m != nil {
		return m[1]
	}
	if m := componentConstRe.FindStringSubmatch(code); m != nil {
		return m[1]
	}
	return ""
}
