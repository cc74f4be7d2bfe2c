package validate

import (
	"context"
	"strings"

	"github.com/craigdanielk/web-builder/internal/llm"
	"github.com/craigdanielk/web-builder/internal/unit"
)

// StageTag is the llm.Request stage for review calls.
const StageTag = "review"

// Judgment asks the generation service to review cross-section consistency.
type Judgment struct {
	client llm.Caller
	model  string
	budget int
}

func NewJudgment(client llm.Caller, model string, budget int) *Judgment {
	return &Judgment{client: client, model: model, budget: budget}
}

// Review returns a report of the failed checklist items, all at warning
// severity, and the raw review text.
func (j *Judgment) Review(ctx context.Context, styleHeader string, units []unit.Generated) (*Report, string, error) {
	text, err := j.client.Complete(ctx, llm.Request{
		Model:     j.model,
		MaxTokens: j.budget,
		Prompt:    JudgmentPrompt(styleHeader, units),
		Stage:     StageTag,
	})
	if err != nil {
		return nil, "", err
	}
	r := NewReport(ModeJudgment, len(units))
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "❌") && strings.Contains(line, "FAIL") {
			r.Add(affected(line), SeverityWarning, CheckConsistency, strings.TrimSpace(strings.TrimPrefix(line, "❌")))
		}
	}
	return r, text, nil
}

// affected pulls the "Sections affected:" list out of a FAIL line.
func affected(line string) string {
	const marker = "Sections affected:"
	i := strings.Index(line, marker)
	if i < 0 {
		return "page"
	}
	rest := line[i+len(marker):]
	if j := strings.Index(rest, "—"); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

// JudgmentPrompt renders the consistency review prompt.
func JudgmentPrompt(styleHeader string, units []unit.Generated) string {
	var code strings.Builder
	for _, u := range units {
		code.WriteString("\n\n--- " + u.File + " ---\n\n" + u.Text)
	}
	return "You are a senior frontend QA reviewer checking a multi-section website\n" +
		"for visual and code consistency.\n\n" +
		"## Style Context\n" + styleHeader + "\n\n" +
		"## Sections to Review\n" + code.String() + "\n\n" +
		consistencyChecklist
}

const consistencyChecklist = `## Consistency Checklist

Review every section and check the following. For each item, report
PASS or FAIL with the specific section(s) that violate.

### Color Consistency
- All sections use the same background color tokens
- All sections use the same text color tokens
- Accent color is identical across all buttons and links
- No section introduces colors not in the style header

### Typography Consistency
- All sections use the same heading font family
- All sections use the same body font family
- Heading sizes follow a consistent hierarchy
- Font weights match the style header specification

### Spacing Consistency
- Section padding is uniform across all sections
- Internal gap values are consistent within similar layouts
- Container max-width is the same across all sections

### Border Radius Consistency
- All buttons use the same border-radius value
- All cards use the same border-radius value
- All input fields use the same border-radius value

### Animation Consistency
- All scroll-triggered animations use the same entrance pattern
- Animation duration is consistent across sections
- Easing function is identical across all animations
- Hover states follow the same pattern

### Button Style Consistency
- Primary button style is identical everywhere
- Button text casing is consistent

For each item, output:
✅ PASS — item description
❌ FAIL — item description — Sections affected: list — Fix: specific change needed

End with:
- Total: pass_count/total_count passed
- Priority fix list ordered by visual impact`
