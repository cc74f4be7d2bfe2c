package validate

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorError   = lipgloss.AdaptiveColor{Light: "#D73737", Dark: "#FF6B6B"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#E67E22", Dark: "#FFB86C"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#27AE60", Dark: "#50FA7B"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6C757D", Dark: "#8A8A8A"}

	passStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// maxConsoleWarnings bounds the warnings listed on the console.
const maxConsoleWarnings = 5

// RenderConsole formats a report summary for a terminal. All errors are
// listed; warnings are capped.
func RenderConsole(r *Report) string {
	status := passStyle.Render("PASS")
	border := colorSuccess
	if !r.Passed {
		status = failStyle.Render("FAIL")
		border = colorError
	}
	header := fmt.Sprintf("%s  %s review: %d errors, %d warnings (%d sections)",
		status, r.Mode, r.ErrorCount, r.WarningCount, r.SectionCount)

	lines := []string{header}
	for _, is := range r.Errors() {
		lines = append(lines, errorStyle.Render("  ✗ "+is.File+": "+is.Message))
	}
	warnings := r.Warnings()
	for i, is := range warnings {
		if i == maxConsoleWarnings {
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("  ... and %d more warnings", len(warnings)-maxConsoleWarnings)))
			break
		}
		lines = append(lines, warningStyle.Render("  ! "+is.File+": "+is.Message))
	}
	return boxStyle.BorderForeground(border).Render(strings.Join(lines, "\n"))
}
