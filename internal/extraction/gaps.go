package extraction

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/craigdanielk/web-builder/internal/logfields"
)

// GapReport lists capabilities the reference site uses that the component
// library cannot yet reproduce.
type GapReport struct {
	Gaps []Gap `json:"gaps"`
	// Other keys are preserved for the extension tooling that consumes the report.
	Extra map[string]json.RawMessage `json:"-"`
}

// Gap is one missing capability.
type Gap struct {
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// GapCounts tallies gaps by severity.
type GapCounts struct {
	High, Medium, Low int
}

// Counts tallies the report's gaps.
func (r GapReport) Counts() GapCounts {
	var c GapCounts
	for _, g := range r.Gaps {
		switch g.Severity {
		case "high":
			c.High++
		case "medium":
			c.Medium++
		case "low":
			c.Low++
		}
	}
	return c
}

// UnmarshalJSON keeps unknown keys.
func (r *GapReport) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if gaps, ok := raw["gaps"]; ok {
		if err := json.Unmarshal(gaps, &r.Gaps); err != nil {
			return err
		}
		delete(raw, "gaps")
	}
	r.Extra = raw
	return nil
}

// MarshalJSON writes gaps together with the preserved keys.
func (r GapReport) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+1)
	for k, v := range r.Extra {
		out[k] = v
	}
	gaps := r.Gaps
	if gaps == nil {
		gaps = []Gap{}
	}
	out["gaps"] = gaps
	return json.Marshal(out)
}

// LogGapSummary reports the project's gap report at the end of a build. It is
// silent when there is no report or no gaps.
func LogGapSummary(projectDir, project string) {
	data, err := os.ReadFile(filepath.Join(projectDir, GapReportFile))
	if err != nil {
		return
	}
	var r GapReport
	if json.Unmarshal(data, &r) != nil || len(r.Gaps) == 0 {
		return
	}
	c := r.Counts()
	var high []string
	for _, g := range r.Gaps {
		if g.Severity == "high" {
			d := g.Description
			if len(d) > 60 {
				d = d[:60]
			}
			high = append(high, d)
		}
	}
	slog.Warn("Gap report summary",
		logfields.Project(project),
		"gaps", len(r.Gaps),
		"high", c.High,
		"medium", c.Medium,
		"low", c.Low,
		"high_descriptions", high,
		logfields.Path(filepath.Join(projectDir, GapReportFile)))
}
