package contextinject

import (
	"context"
	"fmt"
	"strings"

	"github.com/craigdanielk/web-builder/internal/extraction"
)

// IdentificationSource turns the identifier's per-section findings into
// prompt guidance: accent override, matched animation patterns and UI
// components.
type IdentificationSource struct {
	ident *extraction.Identification
}

func NewIdentificationSource(ident *extraction.Identification) *IdentificationSource {
	return &IdentificationSource{ident: ident}
}

func (s *IdentificationSource) Name() string { return SourceIdentification }

const maxIdentifiedAnimations = 2

func (s *IdentificationSource) Contribute(_ context.Context, req *Request) (Contribution, error) {
	if s.ident == nil {
		return Contribution{}, nil
	}
	var parts []string
	if accent := s.ident.SectionAccent(req.Spec.Ordinal); accent != "" {
		parts = append(parts, fmt.Sprintf("## Section Accent Color\n"+
			"This section's accent color is %s (not the default site accent).\n"+
			"Use %s for highlights, buttons, icons, and accent elements in this section.", accent, accent))
	}
	sec := s.ident.Section(req.Spec.Ordinal)
	anims := sec.Animations
	if len(anims) > maxIdentifiedAnimations {
		anims = anims[:maxIdentifiedAnimations]
	}
	for _, a := range anims {
		if a.BestMatch == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("## Identified Animation Pattern\n"+
			"Pattern: %s (from reference site analysis)\n"+
			"Registry component: %s\n"+
			"Use this animation pattern for entrance/interaction in this section.", a.Pattern, a.BestMatch))
	}
	if len(sec.UIComponents) > 0 {
		parts = append(parts, "## Identified UI Components\n"+
			"Detected: "+strings.Join(sec.UIComponents, ", ")+"\n"+
			"Incorporate these UI patterns into the section layout.")
	}
	if len(parts) == 0 {
		return Contribution{}, nil
	}
	return Contribution{Text: "\n" + strings.Join(parts, "\n\n") + "\n"}, nil
}

const pinnedScrollBlock = "\n═══ PINNED HORIZONTAL SCROLL RULES ═══\n" +
	"This section uses GSAP ScrollTrigger with pin: true and scrub: true.\n" +
	"Structure: section (100vh) → overflow-hidden container → flex track with will-change-transform → panels.\n" +
	"Each panel should be min-w-[100vw] or content-sized blocks.\n" +
	"\n" +
	"CRITICAL: Use `containerAnimation` for ANY nested animations inside the pinned scroll.\n" +
	"Without containerAnimation, nested ScrollTriggers respond to vertical page scroll, not horizontal position.\n" +
	"\n" +
	"MUST include:\n" +
	"- gsap.matchMedia() for mobile fallback (< 768px → vertical stack)\n" +
	"- invalidateOnRefresh: true for responsive recalculation\n" +
	"- Progress indicator (bar, dots, or panel counter)\n" +
	"- prefers-reduced-motion handler\n" +
	"\n" +
	"See section-instructions-gsap.md for the full pinned horizontal scroll technique.\n" +
	"═══════════════════════════════════════\n"

// PinnedScrollSource adds pinned horizontal scroll rules and raises the
// budget floor when the unit's animation calls for a pinned, scrubbed
// timeline or the identifier saw one on the reference site.
type PinnedScrollSource struct {
	ident *extraction.Identification
	floor int
}

func NewPinnedScrollSource(ident *extraction.Identification, floor int) *PinnedScrollSource {
	return &PinnedScrollSource{ident: ident, floor: floor}
}

func (s *PinnedScrollSource) Name() string { return SourcePinnedScroll }

func (s *PinnedScrollSource) Contribute(_ context.Context, req *Request) (Contribution, error) {
	if !UsesPinnedScroll(req.Prior(SourceAnimation), s.ident) {
		return Contribution{}, nil
	}
	return Contribution{Text: pinnedScrollBlock, MinBudget: s.floor}, nil
}

// UsesPinnedScroll reports whether a unit needs the pinned scroll treatment.
func UsesPinnedScroll(animation string, ident *extraction.Identification) bool {
	a := strings.ToLower(animation)
	switch {
	case strings.Contains(a, "pinned-horizontal"):
		return true
	case strings.Contains(a, "pin: true") && strings.Contains(a, "scrub"):
		return true
	}
	return ident != nil && ident.PinnedScrollDetected
}

// PluginSource lists the GSAP plugins detected on the reference site.
type PluginSource struct {
	ident *extraction.Identification
}

func NewPluginSource(ident *extraction.Identification) *PluginSource {
	return &PluginSource{ident: ident}
}

func (s *PluginSource) Name() string { return SourcePlugin }

func (s *PluginSource) Contribute(context.Context, *Request) (Contribution, error) {
	if s.ident == nil || len(s.ident.DetectedPlugins) == 0 {
		return Contribution{}, nil
	}
	return Contribution{Text: "\n═══ GSAP PLUGIN CONTEXT ═══\n" +
		"Detected plugins: " + strings.Join(s.ident.DetectedPlugins, ", ") + "\n" +
		"Use these plugins where appropriate for this section.\n" +
		"═══════════════════════════\n"}, nil
}
