package contextinject

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/craigdanielk/web-builder/internal/extraction"
	"github.com/craigdanielk/web-builder/internal/unit"
)

// sectionContext is one entry of a per-section helper result.
type sectionContext struct {
	AnimationContext string   `json:"animationContext"`
	AssetContext     string   `json:"assetContext"`
	TokenBudget      int      `json:"tokenBudget"`
	ComponentFiles   []string `json:"componentFiles"`
}

// AnimationSource supplies per-unit animation guidance computed in one
// helper call over the whole unit list. Units it assigns a larger budget to
// get that budget.
type AnimationSource struct {
	helper   HelperCaller
	analysis json.RawMessage
	preset   string
	ident    *extraction.Identification
	timeout  time.Duration

	contexts map[string]sectionContext
}

// NewAnimationSource returns an animation source. It contributes nothing
// without an animation analysis.
func NewAnimationSource(h HelperCaller, analysis json.RawMessage, preset string, ident *extraction.Identification, timeout time.Duration) *AnimationSource {
	return &AnimationSource{helper: h, analysis: analysis, preset: preset, ident: ident, timeout: timeout}
}

func (s *AnimationSource) Name() string { return SourceAnimation }

// Prepare calls buildAllAnimationContexts. The result is either
// {contexts: {...}, allComponentFiles: [...]} or, from older helpers, the
// per-section map itself.
func (s *AnimationSource) Prepare(ctx context.Context, specs []unit.Spec) error {
	if s.helper == nil || len(s.analysis) == 0 {
		return nil
	}
	var ident any
	if s.ident != nil {
		ident = s.ident
	}
	var raw map[string]json.RawMessage
	err := s.helper.Call(ctx, helperFunc("animation-injector", "buildAllAnimationContexts", s.timeout,
		s.analysis, s.preset, specs, ident), &raw)
	if err != nil {
		return err
	}

	var files []string
	body := raw
	if nested, ok := raw["contexts"]; ok {
		body = nil
		if err := json.Unmarshal(nested, &body); err != nil {
			return err
		}
		_ = json.Unmarshal(raw["allComponentFiles"], &files)
	}
	s.contexts = decodeSectionContexts(body)

	withText := 0
	for _, c := range s.contexts {
		if strings.TrimSpace(c.AnimationContext) != "" {
			withText++
		}
	}
	slog.Info("Animation context loaded",
		slog.Int("with_context", withText),
		slog.Int("sections", len(s.contexts)),
		slog.Int("library_components", len(files)))
	return nil
}

func (s *AnimationSource) Contribute(_ context.Context, req *Request) (Contribution, error) {
	c, ok := s.contexts[strconv.Itoa(req.Spec.Ordinal)]
	if !ok {
		return Contribution{}, nil
	}
	return Contribution{
		Text:            wrap(c.AnimationContext),
		Budget:          c.TokenBudget,
		ExtraComponents: c.ComponentFiles,
	}, nil
}

// AssetSource supplies per-unit image and media guidance.
type AssetSource struct {
	helper     HelperCaller
	extraction json.RawMessage
	timeout    time.Duration

	contexts map[string]sectionContext
}

// NewAssetSource returns an asset source. It contributes nothing without
// extraction data.
func NewAssetSource(h HelperCaller, extractionData json.RawMessage, timeout time.Duration) *AssetSource {
	return &AssetSource{helper: h, extraction: extractionData, timeout: timeout}
}

func (s *AssetSource) Name() string { return SourceAsset }

func (s *AssetSource) Prepare(ctx context.Context, specs []unit.Spec) error {
	if s.helper == nil || len(s.extraction) == 0 {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := s.helper.Call(ctx, helperFunc("asset-injector", "buildAllAssetContexts", s.timeout,
		s.extraction, specs), &raw); err != nil {
		return err
	}
	s.contexts = decodeSectionContexts(raw)
	return nil
}

func (s *AssetSource) Contribute(_ context.Context, req *Request) (Contribution, error) {
	c := s.contexts[strconv.Itoa(req.Spec.Ordinal)]
	return Contribution{Text: wrap(c.AssetContext)}, nil
}

// decodeSectionContexts skips entries that are not objects.
func decodeSectionContexts(raw map[string]json.RawMessage) map[string]sectionContext {
	out := make(map[string]sectionContext, len(raw))
	for k, v := range raw {
		var c sectionContext
		if err := json.Unmarshal(v, &c); err != nil {
			continue
		}
		out[k] = c
	}
	return out
}
