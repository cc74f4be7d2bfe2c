package contextinject

import (
	"context"
	"encoding/json"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/craigdanielk/web-builder/internal/extraction"
)

// IconSource maps the unit's archetype, and any icons found on the reference
// site, to an icon library block.
type IconSource struct {
	helper  HelperCaller
	ident   *extraction.Identification
	timeout time.Duration
}

func NewIconSource(h HelperCaller, ident *extraction.Identification, timeout time.Duration) *IconSource {
	return &IconSource{helper: h, ident: ident, timeout: timeout}
}

func (s *IconSource) Name() string { return SourceIcon }

func (s *IconSource) Contribute(ctx context.Context, req *Request) (Contribution, error) {
	if s.helper == nil {
		return Contribution{}, nil
	}
	icons := s.ident.IconsForContext()
	if icons == nil {
		icons = []json.RawMessage{}
	}
	var block string
	err := s.helper.Call(ctx, helperFunc("icon-mapper", "buildIconContextBlock", s.timeout,
		req.Spec.Archetype, req.Spec.Ordinal, icons), &block)
	if err != nil {
		return Contribution{}, err
	}
	return Contribution{Text: wrap(strings.TrimSpace(block))}, nil
}

// CardGridVariants are layouts built from a grid of repeated cards.
var CardGridVariants = []string{
	"demo-cards", "feature-cards", "benefit-cards", "grid", "card-grid",
	"three-column", "four-column", "bento-grid",
}

const cardGridCount = 6

// VisualFallbackSource fills units that have no imagery from the reference
// site with generated visual treatments.
type VisualFallbackSource struct {
	helper  HelperCaller
	timeout time.Duration
}

func NewVisualFallbackSource(h HelperCaller, timeout time.Duration) *VisualFallbackSource {
	return &VisualFallbackSource{helper: h, timeout: timeout}
}

func (s *VisualFallbackSource) Name() string { return SourceVisualFallback }

func (s *VisualFallbackSource) Contribute(ctx context.Context, req *Request) (Contribution, error) {
	if s.helper == nil || hasImagery(req.Prior(SourceAsset)) {
		return Contribution{}, nil
	}
	cardGrid := slices.Contains(CardGridVariants, req.Spec.Variant)
	count := 0
	if cardGrid {
		count = cardGridCount
	}
	var out componentBlock
	err := s.helper.Call(ctx, helperFunc("asset-injector", "getVisualFallback", s.timeout,
		req.Spec.Archetype, req.Spec.Ordinal, cardGrid, count), &out)
	if err != nil {
		return Contribution{}, err
	}
	return out.contribution(), nil
}

func hasImagery(asset string) bool {
	return asset != "" && (strings.Contains(asset, "backgroundImage") || strings.Contains(strings.ToLower(asset), "image"))
}

// CardEmbedSource embeds plugin demonstrations in product showcase cards.
type CardEmbedSource struct {
	helper  HelperCaller
	ident   *extraction.Identification
	timeout time.Duration
}

func NewCardEmbedSource(h HelperCaller, ident *extraction.Identification, timeout time.Duration) *CardEmbedSource {
	return &CardEmbedSource{helper: h, ident: ident, timeout: timeout}
}

func (s *CardEmbedSource) Name() string { return SourceCardEmbed }

func (s *CardEmbedSource) Contribute(ctx context.Context, req *Request) (Contribution, error) {
	if s.helper == nil || s.ident == nil || len(s.ident.DetectedPlugins) == 0 {
		return Contribution{}, nil
	}
	if !strings.EqualFold(req.Spec.Archetype, "PRODUCT-SHOWCASE") ||
		!strings.Contains(strings.ToLower(req.Spec.Variant), "demo") {
		return Contribution{}, nil
	}
	var out componentBlock
	err := s.helper.Call(ctx, helperFunc("animation-injector", "buildCardEmbeddedDemos", s.timeout,
		s.ident.DetectedPlugins), &out)
	if err != nil {
		return Contribution{}, err
	}
	return out.contribution(), nil
}

// UIComponentSource matches identified UI patterns against the component
// library search index.
type UIComponentSource struct {
	helper    HelperCaller
	ident     *extraction.Identification
	indexPath string
	timeout   time.Duration

	once  sync.Once
	index json.RawMessage
}

func NewUIComponentSource(h HelperCaller, ident *extraction.Identification, indexPath string, timeout time.Duration) *UIComponentSource {
	return &UIComponentSource{helper: h, ident: ident, indexPath: indexPath, timeout: timeout}
}

func (s *UIComponentSource) Name() string { return SourceUIComponents }

func (s *UIComponentSource) Contribute(ctx context.Context, req *Request) (Contribution, error) {
	if s.helper == nil {
		return Contribution{}, nil
	}
	patterns := s.ident.Section(req.Spec.Ordinal).UIComponents
	if len(patterns) == 0 {
		return Contribution{}, nil
	}
	var matches json.RawMessage
	err := s.helper.Call(ctx, helperFunc("pattern-identifier", "matchUIComponents", s.timeout,
		patterns, rawOrNull(s.searchIndex())), &matches)
	if err != nil {
		return Contribution{}, err
	}
	var out componentBlock
	if err := s.helper.Call(ctx, helperFunc("pattern-identifier", "buildUIComponentBlock", s.timeout,
		matches), &out); err != nil {
		return Contribution{}, err
	}
	return out.contribution(), nil
}

// searchIndex loads the index once. A missing or invalid file means no index.
func (s *UIComponentSource) searchIndex() json.RawMessage {
	s.once.Do(func() {
		if s.indexPath == "" {
			return
		}
		data, err := os.ReadFile(s.indexPath)
		if err != nil || !json.Valid(data) {
			return
		}
		s.index = data
	})
	return s.index
}
