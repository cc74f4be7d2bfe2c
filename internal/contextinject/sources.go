package contextinject

import (
	"context"
	"encoding/json"
	"time"

	"github.com/craigdanielk/web-builder/internal/extraction"
	"github.com/craigdanielk/web-builder/internal/helper"
)

// HelperCaller invokes helper library functions. *helper.Runner satisfies it.
type HelperCaller interface {
	Call(ctx context.Context, fn helper.Func, out any) error
}

// Deps gathers everything the default sources read.
type Deps struct {
	// Helper may be nil, in which case helper-backed sources contribute nothing.
	Helper          HelperCaller
	Identification  *extraction.Identification
	Injection       extraction.InjectionData
	SectionContexts map[string]string
	// SnapshotPath is an optional saved HTML page of the reference site.
	SnapshotPath    string
	PresetContent   string
	SearchIndexPath string
	PinnedFloor     int
	ContextTimeout  time.Duration
	SmallTimeout    time.Duration
}

// DefaultSources returns every source in priority order.
func DefaultSources(d Deps) []Source {
	return []Source{
		NewReferenceSource(d.SectionContexts, d.SnapshotPath),
		NewAnimationSource(d.Helper, d.Injection.AnimationAnalysis, d.PresetContent, d.Identification, d.ContextTimeout),
		NewAssetSource(d.Helper, d.Injection.ExtractionData, d.ContextTimeout),
		NewIdentificationSource(d.Identification),
		NewPinnedScrollSource(d.Identification, d.PinnedFloor),
		NewPluginSource(d.Identification),
		NewIconSource(d.Helper, d.Identification, d.SmallTimeout),
		NewVisualFallbackSource(d.Helper, d.SmallTimeout),
		NewCardEmbedSource(d.Helper, d.Identification, d.SmallTimeout),
		NewUIComponentSource(d.Helper, d.Identification, d.SearchIndexPath, d.SmallTimeout),
	}
}

// componentBlock is the {block, componentFiles} shape several helpers return.
type componentBlock struct {
	Block          string   `json:"block"`
	ComponentFiles []string `json:"componentFiles"`
}

func (b componentBlock) contribution() Contribution {
	text := wrap(b.Block)
	if text == "" {
		return Contribution{}
	}
	return Contribution{Text: text, ExtraComponents: b.ComponentFiles}
}

// rawOrNull keeps absent documents as JSON null in helper arguments.
func rawOrNull(r json.RawMessage) any {
	if len(r) == 0 {
		return nil
	}
	return r
}

func helperFunc(module, function string, timeout time.Duration, args ...any) helper.Func {
	return helper.Func{Module: module, Function: function, Args: args, Timeout: timeout}
}
