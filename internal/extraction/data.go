package extraction

import (
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/craigdanielk/web-builder/internal/logfields"
)

// Files produced by the extraction helpers inside an extraction directory.
const (
	ExtractionDataFile    = "extraction-data.json"
	MappedSectionsFile    = "mapped-sections.json"
	AnimationAnalysisFile = "animation-analysis.json"
	SiteSpecFile          = "site-spec.json"
	SectionContextsFile   = "section-contexts.json"
	GapReportFile         = "gap-report.json"
)

// InjectionData is the reference-site data consumed by context sources. Both
// documents are opaque to the pipeline and are handed to helpers as-is.
type InjectionData struct {
	AnimationAnalysis json.RawMessage
	ExtractionData    json.RawMessage
}

// Empty reports whether no injection data was found.
func (d InjectionData) Empty() bool {
	return len(d.AnimationAnalysis) == 0 && len(d.ExtractionData) == 0
}

// LoadInjectionData reads animation-analysis.json and extraction-data.json
// from dir. Missing or invalid documents are skipped with a warning.
func LoadInjectionData(dir string) InjectionData {
	var d InjectionData
	if dir == "" {
		return d
	}
	d.AnimationAnalysis = readOptionalJSON(filepath.Join(dir, AnimationAnalysisFile))
	d.ExtractionData = readOptionalJSON(filepath.Join(dir, ExtractionDataFile))
	return d
}

func readOptionalJSON(path string) json.RawMessage {
	data, err := os.ReadFile(path)
	if err != nil {
		if !stderrors.Is(err, fs.ErrNotExist) {
			slog.Warn("Could not read extraction document", logfields.Path(path), logfields.Error(err))
		}
		return nil
	}
	if !json.Valid(data) {
		slog.Warn("Extraction document is not valid JSON", logfields.Path(path))
		return nil
	}
	return data
}

// Assets is the subset of extraction-data.json used to enrich identification.
type Assets struct {
	IconLibrary *IconLibrary      `json:"iconLibrary"`
	Logos       []json.RawMessage `json:"logos"`
	SVGs        []ExtractedSVG    `json:"svgs"`
}

// ReadAssets decodes the assets block of extraction data.
func ReadAssets(extractionData json.RawMessage) (Assets, error) {
	var doc struct {
		Assets Assets `json:"assets"`
	}
	if len(extractionData) == 0 {
		return doc.Assets, nil
	}
	err := json.Unmarshal(extractionData, &doc)
	return doc.Assets, err
}

// LatestDir returns the most recently modified extraction directory whose
// name starts with one of the prefixes, tried in order. It returns "" when
// none match.
func LatestDir(extractionsRoot string, prefixes ...string) string {
	entries, err := os.ReadDir(extractionsRoot)
	if err != nil {
		return ""
	}
	for _, prefix := range prefixes {
		if prefix == "" {
			continue
		}
		type candidate struct {
			path string
			mod  int64
		}
		var found []candidate
		for _, e := range entries {
			if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix+"-") {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			found = append(found, candidate{filepath.Join(extractionsRoot, e.Name()), info.ModTime().UnixNano()})
		}
		if len(found) == 0 {
			continue
		}
		sort.Slice(found, func(i, j int) bool {
			if found[i].mod != found[j].mod {
				return found[i].mod > found[j].mod
			}
			return found[i].path > found[j].path
		})
		return found[0].path
	}
	return ""
}
