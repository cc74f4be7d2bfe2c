package extraction

import (
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/craigdanielk/web-builder/internal/foundation/errors"
)

// IdentificationFile is written into the project directory.
const IdentificationFile = "identification.json"

// Identification is the pattern identifier's analysis of a reference site.
// The typed fields are what the pipeline reads; Raw keeps the complete
// document so it can be handed back to helpers unchanged.
type Identification struct {
	MappedSections       []MappedSection            `json:"mappedSections"`
	DetectedPlugins      []string                   `json:"detectedPlugins"`
	ColorSystem          ColorSystem                `json:"colorSystem"`
	SectionColorProfile  SectionColorProfile        `json:"sectionColorProfile"`
	SectionMapping       map[string]SectionMap      `json:"sectionMapping"`
	PinnedScrollDetected bool                       `json:"pinnedScrollDetected"`
	SectionCount         int                        `json:"sectionCount"`
	HighConfidence       int                        `json:"highConfidence"`
	AnimationPatterns    []json.RawMessage          `json:"animationPatterns"`
	GapReport            GapReport                  `json:"gapReport"`
	IconLibrary          *IconLibrary               `json:"iconLibrary,omitempty"`
	ExtractedLogos       []json.RawMessage          `json:"extractedLogos,omitempty"`
	ExtractedSVGs        []ExtractedSVG             `json:"extractedSVGs,omitempty"`
	Raw                  map[string]json.RawMessage `json:"-"`
}

// MappedSection is a reference-site section with its archetype assignment.
type MappedSection struct {
	Label      string   `json:"label"`
	Archetype  string   `json:"archetype"`
	Confidence *float64 `json:"confidence"`
	ClassNames string   `json:"classNames"`
}

// ConfidenceOr returns the confidence, or def when absent.
func (m MappedSection) ConfidenceOr(def float64) float64 {
	if m.Confidence == nil {
		return def
	}
	return *m.Confidence
}

// ColorSystem describes the site's accent palette.
type ColorSystem struct {
	System  string   `json:"system"`
	Accents []Accent `json:"accents"`
}

// Accent is one palette colour.
type Accent struct {
	Tailwind string `json:"tailwind"`
	Hex      string `json:"hex,omitempty"`
}

// SectionColorProfile holds per-section accent overrides keyed by ordinal.
type SectionColorProfile struct {
	SectionColors map[string]SectionColor `json:"sectionColors"`
}

// SectionColor is one section's colour override.
type SectionColor struct {
	Accent string `json:"accent"`
}

// SectionMap lists what was identified inside one section.
type SectionMap struct {
	Animations   []AnimationMatch `json:"animations"`
	UIComponents []string         `json:"uiComponents"`
}

// AnimationMatch pairs a detected animation pattern with a library component.
type AnimationMatch struct {
	Pattern   string `json:"pattern"`
	BestMatch string `json:"bestMatch"`
}

// IconLibrary is the icon set detected on the reference site.
type IconLibrary struct {
	Library string            `json:"library"`
	Count   int               `json:"count"`
	Icons   []json.RawMessage `json:"icons"`
}

// ExtractedSVG is an inline SVG captured during extraction.
type ExtractedSVG struct {
	Category string          `json:"category"`
	Raw      json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the raw document alongside the typed view.
func (s *ExtractedSVG) UnmarshalJSON(data []byte) error {
	type plain ExtractedSVG
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = ExtractedSVG(p)
	s.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes the original document back.
func (s ExtractedSVG) MarshalJSON() ([]byte, error) {
	if s.Raw != nil {
		return s.Raw, nil
	}
	return json.Marshal(map[string]string{"category": s.Category})
}

// UnmarshalJSON decodes the typed view and retains every top-level key.
func (id *Identification) UnmarshalJSON(data []byte) error {
	type plain Identification
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*id = Identification(p)
	id.Raw = raw
	return nil
}

// MarshalJSON merges the typed enrichment fields over the retained raw keys.
func (id Identification) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(id.Raw)+3)
	for k, v := range id.Raw {
		out[k] = v
	}
	if id.Raw == nil {
		type plain Identification
		data, err := json.Marshal(plain(id))
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
	}
	set := func(key string, v any, present bool) error {
		if !present {
			return nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		out[key] = data
		return nil
	}
	if err := set("iconLibrary", id.IconLibrary, id.IconLibrary != nil); err != nil {
		return nil, err
	}
	if err := set("extractedLogos", id.ExtractedLogos, len(id.ExtractedLogos) > 0); err != nil {
		return nil, err
	}
	if err := set("extractedSVGs", id.ExtractedSVGs, len(id.ExtractedSVGs) > 0); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// Section returns the identification mapping for an ordinal.
func (id *Identification) Section(ordinal int) SectionMap {
	if id == nil {
		return SectionMap{}
	}
	return id.SectionMapping[strconv.Itoa(ordinal)]
}

// SectionAccent returns the accent override for an ordinal, if any.
func (id *Identification) SectionAccent(ordinal int) string {
	if id == nil {
		return ""
	}
	return id.SectionColorProfile.SectionColors[strconv.Itoa(ordinal)].Accent
}

// IconsForContext returns the icons detected on the reference site.
func (id *Identification) IconsForContext() []json.RawMessage {
	if id == nil || id.IconLibrary == nil {
		return nil
	}
	return id.IconLibrary.Icons
}

// LoadIdentification reads <projectDir>/identification.json. A missing file
// yields nil without error.
func LoadIdentification(projectDir string) (*Identification, error) {
	path := filepath.Join(projectDir, IdentificationFile)
	data, err := os.ReadFile(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read identification").
			WithContext("path", path).Build()
	}
	var id Identification
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, errors.WrapError(err, errors.CategoryHelper, "parse identification").
			Warning().WithContext("path", path).Build()
	}
	return &id, nil
}

// SaveIdentification writes identification.json with two-space indentation.
func SaveIdentification(projectDir string, id *Identification) error {
	return writeJSON(filepath.Join(projectDir, IdentificationFile), id)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "encode json").WithContext("path", path).Build()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create directory").WithContext("path", path).Build()
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write file").WithContext("path", tmp).Build()
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "rename file").WithContext("path", path).Build()
	}
	return nil
}
