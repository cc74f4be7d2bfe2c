package deploy

import (
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/craigdanielk/web-builder/internal/logfields"
)

// RegistryFile lists the animation component library.
const RegistryFile = "component-registry.json"

// RegistryEntry is one library component.
type RegistryEntry struct {
	Status       string   `json:"status"`
	Archetypes   []string `json:"archetypes"`
	SourceFile   string   `json:"source_file"`
	File         string   `json:"file"`
	Dependencies []string `json:"dependencies"`
}

// Path returns the component's file relative to the library root.
func (e RegistryEntry) Path() string {
	if e.SourceFile != "" {
		return e.SourceFile
	}
	return e.File
}

// Registry is the parsed component registry.
type Registry struct {
	Components map[string]RegistryEntry `json:"components"`
}

// LoadRegistry reads the registry from the library directory. A missing
// registry yields nil without error.
func LoadRegistry(libDir string) (*Registry, error) {
	data, err := os.ReadFile(filepath.Join(libDir, RegistryFile))
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r Registry
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// packages that registry entries name but must not be installed: a scope, and
// an alias of framer-motion.
var invalidPackages = map[string]bool{"@gsap": true, "motion": true}

// Select returns the non-placeholder components usable by the given
// archetypes (unrestricted components always qualify), sorted by name, and
// the extra packages they need.
func (r *Registry) Select(archetypes []string) (names []string, deps []string) {
	if r == nil {
		return nil, nil
	}
	used := map[string]bool{}
	for _, a := range archetypes {
		used[strings.ToUpper(strings.ReplaceAll(a, "_", "-"))] = true
	}
	depSet := map[string]bool{}
	for name, e := range r.Components {
		if e.Status == "placeholder" {
			continue
		}
		match := len(e.Archetypes) == 0
		for _, a := range e.Archetypes {
			if used[strings.ToUpper(a)] {
				match = true
				break
			}
		}
		if !match {
			continue
		}
		names = append(names, name)
		for _, d := range e.Dependencies {
			if !invalidPackages[d] {
				depSet[d] = true
			}
		}
	}
	slices.Sort(names)
	for d := range depSet {
		deps = append(deps, d)
	}
	slices.Sort(deps)
	return names, deps
}

// normalizeComponent rewrites the deprecated motion/react import and reports
// problems a reviewer should look at.
func normalizeComponent(name, content string, hasUtils bool) (string, []string, bool) {
	var problems []string
	if !strings.Contains(content, "export default") && !strings.Contains(content, "export {") {
		problems = append(problems, name+": missing export")
	}
	fixed := false
	if strings.Contains(content, `from 'motion/react'`) || strings.Contains(content, `from "motion/react"`) {
		content = strings.NewReplacer(
			`from 'motion/react'`, `from 'framer-motion'`,
			`from "motion/react"`, `from "framer-motion"`,
		).Replace(content)
		fixed = true
		problems = append(problems, name+": uses motion/react instead of framer-motion (auto-fixed)")
	}
	if strings.Contains(content, "@/lib/utils") && !hasUtils {
		problems = append(problems, name+": imports @/lib/utils but utils.ts doesn't exist")
	}
	return content, problems, fixed
}

// hasLottie reports whether the extraction found Lottie animations or any
// section already renders one.
func hasLottie(animationAnalysis []byte, sectionTexts []string) bool {
	if len(animationAnalysis) > 0 {
		var doc struct {
			LottieFiles []json.RawMessage `json:"lottieFiles"`
			Assets      struct {
				Lottie []json.RawMessage `json:"lottie"`
			} `json:"assets"`
		}
		if err := json.Unmarshal(animationAnalysis, &doc); err != nil {
			slog.Debug("Animation analysis unreadable for Lottie detection", logfields.Error(err))
		} else if len(doc.LottieFiles) > 0 || len(doc.Assets.Lottie) > 0 {
			return true
		}
	}
	for _, s := range sectionTexts {
		if strings.Contains(s, "DotLottieReact") {
			return true
		}
	}
	return false
}
