package config

import "path/filepath"

// Resolve joins rel to Root unless it is absolute.
func (p PathsConfig) Resolve(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Root, rel)
}

// BriefFile returns briefs/<project>.md.
func (p PathsConfig) BriefFile(project string) string {
	return filepath.Join(p.Resolve(p.Briefs), project+".md")
}

// PresetFile returns presets/<name>.md.
func (p PathsConfig) PresetFile(name string) string {
	return filepath.Join(p.Resolve(p.Presets), name+".md")
}

func (p PathsConfig) PresetDir() string    { return p.Resolve(p.Presets) }
func (p PathsConfig) TaxonomyFile() string { return p.Resolve(p.Taxonomy) }
func (p PathsConfig) HelpersDir() string   { return p.Resolve(p.Helpers) }
func (p PathsConfig) OutputDir() string    { return p.Resolve(p.Output) }

// TemplateFile returns a file under the templates directory.
func (p PathsConfig) TemplateFile(name string) string {
	return filepath.Join(p.Resolve(p.Templates), name)
}

// ComponentsDir is the animation component library root.
func (p PathsConfig) ComponentsDir() string { return p.Resolve(p.AnimationComponents) }

// ProjectDir returns output/<project>.
func (p PathsConfig) ProjectDir(project string) string {
	return filepath.Join(p.OutputDir(), project)
}

// ExtractionDir returns output/extractions/<id>.
func (p PathsConfig) ExtractionDir(id string) string {
	return filepath.Join(p.OutputDir(), "extractions", id)
}
