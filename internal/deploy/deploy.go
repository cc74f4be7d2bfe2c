// Package deploy turns a project's generated sections into a runnable
// Next.js site.
package deploy

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/craigdanielk/web-builder/internal/assemble"
	"github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/helper"
	"github.com/craigdanielk/web-builder/internal/logfields"
	"github.com/craigdanielk/web-builder/internal/preset"
	"github.com/craigdanielk/web-builder/internal/unit"
)

// SiteDirName is the site's directory inside the project directory.
const SiteDirName = "site"

// Installer runs the package manager. *helper.Runner satisfies it.
type Installer interface {
	Run(ctx context.Context, inv helper.Invocation) (helper.Output, error)
}

// Options controls deploy side effects.
type Options struct {
	Install        bool
	InstallTimeout time.Duration
	GitSnapshot    bool
	// ComponentsDir is the animation component library.
	ComponentsDir string
}

// Input is everything one deploy needs.
type Input struct {
	RunID   string
	Project string
	SiteDir string
	// SectionsDir holds the generated section files named by Units.
	SectionsDir       string
	Units             []unit.Generated
	Preset            *preset.Preset
	Plugins           []string
	AnimationAnalysis json.RawMessage
	// ExtraComponents are library-relative files referenced by sections.
	ExtraComponents []string
}

// Result summarizes a deploy.
type Result struct {
	SiteDir           string
	Scaffolded        bool
	Sections          int
	Components        int
	Extras            int
	AddedDependencies []string
	Installed         bool
	Commit            string
	Warnings          []string
}

// Deployer writes sites.
type Deployer struct {
	installer Installer
	opts      Options
}

// New returns a deployer. installer may be nil when Install is off.
func New(installer Installer, opts Options) *Deployer {
	return &Deployer{installer: installer, opts: opts}
}

// Deploy writes the site, installs dependencies and snapshots the tree.
// Install and snapshot failures are warnings; file errors are fatal.
func (d *Deployer) Deploy(ctx context.Context, in Input) (*Result, error) {
	p := in.Preset
	if p == nil {
		p = preset.Parse("", nil)
	}
	res := &Result{SiteDir: in.SiteDir}

	sections, err := readSections(in.SectionsDir, in.Units)
	if err != nil {
		return nil, err
	}

	pkgPath := filepath.Join(in.SiteDir, "package.json")
	if _, err := os.Stat(pkgPath); stderrors.Is(err, fs.ErrNotExist) {
		slog.Info("Creating Next.js project structure", logfields.Path(in.SiteDir))
		lottie := hasLottie(in.AnimationAnalysis, sections)
		if lottie {
			slog.Info("Lottie files detected, adding @lottiefiles/dotlottie-react")
		}
		files, err := scaffoldFiles(in.Project, Dependencies(p.Engine, lottie))
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryInternal, "render site scaffold").Build()
		}
		for name, data := range files {
			if err := writeFile(filepath.Join(in.SiteDir, name), data); err != nil {
				return nil, err
			}
		}
		res.Scaffolded = true
	}

	generated := map[string]string{
		filepath.Join(appDir, "globals.css"): GlobalsCSS(p.Fonts, p.Engine),
		filepath.Join(appDir, "layout.tsx"):  LayoutTSX(in.Project, p.Fonts),
		filepath.Join(libDir, "utils.ts"):    utilsTS,
	}
	if p.Engine == preset.EngineGSAP {
		if setup := GSAPSetup(in.Plugins); setup != "" {
			generated[filepath.Join(libDir, "gsap-setup.ts")] = setup
		}
	}
	for rel, content := range generated {
		if err := writeFile(filepath.Join(in.SiteDir, rel), []byte(content)); err != nil {
			return nil, err
		}
	}

	for i, u := range in.Units {
		if err := writeFile(filepath.Join(in.SiteDir, sectionsDir, u.File), []byte(sections[i])); err != nil {
			return nil, err
		}
	}
	res.Sections = len(in.Units)

	if err := d.copyLibrary(in, res); err != nil {
		return nil, err
	}
	d.copyExtras(in, res)

	if _, err := assemble.Write(filepath.Join(in.SiteDir, appDir), in.Units, assemble.SitePage); err != nil {
		return nil, err
	}

	d.install(ctx, in.SiteDir, res)

	if d.opts.GitSnapshot {
		msg := fmt.Sprintf("Deploy %s (%d sections)", in.Project, res.Sections)
		if in.RunID != "" {
			msg += "\n\nRun: " + in.RunID
		}
		hash, err := Snapshot(in.SiteDir, msg, time.Now())
		switch {
		case err != nil:
			res.Warnings = append(res.Warnings, "git snapshot failed: "+err.Error())
			slog.Warn("Site snapshot failed", logfields.Path(in.SiteDir), logfields.Error(err))
		case hash != "":
			res.Commit = hash
			slog.Info("Site snapshot committed", "commit", hash)
		}
	}

	slog.Info("Site deployed",
		logfields.Project(in.Project),
		logfields.Path(in.SiteDir),
		"sections", res.Sections,
		"components", res.Components,
		"extras", res.Extras)
	return res, nil
}

func readSections(dir string, units []unit.Generated) ([]string, error) {
	out := make([]string, len(units))
	for i, u := range units {
		path := filepath.Join(dir, u.File)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryDeploy, "read section for deploy").
				Fatal().WithContext("path", path).Build()
		}
		out[i] = string(data)
	}
	return out, nil
}

func (d *Deployer) copyLibrary(in Input, res *Result) error {
	if d.opts.ComponentsDir == "" {
		return nil
	}
	reg, err := LoadRegistry(d.opts.ComponentsDir)
	if err != nil {
		res.Warnings = append(res.Warnings, "animation registry unreadable: "+err.Error())
		slog.Warn("Could not process animation registry", logfields.Error(err))
		return nil
	}
	if reg == nil {
		return nil
	}

	archetypes := make([]string, len(in.Units))
	for i, u := range in.Units {
		archetypes[i] = u.Archetype
	}
	names, deps := reg.Select(archetypes)
	hasUtils := true // utils.ts is always written above
	for _, name := range names {
		src := filepath.Join(d.opts.ComponentsDir, reg.Components[name].Path())
		data, err := os.ReadFile(src)
		if err != nil {
			continue
		}
		content, problems, _ := normalizeComponent(name+".tsx", string(data), hasUtils)
		for _, pr := range problems {
			slog.Warn("Animation component issue", "issue", pr)
		}
		if err := writeFile(filepath.Join(in.SiteDir, animationsDir, name+".tsx"), []byte(content)); err != nil {
			return err
		}
		res.Components++
	}
	if res.Components == 0 {
		slog.Info("No animation components ready (all placeholders)")
		return nil
	}
	added, err := addDependencies(filepath.Join(in.SiteDir, "package.json"), deps)
	if err != nil {
		return err
	}
	res.AddedDependencies = added
	if len(added) > 0 {
		slog.Info("Added dependencies", "packages", strings.Join(added, ", "))
	}
	return nil
}

// addDependencies adds missing packages at "latest" and rewrites package.json.
func addDependencies(path string, deps []string) ([]string, error) {
	if len(deps) == 0 {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDeploy, "read package.json").WithContext("path", path).Build()
	}
	var pkg map[string]any
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryDeploy, "parse package.json").WithContext("path", path).Build()
	}
	existing, _ := pkg["dependencies"].(map[string]any)
	if existing == nil {
		existing = map[string]any{}
	}
	var added []string
	for _, dep := range deps {
		if _, ok := existing[dep]; ok {
			continue
		}
		existing[dep] = "latest"
		added = append(added, dep)
	}
	if len(added) == 0 {
		return nil, nil
	}
	pkg["dependencies"] = existing
	out, err := marshalFile(pkg)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "encode package.json").Build()
	}
	return added, writeFile(path, out)
}

// copyExtras places context-referenced library files under their base name,
// never overwriting an existing copy.
func (d *Deployer) copyExtras(in Input, res *Result) {
	if d.opts.ComponentsDir == "" {
		return
	}
	extras := slices.Clone(in.ExtraComponents)
	slices.Sort(extras)
	for _, rel := range slices.Compact(extras) {
		src := filepath.Join(d.opts.ComponentsDir, filepath.FromSlash(rel))
		data, err := os.ReadFile(src)
		if err != nil {
			res.Warnings = append(res.Warnings, "extra component not found: "+rel)
			slog.Warn("Extra component not found", logfields.File(rel))
			continue
		}
		stem := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
		dest := filepath.Join(in.SiteDir, animationsDir, stem+".tsx")
		if _, err := os.Stat(dest); err == nil {
			continue
		}
		if err := writeFile(dest, data); err != nil {
			res.Warnings = append(res.Warnings, err.Error())
			continue
		}
		res.Extras++
	}
}

func (d *Deployer) install(ctx context.Context, siteDir string, res *Result) {
	if !d.opts.Install || d.installer == nil {
		return
	}
	slog.Info("Installing dependencies (npm install)")
	_, err := d.installer.Run(ctx, helper.Invocation{
		Command: helper.Command{Name: "npm", Args: []string{"install"}, Dir: siteDir},
		Timeout: d.opts.InstallTimeout,
	})
	if err != nil {
		res.Warnings = append(res.Warnings, "npm install had issues: "+err.Error())
		slog.Warn("npm install had issues", logfields.Error(err))
		return
	}
	res.Installed = true
	slog.Info("Dependencies installed")
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create site directory").
			WithContext("path", filepath.Dir(path)).Build()
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write site file").
			WithContext("path", path).Build()
	}
	return nil
}
