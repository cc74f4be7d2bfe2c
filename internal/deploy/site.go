package deploy

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/craigdanielk/web-builder/internal/preset"
)

// Pinned framework versions written into new sites.
const (
	nextVersion  = "16.1.6"
	reactVersion = "19.2.3"
)

type packageJSON struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Private         bool              `json:"private"`
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// Dependencies returns the runtime dependencies for a site. framer-motion is
// always present for hover and tap effects.
func Dependencies(engine preset.Engine, lottie bool) map[string]string {
	deps := map[string]string{
		"next":           nextVersion,
		"react":          reactVersion,
		"react-dom":      reactVersion,
		"framer-motion":  "^12.33.0",
		"clsx":           "^2.1.1",
		"tailwind-merge": "^2.6.0",
		"lucide-react":   "^0.468.0",
	}
	if engine == preset.EngineGSAP {
		deps["gsap"] = "^3.14.2"
	}
	if lottie {
		deps["@lottiefiles/dotlottie-react"] = "^0.13.0"
	}
	return deps
}

func renderPackageJSON(project string, deps map[string]string) ([]byte, error) {
	pkg := packageJSON{
		Name:    project,
		Version: "0.1.0",
		Private: true,
		Scripts: map[string]string{
			"dev":   "next dev --webpack",
			"build": "next build",
			"start": "next start",
			"lint":  "eslint",
		},
		Dependencies: deps,
		DevDependencies: map[string]string{
			"@tailwindcss/postcss": "^4",
			"@types/node":          "^20",
			"@types/react":         "^19",
			"@types/react-dom":     "^19",
			"eslint":               "^9",
			"eslint-config-next":   nextVersion,
			"tailwindcss":          "^4",
			"typescript":           "^5",
		},
	}
	return marshalFile(pkg)
}

func marshalFile(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

var tsconfig = map[string]any{
	"compilerOptions": map[string]any{
		"target":            "ES2017",
		"lib":               []string{"dom", "dom.iterable", "esnext"},
		"allowJs":           true,
		"skipLibCheck":      true,
		"strict":            true,
		"noEmit":            true,
		"esModuleInterop":   true,
		"module":            "esnext",
		"moduleResolution":  "bundler",
		"resolveJsonModule": true,
		"isolatedModules":   true,
		"jsx":               "preserve",
		"incremental":       true,
		"plugins":           []map[string]string{{"name": "next"}},
		"paths":             map[string][]string{"@/*": {"./src/*"}},
	},
	"include": []string{"next-env.d.ts", "**/*.ts", "**/*.tsx", ".next/types/**/*.ts"},
	"exclude": []string{"node_modules"},
}

const nextConfig = `import type { NextConfig } from "next";

const nextConfig: NextConfig = {
  typescript: { ignoreBuildErrors: true },
};

export default nextConfig;
`

const postcssConfig = `const config = {
  plugins: {
    "@tailwindcss/postcss": {},
  },
};

export default config;
`

const eslintConfig = `import { dirname } from "path";
import { fileURLToPath } from "url";
import { FlatCompat } from "@eslint/eslintrc";

const __filename = fileURLToPath(import.meta.url);
const __dirname = dirname(__filename);

const compat = new FlatCompat({ baseDirectory: __dirname });

const eslintConfig = [...compat.extends("next/core-web-vitals")];

export default eslintConfig;
`

const siteGitignore = "node_modules/\n.next/\n*.tsbuildinfo\nnext-env.d.ts\n"

const utilsTS = `import { clsx, type ClassValue } from "clsx";
import { twMerge } from "tailwind-merge";

export function cn(...inputs: ClassValue[]) {
  return twMerge(clsx(inputs));
}
`

// scaffoldFiles are written once, when the site has no package.json yet.
func scaffoldFiles(project string, deps map[string]string) (map[string][]byte, error) {
	pkg, err := renderPackageJSON(project, deps)
	if err != nil {
		return nil, err
	}
	ts, err := marshalFile(tsconfig)
	if err != nil {
		return nil, err
	}
	return map[string][]byte{
		"package.json":       pkg,
		"tsconfig.json":      ts,
		"next.config.ts":     []byte(nextConfig),
		"postcss.config.mjs": []byte(postcssConfig),
		"eslint.config.mjs":  []byte(eslintConfig),
		".gitignore":         []byte(siteGitignore),
	}, nil
}

// GlobalsCSS renders src/app/globals.css.
func GlobalsCSS(fonts preset.Fonts, engine preset.Engine) string {
	lines := []string{
		`@import "tailwindcss";`,
		"",
		":root { --background: #fafaf9; --foreground: #1c1917; }",
		"body {",
		"  background: var(--background);",
		"  color: var(--foreground);",
		fmt.Sprintf(`  font-family: "%s", sans-serif;`, fonts.Body),
		"  -webkit-font-smoothing: antialiased;",
		"  -moz-osx-font-smoothing: grayscale;",
		"}",
	}
	if engine == preset.EngineGSAP {
		lines = append(lines,
			"",
			"html { scroll-behavior: smooth; }",
			"",
			"::-webkit-scrollbar { width: 4px; }",
			"::-webkit-scrollbar-track { background: transparent; }",
			"::-webkit-scrollbar-thumb { background: #78716c; border-radius: 2px; }",
			"",
			"::selection { background: #78716c; color: #ffffff; }",
			"",
			"@keyframes marquee {",
			"  0% { transform: translateX(0); }",
			"  100% { transform: translateX(-50%); }",
			"}",
		)
	}
	return strings.Join(lines, "\n") + "\n"
}

// googleFonts can be imported through next/font/google.
var googleFonts = map[string]bool{
	"Inter": true, "Roboto": true, "Open Sans": true, "Lato": true, "Montserrat": true,
	"Poppins": true, "Source Sans Pro": true, "Source Sans 3": true, "Raleway": true,
	"Nunito": true, "Playfair Display": true, "Merriweather": true, "DM Sans": true,
	"Space Grotesk": true, "Plus Jakarta Sans": true, "Outfit": true, "Sora": true,
	"Geist": true, "Manrope": true, "Urbanist": true, "Archivo": true, "Work Sans": true,
	"Libre Baskerville": true, "Cormorant Garamond": true,
}

// Title turns a project slug into the page title, e.g. "acme-coffee" to "Acme Coffee".
func Title(project string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(project, "-", " "))
}

// LayoutTSX renders src/app/layout.tsx. Google fonts are loaded through
// next/font; the inline font-family names the heading font either way.
func LayoutTSX(project string, fonts preset.Fonts) string {
	var headingImport, bodyImport string
	if googleFonts[fonts.Heading] {
		headingImport = preset.ImportName(fonts.Heading)
	}
	if googleFonts[fonts.Body] {
		bodyImport = preset.ImportName(fonts.Body)
	}
	headingWeights := `"400"`
	if fonts.HeadingWeight != "" {
		headingWeights = fmt.Sprintf(`"%s"`, fonts.HeadingWeight)
	}
	const bodyWeights = `["400", "500", "700"]`

	imports := []string{`import type { Metadata } from "next";`}
	var google, config []string
	if headingImport != "" {
		google = append(google, headingImport)
		config = append(config, fmt.Sprintf(`const %s = %s({ subsets: ["latin"], weight: %s });`,
			strings.ToLower(headingImport), headingImport, headingWeights))
	}
	if bodyImport != "" && bodyImport != headingImport {
		google = append(google, bodyImport)
		config = append(config, fmt.Sprintf(`const %s = %s({ subsets: ["latin"], weight: %s });`,
			strings.ToLower(bodyImport), bodyImport, bodyWeights))
	}
	if len(google) > 0 {
		imports = append(imports, fmt.Sprintf(`import { %s } from "next/font/google";`, strings.Join(google, ", ")))
	}
	imports = append(imports, `import "./globals.css";`)

	fontConfig := ""
	if len(config) > 0 {
		fontConfig = "\n" + strings.Join(config, "\n") + "\n"
	}
	fontFamily := fmt.Sprintf("'%s', system-ui, sans-serif", fonts.Heading)

	return fmt.Sprintf(`%s
%s
export const metadata: Metadata = {
  title: "%s",
  description: "Built with web-builder pipeline",
};

export default function RootLayout({ children }: { children: React.ReactNode }) {
  return (
    <html lang="en">
      <body className="antialiased" style={{ fontFamily: "%s" }}>
        {children}
      </body>
    </html>
  );
}
`, strings.Join(imports, "\n"), fontConfig, Title(project), fontFamily)
}

type gsapPlugin struct{ name, path string }

// gsapPlugins maps detected plugin names to their registered export and module.
var gsapPlugins = map[string]gsapPlugin{
	"SplitText":      {"SplitText", "gsap/SplitText"},
	"Flip":           {"Flip", "gsap/Flip"},
	"DrawSVG":        {"DrawSVGPlugin", "gsap/DrawSVGPlugin"},
	"MorphSVG":       {"MorphSVGPlugin", "gsap/MorphSVGPlugin"},
	"MotionPath":     {"MotionPathPlugin", "gsap/MotionPathPlugin"},
	"CustomEase":     {"CustomEase", "gsap/CustomEase"},
	"Observer":       {"Observer", "gsap/Observer"},
	"ScrambleText":   {"ScrambleTextPlugin", "gsap/ScrambleTextPlugin"},
	"Draggable":      {"Draggable", "gsap/Draggable"},
	"ScrollSmoother": {"ScrollSmoother", "gsap/ScrollSmoother"},
}

// GSAPSetup renders src/lib/gsap-setup.ts for the detected plugins, in
// detection order. It returns "" when none of them is known.
func GSAPSetup(detected []string) string {
	var imports, names []string
	for _, p := range detected {
		gp, ok := gsapPlugins[p]
		if !ok {
			continue
		}
		imports = append(imports, fmt.Sprintf(`import { %s } from "%s";`, gp.name, gp.path))
		names = append(names, gp.name)
	}
	if len(names) == 0 {
		return ""
	}
	list := strings.Join(names, ", ")
	return fmt.Sprintf(`"use client";
import gsap from "gsap";
import { ScrollTrigger } from "gsap/ScrollTrigger";
%s

if (typeof window !== "undefined") {
  gsap.registerPlugin(ScrollTrigger, %s);
}

export { gsap, ScrollTrigger, %s };
`, strings.Join(imports, "\n"), list, list)
}

// Site layout relative to the site root.
var (
	appDir        = filepath.Join("src", "app")
	libDir        = filepath.Join("src", "lib")
	sectionsDir   = filepath.Join("src", "components", "sections")
	animationsDir = filepath.Join("src", "components", "animations")
)
