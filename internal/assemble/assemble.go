// Package assemble composes generated sections into a single page component.
package assemble

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/unit"
)

// PageFile is the assembled page's file name.
const PageFile = "page.tsx"

// Options controls how sections are imported.
type Options struct {
	// ImportPrefix is prepended to each section's stem.
	ImportPrefix string
	// ReactImport adds an explicit React import.
	ReactImport bool
}

var (
	// ProjectPage imports from the project's sections directory.
	ProjectPage = Options{ImportPrefix: "./sections/", ReactImport: true}
	// SitePage imports through the deployed site's path alias.
	SitePage = Options{ImportPrefix: "@/components/sections/"}
)

// Assemble renders the page. Units are referenced in ascending ordinal order
// regardless of the order given; a repeated ordinal is an error.
func Assemble(units []unit.Generated, opts Options) (string, error) {
	sorted := slices.Clone(units)
	slices.SortStableFunc(sorted, func(a, b unit.Generated) int { return a.Ordinal - b.Ordinal })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Ordinal == sorted[i-1].Ordinal {
			return "", errors.ValidationError(fmt.Sprintf("ordinal %d appears more than once", sorted[i].Ordinal)).
				WithContext("file", sorted[i].File).Build()
		}
	}

	var b strings.Builder
	if opts.ReactImport {
		b.WriteString("import React from \"react\";\n")
	}
	for _, u := range sorted {
		fmt.Fprintf(&b, "import %s from \"%s%s\";\n", u.Component, opts.ImportPrefix, u.Stem())
	}
	b.WriteString("\nexport default function Page() {\n  return (\n    <main className=\"min-h-screen\">\n")
	for _, u := range sorted {
		fmt.Fprintf(&b, "      <%s />\n", u.Component)
	}
	b.WriteString("    </main>\n  );\n}\n")
	return b.String(), nil
}

// Write assembles units and writes the page into dir.
func Write(dir string, units []unit.Generated, opts Options) (string, error) {
	page, err := Assemble(units, opts)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, PageFile)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "create page directory").
			WithContext("path", dir).Build()
	}
	if err := os.WriteFile(path, []byte(page), 0o600); err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "write page").
			WithContext("path", path).Build()
	}
	return path, nil
}
