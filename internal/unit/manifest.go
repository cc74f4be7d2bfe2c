package unit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ManifestFile is written next to the sections directory.
const ManifestFile = "sections.json"

// ManifestEntry describes one generated unit on disk.
type ManifestEntry struct {
	Index       int    `json:"index"`
	Archetype   string `json:"archetype"`
	File        string `json:"file"`
	Component   string `json:"component"`
	Flags       Flags  `json:"flags"`
	Fingerprint string `json:"fingerprint"`
}

// Manifest is the sections.json document.
type Manifest struct {
	Units []ManifestEntry `json:"units"`
}

// BuildManifest records units sorted by ordinal.
func BuildManifest(units []Generated) Manifest {
	m := Manifest{Units: make([]ManifestEntry, 0, len(units))}
	for _, u := range units {
		m.Units = append(m.Units, ManifestEntry{
			Index:       u.Ordinal,
			Archetype:   u.Archetype,
			File:        u.File,
			Component:   u.Component,
			Flags:       u.Flags,
			Fingerprint: u.Fingerprint(),
		})
	}
	sort.Slice(m.Units, func(i, j int) bool { return m.Units[i].Index < m.Units[j].Index })
	return m
}

// WriteManifest atomically writes sections.json into dir.
func WriteManifest(dir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("ensure manifest dir: %w", err)
	}
	path := filepath.Join(dir, ManifestFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return os.Rename(tmp, path)
}

// ReadManifest loads sections.json; a missing file yields an empty manifest.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// Lookup returns the entry for file, if recorded.
func (m Manifest) Lookup(file string) (ManifestEntry, bool) {
	for _, e := range m.Units {
		if e.File == file {
			return e, true
		}
	}
	return ManifestEntry{}, false
}
