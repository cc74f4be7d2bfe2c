// Package checkpoint persists per-project pipeline progress as a single JSON
// document that is always replaced atomically.
package checkpoint

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/stages"
)

// FileName is the checkpoint document name inside a project directory.
const FileName = "checkpoint.json"

// ErrCorrupt is returned when a checkpoint file exists but cannot be parsed.
var ErrCorrupt = stderrors.New("checkpoint corrupt")

// Checkpoint is the latest committed stage for a project. It is a progress
// marker only; no history is kept.
type Checkpoint struct {
	Project   string          `json:"project"`
	Stage     stages.Name     `json:"stage"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Decode unmarshals the stage-specific payload into v.
func (c *Checkpoint) Decode(v any) error {
	if len(c.Data) == 0 {
		return nil
	}
	return json.Unmarshal(c.Data, v)
}

// Store reads and writes checkpoints below an output root (one directory per project).
type Store struct {
	root string
	mu   sync.Mutex
	now  func() time.Time
}

// NewStore returns a store rooted at the output directory.
func NewStore(root string) *Store {
	return &Store{root: root, now: time.Now}
}

// Path returns output/<project>/checkpoint.json.
func (s *Store) Path(project string) string {
	return filepath.Join(s.root, project, FileName)
}

// Save writes {project, stage, timestamp, data} to a temporary file beside the
// real path and renames it into place. Parent directories are created as needed.
func (s *Store) Save(project string, stage stages.Name, data any) error {
	if !stage.Valid() {
		return errors.ValidationError(fmt.Sprintf("unknown stage %q", stage)).Build()
	}
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "marshal checkpoint data").Build()
	}
	doc, err := json.MarshalIndent(Checkpoint{
		Project:   project,
		Stage:     stage,
		Timestamp: s.now().UTC(),
		Data:      payload,
	}, "", "  ")
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "marshal checkpoint").Build()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(project)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fsErr(err, "create project directory", dir)
	}
	tmp, err := os.CreateTemp(dir, FileName+".tmp*")
	if err != nil {
		return fsErr(err, "create temp checkpoint", dir)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(doc); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fsErr(err, "write temp checkpoint", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fsErr(err, "sync temp checkpoint", tmpName)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fsErr(err, "close temp checkpoint", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fsErr(err, "rename checkpoint", path)
	}
	return nil
}

// Load returns the project's checkpoint, or nil when no checkpoint file exists.
// A file that exists but does not parse yields an error wrapping ErrCorrupt.
func (s *Store) Load(project string) (*Checkpoint, error) {
	path := s.Path(project)
	data, err := os.ReadFile(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fsErr(err, "read checkpoint", path)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, corrupt(fmt.Errorf("%w: %w", ErrCorrupt, err), path)
	}
	if !cp.Stage.Valid() {
		return nil, corrupt(fmt.Errorf("%w: unknown stage %q", ErrCorrupt, cp.Stage), path)
	}
	return &cp, nil
}

// Remove deletes the checkpoint file if present.
func (s *Store) Remove(project string) error {
	err := os.Remove(s.Path(project))
	if err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return fsErr(err, "remove checkpoint", s.Path(project))
	}
	return nil
}

func fsErr(err error, msg, path string) error {
	return errors.WrapError(err, errors.CategoryFileSystem, msg).WithContext("path", path).Build()
}

func corrupt(err error, path string) error {
	return errors.WrapError(err, errors.CategoryStage, "checkpoint file is not valid JSON").
		Fatal().WithContext("path", path).Build()
}
