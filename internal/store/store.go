// Package store persists the session document with an atomic
// read-modify-write contract: every read is a fresh deserialization from
// disk, every write goes through a same-directory temp file and rename.
// Concurrent writers are last-writer-wins at the document level; the
// tracker's idempotent transitions absorb the consequence.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/boshu2/pipetrack/internal/audit"
	"github.com/boshu2/pipetrack/internal/types"
)

// TempPrefix marks temp files written by the store. Orphans carrying the
// prefix are ignored by readers and swept opportunistically.
const TempPrefix = ".pt-"

// staleTempAge is how old an orphaned temp file must be before Sweep
// removes it. Generous enough that no live writer is ever raced.
const staleTempAge = time.Hour

// Store is the load/save interface consumed by the tracker.
type Store interface {
	// Load reads the document from disk, returning a freshly initialized
	// one when the file does not exist. No side effects.
	Load() (*types.Document, error)

	// Save persists the document atomically.
	Save(doc *types.Document) error

	// Path returns the session file path.
	Path() string
}

// FileStore implements Store on a single JSON file.
type FileStore struct {
	path     string
	writerID string
	log      *audit.Logger
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithAudit sets the audit logger for store failures.
func WithAudit(log *audit.Logger) Option {
	return func(s *FileStore) {
		s.log = log
	}
}

// NewFileStore creates a store over the given (already validated) session
// file path. Each store instance carries its own writer identity so that
// concurrent writers never collide on temp-file names.
func NewFileStore(path string, opts ...Option) *FileStore {
	s := &FileStore{
		path:     path,
		writerID: uuid.NewString()[:8],
		log:      audit.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the session file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and parses the session document. A missing file yields an
// empty document; malformed JSON yields ErrCorrupted.
func (s *FileStore) Load() (*types.Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &types.Document{Agents: []types.AgentEntry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var doc types.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrCorrupted, s.path, err)
	}
	if doc.Agents == nil {
		doc.Agents = []types.AgentEntry{}
	}
	return &doc, nil
}

// Save writes the document via a same-directory temp file and an atomic
// rename. Readers observe either the old content or the new content, never
// a partial state. On any failure the temp file is unlinked, an audit
// failure event is emitted, and ErrStoreWrite propagates with the cause.
func (s *FileStore) Save(doc *types.Document) error {
	if err := s.save(doc); err != nil {
		s.log.Emit(audit.EventStoreWrite, audit.ResultFailure, "save_session", map[string]any{
			"path":  s.path,
			"error": err.Error(),
		})
		return err
	}
	return nil
}

func (s *FileStore) save(doc *types.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal document: %v", types.ErrStoreWrite, err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: create session directory: %v", types.ErrStoreWrite, err)
	}

	// Same directory as the target so the rename never crosses filesystems.
	tmp, err := os.CreateTemp(dir, TempPrefix+s.writerID+"-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", types.ErrStoreWrite, err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: chmod temp file: %v", types.ErrStoreWrite, err)
	}

	// One contiguous write of the full serialization.
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write temp file: %v", types.ErrStoreWrite, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %v", types.ErrStoreWrite, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("%w: rename to session file: %v", types.ErrStoreWrite, err)
	}

	success = true
	return nil
}

// Sweep removes orphaned temp files left behind by writers killed between
// temp-write and rename. Best-effort; errors are ignored.
func (s *FileStore) Sweep() {
	dir := filepath.Dir(s.path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-staleTempAge)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), TempPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		_ = os.Remove(filepath.Join(dir, entry.Name()))
	}
}
