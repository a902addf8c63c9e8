package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"image-pipeline/internal/logging"
)

// Filename is the manifest's filename inside the output root.
const Filename = "manifest.json"

// Store owns the in-memory manifest and its file persistence. All mutation
// goes through whole-entry replacement so concurrent readers never observe a
// half-updated entry.
type Store struct {
	path string

	mu sync.RWMutex
	m  Manifest
}

// NewStore creates a Store persisting to the given file path. The in-memory
// manifest starts empty; call Load to read previous state.
func NewStore(path string) *Store {
	return &Store{path: path, m: New()}
}

// Path returns the manifest file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted manifest. A missing or unparseable file is not an
// error: the store stays empty and the pipeline treats everything as stale.
// The return value reports whether a previous manifest was loaded.
func (s *Store) Load() bool {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("manifest: failed to read %s: %v", s.path, err)
		}
		return false
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		logging.Warn("manifest: %s is corrupt, starting cold: %v", s.path, err)
		return false
	}
	if m.Images == nil {
		m.Images = make(map[string]Entry)
	}

	s.mu.Lock()
	s.m = m
	s.mu.Unlock()

	logging.Debug("manifest: loaded %d entries from %s", len(m.Images), s.path)
	return true
}

// Save serializes the manifest and writes it to disk, via a temp file and
// rename so readers never observe a half-written manifest.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.m, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to serialize manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace manifest: %w", err)
	}

	logging.Debug("manifest: saved %d entries to %s", s.Len(), s.path)
	return nil
}

// Upsert replaces or inserts the entry for path as a whole. It never merges
// variant lists: the generator produces the complete, final list before
// calling this.
func (s *Store) Upsert(path string, entry Entry) {
	s.mu.Lock()
	s.m.Images[path] = entry
	s.mu.Unlock()
}

// Entry returns a copy of the entry for path.
func (s *Store) Entry(path string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.m.Images[path]
	if !ok {
		return Entry{}, false
	}
	return copyEntry(entry), true
}

// Delete removes the entry for path if present.
func (s *Store) Delete(path string) {
	s.mu.Lock()
	delete(s.m.Images, path)
	s.mu.Unlock()
}

// Reset discards all entries and the generation timestamp.
func (s *Store) Reset() {
	s.mu.Lock()
	s.m = New()
	s.mu.Unlock()
}

// Len returns the number of tracked originals.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m.Images)
}

// Paths returns all tracked original paths, sorted.
func (s *Store) Paths() []string {
	s.mu.RLock()
	paths := make([]string, 0, len(s.m.Images))
	for p := range s.m.Images {
		paths = append(paths, p)
	}
	s.mu.RUnlock()

	sort.Strings(paths)
	return paths
}

// StampGeneratedAt records the time of the last completed generation run.
func (s *Store) StampGeneratedAt(t time.Time) {
	s.mu.Lock()
	s.m.GeneratedAt = t
	s.mu.Unlock()
}

// GeneratedAt returns the last generation timestamp.
func (s *Store) GeneratedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.GeneratedAt
}

// Snapshot returns a deep copy of the current manifest.
func (s *Store) Snapshot() Manifest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Manifest{
		GeneratedAt: s.m.GeneratedAt,
		Images:      make(map[string]Entry, len(s.m.Images)),
	}
	for p, e := range s.m.Images {
		out.Images[p] = copyEntry(e)
	}
	return out
}

func copyEntry(e Entry) Entry {
	variants := make([]Variant, len(e.Variants))
	copy(variants, e.Variants)
	e.Variants = variants
	return e
}
