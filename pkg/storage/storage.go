// Package storage is a node's local view of files: real bytes it created or
// downloaded, plus ghost placeholders for files announced elsewhere.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"vmstore/pkg/types"
)

// GhostPrefix names placeholder marker files on disk.
const GhostPrefix = "Replicated_"

var (
	ErrInvalidName = errors.New("invalid file name")
	ErrExists      = errors.New("file already exists")
	ErrNotExist    = errors.New("file does not exist")
)

// Origin records how a node came to hold a file's bytes.
type Origin int

const (
	OriginDisk Origin = iota
	OriginCreated
	OriginDownloaded
)

// LocalStore is safe for concurrent use.
type LocalStore struct {
	dir string

	mu     sync.RWMutex
	files  map[string]Origin
	ghosts map[string]types.NodeID
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{
		dir:    dir,
		files:  make(map[string]Origin),
		ghosts: make(map[string]types.NodeID),
	}
}

func (s *LocalStore) Dir() string {
	return s.dir
}

// Load creates the data directory and indexes files already on disk.
func (s *LocalStore) Load() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read data directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if ghost, ok := strings.CutPrefix(name, GhostPrefix); ok {
			if _, held := s.files[ghost]; !held {
				s.ghosts[ghost] = ""
			}
			continue
		}
		if _, held := s.files[name]; !held {
			s.files[name] = OriginDisk
		}
		delete(s.ghosts, name)
	}
	return nil
}

// ValidateName rejects names that would escape the data directory or clash
// with ghost markers.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.HasPrefix(name, GhostPrefix) {
		return fmt.Errorf("%w: %q uses the reserved %s prefix", ErrInvalidName, name, GhostPrefix)
	}
	return nil
}

// Create writes a new file. It fails if the node already holds the name.
func (s *LocalStore) Create(name string, content []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[name]; ok {
		return fmt.Errorf("%w: %s", ErrExists, name)
	}
	if err := s.write(name, content); err != nil {
		return err
	}
	s.files[name] = OriginCreated
	return nil
}

// Modify overwrites a file the node already holds.
func (s *LocalStore) Modify(name string, content []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotExist, name)
	}
	return s.write(name, content)
}

// Materialize stores bytes fetched from a peer. Any ghost marker for the
// name is removed.
func (s *LocalStore) Materialize(name string, content []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(name, content); err != nil {
		return err
	}
	s.files[name] = OriginDownloaded
	if _, ok := s.ghosts[name]; ok {
		delete(s.ghosts, name)
		if err := os.Remove(s.ghostPath(name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove placeholder: %w", err)
		}
	}
	return nil
}

func (s *LocalStore) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotExist, name)
	}
	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	delete(s.files, name)
	return nil
}

// Read returns the bytes of a held file. Ghosts are never readable.
func (s *LocalStore) Read(name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	_, ok := s.files[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, name)
	}

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, name)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Holds reports whether the node has the real bytes for name.
func (s *LocalStore) Holds(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[name]
	return ok
}

// Ghost records a placeholder for a file held by announcer. A node that
// already holds the bytes keeps them and only acknowledges.
func (s *LocalStore) Ghost(name string, announcer types.NodeID) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[name]; ok {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	marker := fmt.Sprintf("Replicate file: %s from %s\n", name, announcer)
	if err := os.WriteFile(s.ghostPath(name), []byte(marker), 0644); err != nil {
		return fmt.Errorf("failed to write placeholder: %w", err)
	}
	s.ghosts[name] = announcer
	return nil
}

func (s *LocalStore) State(name string) types.ReplicaState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.files[name]; ok {
		return types.ReplicaMaterialized
	}
	if _, ok := s.ghosts[name]; ok {
		return types.ReplicaGhosted
	}
	return types.ReplicaUnknown
}

// Files lists held files with the given origins, or all held files when
// none are given.
func (s *LocalStore) Files(origins ...Origin) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for name, origin := range s.files {
		if len(origins) == 0 || containsOrigin(origins, origin) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (s *LocalStore) Ghosts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.ghosts))
	for name := range s.ghosts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// write must be called with s.mu held.
func (s *LocalStore) write(name string, content []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(s.path(name), content, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *LocalStore) ghostPath(name string) string {
	return filepath.Join(s.dir, GhostPrefix+name)
}

func containsOrigin(origins []Origin, o Origin) bool {
	for _, v := range origins {
		if v == o {
			return true
		}
	}
	return false
}
