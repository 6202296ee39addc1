// Package kvstore persists small device settings to a YAML file.
package kvstore

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// values is the on-disk document.
type values struct {
	Color *int `yaml:"color,omitempty"`
}

// Store is a file-backed key-value store. Writes replace the file
// atomically via a temp file and rename.
type Store struct {
	mu   sync.Mutex
	path string
	vals values
}

// Open loads the store at path, creating an empty one if the file does
// not exist.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Wrap(err, "kvstore: read")
	}
	if err := yaml.Unmarshal(data, &s.vals); err != nil {
		return nil, errors.Wrap(err, "kvstore: parse")
	}
	return s, nil
}

// Color returns the stored color value and whether one is stored.
func (s *Store) Color() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vals.Color == nil {
		return 0, false
	}
	return *s.vals.Color, true
}

// SetColor stores the color value.
func (s *Store) SetColor(c int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals.Color = &c
	return s.flushLocked()
}

// ClearColor removes the stored color value.
func (s *Store) ClearColor() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals.Color = nil
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	data, err := yaml.Marshal(&s.vals)
	if err != nil {
		return errors.Wrap(err, "kvstore: marshal")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".kvstore-*")
	if err != nil {
		return errors.Wrap(err, "kvstore: create temp")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "kvstore: write temp")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "kvstore: close temp")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "kvstore: rename")
	}
	return nil
}
