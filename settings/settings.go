// Package settings persists the tool properties between runs as a JSON
// object.
package settings

import (
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// Store is a set of named properties backed by a JSON file.
type Store struct {
	path string

	mutex  sync.RWMutex
	values map[string]any
}

// Load reads the properties stored at path. A missing file gives an empty
// store.
func Load(path string) (*Store, error) {
	s := &Store{
		path:   path,
		values: make(map[string]any),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.New("reading settings failed").
			WithTag("path", path).
			Wrap(err)
	}

	if len(data) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(data, &s.values); err != nil {
		return nil, errors.New("decoding settings failed").
			WithTag("path", path).
			Wrap(err)
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(key string) (any, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	v, ok := s.values[key]
	return v, ok
}

// String returns the string value of key.
func (s *Store) String(key string) (string, bool) {
	v, ok := s.Get(key)
	if !ok {
		return "", false
	}

	str, ok := v.(string)
	return str, ok
}

// Int returns the integer value of key. JSON numbers are accepted when they
// have no fractional part.
func (s *Store) Int(key string) (int, bool) {
	v, ok := s.Get(key)
	if !ok {
		return 0, false
	}

	switch v := v.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

// Set sets the value of key. It returns false when the value did not
// change.
func (s *Store) Set(key string, v any) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if old, ok := s.values[key]; ok && reflect.DeepEqual(old, v) {
		return false
	}

	s.values[key] = v
	return true
}

// Values returns a copy of every property.
func (s *Store) Values() map[string]any {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	values := make(map[string]any, len(s.values))
	for k, v := range s.values {
		values[k] = v
	}
	return values
}

// Save writes the properties to the store file. The file is replaced
// atomically.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.Values(), "", "  ")
	if err != nil {
		return errors.New("encoding settings failed").Wrap(err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.New("creating settings directory failed").
			WithTag("path", s.path).
			Wrap(err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*")
	if err != nil {
		return errors.New("creating settings file failed").
			WithTag("path", s.path).
			Wrap(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.New("writing settings failed").
			WithTag("path", s.path).
			Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return errors.New("writing settings failed").
			WithTag("path", s.path).
			Wrap(err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.New("replacing settings failed").
			WithTag("path", s.path).
			Wrap(err)
	}
	return nil
}
