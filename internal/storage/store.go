package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var ErrNotFound = errors.New("record not found")

// Storer is a keyed record store. Implementations write through on Save and
// read through on Get, so records written by another process are seen.
// GetAll returns the records known to this process.
type Storer[T ValidatingSpec] interface {
	Save(string, T) error
	Get(string) (T, error)
	GetAll() map[Identifier]T
}

// FileStore keeps one JSON asset file per record inside a directory.
type FileStore[T ValidatingSpec] struct {
	path    string
	records map[Identifier]T

	mu sync.RWMutex
}

func NewFileStore[T ValidatingSpec](path string) (*FileStore[T], error) {
	s := &FileStore[T]{
		path:    path,
		records: map[Identifier]T{},
	}

	err := s.load()
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *FileStore[T]) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = map[Identifier]T{}

	return filepath.Walk(s.path, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		asset, err := s.loadAsset(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", filepath.Base(path), err)
		}

		err = asset.Validate()
		if err != nil {
			return fmt.Errorf("validating %s: %w", filepath.Base(path), err)
		}

		if _, ok := s.records[asset.Id()]; ok {
			return fmt.Errorf("duplicate key detected: %s", asset.Id())
		}

		s.records[asset.Id()] = asset.Spec
		return nil
	})
}

// Save validates the record, updates the cache and rewrites its asset file.
func (s *FileStore[T]) Save(id string, o T) error {
	asset := &Asset[T]{
		Version:    1,
		Identifier: Identifier(id),
		Spec:       o,
	}
	if err := asset.Validate(); err != nil {
		return fmt.Errorf("validating %s: %w", id, err)
	}

	jsonData, err := json.MarshalIndent(asset, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling json: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := atomicWrite(s.filePath(asset.Id()), jsonData, 0644); err != nil {
		return err
	}
	s.records[asset.Id()] = o
	return nil
}

// atomicWrite writes data to a temp file then renames it over path.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		if removeErr := os.Remove(tmp); removeErr != nil {
			slog.Warn("failed to remove temp file after rename failure", "path", tmp, "error", removeErr)
		}
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Get re-reads the asset file of id and refreshes the cache from it. Records
// loaded from subdirectories have no file at the top level and are served
// from the cache.
func (s *FileStore[T]) Get(id string) (T, error) {
	var zero T
	key := Identifier(id)
	if key.Validate() != nil {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	asset, err := s.loadAsset(s.filePath(key))
	switch {
	case err == nil && asset.Id() == key:
		if err := asset.Validate(); err != nil {
			return zero, fmt.Errorf("validating %s: %w", id, err)
		}
		s.mu.Lock()
		s.records[key] = asset.Spec
		s.mu.Unlock()
		return asset.Spec, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return zero, fmt.Errorf("loading %s: %w", id, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.records[key]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return val, nil
}

func (s *FileStore[T]) GetAll() map[Identifier]T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vals := make(map[Identifier]T, len(s.records))
	for id, v := range s.records {
		vals[id] = v
	}

	return vals
}

func (s *FileStore[T]) filePath(id Identifier) string {
	return filepath.Join(s.path, fmt.Sprintf("%s.json", id))
}

func (s *FileStore[T]) loadAsset(path string) (*Asset[T], error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer func() { _ = file.Close() }()

	jsonData, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	asset := &Asset[T]{}
	err = json.Unmarshal(jsonData, asset)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling asset: %w", err)
	}

	return asset, nil
}
