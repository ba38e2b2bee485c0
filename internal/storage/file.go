package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the whole key space as a single JSON object in one file.
// Every mutation rewrites the file.
type FileStore struct {
	path string
	mu   sync.Mutex
	data map[string]string
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	// Touch file if not exists
	f, err := os.OpenFile(path, os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("touch file: %w", err)
	}
	_ = f.Close()
	s := &FileStore{path: path}
	s.data = s.load()
	return s, nil
}

func (s *FileStore) load() map[string]string {
	f, err := os.Open(s.path)
	if err != nil {
		return map[string]string{}
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
		}
	}(f)
	var data map[string]string
	dec := json.NewDecoder(f)
	if err := dec.Decode(&data); err != nil {
		if err == io.EOF {
			return map[string]string{}
		}
		// empty or malformed -> start fresh
		return map[string]string{}
	}
	if data == nil {
		data = map[string]string{}
	}
	return data
}

func (s *FileStore) saveUnlocked() error {
	f, err := os.OpenFile(s.path, os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
		}
	}(f)
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(s.data)
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.saveUnlocked()
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.saveUnlocked()
}
