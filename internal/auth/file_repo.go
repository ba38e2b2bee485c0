package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileRepository persists the allowlist as a JSON array in one file.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

func NewFileRepository(path string) (*FileRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("touch file: %w", err)
	}
	_ = f.Close()
	return &FileRepository{path: path}, nil
}

func (r *FileRepository) LoadAll() ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadUnlocked(), nil
}

func (r *FileRepository) Upsert(user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := r.loadUnlocked()
	for i, u := range users {
		if u.ID == user.ID {
			users[i] = user
			return r.saveUnlocked(users)
		}
	}
	return r.saveUnlocked(append(users, user))
}

func (r *FileRepository) Remove(userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []User
	for _, u := range r.loadUnlocked() {
		if u.ID != userID {
			out = append(out, u)
		}
	}
	return r.saveUnlocked(out)
}

func (r *FileRepository) loadUnlocked() []User {
	data, err := os.ReadFile(r.path)
	if err != nil || len(data) == 0 {
		return []User{}
	}
	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		// malformed -> start fresh
		return []User{}
	}
	return users
}

func (r *FileRepository) saveUnlocked(users []User) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o644)
}
