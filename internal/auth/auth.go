// Package auth gates the bot to an allowlist of Telegram users. This is
// access control for the bot surface itself; the API session is handled by
// the session package.
package auth

import "sync"

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Repository interface {
	LoadAll() ([]User, error)
	Upsert(user User) error
	Remove(userID int64) error
}

type Service struct {
	repo Repository

	mu      sync.RWMutex
	allowed map[int64]User
}

// NewWithRepo preloads the allowlist from the repository and merges the
// initial ids configured via the environment.
func NewWithRepo(repo Repository, initial []int64) (*Service, error) {
	s := &Service{repo: repo, allowed: make(map[int64]User)}
	if repo != nil {
		if users, err := repo.LoadAll(); err == nil {
			for _, u := range users {
				s.allowed[u.ID] = u
			}
		}
	}
	for _, id := range initial {
		if _, ok := s.allowed[id]; !ok {
			s.allowed[id] = User{ID: id}
		}
	}
	return s, nil
}

func (s *Service) IsAllowed(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.allowed[userID]
	return ok
}

func (s *Service) Upsert(user User) error {
	s.mu.Lock()
	s.allowed[user.ID] = user
	s.mu.Unlock()
	if s.repo != nil {
		return s.repo.Upsert(user)
	}
	return nil
}

func (s *Service) Remove(userID int64) error {
	s.mu.Lock()
	delete(s.allowed, userID)
	s.mu.Unlock()
	if s.repo != nil {
		return s.repo.Remove(userID)
	}
	return nil
}

func (s *Service) List() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.allowed))
	for _, u := range s.allowed {
		out = append(out, u)
	}
	return out
}
