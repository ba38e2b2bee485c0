// Package prefs keeps small app preferences: the reply language, the
// first-run flag and the notifications toggle.
package prefs

import (
	"sync"

	"nutribot/internal/storage"
)

const DefaultLanguage = "en"

type Store struct {
	kv storage.Store

	mu            sync.RWMutex
	language      string
	firstTime     bool
	notifications bool
}

func NewStore(kv storage.Store) *Store {
	s := &Store{kv: kv, language: DefaultLanguage, firstTime: true}
	if v, ok, _ := kv.Get(storage.KeyLanguage); ok && v != "" {
		s.language = v
	}
	if v, _, _ := kv.Get(storage.KeyHasSeenIntro); v == "true" {
		s.firstTime = false
	}
	if v, _, _ := kv.Get(storage.KeyNotifications); v == "true" {
		s.notifications = true
	}
	return s
}

func (s *Store) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

func (s *Store) SetLanguage(lang string) error {
	s.mu.Lock()
	s.language = lang
	s.mu.Unlock()
	return s.kv.Set(storage.KeyLanguage, lang)
}

func (s *Store) IsFirstTime() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.firstTime
}

func (s *Store) SetIntroSeen() error {
	s.mu.Lock()
	s.firstTime = false
	s.mu.Unlock()
	return s.kv.Set(storage.KeyHasSeenIntro, "true")
}

func (s *Store) NotificationsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notifications
}

// ToggleNotifications flips the flag and reports the new value.
func (s *Store) ToggleNotifications() (bool, error) {
	s.mu.Lock()
	s.notifications = !s.notifications
	v := s.notifications
	s.mu.Unlock()
	val := "false"
	if v {
		val = "true"
	}
	return v, s.kv.Set(storage.KeyNotifications, val)
}
