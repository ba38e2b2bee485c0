// Package profile holds the single elder-care profile record the meal and
// chat features feed into. Every mutation persists the full record.
package profile

import (
	"encoding/json"
	"fmt"
	"sync"

	"nutribot/internal/storage"
)

type Profile struct {
	Name               string   `json:"name"`
	Gender             string   `json:"gender"`
	AgeRange           string   `json:"ageRange"`
	HealthConditions   []string `json:"healthConditions"`
	Medications        []string `json:"medications"`
	DietaryPreferences []string `json:"dietaryPreferences"`
	Allergies          []string `json:"allergies"`
	Region             string   `json:"region"`
}

func emptyProfile() Profile {
	return Profile{
		HealthConditions:   []string{},
		Medications:        []string{},
		DietaryPreferences: []string{},
		Allergies:          []string{},
	}
}

// Patch is a partial profile update; nil fields are left untouched.
type Patch struct {
	Name               *string
	Gender             *string
	AgeRange           *string
	HealthConditions   *[]string
	Medications        *[]string
	DietaryPreferences *[]string
	Allergies          *[]string
	Region             *string
}

type Store struct {
	kv storage.Store

	mu      sync.RWMutex
	profile Profile
}

func NewStore(kv storage.Store) *Store {
	return &Store{kv: kv, profile: emptyProfile()}
}

// Load hydrates the profile from the store. Absent data keeps the empty
// record; malformed data propagates as a parse error.
func (s *Store) Load() error {
	raw, ok, err := s.kv.Get(storage.KeyElderProfile)
	if err != nil {
		return fmt.Errorf("read profile: %w", err)
	}
	if !ok {
		return nil
	}
	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return fmt.Errorf("parse stored profile: %w", err)
	}
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
	return nil
}

// Save shallow-merges the set fields of the patch and persists.
func (s *Store) Save(p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Name != nil {
		s.profile.Name = *p.Name
	}
	if p.Gender != nil {
		s.profile.Gender = *p.Gender
	}
	if p.AgeRange != nil {
		s.profile.AgeRange = *p.AgeRange
	}
	if p.HealthConditions != nil {
		s.profile.HealthConditions = *p.HealthConditions
	}
	if p.Medications != nil {
		s.profile.Medications = *p.Medications
	}
	if p.DietaryPreferences != nil {
		s.profile.DietaryPreferences = *p.DietaryPreferences
	}
	if p.Allergies != nil {
		s.profile.Allergies = *p.Allergies
	}
	if p.Region != nil {
		s.profile.Region = *p.Region
	}
	return s.persistUnlocked()
}

// UpdateField sets one field, addressed by its JSON name, and persists
// immediately. List fields take []string values.
func (s *Store) UpdateField(field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch field {
	case "name", "gender", "ageRange", "region":
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %q expects a string", field)
		}
		switch field {
		case "name":
			s.profile.Name = v
		case "gender":
			s.profile.Gender = v
		case "ageRange":
			s.profile.AgeRange = v
		case "region":
			s.profile.Region = v
		}
	case "healthConditions", "medications", "dietaryPreferences", "allergies":
		v, ok := value.([]string)
		if !ok {
			return fmt.Errorf("field %q expects a string list", field)
		}
		switch field {
		case "healthConditions":
			s.profile.HealthConditions = v
		case "medications":
			s.profile.Medications = v
		case "dietaryPreferences":
			s.profile.DietaryPreferences = v
		case "allergies":
			s.profile.Allergies = v
		}
	default:
		return fmt.Errorf("unknown profile field %q", field)
	}
	return s.persistUnlocked()
}

// Reset restores the empty-record shape and removes the persisted entry.
func (s *Store) Reset() error {
	s.mu.Lock()
	s.profile = emptyProfile()
	s.mu.Unlock()
	return s.kv.Delete(storage.KeyElderProfile)
}

func (s *Store) Profile() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.profile
	p.HealthConditions = append([]string{}, s.profile.HealthConditions...)
	p.Medications = append([]string{}, s.profile.Medications...)
	p.DietaryPreferences = append([]string{}, s.profile.DietaryPreferences...)
	p.Allergies = append([]string{}, s.profile.Allergies...)
	return p
}

func (s *Store) persistUnlocked() error {
	b, err := json.Marshal(s.profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return s.kv.Set(storage.KeyElderProfile, string(b))
}
