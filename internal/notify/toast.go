// Package notify implements the transient notification subsystem: an
// ordered collection of ephemeral toasts with auto-expiry, and a dialog
// controller for alert/confirm prompts. Both are plain injected instances;
// nothing here is a global.
package notify

import (
	"sync"
	"time"
)

type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeInfo    Type = "info"
	TypeWarning Type = "warning"
)

// DefaultDuration is how long a toast lives unless overridden.
const DefaultDuration = 3000 * time.Millisecond

type Toast struct {
	ID          int
	Title       string
	Message     string
	Type        Type
	Duration    time.Duration
	Dismissible bool
}

// Renderer is how a UI surface materializes toasts. Render is called on
// insertion, Discard on removal (manual or expired). May be nil for
// headless use.
type Renderer interface {
	Render(t Toast)
	Discard(t Toast)
}

type Option func(*Toast)

func WithType(t Type) Option { return func(o *Toast) { o.Type = t } }

// WithDuration overrides the lifetime; zero keeps the toast until it is
// removed explicitly.
func WithDuration(d time.Duration) Option { return func(o *Toast) { o.Duration = d } }

func WithDismissible(v bool) Option { return func(o *Toast) { o.Dismissible = v } }

type Service struct {
	renderer Renderer

	mu     sync.Mutex
	nextID int
	toasts []Toast
	timers map[int]*time.Timer
}

func NewService(renderer Renderer) *Service {
	return &Service{renderer: renderer, timers: make(map[int]*time.Timer)}
}

// Show inserts a toast and returns its id synchronously. Ids increase
// monotonically for the life of the process. Defaults: info, 3 s,
// dismissible.
func (s *Service) Show(title, message string, opts ...Option) int {
	s.mu.Lock()
	s.nextID++
	t := Toast{
		ID:          s.nextID,
		Title:       title,
		Message:     message,
		Type:        TypeInfo,
		Duration:    DefaultDuration,
		Dismissible: true,
	}
	for _, opt := range opts {
		opt(&t)
	}
	t.ID = s.nextID // the id is owned by the service
	s.toasts = append(s.toasts, t)
	if t.Duration > 0 {
		id := t.ID
		s.timers[id] = time.AfterFunc(t.Duration, func() { s.Remove(id) })
	}
	s.mu.Unlock()

	if s.renderer != nil {
		s.renderer.Render(t)
	}
	return t.ID
}

func (s *Service) Success(title, message string) int {
	return s.Show(title, message, WithType(TypeSuccess))
}

func (s *Service) Error(title, message string) int {
	return s.Show(title, message, WithType(TypeError))
}

func (s *Service) Info(title, message string) int {
	return s.Show(title, message, WithType(TypeInfo))
}

func (s *Service) Warning(title, message string) int {
	return s.Show(title, message, WithType(TypeWarning))
}

// Remove drops a toast by id. Removing an id that is gone already, or an
// expiry timer firing after a manual removal, is a no-op.
func (s *Service) Remove(id int) {
	s.mu.Lock()
	idx := -1
	for i, t := range s.toasts {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	t := s.toasts[idx]
	s.toasts = append(s.toasts[:idx], s.toasts[idx+1:]...)
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	if s.renderer != nil {
		s.renderer.Discard(t)
	}
}

// ClearAll empties the collection. Pending expiry timers become no-ops.
func (s *Service) ClearAll() {
	s.mu.Lock()
	dropped := s.toasts
	s.toasts = nil
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	if s.renderer != nil {
		for _, t := range dropped {
			s.renderer.Discard(t)
		}
	}
}

// Active returns the live toasts in insertion order.
func (s *Service) Active() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Toast{}, s.toasts...)
}
