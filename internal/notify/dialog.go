package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTeardownDelay is how long a resolved dialog surface stays up so a
// close transition can play before it is discarded.
const DefaultTeardownDelay = 300 * time.Millisecond

type DialogKind string

const (
	KindAlert   DialogKind = "alert"
	KindConfirm DialogKind = "confirm"
)

type Dialog struct {
	ID          string
	Kind        DialogKind
	Title       string
	Message     string
	Type        Type
	ConfirmText string
	CancelText  string
	ButtonText  string
}

// Presenter is the UI side of a dialog exchange: it shows the prompt and
// later reports the user's choice through Controller.Resolve.
type Presenter interface {
	Present(d Dialog) error
	Dismiss(d Dialog)
}

type DialogOptions struct {
	Title       string
	Message     string
	Type        Type
	ConfirmText string
	CancelText  string
	ButtonText  string
}

// Controller runs one-shot alert/confirm prompts. Each invocation creates
// an isolated dialog with its own id; concurrent prompts share no state.
type Controller struct {
	presenter Presenter
	teardown  time.Duration

	mu      sync.Mutex
	pending map[string]chan bool
}

func NewController(presenter Presenter) *Controller {
	return &Controller{
		presenter: presenter,
		teardown:  DefaultTeardownDelay,
		pending:   make(map[string]chan bool),
	}
}

// SetTeardownDelay overrides the close-transition delay.
func (c *Controller) SetTeardownDelay(d time.Duration) { c.teardown = d }

// Confirm shows a confirmation prompt and reports the user's choice: true
// for the primary action, false for cancel. It returns as soon as the
// choice arrives; the surface is discarded after the teardown delay.
func (c *Controller) Confirm(ctx context.Context, opts DialogOptions) (bool, error) {
	d := Dialog{
		ID:          uuid.NewString(),
		Kind:        KindConfirm,
		Title:       opts.Title,
		Message:     opts.Message,
		Type:        opts.Type,
		ConfirmText: opts.ConfirmText,
		CancelText:  opts.CancelText,
	}
	if d.Title == "" {
		d.Title = "Confirm Action"
	}
	if d.Type == "" {
		d.Type = TypeWarning
	}
	if d.ConfirmText == "" {
		d.ConfirmText = "Confirm"
	}
	if d.CancelText == "" {
		d.CancelText = "Cancel"
	}

	ch, err := c.show(d)
	if err != nil {
		return false, err
	}
	select {
	case confirmed := <-ch:
		c.scheduleDismiss(d)
		return confirmed, nil
	case <-ctx.Done():
		c.abandon(d)
		return false, ctx.Err()
	}
}

// Alert shows a notification prompt and returns once the user acknowledged
// it and the teardown delay has passed.
func (c *Controller) Alert(ctx context.Context, opts DialogOptions) error {
	d := Dialog{
		ID:         uuid.NewString(),
		Kind:       KindAlert,
		Title:      opts.Title,
		Message:    opts.Message,
		Type:       opts.Type,
		ButtonText: opts.ButtonText,
	}
	if d.Title == "" {
		d.Title = "Notification"
	}
	if d.Type == "" {
		d.Type = TypeInfo
	}
	if d.ButtonText == "" {
		d.ButtonText = "Got it"
	}

	ch, err := c.show(d)
	if err != nil {
		return err
	}
	select {
	case <-ch:
	case <-ctx.Done():
		c.abandon(d)
		return ctx.Err()
	}

	select {
	case <-time.After(c.teardown):
	case <-ctx.Done():
	}
	c.presenter.Dismiss(d)
	return nil
}

// Resolve reports the user's choice for a pending dialog. Unknown ids are
// ignored; a dialog resolves at most once.
func (c *Controller) Resolve(id string, confirmed bool) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if ok {
		ch <- confirmed
	}
}

func (c *Controller) show(d Dialog) (chan bool, error) {
	ch := make(chan bool, 1)
	c.mu.Lock()
	c.pending[d.ID] = ch
	c.mu.Unlock()

	if err := c.presenter.Present(d); err != nil {
		c.mu.Lock()
		delete(c.pending, d.ID)
		c.mu.Unlock()
		return nil, err
	}
	return ch, nil
}

func (c *Controller) scheduleDismiss(d Dialog) {
	time.AfterFunc(c.teardown, func() { c.presenter.Dismiss(d) })
}

func (c *Controller) abandon(d Dialog) {
	c.mu.Lock()
	delete(c.pending, d.ID)
	c.mu.Unlock()
	c.presenter.Dismiss(d)
}
