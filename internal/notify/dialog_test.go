package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresenter struct {
	mu         sync.Mutex
	presented  []Dialog
	dismissed  []Dialog
	presentErr error
}

func (p *fakePresenter) Present(d Dialog) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.presentErr != nil {
		return p.presentErr
	}
	p.presented = append(p.presented, d)
	return nil
}

func (p *fakePresenter) Dismiss(d Dialog) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dismissed = append(p.dismissed, d)
}

func (p *fakePresenter) last() Dialog {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.presented[len(p.presented)-1]
}

func (p *fakePresenter) dismissCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.dismissed)
}

func TestConfirmResolvesTrue(t *testing.T) {
	p := &fakePresenter{}
	c := NewController(p)
	c.SetTeardownDelay(time.Millisecond)

	done := make(chan struct{})
	var confirmed bool
	var err error
	go func() {
		confirmed, err = c.Confirm(context.Background(), DialogOptions{Message: "Delete this chat?"})
		close(done)
	}()

	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.presented) == 1
	}, time.Second, time.Millisecond)

	d := p.last()
	assert.Equal(t, KindConfirm, d.Kind)
	assert.Equal(t, "Confirm Action", d.Title)
	assert.Equal(t, "Confirm", d.ConfirmText)
	assert.Equal(t, "Cancel", d.CancelText)

	c.Resolve(d.ID, true)
	<-done
	require.NoError(t, err)
	assert.True(t, confirmed)

	require.Eventually(t, func() bool { return p.dismissCount() == 1 },
		time.Second, time.Millisecond)
}

func TestConfirmResolvesFalseOnCancel(t *testing.T) {
	p := &fakePresenter{}
	c := NewController(p)
	c.SetTeardownDelay(time.Millisecond)

	done := make(chan bool, 1)
	go func() {
		v, _ := c.Confirm(context.Background(), DialogOptions{Message: "sure?"})
		done <- v
	}()
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.presented) == 1
	}, time.Second, time.Millisecond)

	c.Resolve(p.last().ID, false)
	assert.False(t, <-done)
}

func TestAlertReturnsAfterAcknowledgement(t *testing.T) {
	p := &fakePresenter{}
	c := NewController(p)
	c.SetTeardownDelay(time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- c.Alert(context.Background(), DialogOptions{Message: "saved"}) }()

	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.presented) == 1
	}, time.Second, time.Millisecond)

	d := p.last()
	assert.Equal(t, KindAlert, d.Kind)
	assert.Equal(t, "Got it", d.ButtonText)

	c.Resolve(d.ID, true)
	require.NoError(t, <-done)
	assert.Equal(t, 1, p.dismissCount())
}

func TestConcurrentDialogsAreIndependent(t *testing.T) {
	p := &fakePresenter{}
	c := NewController(p)
	c.SetTeardownDelay(time.Millisecond)

	results := make(chan bool, 2)
	for i := 0; i < 2; i++ {
		go func() {
			v, _ := c.Confirm(context.Background(), DialogOptions{Message: "?"})
			results <- v
		}()
	}
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.presented) == 2
	}, time.Second, time.Millisecond)

	p.mu.Lock()
	first, second := p.presented[0], p.presented[1]
	p.mu.Unlock()
	require.NotEqual(t, first.ID, second.ID)

	c.Resolve(first.ID, true)
	c.Resolve(second.ID, false)

	got := map[bool]int{}
	got[<-results]++
	got[<-results]++
	assert.Equal(t, 1, got[true])
	assert.Equal(t, 1, got[false])
}

func TestResolveUnknownIDIsNoOp(t *testing.T) {
	c := NewController(&fakePresenter{})
	c.Resolve("no-such-dialog", true)
}

func TestConfirmContextCancellation(t *testing.T) {
	p := &fakePresenter{}
	c := NewController(p)
	c.SetTeardownDelay(time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Confirm(ctx, DialogOptions{Message: "?"})
		done <- err
	}()
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.presented) == 1
	}, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// a late resolve for the abandoned dialog is ignored
	c.Resolve(p.last().ID, true)
}

func TestPresentFailure(t *testing.T) {
	p := &fakePresenter{presentErr: errors.New("surface gone")}
	c := NewController(p)
	_, err := c.Confirm(context.Background(), DialogOptions{Message: "?"})
	assert.Error(t, err)
}
