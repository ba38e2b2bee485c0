// Package chat manages the conversation threads with the AI assistant:
// an ordered, most-recent-first list of conversations, the active one, and
// the send/receive bookkeeping around the chat endpoint. Every mutation
// persists the full list.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/slog"

	"nutribot/internal/gateway"
	"nutribot/internal/storage"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	defaultTitle = "New Chat"
	titleLimit   = 50

	// Used when the server answered without any usable text field.
	fallbackReply = "Sorry, I could not come up with a response. Please try again."
	// Used when the failure carried no server detail.
	fallbackSendError = "Unable to reach the assistant."
)

type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

type API interface {
	SendMessage(ctx context.Context, req gateway.ChatRequest) (gateway.ChatResponse, error)
}

type Store struct {
	api API
	kv  storage.Store
	// context attached to every outgoing message
	language   func() string
	profileCtx func() any

	mu            sync.RWMutex
	conversations []*Conversation
	currentID     string
	lastID        int64
	loading       bool
	lastError     string
}

func NewStore(api API, kv storage.Store, language func() string, profileCtx func() any) *Store {
	return &Store{api: api, kv: kv, language: language, profileCtx: profileCtx}
}

// LoadConversations hydrates the list from the store once at startup.
// Absent data leaves the list empty.
func (s *Store) LoadConversations() error {
	raw, ok, err := s.kv.Get(storage.KeyConversations)
	if err != nil {
		return fmt.Errorf("read conversations: %w", err)
	}
	if !ok {
		return nil
	}
	var convs []*Conversation
	if err := json.Unmarshal([]byte(raw), &convs); err != nil {
		return fmt.Errorf("parse stored conversations: %w", err)
	}
	s.mu.Lock()
	s.conversations = convs
	s.mu.Unlock()
	return nil
}

// CreateConversation inserts a new conversation at the head of the list and
// makes it current.
func (s *Store) CreateConversation(title string) Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.createUnlocked(title)
	s.persistUnlocked()
	return copyConversation(c)
}

func (s *Store) createUnlocked(title string) *Conversation {
	if title == "" {
		title = defaultTitle
	}
	c := &Conversation{
		ID:        s.newConversationID(),
		Title:     title,
		Messages:  []Message{},
		CreatedAt: time.Now().UTC(),
	}
	s.conversations = append([]*Conversation{c}, s.conversations...)
	s.currentID = c.ID
	return c
}

// Conversation ids are time-derived; the bump keeps them unique when two
// are created within the same millisecond.
func (s *Store) newConversationID() string {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

// AddMessage appends to the current conversation, materializing one first
// if none is active. The first user message names the conversation.
func (s *Store) AddMessage(role, content string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.currentUnlocked()
	if c == nil {
		c = s.createUnlocked(defaultTitle)
	}
	m := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	c.Messages = append(c.Messages, m)
	if len(c.Messages) == 1 && role == RoleUser {
		c.Title = deriveTitle(content)
	}
	s.persistUnlocked()
	return m
}

func deriveTitle(content string) string {
	r := []rune(content)
	if len(r) > titleLimit {
		r = r[:titleLimit]
	}
	return string(r) + "..."
}

// SendMessage appends the user message, calls the chat endpoint with the
// current language and profile context, and appends the assistant reply.
// Failures are recorded, synthesized into an assistant-role error message
// and then returned so callers can react too.
func (s *Store) SendMessage(ctx context.Context, content string) error {
	s.AddMessage(RoleUser, content)
	s.setLoading(true)
	defer s.setLoading(false)

	req := gateway.ChatRequest{Message: content}
	if s.language != nil {
		req.Language = s.language()
	}
	if s.profileCtx != nil {
		req.Profile = s.profileCtx()
	}

	resp, err := s.api.SendMessage(ctx, req)
	if err != nil {
		detail := gateway.ErrorDetail(err, fallbackSendError)
		s.mu.Lock()
		s.lastError = detail
		s.mu.Unlock()
		s.AddMessage(RoleAssistant, "Sorry, something went wrong: "+detail)
		return err
	}

	// try response, else message, else the constant apology
	text := resp.Response
	if text == "" {
		text = resp.Message
	}
	if text == "" {
		text = fallbackReply
	}
	s.AddMessage(RoleAssistant, text)
	return nil
}

// SetCurrentConversation selects by id; an unknown id clears the selection.
func (s *Store) SetCurrentConversation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentID = ""
	for _, c := range s.conversations {
		if c.ID == id {
			s.currentID = id
			return
		}
	}
}

// DeleteConversation removes by id; deleting the active conversation clears
// the active pointer.
func (s *Store) DeleteConversation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.conversations[:0]
	for _, c := range s.conversations {
		if c.ID != id {
			out = append(out, c)
		}
	}
	s.conversations = out
	if s.currentID == id {
		s.currentID = ""
	}
	s.persistUnlocked()
}

func (s *Store) Conversations() []Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, copyConversation(c))
	}
	return out
}

// Current returns a copy of the active conversation, if any.
func (s *Store) Current() (Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.currentUnlocked()
	if c == nil {
		return Conversation{}, false
	}
	return copyConversation(c), true
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

func (s *Store) currentUnlocked() *Conversation {
	if s.currentID == "" {
		return nil
	}
	for _, c := range s.conversations {
		if c.ID == s.currentID {
			return c
		}
	}
	return nil
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Store) persistUnlocked() {
	b, err := json.Marshal(s.conversations)
	if err != nil {
		slog.Errorf("chat: encode conversations: %v", err)
		return
	}
	if err := s.kv.Set(storage.KeyConversations, string(b)); err != nil {
		slog.Errorf("chat: persist conversations: %v", err)
	}
}

func copyConversation(c *Conversation) Conversation {
	out := *c
	out.Messages = append([]Message{}, c.Messages...)
	return out
}
