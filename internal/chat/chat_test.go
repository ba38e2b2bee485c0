package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutribot/internal/gateway"
	"nutribot/internal/storage"
)

type fakeChatAPI struct {
	resp    gateway.ChatResponse
	err     error
	lastReq gateway.ChatRequest
}

func (f *fakeChatAPI) SendMessage(_ context.Context, req gateway.ChatRequest) (gateway.ChatResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

func newTestStore(api API) *Store {
	return NewStore(api, storage.NewMemoryStore(),
		func() string { return "en" },
		func() any { return map[string]string{"name": "Ann"} })
}

func TestCreateConversationInsertsAtHead(t *testing.T) {
	s := newTestStore(&fakeChatAPI{})

	first := s.CreateConversation("")
	second := s.CreateConversation("Plans")

	convs := s.Conversations()
	require.Len(t, convs, 2)
	assert.Equal(t, second.ID, convs[0].ID)
	assert.Equal(t, first.ID, convs[1].ID)
	assert.Equal(t, "New Chat", convs[1].Title)
	assert.NotEqual(t, first.ID, second.ID)

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, second.ID, cur.ID)
}

func TestAddMessageMaterializesConversation(t *testing.T) {
	s := newTestStore(&fakeChatAPI{})

	s.AddMessage(RoleUser, "hello")

	convs := s.Conversations()
	require.Len(t, convs, 1)
	require.Len(t, convs[0].Messages, 1)
	assert.Equal(t, RoleUser, convs[0].Messages[0].Role)
	assert.Equal(t, "hello", convs[0].Messages[0].Content)
	assert.NotEmpty(t, convs[0].Messages[0].ID)
	assert.False(t, convs[0].Messages[0].Timestamp.IsZero())
}

func TestFirstUserMessageDerivesTitle(t *testing.T) {
	s := newTestStore(&fakeChatAPI{})

	long := strings.Repeat("ab", 40) // 80 chars
	s.AddMessage(RoleUser, long)

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, long[:50]+"...", cur.Title)

	// short contents still get the ellipsis marker
	s2 := newTestStore(&fakeChatAPI{})
	s2.AddMessage(RoleUser, "hi")
	cur2, _ := s2.Current()
	assert.Equal(t, "hi...", cur2.Title)
}

func TestAssistantFirstMessageKeepsDefaultTitle(t *testing.T) {
	s := newTestStore(&fakeChatAPI{})
	s.AddMessage(RoleAssistant, "welcome")
	cur, _ := s.Current()
	assert.Equal(t, "New Chat", cur.Title)
}

func TestSendMessageAppendsReply(t *testing.T) {
	api := &fakeChatAPI{resp: gateway.ChatResponse{Response: "eat more greens"}}
	s := newTestStore(api)

	require.NoError(t, s.SendMessage(context.Background(), "what should I eat?"))

	cur, _ := s.Current()
	require.Len(t, cur.Messages, 2)
	assert.Equal(t, RoleUser, cur.Messages[0].Role)
	assert.Equal(t, RoleAssistant, cur.Messages[1].Role)
	assert.Equal(t, "eat more greens", cur.Messages[1].Content)
	assert.False(t, s.Loading())

	assert.Equal(t, "en", api.lastReq.Language)
	assert.NotNil(t, api.lastReq.Profile)
}

func TestSendMessageFallbackFields(t *testing.T) {
	api := &fakeChatAPI{resp: gateway.ChatResponse{Message: "alternate"}}
	s := newTestStore(api)
	require.NoError(t, s.SendMessage(context.Background(), "hi"))
	cur, _ := s.Current()
	assert.Equal(t, "alternate", cur.Messages[1].Content)

	api2 := &fakeChatAPI{} // no text at all
	s2 := newTestStore(api2)
	require.NoError(t, s2.SendMessage(context.Background(), "hi"))
	cur2, _ := s2.Current()
	assert.Equal(t, fallbackReply, cur2.Messages[1].Content)
}

func TestSendMessageFailureSynthesizesAssistantError(t *testing.T) {
	api := &fakeChatAPI{err: &gateway.APIError{Status: 503, Detail: "model unavailable"}}
	s := newTestStore(api)

	err := s.SendMessage(context.Background(), "hello")
	require.Error(t, err)

	cur, _ := s.Current()
	require.Len(t, cur.Messages, 2)
	assert.Equal(t, "hello", cur.Messages[0].Content)
	assert.Equal(t, RoleAssistant, cur.Messages[1].Role)
	assert.Contains(t, cur.Messages[1].Content, "model unavailable")
	assert.False(t, s.Loading())
	assert.Equal(t, "model unavailable", s.LastError())
}

func TestSetAndDeleteConversation(t *testing.T) {
	s := newTestStore(&fakeChatAPI{})
	a := s.CreateConversation("a")
	b := s.CreateConversation("b")

	s.SetCurrentConversation(a.ID)
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, a.ID, cur.ID)

	s.SetCurrentConversation("no-such-id")
	_, ok = s.Current()
	assert.False(t, ok)

	s.SetCurrentConversation(b.ID)
	s.DeleteConversation(b.ID)
	_, ok = s.Current()
	assert.False(t, ok)
	convs := s.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, a.ID, convs[0].ID)
}

func TestPersistenceRoundTrip(t *testing.T) {
	kv := storage.NewMemoryStore()
	s := NewStore(&fakeChatAPI{resp: gateway.ChatResponse{Response: "ok"}}, kv, nil, nil)
	require.NoError(t, s.SendMessage(context.Background(), "remember me"))

	// fresh store over the same kv hydrates the list but no selection
	s2 := NewStore(&fakeChatAPI{}, kv, nil, nil)
	require.NoError(t, s2.LoadConversations())
	convs := s2.Conversations()
	require.Len(t, convs, 1)
	require.Len(t, convs[0].Messages, 2)
	_, ok := s2.Current()
	assert.False(t, ok)
}

func TestLoadConversationsAbsentData(t *testing.T) {
	s := NewStore(&fakeChatAPI{}, storage.NewMemoryStore(), nil, nil)
	require.NoError(t, s.LoadConversations())
	assert.Empty(t, s.Conversations())
}
