package session

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutribot/internal/gateway"
	"nutribot/internal/storage"
)

type fakeAPI struct {
	users     map[string]string // email -> password
	loginErr  error
	userErr   error
	resetErr  error
	registers int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{users: map[string]string{}}
}

func (f *fakeAPI) Register(_ context.Context, req gateway.RegisterRequest) (gateway.User, error) {
	if _, ok := f.users[req.Email]; ok {
		return gateway.User{}, &gateway.APIError{Status: http.StatusBadRequest, Detail: "Email already registered"}
	}
	f.registers++
	f.users[req.Email] = req.Password
	return gateway.User{ID: 1, Email: req.Email, FullName: req.FullName}, nil
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (gateway.Token, error) {
	if f.loginErr != nil {
		return gateway.Token{}, f.loginErr
	}
	if f.users[email] != password {
		return gateway.Token{}, &gateway.APIError{Status: http.StatusUnauthorized, Detail: "Incorrect username or password"}
	}
	return gateway.Token{AccessToken: "jwt-" + email, TokenType: "bearer"}, nil
}

func (f *fakeAPI) CurrentUser(context.Context) (gateway.User, error) {
	if f.userErr != nil {
		return gateway.User{}, f.userErr
	}
	return gateway.User{ID: 1, Email: "a@b.c", FullName: "Ann"}, nil
}

func (f *fakeAPI) ResetPassword(context.Context, string) error { return f.resetErr }

func TestLoginSuccess(t *testing.T) {
	api := newFakeAPI()
	api.users["a@b.c"] = "secret"
	kv := storage.NewMemoryStore()
	s := NewStore(api, kv)

	res := s.Login(context.Background(), "a@b.c", "secret")
	require.True(t, res.Success)
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "jwt-a@b.c", s.Token())
	require.NotNil(t, s.User())
	assert.Equal(t, "Ann", s.User().FullName)
	assert.False(t, s.Loading())

	tok, ok, _ := kv.Get(storage.KeyAuthToken)
	require.True(t, ok)
	assert.Equal(t, "jwt-a@b.c", tok)
}

func TestLoginFailure(t *testing.T) {
	api := newFakeAPI()
	s := NewStore(api, storage.NewMemoryStore())

	res := s.Login(context.Background(), "a@b.c", "wrong")
	require.False(t, res.Success)
	assert.Equal(t, "Incorrect username or password", res.Error)
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
	assert.False(t, s.Loading())
	assert.Equal(t, res.Error, s.LastError())
}

func TestLoginFallbackErrorMessage(t *testing.T) {
	api := newFakeAPI()
	api.loginErr = context.DeadlineExceeded
	s := NewStore(api, storage.NewMemoryStore())

	res := s.Login(context.Background(), "a@b.c", "x")
	require.False(t, res.Success)
	assert.Equal(t, fallbackLoginError, res.Error)
}

func TestRegisterThenLogin(t *testing.T) {
	api := newFakeAPI()
	s := NewStore(api, storage.NewMemoryStore())

	res := s.Register(context.Background(), gateway.RegisterRequest{Email: "new@b.c", Password: "pw", FullName: "New"})
	require.True(t, res.Success)
	assert.Equal(t, 1, api.registers)
	// authentication came from the follow-up login, not the register call
	assert.True(t, s.IsAuthenticated())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	api := newFakeAPI()
	api.users["a@b.c"] = "pw"
	s := NewStore(api, storage.NewMemoryStore())

	res := s.Register(context.Background(), gateway.RegisterRequest{Email: "a@b.c", Password: "pw"})
	require.False(t, res.Success)
	assert.Equal(t, "Email already registered", res.Error)
	assert.False(t, s.IsAuthenticated())
}

func TestLogoutIdempotent(t *testing.T) {
	api := newFakeAPI()
	api.users["a@b.c"] = "pw"
	kv := storage.NewMemoryStore()
	s := NewStore(api, kv)

	s.Login(context.Background(), "a@b.c", "pw")
	s.Logout()
	s.Logout()

	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
	assert.Nil(t, s.User())
	_, ok, _ := kv.Get(storage.KeyAuthToken)
	assert.False(t, ok)
}

func TestCheckAuthRestoresPersistedToken(t *testing.T) {
	api := newFakeAPI()
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(storage.KeyAuthToken, "stored-jwt"))
	s := NewStore(api, kv)

	s.CheckAuth(context.Background())
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "stored-jwt", s.Token())
	require.NotNil(t, s.User())
}

func TestCheckAuthRevertsOnStaleToken(t *testing.T) {
	api := newFakeAPI()
	api.userErr = &gateway.APIError{Status: http.StatusUnauthorized, Detail: "Could not validate credentials"}
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(storage.KeyAuthToken, "stale-jwt"))
	s := NewStore(api, kv)

	s.CheckAuth(context.Background())
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
	_, ok, _ := kv.Get(storage.KeyAuthToken)
	assert.False(t, ok)
}

func TestCheckAuthWithoutStoredToken(t *testing.T) {
	s := NewStore(newFakeAPI(), storage.NewMemoryStore())
	s.CheckAuth(context.Background())
	assert.False(t, s.IsAuthenticated())
}

func TestResetPassword(t *testing.T) {
	api := newFakeAPI()
	s := NewStore(api, storage.NewMemoryStore())
	assert.True(t, s.ResetPassword(context.Background(), "a@b.c").Success)

	api.resetErr = &gateway.APIError{Status: http.StatusNotFound, Detail: "User not found"}
	res := s.ResetPassword(context.Background(), "a@b.c")
	require.False(t, res.Success)
	assert.Equal(t, "User not found", res.Error)
}
