// Package session holds the client's authenticated identity: the bearer
// token, the fetched user record and the derived authenticated flag. The
// token is the only durable field; the user is re-fetched whenever the
// token is (re)established.
package session

import (
	"context"
	"sync"

	"github.com/gookit/slog"

	"nutribot/internal/gateway"
	"nutribot/internal/storage"
)

const (
	fallbackLoginError    = "Login failed. Please check your credentials."
	fallbackRegisterError = "Registration failed. Please try again."
	fallbackResetError    = "Password reset request failed."
)

// Result is how every session operation reports to the UI layer. Failures
// never surface as raw errors.
type Result struct {
	Success bool
	Error   string
}

type API interface {
	Register(ctx context.Context, req gateway.RegisterRequest) (gateway.User, error)
	Login(ctx context.Context, email, password string) (gateway.Token, error)
	CurrentUser(ctx context.Context) (gateway.User, error)
	ResetPassword(ctx context.Context, email string) error
}

type Store struct {
	api API
	kv  storage.Store

	mu            sync.RWMutex
	token         string
	user          *gateway.User
	authenticated bool
	loading       bool
	lastError     string
}

func NewStore(api API, kv storage.Store) *Store {
	return &Store{api: api, kv: kv}
}

// Register creates the account and immediately logs in with the same
// credentials. The register call itself does not authenticate.
func (s *Store) Register(ctx context.Context, req gateway.RegisterRequest) Result {
	s.setLoading(true)
	if _, err := s.api.Register(ctx, req); err != nil {
		detail := gateway.ErrorDetail(err, fallbackRegisterError)
		s.fail(detail)
		return Result{Success: false, Error: detail}
	}
	s.setLoading(false)
	return s.Login(ctx, req.Email, req.Password)
}

// Login exchanges credentials for a token, persists it and re-fetches the
// user. On failure the server detail (or a static fallback) is recorded and
// reported.
func (s *Store) Login(ctx context.Context, email, password string) Result {
	s.setLoading(true)
	tok, err := s.api.Login(ctx, email, password)
	if err != nil {
		detail := gateway.ErrorDetail(err, fallbackLoginError)
		s.fail(detail)
		return Result{Success: false, Error: detail}
	}

	s.mu.Lock()
	s.token = tok.AccessToken
	s.authenticated = true
	s.lastError = ""
	s.mu.Unlock()

	if err := s.kv.Set(storage.KeyAuthToken, tok.AccessToken); err != nil {
		slog.Errorf("session: persist token: %v", err)
	}

	if err := s.FetchUser(ctx); err != nil {
		detail := gateway.ErrorDetail(err, fallbackLoginError)
		s.fail(detail)
		return Result{Success: false, Error: detail}
	}

	s.setLoading(false)
	return Result{Success: true}
}

// FetchUser retrieves the current user. A failure means the token is no
// longer good, so it logs out as a side effect.
func (s *Store) FetchUser(ctx context.Context) error {
	u, err := s.api.CurrentUser(ctx)
	if err != nil {
		slog.Warnf("session: fetch user failed, dropping session: %v", err)
		s.Logout()
		return err
	}
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
	return nil
}

// Logout clears the in-memory session and the persisted token. Idempotent.
func (s *Store) Logout() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.authenticated = false
	s.mu.Unlock()
	if err := s.kv.Delete(storage.KeyAuthToken); err != nil {
		slog.Errorf("session: remove persisted token: %v", err)
	}
}

// CheckAuth restores a persisted token at startup. The authenticated flag
// is set optimistically before verification so the UI does not flash the
// logged-out state while /auth/me is in flight; a failed verification
// reverts via Logout.
func (s *Store) CheckAuth(ctx context.Context) {
	tok, ok, err := s.kv.Get(storage.KeyAuthToken)
	if err != nil {
		slog.Errorf("session: read persisted token: %v", err)
		return
	}
	if !ok || tok == "" {
		return
	}
	s.mu.Lock()
	s.token = tok
	s.authenticated = true
	s.mu.Unlock()
	_ = s.FetchUser(ctx)
}

func (s *Store) ResetPassword(ctx context.Context, email string) Result {
	if err := s.api.ResetPassword(ctx, email); err != nil {
		detail := gateway.ErrorDetail(err, fallbackResetError)
		return Result{Success: false, Error: detail}
	}
	return Result{Success: true}
}

// Token is wired into the gateway as its bearer token source.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

func (s *Store) User() *gateway.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
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

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	if v {
		s.lastError = ""
	}
	s.mu.Unlock()
}

func (s *Store) fail(detail string) {
	s.mu.Lock()
	s.lastError = detail
	s.loading = false
	s.mu.Unlock()
}
