package gateway

import (
	"context"
	"net/http"
	"net/url"
)

type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsActive bool   `json:"is_active"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register creates the account. It does not authenticate; callers log in
// separately with the same credentials.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (User, error) {
	var u User
	err := c.doJSON(ctx, http.MethodPost, "/auth/register", req, &u)
	return u, err
}

// Login exchanges credentials for a bearer token. The endpoint speaks the
// OAuth2 password grant, so the body is form-encoded with the email as
// username.
func (c *Client) Login(ctx context.Context, email, password string) (Token, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)
	var t Token
	err := c.doForm(ctx, "/auth/token", form, &t)
	return t, err
}

func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var u User
	err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &u)
	return u, err
}

func (c *Client) ResetPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.doJSON(ctx, http.MethodPost, "/auth/reset-password", body, nil)
}
