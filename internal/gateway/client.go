// Package gateway is the HTTP boundary to the remote nutrition API. It owns
// the base client configuration (JSON content type, request timeout, bearer
// token injection) and exposes typed call wrappers per feature area.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gookit/slog"
)

const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx response from the API. Detail carries the
// human-readable message from the server's {"detail": "..."} payload.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Detail)
}

// ErrorDetail extracts the server-provided detail from err, falling back to
// the given message for transport failures and detail-less responses.
func ErrorDetail(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokenSource    func() string
	onUnauthorized func()
}

// authTransport clones each request and injects the bearer token before
// handing it to the underlying round tripper.
type authTransport struct {
	rt     http.RoundTripper
	client *Client
}

func (t authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cl := req.Clone(req.Context())
	if t.client.tokenSource != nil {
		if tok := t.client.tokenSource(); tok != "" {
			cl.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return t.rt.RoundTrip(cl)
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{baseURL: strings.TrimRight(baseURL, "/")}
	c.httpClient = &http.Client{
		Timeout:   timeout,
		Transport: authTransport{rt: http.DefaultTransport, client: c},
	}
	return c
}

// SetTokenSource wires the session's current token into every request.
// Must be called during wiring, before the client is used.
func (c *Client) SetTokenSource(f func() string) { c.tokenSource = f }

// SetUnauthorizedHandler registers the forced-logout hook invoked once per
// 401 response.
func (c *Client) SetUnauthorizedHandler(f func()) { c.onUnauthorized = f }

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, out)
}

func (c *Client) doForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func(b io.ReadCloser) {
		err := b.Close()
		if err != nil {
		}
	}(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return c.apiError(resp.StatusCode, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) apiError(status int, body []byte) error {
	var payload struct {
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(body, &payload)
	if status == http.StatusUnauthorized && c.onUnauthorized != nil {
		slog.Warnf("gateway: 401 response, forcing logout")
		c.onUnauthorized()
	}
	return &APIError{Status: status, Detail: payload.Detail}
}
