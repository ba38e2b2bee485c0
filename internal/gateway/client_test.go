package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerTokenInjected(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"id":1,"email":"a@b.c"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	c.SetTokenSource(func() string { return "tok-42" })

	_, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-42", gotAuth)
}

func TestNoAuthHeaderWithoutToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	c.SetTokenSource(func() string { return "" })

	_, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestLoginSendsFormEncodedGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/token", r.URL.Path)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		require.Equal(t, "a@b.c", r.PostForm.Get("username"))
		require.Equal(t, "secret", r.PostForm.Get("password"))
		_, _ = w.Write([]byte(`{"access_token":"jwt","token_type":"bearer"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	tok, err := c.Login(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt", tok.AccessToken)
}

func TestAPIErrorCarriesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Email already registered"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.Register(context.Background(), RegisterRequest{Email: "a@b.c", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, "Email already registered", ErrorDetail(err, "fallback"))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestErrorDetailFallback(t *testing.T) {
	c := New("http://127.0.0.1:0", time.Millisecond)
	_, err := c.CurrentUser(context.Background())
	require.Error(t, err)
	assert.Equal(t, "something went wrong", ErrorDetail(err, "something went wrong"))
}

func TestUnauthorizedHookFires(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	calls := 0
	c.SetUnauthorizedHandler(func() { calls++ })

	_, err := c.CurrentUser(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestUploadDocumentReportsProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		require.Equal(t, "notes.txt", hdr.Filename)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	var last int
	out, err := c.UploadDocument(context.Background(), "notes.txt",
		strings.NewReader(strings.Repeat("x", 10_000)),
		func(pct int) { last = pct })
	require.NoError(t, err)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, 100, last)
}

func TestPDFFilename(t *testing.T) {
	ts := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "meal_plan_Jane_Doe_2026-03-14.pdf", PDFFilename("Jane Doe", ts))
}
