package tool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/graphchat/pkg/retry"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "example.com", want: "https://example.com"},
		{in: "  https://example.com/a ", want: "https://example.com/a"},
		{in: "http://example.com", want: "http://example.com"},
		{in: "   ", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeURL(tt.in), tt.in)
	}
}

func TestIsHTML(t *testing.T) {
	assert.True(t, isHTML(""))
	assert.True(t, isHTML("text/html; charset=utf-8"))
	assert.True(t, isHTML("application/xhtml+xml"))
	assert.False(t, isHTML("text/plain"))
	assert.False(t, isHTML("application/json"))
}

func TestWebFetch_ConvertsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><h1>Title</h1><p>Some <strong>bold</strong> text.</p></body></html>`))
	}))
	defer srv.Close()

	out, err := WebFetch().Call(context.Background(), `{"url": "`+srv.URL+`"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "# Title")
	assert.Contains(t, out, "**bold**")
	assert.NotContains(t, out, "<p>")
}

func TestWebFetch_PlainTextUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("<b>not html</b>"))
	}))
	defer srv.Close()

	out, err := WebFetch(WithUserAgent("test-agent")).Call(context.Background(), `{"url": "`+srv.URL+`"}`)
	require.NoError(t, err)
	assert.Equal(t, "<b>not html</b>", out)
}

func TestWebFetch_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := WebFetch(WithRetry(retry.Never)).Call(context.Background(), `{"url": "`+srv.URL+`/missing"}`)

	var httpErr *retry.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, srv.URL+"/missing", httpErr.Endpoint)
}

func TestWebFetch_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	_, err := WebFetch(WithMaxBodySize(16), WithRetry(retry.Never)).Call(context.Background(), `{"url": "`+srv.URL+`"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "body exceeds 16 bytes")
}

func TestWebFetch_MissingURL(t *testing.T) {
	_, err := WebFetch().Call(context.Background(), `{}`)

	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, WebFetchName, argErr.Tool)
}

func TestWebFetch_BlankURL(t *testing.T) {
	_, err := fetchPage(context.Background(), &options{}, "  ")
	require.EqualError(t, err, "web fetch: url cannot be empty")
}
