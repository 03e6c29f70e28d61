package gcslog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terramcp/internal/terra"
)

func TestSplitLocator(t *testing.T) {
	bucket, key, err := SplitLocator("gs://my-bucket/path/to/stderr.log")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "path/to/stderr.log", key)
}

func TestSplitLocator_Invalid(t *testing.T) {
	for _, locator := range []string{"", "http://b/k", "gs://", "gs://bucket", "gs://bucket/"} {
		_, _, err := SplitLocator(locator)
		assert.Error(t, err, "locator %q", locator)
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/my-bucket/logs/stderr.log", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte("error: out of memory\n"))
	}))
	defer srv.Close()

	store := New(Config{
		Endpoint:       srv.URL,
		RequestTimeout: 5 * time.Second,
		Token:          terra.StaticTokenSource("tok"),
	})

	content, err := store.Fetch(context.Background(), "gs://my-bucket/logs/stderr.log")
	require.NoError(t, err)
	assert.Equal(t, "error: out of memory\n", content)
}

func TestFetch_NotFoundIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	store := New(Config{Endpoint: srv.URL, Token: terra.StaticTokenSource("tok")})
	_, err := store.Fetch(context.Background(), "gs://b/missing.log")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
