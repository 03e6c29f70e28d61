// Package gcslog fetches raw log bytes from object storage given a
// gs://bucket/key locator. Callers treat any failure here as "log
// unavailable" and degrade to returning the URL alone, so errors carry
// context but nothing here is retried.
package gcslog

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"terramcp/internal/terra"
)

// DefaultEndpoint is the public storage media endpoint.
const DefaultEndpoint = "https://storage.googleapis.com"

// Store fetches the full text content behind an object locator.
type Store interface {
	Fetch(ctx context.Context, locator string) (string, error)
}

// HTTPStore reads objects over the storage HTTP endpoint using the
// same bearer credentials as the platform client.
type HTTPStore struct {
	endpoint string
	timeout  time.Duration
	token    terra.TokenSource
	http     *fasthttp.Client
}

// Config holds the store configuration.
type Config struct {
	// Endpoint overrides DefaultEndpoint, mainly for tests.
	Endpoint string

	// RequestTimeout bounds each fetch.
	RequestTimeout time.Duration

	// Token supplies the bearer token. Defaults to terra.EnvTokenSource.
	Token terra.TokenSource
}

// New creates an HTTPStore.
func New(cfg Config) *HTTPStore {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.Token == nil {
		cfg.Token = terra.EnvTokenSource()
	}
	return &HTTPStore{
		endpoint: cfg.Endpoint,
		timeout:  cfg.RequestTimeout,
		token:    cfg.Token,
		http:     &fasthttp.Client{},
	}
}

// Fetch downloads one object as text.
func (s *HTTPStore) Fetch(ctx context.Context, locator string) (string, error) {
	bucket, key, err := SplitLocator(locator)
	if err != nil {
		return "", err
	}
	token, err := s.token(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", locator, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.endpoint + "/" + bucket + "/" + escapeKey(key))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+token)

	if err := s.http.DoTimeout(req, resp, s.timeout); err != nil {
		return "", fmt.Errorf("fetch %s: %w", locator, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("fetch %s: HTTP %d", locator, resp.StatusCode())
	}
	return string(resp.Body()), nil
}

// SplitLocator splits a gs://bucket/key locator.
func SplitLocator(locator string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(locator, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// locator: %q", locator)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed gs:// locator: %q", locator)
	}
	return bucket, key, nil
}

// escapeKey escapes each path segment but keeps the slashes.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
