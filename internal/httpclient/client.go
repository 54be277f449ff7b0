package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenSource supplies bearer tokens for outgoing requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// RequestBuilder creates GET requests against a base URL with a fixed header set.
type RequestBuilder struct {
	base    *url.URL
	headers http.Header
	tokens  TokenSource
}

func NewRequestBuilder(baseURL string, headers map[string]string) (*RequestBuilder, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	normalized, err := NormalizeHeaders(headers)
	if err != nil {
		return nil, err
	}
	return &RequestBuilder{base: base, headers: normalized}, nil
}

// WithAuth returns a copy of b that sets "Authorization: Bearer <token>" on every request.
func (b *RequestBuilder) WithAuth(tokens TokenSource) *RequestBuilder {
	clone := *b
	clone.tokens = tokens
	return &clone
}

// BaseURL returns the base URL without a trailing slash.
func (b *RequestBuilder) BaseURL() string { return b.base.String() }

// Get builds a GET request for path, which is joined to the base URL.
func (b *RequestBuilder) Get(ctx context.Context, path string) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	target := b.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header = b.headers.Clone()

	if b.tokens != nil {
		token, err := b.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("auth token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

// NormalizeHeaders validates and canonicalizes a header map.
func NormalizeHeaders(headers map[string]string) (http.Header, error) {
	out := make(http.Header, len(headers))
	for key, value := range headers {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" || strings.ContainsAny(trimmedKey, "\r\n: ") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}
		out.Set(canonicalKey, value)
	}
	return out, nil
}

func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
