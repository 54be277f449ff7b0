package httpclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type mockTokenSource struct {
	mu    sync.Mutex
	token string
	err   error
	calls int
}

func (m *mockTokenSource) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.token, m.err
}

func TestGetBuildsRequestWithHeaders(t *testing.T) {
	builder, err := NewRequestBuilder("http://example.com/", map[string]string{
		"accept":     "application/json",
		"X-Trace-Id": "12345",
	})
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}

	req, err := builder.Get(context.Background(), "/q/health/ready")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if req.Method != http.MethodGet {
		t.Fatalf("expected GET, got %s", req.Method)
	}
	if req.URL.String() != "http://example.com/q/health/ready" {
		t.Fatalf("unexpected URL %s", req.URL.String())
	}
	if req.Header.Get("Accept") != "application/json" {
		t.Fatalf("expected canonical Accept header, got %q", req.Header.Get("Accept"))
	}
	if req.Header.Get("X-Trace-Id") != "12345" {
		t.Fatalf("expected X-Trace-Id header, got %q", req.Header.Get("X-Trace-Id"))
	}
	if builder.BaseURL() != "http://example.com" {
		t.Fatalf("BaseURL() = %q", builder.BaseURL())
	}
}

func TestGetKeepsBasePath(t *testing.T) {
	builder, err := NewRequestBuilder("https://host:8443/api", nil)
	if err != nil {
		t.Fatal(err)
	}
	req, err := builder.Get(context.Background(), "/q/health")
	if err != nil {
		t.Fatal(err)
	}
	if req.URL.String() != "https://host:8443/api/q/health" {
		t.Fatalf("URL = %s", req.URL)
	}
}

func TestGetHeadersAreIsolated(t *testing.T) {
	builder, err := NewRequestBuilder("http://example.com", map[string]string{"X-A": "1"})
	if err != nil {
		t.Fatal(err)
	}
	first, _ := builder.Get(context.Background(), "/")
	first.Header.Set("X-A", "mutated")
	second, _ := builder.Get(context.Background(), "/")
	if second.Header.Get("X-A") != "1" {
		t.Fatalf("headers leaked between requests: %q", second.Header.Get("X-A"))
	}
}

func TestNewRequestBuilderRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		headers map[string]string
	}{
		{name: "empty base", base: ""},
		{name: "relative base", base: "localhost:8080/x"},
		{name: "empty header key", base: "http://x", headers: map[string]string{"": "v"}},
		{name: "newline in key", base: "http://x", headers: map[string]string{"Bad\nKey": "v"}},
		{name: "newline in value", base: "http://x", headers: map[string]string{"X-Key": "a\r\nb"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRequestBuilder(tt.base, tt.headers); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNormalizeHeadersAllowsEmptyValueAndLongValues(t *testing.T) {
	long := strings.Repeat("a", 8192)
	h, err := NormalizeHeaders(map[string]string{"x-empty": "", "x-long": long})
	if err != nil {
		t.Fatalf("NormalizeHeaders() error = %v", err)
	}
	if _, ok := h["X-Empty"]; !ok {
		t.Error("expected X-Empty to be present")
	}
	if h.Get("X-Long") != long {
		t.Error("long header value was altered")
	}
}

func TestGetWithAuth(t *testing.T) {
	tokens := &mockTokenSource{token: "test-auth-token"}
	base, err := NewRequestBuilder("https://api.example.com", map[string]string{"Authorization": "Bearer stale"})
	if err != nil {
		t.Fatal(err)
	}
	builder := base.WithAuth(tokens)

	for i := 0; i < 3; i++ {
		req, err := builder.Get(context.Background(), "/q/health/live")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer test-auth-token" {
			t.Errorf("Authorization = %q", got)
		}
	}
	if tokens.calls != 3 {
		t.Errorf("Token() calls = %d, want 3", tokens.calls)
	}

	// The original builder is unchanged.
	req, _ := base.Get(context.Background(), "/")
	if req.Header.Get("Authorization") != "Bearer stale" {
		t.Errorf("WithAuth mutated the original builder")
	}
}

func TestGetWithAuthError(t *testing.T) {
	builder, _ := NewRequestBuilder("https://api.example.com", nil)
	_, err := builder.WithAuth(&mockTokenSource{err: errors.New("idp down")}).Get(context.Background(), "/")
	if err == nil || !strings.Contains(err.Error(), "idp down") {
		t.Fatalf("Get() error = %v, want auth error", err)
	}
}

func TestClientTimeoutApplied(t *testing.T) {
	timeout := 50 * time.Millisecond
	client := NewClient(timeout)
	defer client.CloseIdleConnections()

	if client.Timeout != timeout {
		t.Fatalf("expected client timeout %s, got %s", timeout, client.Timeout)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(timeout * 3)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	if err == nil {
		t.Fatalf("expected timeout error, got nil")
	}
	if elapsed := time.Since(start); elapsed < timeout || elapsed > timeout*5 {
		t.Fatalf("unexpected elapsed time %s", elapsed)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		var netErr net.Error
		if !errors.As(err, &netErr) || !netErr.Timeout() {
			t.Fatalf("expected timeout error, got %v", err)
		}
	}

	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	if transport.MaxIdleConns == 0 || transport.IdleConnTimeout == 0 {
		t.Fatalf("expected transport to pool idle connections")
	}
}
