package probe

import (
	"context"
	"fmt"
	"net/http"

	"github.com/torosent/healthfire/internal/auth"
	"github.com/torosent/healthfire/internal/config"
	"github.com/torosent/healthfire/internal/httpclient"
)

// RunContext is created once per run and shared read-only by every iteration.
type RunContext struct {
	BaseURL string
	// Tokens is set when credentials must be refreshed during the run.
	Tokens httpclient.TokenSource

	headers http.Header
}

// Headers returns a copy of the headers sent with every request.
func (rc RunContext) Headers() http.Header {
	return rc.headers.Clone()
}

func (rc RunContext) requestBuilder() (*httpclient.RequestBuilder, error) {
	headers := make(map[string]string, len(rc.headers))
	for key := range rc.headers {
		headers[key] = rc.headers.Get(key)
	}
	builder, err := httpclient.NewRequestBuilder(rc.BaseURL, headers)
	if err != nil {
		return nil, err
	}
	if rc.Tokens != nil {
		builder = builder.WithAuth(rc.Tokens)
	}
	return builder, nil
}

// Setup builds the RunContext from the API URL and headers in cfg. When
// provider is non-nil a token is fetched immediately so bad credentials fail
// the run before any virtual user starts. Static tokens become a fixed
// Authorization header; other providers are kept for per-request use.
func Setup(ctx context.Context, cfg *config.Config, provider auth.Provider) (RunContext, error) {
	if cfg == nil {
		return RunContext{}, fmt.Errorf("setup: config is required")
	}
	headers, err := httpclient.NormalizeHeaders(cfg.Headers)
	if err != nil {
		return RunContext{}, fmt.Errorf("setup: %w", err)
	}
	rc := RunContext{BaseURL: cfg.APIURL, headers: headers}

	if provider != nil {
		token, err := provider.Token(ctx)
		if err != nil {
			return RunContext{}, fmt.Errorf("setup: fetch token: %w", err)
		}
		if _, static := provider.(*auth.StaticTokenProvider); static {
			if token != "" {
				rc.headers.Set("Authorization", "Bearer "+token)
			}
		} else {
			rc.Tokens = provider
		}
	}

	builder, err := rc.requestBuilder()
	if err != nil {
		return RunContext{}, fmt.Errorf("setup: %w", err)
	}
	rc.BaseURL = builder.BaseURL()
	return rc, nil
}
