package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ClientCredentialsOptions configure the OAuth2 client credentials flow.
type ClientCredentialsOptions struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	HTTPClient   *http.Client // nil means a client with a 30s timeout
}

// ClientCredentialsProvider fetches tokens with the OAuth2 client credentials
// grant. Tokens are cached and refreshed shortly before they expire; concurrent
// callers share a single fetch.
type ClientCredentialsProvider struct {
	client *http.Client
	source oauth2.TokenSource
}

func NewClientCredentialsProvider(opts ClientCredentialsOptions) (*ClientCredentialsProvider, error) {
	if opts.TokenURL == "" {
		return nil, errors.New("oauth2: token URL is required")
	}
	if opts.ClientID == "" {
		return nil, errors.New("oauth2: client ID is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	cc := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     opts.TokenURL,
		Scopes:       opts.Scopes,
		// Credentials go in the Authorization header, never the form body.
		AuthStyle: oauth2.AuthStyleInHeader,
	}
	// The context only carries the HTTP client for every later refresh.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, client)
	return &ClientCredentialsProvider{client: client, source: cc.TokenSource(ctx)}, nil
}

func (p *ClientCredentialsProvider) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tok, err := p.source.Token()
	if err != nil {
		return "", fmt.Errorf("oauth2 token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("oauth2 token: no access token in response")
	}
	return tok.AccessToken, nil
}

func (p *ClientCredentialsProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
