// Package auth obtains bearer tokens for the service under test.
package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/torosent/healthfire/internal/config"
)

// Provider supplies bearer tokens.
type Provider interface {
	// Token returns a valid token, using a cached value when it has not expired.
	Token(ctx context.Context) (string, error)

	// Close releases any resources held by the provider.
	Close() error
}

// New builds the provider described by cfg. It returns nil, nil when no
// authentication is configured. client is used for token requests; nil means
// a default client.
func New(cfg config.AuthConfig, client *http.Client) (Provider, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case config.AuthTypeStatic:
		return NewStaticTokenProvider(cfg.StaticToken), nil
	case config.AuthTypeOAuth2ClientCredentials:
		return NewClientCredentialsProvider(ClientCredentialsOptions{
			TokenURL:     cfg.TokenURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       cfg.Scopes,
			HTTPClient:   client,
		})
	default:
		return nil, fmt.Errorf("unsupported auth type %q", cfg.Type)
	}
}
