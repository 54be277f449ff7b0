package auth

import "context"

// StaticTokenProvider returns a pre-configured token, typically one issued
// outside the tool.
type StaticTokenProvider struct {
	token string
}

func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

func (p *StaticTokenProvider) Token(ctx context.Context) (string, error) {
	return p.token, nil
}

func (p *StaticTokenProvider) Close() error {
	return nil
}
