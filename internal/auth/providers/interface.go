package providers

import (
	"context"

	"golang.org/x/oauth2"
)

// UserInfo represents authenticated user information from any provider
type UserInfo struct {
	ID      string
	Email   string
	Name    string
	Picture string
	// Login is the provider handle, when it has one (GitHub).
	Login string
}

// Provider defines the interface that all OAuth providers must implement
type Provider interface {
	// AuthURL returns the authorization URL carrying state
	AuthURL(state string) string

	// ExchangeCode exchanges an authorization code for tokens
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)

	// ValidateToken validates an OAuth token and returns user info
	ValidateToken(ctx context.Context, token *oauth2.Token) (*UserInfo, error)
}

// Option adjusts a provider, mostly for pointing it at a test server.
type Option func(*options)

type options struct {
	endpoint    *oauth2.Endpoint
	userInfoURL string
}

// WithEndpoint overrides the provider's OAuth endpoint.
func WithEndpoint(e oauth2.Endpoint) Option {
	return func(o *options) { o.endpoint = &e }
}

// WithUserInfoURL overrides the profile endpoint.
func WithUserInfoURL(u string) Option {
	return func(o *options) { o.userInfoURL = u }
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
