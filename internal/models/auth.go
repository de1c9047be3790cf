package models

import "time"

// Provider names an external identity service.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGoogle Provider = "google"
)

// Valid reports whether p is a supported provider.
func (p Provider) Valid() bool {
	return p == ProviderGitHub || p == ProviderGoogle
}

// PendingAuthTypeSuccess tags a PendingAuthPayload.
const PendingAuthTypeSuccess = "OAUTH_SUCCESS"

// PendingAuthPayload is written by the relay when a callback page reports a
// successful authorization and read by the popup to finish sign-in.
// Timestamp is Unix milliseconds; it carries no expiry meaning.
type PendingAuthPayload struct {
	Type      string   `json:"type"`
	Code      string   `json:"code"`
	State     string   `json:"state"`
	Provider  Provider `json:"provider"`
	Timestamp int64    `json:"timestamp"`
}

// AuthSession is the signed-in profile stored after a successful exchange.
type AuthSession struct {
	Provider   Provider  `json:"provider"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	Name       string    `json:"name,omitempty"`
	Picture    string    `json:"picture,omitempty"`
	Login      string    `json:"login,omitempty"`
	SignedInAt time.Time `json:"signed_in_at"`
}
