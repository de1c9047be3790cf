// Package callback recognizes identity-provider callback pages and relays
// what they carry to the background relay.
package callback

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/brizzai/recall/internal/models"
	"github.com/brizzai/recall/internal/relay"
)

var (
	// ErrNotCallback means the URL is not a callback page.
	ErrNotCallback = errors.New("callback: not a callback page")
	// ErrMissingParams means a callback page carried neither an error nor
	// both code and state.
	ErrMissingParams = errors.New("callback: code or state missing")
)

var authSegments = map[string]bool{"auth": true, "oauth": true}

// Result is what a callback page reported.
type Result struct {
	Code     string
	State    string
	Error    string
	Provider models.Provider
}

// Failed reports whether the provider returned an error.
func (r Result) Failed() bool { return r.Error != "" }

// Message converts r to the relay message announcing it.
func (r Result) Message(sender *relay.Sender) relay.Message {
	if r.Failed() {
		return relay.Message{Type: relay.TypeOAuthError, Error: r.Error, Sender: sender}
	}
	return relay.Message{
		Type:     relay.TypeOAuthSuccess,
		Code:     r.Code,
		State:    r.State,
		Provider: string(r.Provider),
		Sender:   sender,
	}
}

// Key identifies the notification for de-duplication.
func (r Result) Key() string {
	if r.Failed() {
		return "error\x00" + r.Error
	}
	return "success\x00" + r.Code + "\x00" + r.State
}

func pathSegments(u *url.URL) []string {
	var out []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			out = append(out, strings.ToLower(s))
		}
	}
	return out
}

// IsCallback reports whether u looks like a callback page: its path has an
// auth-namespace segment and a callback segment, and its query carries code
// or error.
func IsCallback(u *url.URL) bool {
	var hasAuth, hasCallback bool
	for _, s := range pathSegments(u) {
		if authSegments[s] {
			hasAuth = true
		}
		if s == "callback" {
			hasCallback = true
		}
	}
	if !hasAuth || !hasCallback {
		return false
	}
	q := u.Query()
	return q.Get("code") != "" || q.Get("error") != ""
}

// InferProvider picks the provider named in the path, defaulting to GitHub.
func InferProvider(u *url.URL) models.Provider {
	segs := pathSegments(u)
	for _, s := range segs {
		if s == string(models.ProviderGoogle) {
			return models.ProviderGoogle
		}
	}
	for _, s := range segs {
		if s == string(models.ProviderGitHub) {
			return models.ProviderGitHub
		}
	}
	return models.ProviderGitHub
}

// Detect parses rawURL and returns what the callback page reported.
func Detect(rawURL string) (Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Result{}, fmt.Errorf("callback: invalid url: %w", err)
	}
	if !IsCallback(u) {
		return Result{}, ErrNotCallback
	}

	q := u.Query()
	res := Result{
		Code:     q.Get("code"),
		State:    q.Get("state"),
		Provider: InferProvider(u),
	}
	if e := q.Get("error"); e != "" {
		res.Error = e
		if desc := q.Get("error_description"); desc != "" {
			res.Error = e + ": " + desc
		}
		return res, nil
	}
	if res.Code == "" || res.State == "" {
		return res, ErrMissingParams
	}
	return res, nil
}
