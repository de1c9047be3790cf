package providers

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/brizzai/recall/internal/config"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newGitHubServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "abc123", r.PostForm.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_token","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":583231,"login":"octocat","name":"The Octocat","email":"octo@github.com","avatar_url":"https://avatars/u/583231"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGitHubProvider_ExchangeAndValidate(t *testing.T) {
	srv := newGitHubServer(t)
	p := NewGitHubProvider(config.ProviderConfig{ClientID: "id", ClientSecret: "secret"},
		WithEndpoint(oauth2.Endpoint{
			AuthURL:   srv.URL + "/login/oauth/authorize",
			TokenURL:  srv.URL + "/login/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		}),
		WithUserInfoURL(srv.URL+"/user"),
	)

	token, err := p.ExchangeCode(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "gho_token", token.AccessToken)

	info, err := p.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &UserInfo{
		ID:      "583231",
		Email:   "octo@github.com",
		Name:    "The Octocat",
		Picture: "https://avatars/u/583231",
		Login:   "octocat",
	}, info)
}

func TestGitHubProvider_UserInfoRejected(t *testing.T) {
	srv := newGitHubServer(t)
	p := NewGitHubProvider(config.ProviderConfig{ClientID: "id"}, WithUserInfoURL(srv.URL+"/user"))

	_, err := p.ValidateToken(context.Background(), &oauth2.Token{AccessToken: "wrong", TokenType: "Bearer"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestGitHubProvider_AuthURL(t *testing.T) {
	p := NewGitHubProvider(config.ProviderConfig{ClientID: "id", RedirectURL: "http://127.0.0.1:7420/auth/github/callback"})

	u, err := url.Parse(p.AuthURL("xyz"))
	require.NoError(t, err)
	assert.Equal(t, "github.com", u.Host)
	q := u.Query()
	assert.Equal(t, "xyz", q.Get("state"))
	assert.Equal(t, "id", q.Get("client_id"))
	assert.Equal(t, "read:user user:email", q.Get("scope"))
	assert.Equal(t, "http://127.0.0.1:7420/auth/github/callback", q.Get("redirect_uri"))
}

func newTestVerifier(t *testing.T) *oidc.IDTokenVerifier {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}}
	return oidc.NewVerifier("https://accounts.google.com", keySet, &oidc.Config{ClientID: "id"})
}

func TestGoogleProvider_RequiresIDToken(t *testing.T) {
	p := NewGoogleProviderWithVerifier(config.ProviderConfig{ClientID: "id"}, newTestVerifier(t))

	_, err := p.ValidateToken(context.Background(), &oauth2.Token{AccessToken: "tok"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no id_token")
}

func TestGoogleProvider_RejectsInvalidIDToken(t *testing.T) {
	p := NewGoogleProviderWithVerifier(config.ProviderConfig{ClientID: "id"}, newTestVerifier(t))

	token := (&oauth2.Token{AccessToken: "tok"}).WithExtra(map[string]any{"id_token": "not.a.jwt"})
	_, err := p.ValidateToken(context.Background(), token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to verify ID token")
}

func TestGoogleProvider_AuthURL(t *testing.T) {
	p := NewGoogleProviderWithVerifier(config.ProviderConfig{ClientID: "id"}, newTestVerifier(t))

	u, err := url.Parse(p.AuthURL("s1"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "openid profile email", u.Query().Get("scope"))
}
