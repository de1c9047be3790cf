package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/brizzai/recall/internal/config"
	"github.com/brizzai/recall/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubUserURL = "https://api.github.com/user"

var githubDefaultScopes = []string{"read:user", "user:email"}

type GitHubProvider struct {
	oauth2Config *oauth2.Config
	userInfoURL  string
}

func NewGitHubProvider(cfg config.ProviderConfig, opts ...Option) *GitHubProvider {
	o := applyOptions(opts)

	endpoint := github.Endpoint
	if o.endpoint != nil {
		endpoint = *o.endpoint
	}
	userInfoURL := githubUserURL
	if o.userInfoURL != "" {
		userInfoURL = o.userInfoURL
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = githubDefaultScopes
	}

	return &GitHubProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		userInfoURL: userInfoURL,
	}
}

func (p *GitHubProvider) AuthURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

func (p *GitHubProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.oauth2Config.Exchange(ctx, code)
}

func (p *GitHubProvider) ValidateToken(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	client := p.oauth2Config.Client(ctx, token)
	return p.getUserInfo(ctx, client)
}

func (p *GitHubProvider) getUserInfo(ctx context.Context, client *http.Client) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request failed with status %d", resp.StatusCode)
	}

	var gh struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&gh); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &UserInfo{
		ID:      fmt.Sprintf("%d", gh.ID),
		Email:   gh.Email,
		Name:    gh.Name,
		Picture: gh.AvatarURL,
		Login:   gh.Login,
	}, nil
}
