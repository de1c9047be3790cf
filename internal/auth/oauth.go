// Package auth finishes sign-in: it picks up the pending authorization the
// relay stored, exchanges it with the identity provider and records the
// signed-in profile.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brizzai/recall/internal/auth/providers"
	"github.com/brizzai/recall/internal/config"
	"github.com/brizzai/recall/internal/logger"
	"github.com/brizzai/recall/internal/models"
	"github.com/brizzai/recall/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNoPending means no callback has been captured yet.
	ErrNoPending = errors.New("auth: no pending sign-in")
	// ErrStateMismatch means the pending state is not the one this sign-in
	// started with.
	ErrStateMismatch = errors.New("auth: state mismatch")
	// ErrProviderNotConfigured means the pending provider has no client
	// credentials.
	ErrProviderNotConfigured = errors.New("auth: provider not configured")
)

// Service holds the configured providers and completes sign-ins against the
// relay's storage.
type Service struct {
	store     storage.Store
	providers map[models.Provider]providers.Provider
	now       func() time.Time
}

// NewService builds providers for every configured entry. Google performs
// OIDC discovery, so ctx bounds that network call.
func NewService(ctx context.Context, cfg config.OAuthConfig, store storage.Store) (*Service, error) {
	s := NewServiceWithProviders(store, nil)
	for name, pc := range cfg.Providers {
		switch models.Provider(name) {
		case models.ProviderGitHub:
			s.providers[models.ProviderGitHub] = providers.NewGitHubProvider(pc)
		case models.ProviderGoogle:
			p, err := providers.NewGoogleProvider(ctx, pc)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize provider %s: %w", name, err)
			}
			s.providers[models.ProviderGoogle] = p
		default:
			return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, name)
		}
	}
	return s, nil
}

// NewServiceWithProviders uses the given providers as is.
func NewServiceWithProviders(store storage.Store, ps map[models.Provider]providers.Provider) *Service {
	s := &Service{
		store:     store,
		providers: make(map[models.Provider]providers.Provider, len(ps)),
		now:       time.Now,
	}
	for k, v := range ps {
		s.providers[k] = v
	}
	return s
}

// Provider returns the provider registered under p.
func (s *Service) Provider(p models.Provider) (providers.Provider, error) {
	if p == "" {
		p = models.ProviderGitHub
	}
	prov, ok := s.providers[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, p)
	}
	return prov, nil
}

// Begin returns the provider authorization URL together with a fresh state.
func (s *Service) Begin(p models.Provider) (authURL, state string, err error) {
	prov, err := s.Provider(p)
	if err != nil {
		return "", "", err
	}
	state = uuid.NewString()
	return prov.AuthURL(state), state, nil
}

// Complete exchanges the pending authorization and stores the resulting
// session. An empty expectedState skips the state check. The pending payload
// is left in place.
func (s *Service) Complete(ctx context.Context, expectedState string) (*models.AuthSession, error) {
	var pending models.PendingAuthPayload
	err := storage.GetJSON(ctx, s.store, storage.KeyPendingOAuth, &pending)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoPending
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pending sign-in: %w", err)
	}

	switch {
	case expectedState == "":
		logger.Warn("Completing sign-in without a state check", zap.String("provider", string(pending.Provider)))
	case pending.State != expectedState:
		logger.Warn("Pending sign-in state does not match", zap.String("provider", string(pending.Provider)))
		return nil, ErrStateMismatch
	}

	prov, err := s.Provider(pending.Provider)
	if err != nil {
		return nil, err
	}

	token, err := prov.ExchangeCode(ctx, pending.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	info, err := prov.ValidateToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}

	session := &models.AuthSession{
		Provider:   pending.Provider,
		UserID:     info.ID,
		Email:      info.Email,
		Name:       info.Name,
		Picture:    info.Picture,
		Login:      info.Login,
		SignedInAt: s.now().UTC(),
	}
	if session.Provider == "" {
		session.Provider = models.ProviderGitHub
	}
	if err := storage.SetJSON(ctx, s.store, storage.KeyAuthSession, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	logger.Info("Sign-in completed",
		zap.String("provider", string(session.Provider)),
		zap.String("user_id", session.UserID),
	)
	return session, nil
}
