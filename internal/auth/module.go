package auth

import (
	"context"
	"time"

	"github.com/brizzai/recall/internal/config"
	"github.com/brizzai/recall/internal/relay"
	"github.com/brizzai/recall/internal/storage"
	"go.uber.org/fx"
)

// Module provides the sign-in Service and hands it to the relay as its
// completer.
var Module = fx.Module("auth",
	fx.Provide(
		func(cfg *config.Config, store storage.Store) (*Service, error) {
			timeout := cfg.Relay.RequestTimeout
			if timeout <= 0 {
				timeout = 10 * time.Second
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return NewService(ctx, cfg.OAuth, store)
		},
		func(s *Service) relay.SignInCompleter { return s },
	),
)
