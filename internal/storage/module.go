package storage

import (
	"context"

	"github.com/brizzai/recall/internal/config"
	"github.com/brizzai/recall/internal/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the configured Store and closes it on shutdown.
var Module = fx.Module("storage",
	fx.Provide(newStore),
)

func newStore(lc fx.Lifecycle, cfg *config.Config) (Store, error) {
	s, err := New(cfg.Storage)
	if err != nil {
		return nil, err
	}
	logger.Info("Storage ready", zap.String("driver", string(cfg.Storage.Driver)))

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return s.Close()
		},
	})
	return s, nil
}
