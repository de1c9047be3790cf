package mcpserver

import (
	"github.com/brizzai/recall/internal/config"
	"github.com/brizzai/recall/internal/messaging"
	"github.com/brizzai/recall/internal/relay"
	"go.uber.org/fx"
)

// Module provides the MCP tool Server backed by the in-process relay.
var Module = fx.Module("mcpserver",
	fx.Provide(
		func(cfg *config.Config, h relay.Handler) *Server {
			return NewServer(cfg.MCP, messaging.NewLocalClient(h, cfg.Relay.RequestTimeout))
		},
	),
)
