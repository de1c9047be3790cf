package main

import (
	"testing"

	"github.com/brizzai/recall/internal/config"
	"github.com/brizzai/recall/internal/mcpserver"
	"github.com/brizzai/recall/internal/relay"
	"github.com/brizzai/recall/internal/transport"
	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
)

func TestServeGraph(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{
			name: "relay only",
			cfg:  &config.Config{Storage: config.StorageConfig{Driver: config.StorageDriverMemory}},
		},
		{
			name: "with sign-in and mcp",
			cfg: &config.Config{
				Storage: config.StorageConfig{Driver: config.StorageDriverMemory},
				OAuth: config.OAuthConfig{Providers: map[string]config.ProviderConfig{
					"github": {ClientID: "id"},
				}},
				MCP: config.MCPConfig{Enabled: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append(serveOptions(tt.cfg),
				fx.Invoke(func(*transport.Server, relay.Handler) {}),
			)
			if tt.cfg.MCP.Enabled {
				opts = append(opts, fx.Invoke(func(*mcpserver.Server) {}))
			}
			assert.NoError(t, fx.ValidateApp(opts...))
		})
	}
}
