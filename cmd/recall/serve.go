package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/brizzai/recall/internal/auth"
	"github.com/brizzai/recall/internal/config"
	"github.com/brizzai/recall/internal/events"
	"github.com/brizzai/recall/internal/logger"
	"github.com/brizzai/recall/internal/mcpserver"
	"github.com/brizzai/recall/internal/memories"
	"github.com/brizzai/recall/internal/metrics"
	"github.com/brizzai/recall/internal/relay"
	"github.com/brizzai/recall/internal/storage"
	"github.com/brizzai/recall/internal/surface"
	"github.com/brizzai/recall/internal/transport"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var stdio bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the background relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			if stdio {
				if err := keepStdoutClean(false); err != nil {
					return err
				}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, stdio)
		},
	}
	cmd.Flags().BoolVar(&stdio, "mcp-stdio", false, "Also serve MCP tools on stdin/stdout")
	return cmd
}

func serveOptions(cfg *config.Config) []fx.Option {
	opts := []fx.Option{
		fx.Supply(cfg),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		storage.Module,
		memories.Module,
		events.Module,
		surface.Module,
		metrics.Module,
		relay.Module,
		transport.Module,
	}
	if len(cfg.OAuth.Providers) > 0 {
		opts = append(opts, auth.Module)
	}
	if cfg.MCP.Enabled {
		opts = append(opts, mcpserver.Module)
	}
	return opts
}

func runServe(ctx context.Context, cfg *config.Config, stdio bool) error {
	var (
		server *transport.Server
		tools  *mcpserver.Server
	)
	populate := []any{&server}
	if cfg.MCP.Enabled {
		populate = append(populate, &tools)
	} else if stdio {
		return fmt.Errorf("--mcp-stdio requires mcp.enabled")
	}

	app := fx.New(append(serveOptions(cfg), fx.Populate(populate...))...)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			logger.Error("Failed to stop cleanly", zap.Error(err))
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(ctx)
	})
	if stdio {
		g.Go(func() error {
			return tools.ServeSTDIO(ctx)
		})
	}
	return g.Wait()
}
