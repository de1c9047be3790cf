package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/brizzai/recall/internal/auth"
	"github.com/brizzai/recall/internal/callback"
	"github.com/brizzai/recall/internal/events"
	"github.com/brizzai/recall/internal/logger"
	"github.com/brizzai/recall/internal/mcpserver"
	"github.com/brizzai/recall/internal/messaging"
	"github.com/brizzai/recall/internal/models"
	"github.com/brizzai/recall/internal/relay"
	"github.com/brizzai/recall/internal/storage"
	"github.com/brizzai/recall/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// keepStdoutClean moves logging off stdout for commands that own it: MCP
// over stdio speaks JSON-RPC there, the popup draws there.
func keepStdoutClean(silent bool) error {
	lc := cfg.Logging
	lc.DisableConsole = true
	if lc.OutputPath == "" {
		if silent {
			logger.SetLogger(zap.NewNop())
			return nil
		}
		lc.OutputPath = "stderr"
	}
	return logger.InitLogger(&lc)
}

func relayClient() *messaging.HTTPClient {
	return messaging.NewHTTPClient(cfg.Server.RelayURL, cfg.Relay.RequestTimeout)
}

func newPopupCmd() *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "popup",
		Short: "Open the terminal popup",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := keepStdoutClean(true); err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			client := relayClient()
			opts := []tui.Option{tui.WithExpectedState(state)}
			if ch, err := client.Listen(ctx, events.RoleListener); err != nil {
				logger.Warn("Not listening for relay events", zap.Error(err))
			} else {
				opts = append(opts, tui.WithEvents(ch))
			}

			p := tea.NewProgram(tui.NewAppModel(client, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
			m, err := p.Run()
			if err != nil {
				return fmt.Errorf("error running popup: %w", err)
			}

			if s := m.(tui.AppModel).Session(); s != nil {
				pterm.Info.Printfln("Signed in with %s as %s", s.Provider, pterm.LightGreen(s.UserID))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "State the sign-in was started with")
	return cmd
}

func newWatchCmd() *cobra.Command {
	var tabID int

	cmd := &cobra.Command{
		Use:   "watch <url>",
		Short: "Check a page URL for an OAuth callback and notify the relay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var sender *relay.Sender
			if tabID > 0 {
				sender = &relay.Sender{TabID: tabID, URL: args[0]}
			}

			res, err := callback.NewWatcher(relayClient()).Watch(ctx, callback.StaticPage(args[0]), sender)
			if err != nil {
				return err
			}
			if res.Failed() {
				pterm.Warning.Printfln("Provider reported an error: %s", res.Error)
				return nil
			}
			pterm.Success.Printfln("Relayed %s callback", res.Provider)
			return nil
		},
	}
	cmd.Flags().IntVar(&tabID, "tab-id", 0, "Tab the callback page is open in")
	return cmd
}

func newSendCmd() *cobra.Command {
	var msg relay.Message

	cmd := &cobra.Command{
		Use:   "send <type>",
		Short: "Send one message to the relay and print the reply",
		Long: `Send one message to the relay. <type> is a message type such as
SAVE_MEMORY or GET_MEMORIES, or "openPopup" for the popup action.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == relay.ActionOpenPopup {
				msg.Action = args[0]
			} else {
				msg.Type = args[0]
			}

			resp, err := relayClient().Send(cmd.Context(), msg)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&msg.Content, "content", "", "Memory content")
	cmd.Flags().StringVar(&msg.Category, "category", "", "Memory category")
	cmd.Flags().StringVar(&msg.Source, "source", "", "Memory source")
	cmd.Flags().StringVar(&msg.Code, "code", "", "Authorization code")
	cmd.Flags().StringVar(&msg.State, "state", "", "Authorization state")
	cmd.Flags().StringVar(&msg.Provider, "provider", "", "Identity provider")
	cmd.Flags().StringVar(&msg.Error, "error", "", "Provider error")
	return cmd
}

func newSignInCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Print the provider URL to start a sign-in",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := auth.NewService(cmd.Context(), cfg.OAuth, storage.NewMemory())
			if err != nil {
				return err
			}
			url, state, err := svc.Begin(models.Provider(provider))
			if err != nil {
				return err
			}
			pterm.Info.Println("Open this URL to sign in:")
			fmt.Fprintln(cmd.OutOrStdout(), url)
			pterm.Info.Printfln("Then run: recall popup --state %s", state)
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", string(models.ProviderGitHub), "github or google")
	return cmd
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP tools on stdin/stdout against a running relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := keepStdoutClean(false); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return mcpserver.NewServer(cfg.MCP, relayClient()).ServeSTDIO(ctx)
		},
	}
}
