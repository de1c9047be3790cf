package main

import (
	"fmt"
	"os"

	"github.com/brizzai/recall/internal/config"
	"github.com/brizzai/recall/internal/logger"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func main() {
	Execute()
}

// cfg is loaded once flags are parsed
var cfg *config.Config

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Memory store with a cross-context sign-in relay",
	Long: `recall keeps short text memories and relays OAuth callbacks between the
page that received them and the popup that finishes sign-in.

Run "recall serve" for the background relay, then "recall popup" to browse
memories or "recall watch <url>" to hand a callback page to the relay.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}

		loaded, err := config.Load(cmd.Flags())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := logger.InitLogger(&loaded.Logging); err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}
		cfg = loaded
		return nil
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	config.InitFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")

	rootCmd.AddCommand(
		newServeCmd(),
		newPopupCmd(),
		newWatchCmd(),
		newSendCmd(),
		newSignInCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// config is not needed here
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			pterm.Info.Println(config.GetVersionInfo())
		},
	}
}
