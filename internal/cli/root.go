// Package cli wires cobra subcommands to the provider registry and client.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leofalp/polychat/internal/config"
	"github.com/leofalp/polychat/internal/logging"
)

// app holds the state shared by subcommands after flag parsing.
type app struct {
	configPath string
	profile    string
	verbose    bool

	cfg *config.Config
}

// NewRootCmd creates the root command and registers all subcommands.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "polychat",
		Short: "Chat with any configured AI provider",
		// main renders fatal errors through the logger.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg

			if err := logging.Configure(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format); err != nil {
				return err
			}
			if a.verbose {
				logging.SetLevel(slog.LevelDebug)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default $POLYCHAT_HOME/config.yaml)")
	root.PersistentFlags().StringVarP(&a.profile, "profile", "p", "", "Profile to use (default: default_profile)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging and request tracing")

	root.AddCommand(newSendCmd(a))
	root.AddCommand(newChatCmd(a))
	root.AddCommand(newModelsCmd(a))
	root.AddCommand(newProvidersCmd())
	root.AddCommand(newConfigCmd(a))

	return root
}
