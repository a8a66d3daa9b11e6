package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leofalp/polychat/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print merged configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return config.Write(cmd.OutOrStdout(), a.configPath)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the merged configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d profiles)\n", a.cfg.ConfigPath(), len(a.cfg.Profiles))
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), a.cfg.ConfigPath())
			return err
		},
	})

	return cmd
}
