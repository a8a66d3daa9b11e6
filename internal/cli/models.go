package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leofalp/polychat/providers/registry"
)

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models offered by the active profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.newSession()
			if err != nil {
				return err
			}
			models, err := s.client.FetchModels(cmd.Context())
			if err != nil {
				return err
			}
			if len(models) == 0 {
				_, err := fmt.Fprintf(cmd.ErrOrStderr(), "profile %q has no model catalog\n", s.name)
				return err
			}
			for _, model := range models {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), model); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the accepted provider kinds",
		// Needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, kind := range registry.Kinds() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), kind); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
