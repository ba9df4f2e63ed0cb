package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/dsvault/internal/config"
)

func NewListCommand(cfg *config.Config) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored secret names",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}

			names := store.List()
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), names)
			}
			if len(names) == 0 {
				cfg.Logger.Info("No secrets stored in %s", store.SecretsDir())
				return nil
			}
			for _, name := range names {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
