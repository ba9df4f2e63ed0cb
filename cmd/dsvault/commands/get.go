package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/dsvault/internal/config"
	dverrors "github.com/systmms/dsvault/internal/errors"
)

func NewGetCommand(cfg *config.Config) *cobra.Command {
	var (
		noCache    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "get NAME",
		Short: "Decrypt and print a secret",
		Long: `Decrypt the secret NAME and print its value to stdout.

By default only the raw value is printed, making it suitable for scripting.

Examples:
  export DB_PASSWORD=$(dsvault get db-password)

  dsvault get api-key --json`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeSecretNames(cfg),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			store, err := openStore(cfg)
			if err != nil {
				return err
			}

			value, err := store.Decrypt(cmd.Context(), name, !noCache)
			if err != nil {
				return dverrors.ForUser(err)
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"name":  name,
					"value": value,
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), value)
			return err
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the in-memory cache")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
