package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/dsvault/internal/config"
)

func NewExistsCommand(cfg *config.Config) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "exists NAME",
		Short: "Check whether a secret is stored",
		Long: `Exit with status 0 when NAME is stored and 1 when it is not.

Examples:
  dsvault exists api-key && echo "configured"`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeSecretNames(cfg),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}

			if store.Exists(args[0]) {
				if !quiet {
					cfg.Logger.Info("Secret %s exists", args[0])
				}
				return nil
			}
			if !quiet {
				cfg.Logger.Warn("Secret %s does not exist", args[0])
			}
			return ExitError{Code: 1}
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only set the exit status")

	return cmd
}
