package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/dsvault/internal/config"
	dverrors "github.com/systmms/dsvault/internal/errors"
)

func NewRmCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "rm NAME",
		Aliases:           []string{"remove"},
		Short:             "Delete a stored secret",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeSecretNames(cfg),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			if err := store.Remove(args[0]); err != nil {
				return dverrors.ForUser(err)
			}
			cfg.Logger.Info("Removed secret %s", args[0])
			return nil
		},
	}

	return cmd
}
