package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/systmms/dsvault/internal/config"
	dverrors "github.com/systmms/dsvault/internal/errors"
)

func NewSetCommand(cfg *config.Config) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set NAME",
		Short: "Encrypt and store a secret",
		Long: `Encrypt a value and store it as NAME, replacing any previous value.

The value is read from standard input unless --value is given. A single
trailing newline is dropped.

Examples:
  # Pipe a value in
  printf '%s' "$TOKEN" | dsvault set github-token

  # Read from a file
  dsvault set tls-key < server.key`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if !cmd.Flags().Changed("value") {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read value from stdin: %w", err)
				}
				value = strings.TrimSuffix(strings.TrimSuffix(string(data), "\n"), "\r")
			} else {
				cfg.Logger.Debug("Value passed with --value may be kept in shell history")
			}

			if strings.TrimSpace(value) == "" {
				return dverrors.UserError{
					Message:    "Refusing to store an empty value",
					Suggestion: "Pass the value on stdin or with --value",
				}
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			if err := store.Encrypt(cmd.Context(), name, value); err != nil {
				return dverrors.ForUser(err)
			}

			cfg.Logger.Info("Stored secret %s", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "Secret value (prefer stdin)")

	return cmd
}
