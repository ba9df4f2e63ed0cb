package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/dsvault/internal/config"
	"github.com/systmms/dsvault/internal/resolve"
)

func NewResolveCommand(cfg *config.Config) *cobra.Command {
	var (
		envKey     string
		def        string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "resolve NAME",
		Short: "Resolve a value from a secret, the environment, or a default",
		Long: `Print the value of secret NAME if it is stored and decrypts. Otherwise
print the environment variable named by --env (process environment first,
then the configured .env files), and finally --default.

Problems with the secret are reported as warnings; the command itself
never fails on them.

Examples:
  DATABASE_URL=$(dsvault resolve database-url --env DATABASE_URL --default postgres://localhost/dev)`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeSecretNames(cfg),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			env, err := cfg.EnvSource()
			if err != nil {
				return err
			}

			var secrets resolve.SecretSource
			if store, err := cfg.OpenStore(nil); err != nil {
				cfg.Logger.Warn("Secret store unavailable, using fallbacks: %v", err)
			} else {
				secrets = store
			}

			value, source := resolve.New(secrets, env, cfg.Logger).ResolveWithSource(cmd.Context(), name, envKey, def)
			cfg.Logger.Debug("Resolved %s from %s", name, source)

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"name":   name,
					"value":  value,
					"source": source.String(),
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), value)
			return err
		},
	}

	cmd.Flags().StringVar(&envKey, "env", "", "Environment variable to fall back to")
	cmd.Flags().StringVar(&def, "default", "", "Value used when neither the secret nor the variable is set")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON, including the source")

	return cmd
}
