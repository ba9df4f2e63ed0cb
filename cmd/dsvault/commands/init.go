package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/dsvault/internal/config"
	"github.com/systmms/dsvault/internal/keys"
)

func NewInitCommand(cfg *config.Config) *cobra.Command {
	var (
		force      bool
		useKeyring bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the master key and secrets directory",
		Long: `Create a random master key and the .secrets directory.

The key is written to the configured key file with mode 0600, or stored in
the OS keyring with --keyring. An existing key is never replaced unless
--force is given; secrets encrypted under the old key become unreadable.

Keep the key file and .secrets out of version control.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := keys.Generate()
			if err != nil {
				return err
			}

			def := cfg.Definition
			if useKeyring || def.KeySource == config.KeySourceKeyring {
				kr := keys.NewKeyringProvider(def.Keyring.Service, def.Keyring.Account)
				if err := kr.Store(key, force); err != nil {
					return err
				}
				cfg.Logger.Info("Stored master key in %s", kr.Location())
				if def.KeySource != config.KeySourceKeyring {
					cfg.Logger.Warn("Set 'key_source: keyring' in %s so other commands read the keyring", config.DefaultFile)
				}
			} else {
				path := cfg.KeyFilePath()
				if err := keys.WriteFile(path, key, force); err != nil {
					return err
				}
				cfg.Logger.Info("Created master key at %s", path)
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			cfg.Logger.Info("Secrets directory ready at %s", store.SecretsDir())
			cfg.Logger.Info("Add the key file and .secrets/ to .gitignore")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing master key")
	cmd.Flags().BoolVar(&useKeyring, "keyring", false, "Store the master key in the OS keyring")

	return cmd
}
