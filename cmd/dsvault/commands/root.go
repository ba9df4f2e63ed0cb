package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/dsvault/internal/config"
	"github.com/systmms/dsvault/internal/logging"
)

// BuildInfo is stamped by the release build.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// NewRootCommand wires the global flags and every subcommand around cfg.
// The config file is loaded and flag overrides applied before any
// subcommand runs.
func NewRootCommand(cfg *config.Config, info BuildInfo) *cobra.Command {
	var (
		configFile string
		noColor    bool
		debug      bool
		overrides  config.Overrides
	)

	rootCmd := &cobra.Command{
		Use:   "dsvault",
		Short: "Encrypted secret store for local development and CI",
		Long: `dsvault keeps each secret in its own encrypted file under a single
master key and resolves configuration values from stored secrets, the
environment, or a default.

Records use the OpenSSL enc format (AES-256-CBC, salted), so they can be
decrypted with 'openssl enc -d -aes-256-cbc -a -md sha256' when needed.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg.Logger = logging.NewWithWriter(cmd.ErrOrStderr(), debug, noColor)
			cfg.Path = configFile
			cfg.Required = cmd.Flags().Changed("config")

			if err := cfg.Load(); err != nil {
				return err
			}
			return cfg.Apply(overrides)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", config.DefaultFile, "Config file path")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")
	flags.StringVar(&overrides.BaseDir, "dir", "", "Base directory holding the master key and .secrets (overrides base_dir)")
	flags.StringVar(&overrides.Backend, "backend", "", "Cipher backend: native or openssl (overrides backend)")
	flags.StringVar(&overrides.KDF, "kdf", "", "Key derivation: legacy or pbkdf2 (overrides kdf)")
	flags.DurationVar(&overrides.Timeout, "timeout", 0, "Per-operation cipher timeout, e.g. 5s (overrides timeout_ms)")

	rootCmd.AddCommand(
		NewInitCommand(cfg),
		NewSetCommand(cfg),
		NewGetCommand(cfg),
		NewListCommand(cfg),
		NewExistsCommand(cfg),
		NewRmCommand(cfg),
		NewResolveCommand(cfg),
		NewExecCommand(cfg),
		NewDoctorCommand(cfg),
		NewMetricsCommand(cfg),
		NewCompletionCommand(cfg),
	)

	return rootCmd
}
