package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/dsvault/internal/config"
	dverrors "github.com/systmms/dsvault/internal/errors"
	"github.com/systmms/dsvault/internal/execenv"
	"github.com/systmms/dsvault/internal/resolve"
	"github.com/systmms/dsvault/internal/secretstore"
)

func NewExecCommand(cfg *config.Config) *cobra.Command {
	var (
		mappings     []string
		keepExisting bool
		printVars    bool
		workDir      string
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "exec --map NAME[=ENV] [--map ...] -- COMMAND [ARGS...]",
		Short: "Run a command with secrets injected as environment variables",
		Long: `Resolve each mapped secret the same way as 'dsvault resolve' and pass
the values to COMMAND as environment variables. The values exist only in
the child's environment.

Each --map takes a secret name and the variable to set. The variable also
serves as the fallback when the secret is missing or unusable. Without
'=ENV' the variable name is the secret name upper-cased with '-' and '.'
turned into '_'.

The command must be separated from dsvault flags with '--'. Its exit
status is passed through.

Examples:
  dsvault exec --map database-url=DATABASE_URL -- ./server
  dsvault exec --map api-key --print -- npm start`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := parseMappings(mappings)
			if err != nil {
				return err
			}

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
			resolver := resolve.New(secrets, env, cfg.Logger)

			vars := make(map[string]string, len(pairs))
			for _, p := range pairs {
				value, source, ok := resolver.Lookup(cmd.Context(), p.secret, p.envKey)
				if !ok {
					cfg.Logger.Warn("No value for %s (secret %s), leaving it unset", p.envKey, p.secret)
					continue
				}
				cfg.Logger.Debug("Resolved %s from %s", p.envKey, source)
				vars[p.envKey] = value
			}

			err = execenv.New(cfg.Logger).Run(cmd.Context(), execenv.Options{
				Command:      args,
				Environment:  vars,
				KeepExisting: keepExisting,
				PrintVars:    printVars,
				WorkingDir:   workDir,
				Timeout:      timeout,
				Stdin:        cmd.InOrStdin(),
				Stdout:       cmd.OutOrStdout(),
				Stderr:       cmd.ErrOrStderr(),
			})
			var childErr execenv.ChildExitError
			if errors.As(err, &childErr) {
				return ExitError{Code: childErr.Code}
			}
			return err
		},
	}

	cmd.Flags().StringArrayVar(&mappings, "map", nil, "Secret to inject as NAME[=ENV] (repeatable)")
	cmd.Flags().BoolVar(&keepExisting, "keep-existing", false, "Let variables already set in the environment win")
	cmd.Flags().BoolVar(&printVars, "print", false, "Print injected variables with masked values")
	cmd.Flags().StringVar(&workDir, "work-dir", "", "Working directory for the command")
	cmd.Flags().DurationVar(&timeout, "exec-timeout", 0, "Kill the command after this long (0 means no limit)")

	return cmd
}

type mapping struct {
	secret string
	envKey string
}

func parseMappings(raw []string) ([]mapping, error) {
	if len(raw) == 0 {
		return nil, dverrors.UserError{
			Message:    "No secrets mapped",
			Suggestion: "Add at least one --map NAME=ENV",
		}
	}

	out := make([]mapping, 0, len(raw))
	for _, r := range raw {
		secret, envKey, hasEnv := strings.Cut(r, "=")
		if !hasEnv {
			envKey = envName(secret)
		}
		if secret == "" || envKey == "" {
			return nil, dverrors.UserError{
				Message:    fmt.Sprintf("Invalid mapping %q", r),
				Suggestion: "Use --map NAME=ENV, e.g. --map db-password=DB_PASSWORD",
			}
		}
		if err := secretstore.ValidateName(secret); err != nil {
			return nil, dverrors.ForUser(err)
		}
		out = append(out, mapping{secret: secret, envKey: envKey})
	}
	return out, nil
}

// envName derives a variable name from a secret name.
func envName(secret string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(secret))
}
