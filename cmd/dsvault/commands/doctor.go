package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/dsvault/internal/config"
	dverrors "github.com/systmms/dsvault/internal/errors"
	"github.com/systmms/dsvault/internal/secretstore"
)

// Check statuses
const (
	statusOK    = "ok"
	statusWarn  = "warn"
	statusError = "error"
)

// CheckResult is one line of the doctor report.
type CheckResult struct {
	Check  string `json:"check"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// validator is implemented by backends that depend on external tools.
type validator interface {
	Validate(ctx context.Context) error
}

func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the master key, directory permissions and every record",
		Long: `Verify that the store is usable.

This command checks:
- The master key can be read
- The key file and .secrets directory are private to the owner
- The cipher backend is available
- Every stored record decrypts under the current key

Secret values are never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := runChecks(cmd.Context(), cfg, nil)

			if jsonOutput {
				if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
					return err
				}
			} else if err := printResults(cmd.OutOrStdout(), results); err != nil {
				return err
			}

			if failed := countStatus(results, statusError); failed > 0 {
				return dverrors.UserError{
					Message:    fmt.Sprintf("Doctor found %d problem(s)", failed),
					Suggestion: "Fix the checks marked 'error' above",
				}
			}
			cfg.Logger.Info("All checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// runChecks inspects the configured store. Records are decrypted with the
// cache enabled so metrics reflect a realistic read.
func runChecks(ctx context.Context, cfg *config.Config, metrics *secretstore.Metrics) []CheckResult {
	var results []CheckResult
	add := func(check, status, detail string) {
		results = append(results, CheckResult{Check: check, Status: status, Detail: detail})
	}

	add("base dir", statusOK, cfg.BaseDir())

	keyOK := true
	if _, err := cfg.KeyProvider().MasterKey(); err != nil {
		keyOK = false
		add("master key", statusError, describe(err))
	} else {
		add("master key", statusOK, "readable")
	}

	if cfg.Definition.KeySource == config.KeySourceFile && keyOK {
		path := cfg.KeyFilePath()
		if info, err := os.Stat(path); err == nil {
			if perm := info.Mode().Perm(); perm&0o077 != 0 {
				add("key file mode", statusWarn, fmt.Sprintf("%s is %04o, run: chmod 600 %s", path, perm, path))
			} else {
				add("key file mode", statusOK, fmt.Sprintf("%04o", perm))
			}
		}
	}

	backend, err := cfg.Backend()
	if err != nil {
		add("backend", statusError, err.Error())
		return results
	}
	if v, ok := backend.(validator); ok {
		if err := v.Validate(ctx); err != nil {
			add("backend", statusError, describe(err))
			return results
		}
	}
	add("backend", statusOK, backend.Name())

	store, err := cfg.OpenStore(metrics)
	if err != nil {
		add("secrets dir", statusError, err.Error())
		return results
	}
	if info, err := os.Stat(store.SecretsDir()); err == nil {
		if perm := info.Mode().Perm(); perm&0o077 != 0 {
			add("secrets dir mode", statusWarn, fmt.Sprintf("%s is %04o, run: chmod 700 %s", store.SecretsDir(), perm, store.SecretsDir()))
		} else {
			add("secrets dir mode", statusOK, fmt.Sprintf("%04o", perm))
		}
	}

	names := store.List()
	if len(names) == 0 {
		add("records", statusOK, "no secrets stored")
		return results
	}
	if !keyOK {
		add("records", statusError, fmt.Sprintf("%d record(s) not checked without a master key", len(names)))
		return results
	}
	for _, name := range names {
		if _, err := store.Decrypt(ctx, name, true); err != nil {
			add("record "+name, statusError, string(dverrors.KindOf(err)))
			cfg.Logger.Debug("Record %s: %v", name, err)
			continue
		}
		add("record "+name, statusOK, "decrypts")
	}
	return results
}

func describe(err error) string {
	if hint := dverrors.Suggest(err); hint != "" {
		return err.Error() + " (" + hint + ")"
	}
	return err.Error()
}

func printResults(w io.Writer, results []CheckResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHECK\tSTATUS\tDETAIL")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Check, r.Status, r.Detail)
	}
	return tw.Flush()
}

func countStatus(results []CheckResult, status string) int {
	n := 0
	for _, r := range results {
		if r.Status == status {
			n++
		}
	}
	return n
}
