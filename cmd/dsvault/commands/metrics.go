package commands

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/systmms/dsvault/internal/config"
	"github.com/systmms/dsvault/internal/secretstore"
)

func NewMetricsCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Run the doctor checks and print store metrics",
		Long: `Decrypt every record like 'dsvault doctor' does, then print the
collected store metrics in the Prometheus text exposition format.

Useful for measuring backend latency, e.g. comparing --backend native
against --backend openssl.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			results := runChecks(cmd.Context(), cfg, secretstore.NewMetrics(reg))
			if failed := countStatus(results, statusError); failed > 0 {
				cfg.Logger.Warn("%d check(s) failed, run 'dsvault doctor' for details", failed)
			}

			families, err := reg.Gather()
			if err != nil {
				return fmt.Errorf("failed to gather metrics: %w", err)
			}
			for _, mf := range families {
				if _, err := expfmt.MetricFamilyToText(cmd.OutOrStdout(), mf); err != nil {
					return fmt.Errorf("failed to write metrics: %w", err)
				}
			}
			return nil
		},
	}

	return cmd
}
