package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/inferd/internal/probe"
)

func newProbeCmd(c *cli) *cobra.Command {
	cfg := probe.Config{}

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check a running recommender for list length and idempotence",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.TopN <= 0 {
				cfg.TopN = c.cfg.TopN
			}
			report, err := probe.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if err := report.Print(cmd.OutOrStdout()); err != nil {
				return err
			}
			if !report.Passed() {
				return fmt.Errorf("probe %s failed: %d failed, %d violations", report.RunID, report.Failed, report.Violation)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.BaseURL, "url", "http://localhost:8000", "Base URL of the recommender")
	cmd.Flags().Int64SliceVar(&cfg.Users, "users", nil, "Comma separated user ids")
	cmd.Flags().IntVar(&cfg.TopN, "top", 0, "Expected maximum list length (default top_n from config)")
	cmd.Flags().IntVar(&cfg.Workers, "workers", 0, "Concurrent users (default CPU count)")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", probe.DefaultTimeout, "HTTP request timeout")
	cmd.Flags().StringVar(&cfg.OutputFile, "output", "", "Write the JSON report to this file")
	_ = cmd.MarkFlagRequired("users")
	return cmd
}
