package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	service "github.com/okian/inferd/internal/app"
	"github.com/okian/inferd/internal/domain/features"
	"github.com/okian/inferd/internal/validation"
	"github.com/okian/inferd/pkg/logger"
)

func newEstimateCmd(c *cli) *cobra.Command {
	in := features.DefaultInput()
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Predict movie revenue against local artifacts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := validation.Struct(in); err != nil {
				return fmt.Errorf("invalid input: %w", err)
			}

			cfg := c.cfg
			est := service.NewEstimator(
				service.WithEstimatorLogger(logger.Named("inferctl")),
				service.WithRevenueArtifactPaths(cfg.Resolve(cfg.RevenueModelPath), cfg.Resolve(cfg.FeaturesPath)),
			)
			if err := est.Start(ctx); err != nil {
				return err
			}
			got, err := est.Estimate(ctx, in)
			if err != nil {
				return err
			}

			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(got)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Predicted Revenue: %s\n", got.Formatted)
			return err
		},
	}

	cmd.Flags().Float64Var(&in.Budget, "budget", in.Budget, "Budget in USD")
	cmd.Flags().Float64Var(&in.Runtime, "runtime", in.Runtime, "Runtime in minutes")
	cmd.Flags().IntVar(&in.Year, "year", in.Year, "Release year")
	cmd.Flags().IntVar(&in.Month, "month", in.Month, "Release month (1-12)")
	cmd.Flags().IntVar(&in.DayOfWeek, "dow", in.DayOfWeek, "Release day of week (0=Monday, 6=Sunday)")
	cmd.Flags().StringSliceVar(&in.Genres, "genre", nil, "Genre label, repeatable")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}
