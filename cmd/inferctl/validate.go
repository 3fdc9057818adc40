package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	service "github.com/okian/inferd/internal/app"
	"github.com/okian/inferd/internal/domain/catalog"
	"github.com/okian/inferd/internal/domain/scoring"
	"github.com/okian/inferd/pkg/logger"
)

// ErrValidationFailed is returned when any artifact check fails.
var ErrValidationFailed = errors.New("artifact validation failed")

type check struct {
	name   string
	ok     bool
	detail string
}

func newValidateCmd(c *cli) *cobra.Command {
	var only string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load every artifact and check cross-artifact invariants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := c.cfg
			log := logger.Named("inferctl")
			var checks []check

			if only == "" || only == "recommender" {
				a, err := service.LoadArtifacts(ctx, log, cfg.Resolve(cfg.ModelPath), cfg.Resolve(cfg.CatalogPath))
				if err != nil {
					checks = append(checks, check{"recommender", false, err.Error()})
				} else {
					checks = append(checks, recommenderChecks(a)...)
				}
			}

			if only == "" || only == "estimator" {
				est := service.NewEstimator(
					service.WithEstimatorLogger(log),
					service.WithRevenueArtifactPaths(cfg.Resolve(cfg.RevenueModelPath), cfg.Resolve(cfg.FeaturesPath)),
				)
				if err := est.Start(ctx); err != nil {
					checks = append(checks, check{"estimator", false, err.Error()})
				} else {
					s := est.Schema()
					checks = append(checks, check{"estimator", true,
						fmt.Sprintf("%d features, %d genres", s.Len(), len(s.Genres()))})
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CHECK\tSTATUS\tDETAIL")
			failed := 0
			for _, ch := range checks {
				status := "ok"
				if !ch.ok {
					status = "FAIL"
					failed++
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", ch.name, status, ch.detail)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d checks", ErrValidationFailed, failed, len(checks))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&only, "only", "", "Validate only \"recommender\" or \"estimator\"")
	return cmd
}

// recommenderChecks inspects the loaded model and catalog together. Catalog
// items unknown to the model still rank (bias terms only), so they are
// reported but do not fail validation; unprojectable keys do.
func recommenderChecks(a *service.Artifacts) []check {
	var checks []check

	cat, _ := a.Catalog.(*catalog.Catalog)
	model, _ := a.Scorer.(*scoring.MatrixFactorization)
	if cat == nil || model == nil {
		return []check{{"recommender", true, "loaded"}}
	}

	checks = append(checks, check{"model", true,
		fmt.Sprintf("version %q, %d users, %d items, %d factors", model.Version(), model.Users(), model.Items(), model.Factors())})

	if keys := cat.NonCanonicalKeys(); len(keys) > 0 {
		checks = append(checks, check{"catalog keys", false,
			fmt.Sprintf("%d non-canonical ids cannot be projected, first %q", len(keys), keys[0])})
	} else {
		checks = append(checks, check{"catalog keys", true, fmt.Sprintf("%d titles", cat.Len())})
	}

	unknown := 0
	for _, id := range cat.IDs() {
		if !model.IsKnownItem(id) {
			unknown++
		}
	}
	checks = append(checks, check{"catalog coverage", true,
		fmt.Sprintf("%d of %d catalog items have no learned factors", unknown, cat.Len())})
	return checks
}
