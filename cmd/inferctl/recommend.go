package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	service "github.com/okian/inferd/internal/app"
	"github.com/okian/inferd/internal/domain/ranking"
	"github.com/okian/inferd/pkg/logger"
)

type recommendation struct {
	Rank  int     `json:"rank"`
	Item  int64   `json:"item"`
	Score float64 `json:"score"`
	Title string  `json:"title"`
}

func newRecommendCmd(c *cli) *cobra.Command {
	var (
		user    int64
		top     int
		exclude bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank the catalog for one user against local artifacts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := c.cfg
			if top <= 0 {
				top = cfg.TopN
			}

			a, err := service.LoadArtifacts(ctx, logger.Named("inferctl"),
				cfg.Resolve(cfg.ModelPath), cfg.Resolve(cfg.CatalogPath))
			if err != nil {
				return err
			}
			r := ranking.New(a.Scorer, a.Catalog,
				ranking.WithTopN(top),
				ranking.WithWorkers(cfg.ScoringWorkers),
				ranking.WithChunkSize(cfg.ScoringChunkSize),
				ranking.WithExcludeInteracted(exclude || cfg.ExcludeInteracted),
			)

			ranked, err := r.Rank(ctx, user)
			if err != nil {
				return err
			}
			out := make([]recommendation, len(ranked))
			for i, s := range ranked {
				title, ok := a.Catalog.Title(s.Item)
				if !ok {
					return fmt.Errorf("%w: item %d has no title", ranking.ErrInconsistentArtifacts, s.Item)
				}
				out[i] = recommendation{Rank: i + 1, Item: s.Item, Score: s.Score, Title: title}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tITEM\tSCORE\tTITLE")
			for _, rec := range out {
				fmt.Fprintf(tw, "%d\t%d\t%.4f\t%s\n", rec.Rank, rec.Item, rec.Score, rec.Title)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Int64Var(&user, "user", 0, "User id known to the model")
	cmd.Flags().IntVar(&top, "top", 0, "Number of titles (default top_n from config)")
	cmd.Flags().BoolVar(&exclude, "exclude-interacted", false, "Skip items the user already rated")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
