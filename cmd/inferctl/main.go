// Command inferctl runs the inference packages offline against local
// artifacts and probes a running recommendation service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/inferd/internal/config"
	"github.com/okian/inferd/pkg/logger"
)

// cli holds state shared by every subcommand.
type cli struct {
	configPath  string
	artifactDir string
	logLevel    string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "inferctl",
		Short:         "Operate the book recommender and revenue estimator artifacts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", os.Getenv(config.FileEnv), "YAML config file (default $"+config.FileEnv+")")
	root.PersistentFlags().StringVar(&c.artifactDir, "artifact-dir", "", "Directory holding the artifacts (overrides config)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(
		newRecommendCmd(c),
		newEstimateCmd(c),
		newValidateCmd(c),
		newProbeCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return err
	}
	if err := logger.SetLevelString(c.logLevel); err != nil {
		return err
	}

	cfg, err := config.LoadFile(c.configPath)
	if err != nil {
		return err
	}
	if c.artifactDir != "" {
		cfg.ArtifactDir = c.artifactDir
	}
	c.cfg = cfg
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Stderr.WriteString("inferctl: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
