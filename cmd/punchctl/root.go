package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"driver-punch-api-server/config"
	"driver-punch-api-server/internal/app"
	"driver-punch-api-server/internal/logging"
)

type rootOptions struct {
	configDir string
	timeout   time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "punchctl",
		Short:         "Administer drivers, punch logs and return forms",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configDir, "config", "./config", "directory containing config.yaml")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall command timeout")

	cmd.AddCommand(
		newSeedAdminCmd(opts),
		newDriversCmd(opts),
		newFormsCmd(opts),
	)
	return cmd
}

// withApp builds the services for one command run and closes them afterwards.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.LoadConfig(opts.configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// Anchoring and live feeds are server concerns.
	cfg.Fabric.ConnectionProfile = ""

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	a, err := app.Build(ctx, cfg, logging.NewWithWriter(cfg.Logging, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}
