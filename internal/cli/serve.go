package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/positionbook/internal/app"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and/or archiver in the configured mode",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if mode != "" {
				opts.cfg.Mode = mode
				if err := opts.cfg.Validate(); err != nil {
					return err
				}
			}

			opts.logger.Info("positionbook starting",
				slog.String("mode", opts.cfg.Mode),
				slog.String("config", opts.configPath),
				slog.String("version", version),
			)

			a := app.New(opts.cfg, opts.logger)
			defer a.Close()

			err := a.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				opts.logger.Info("positionbook shut down gracefully")
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "override the configured mode (server|archive|full)")
	return cmd
}
