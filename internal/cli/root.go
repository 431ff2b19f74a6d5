// Package cli implements the positionbook command line: the long-running
// server plus one-shot commands for plans, trades, prices and the archive.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/positionbook/internal/app"
	"github.com/alanyoungcy/positionbook/internal/config"
)

// version is overridden at build time with -ldflags "-X ...cli.version=".
var version = "dev"

// rootOptions carries the persistent flags and what PersistentPreRunE
// derives from them.
type rootOptions struct {
	configPath string
	logLevel   string
	output     string

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd builds the positionbook command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "positionbook",
		Short:         "Trading position tracker: plans, trades, cost basis and P&L",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to a TOML or YAML config file")
	pf.StringVar(&opts.logLevel, "log-level", "", "override log_level (debug|info|warn|error)")
	pf.StringVarP(&opts.output, "output", "o", outputPretty, "output format (pretty|markdown|json)")

	cmd.AddCommand(
		newServeCmd(opts),
		newPositionCmd(opts),
		newPlanCmd(opts),
		newTradeCmd(opts),
		newPriceCmd(opts),
		newArchiveCmd(opts),
		newConfigCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "positionbook %s\n", version)
				return err
			},
		},
	)
	return cmd
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context) int {
	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return 1
	}
	return 0
}

// load reads and validates the configuration and builds the logger.
func (o *rootOptions) load(cmd *cobra.Command) error {
	switch o.output {
	case outputPretty, outputMarkdown, outputJSON:
	default:
		return fmt.Errorf("unknown output format %q (valid: pretty, markdown, json)", o.output)
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	o.cfg = cfg
	o.logger = newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	slog.SetDefault(o.logger)
	return nil
}

// withDeps wires the application for a one-shot command and releases it when
// fn returns.
func (o *rootOptions) withDeps(ctx context.Context, fn func(deps *app.Dependencies) error) error {
	a := app.New(o.cfg, o.logger)
	defer a.Close()

	deps, err := a.Wire(ctx)
	if err != nil {
		return err
	}
	return fn(deps)
}

func newLogger(w io.Writer, level string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
