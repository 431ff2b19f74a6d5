package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/positionbook/internal/app"
	"github.com/alanyoungcy/positionbook/internal/pipeline"
)

var errArchiveDisabled = errors.New("archive: s3 is not enabled in the configuration")

func newArchiveCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Copy closed positions to object storage and browse the archive",
	}
	cmd.AddCommand(
		newArchiveRunCmd(opts),
		newArchiveListCmd(opts),
		newArchiveShowCmd(opts),
	)
	return cmd
}

func newArchiveRunCmd(opts *rootOptions) *cobra.Command {
	var before string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Archive closed positions created before a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cutoff time.Time
			if before != "" {
				t, err := time.Parse(time.DateOnly, before)
				if err != nil {
					return fmt.Errorf("bad --before: %w", err)
				}
				cutoff = t
			}

			return opts.withDeps(cmd.Context(), func(deps *app.Dependencies) error {
				if deps.Archiver == nil {
					return errArchiveDisabled
				}

				var (
					n   int64
					err error
				)
				if cutoff.IsZero() {
					sched := pipeline.NewArchiver(deps.Archiver, opts.cfg.Archive.RetentionDays, opts.logger)
					cutoff = sched.Cutoff()
					n, err = sched.Run(cmd.Context())
				} else {
					n, err = deps.Archiver.ArchiveClosedPositions(cmd.Context(), cutoff)
				}
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "archived %d closed positions created before %s\n",
					n, cutoff.Format(time.DateOnly))
				return err
			})
		},
	}

	cmd.Flags().StringVar(&before, "before", "", "cutoff date YYYY-MM-DD (defaults to now minus archive.retention_days)")
	return cmd
}

func newArchiveListCmd(opts *rootOptions) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archive files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withDeps(cmd.Context(), func(deps *app.Dependencies) error {
				if deps.BlobReader == nil {
					return errArchiveDisabled
				}
				files, err := deps.BlobReader.List(cmd.Context(), prefix)
				if err != nil {
					return err
				}

				var b strings.Builder
				fmt.Fprintln(&b, "| Path | Size | Modified |")
				fmt.Fprintln(&b, "|:---|---:|:---|")
				for _, f := range files {
					fmt.Fprintf(&b, "| %s | %d | %s |\n", f.Path, f.Size, f.LastModified.UTC().Format(time.RFC3339))
				}
				return render(cmd.OutOrStdout(), opts.output, b.String(), files)
			})
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "archive/positions/", "object key prefix")
	return cmd
}

func newArchiveShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <path>",
		Short: "Show the positions stored in an archive file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDeps(cmd.Context(), func(deps *app.Dependencies) error {
				if deps.Archiver == nil {
					return errArchiveDisabled
				}
				records, err := deps.Archiver.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				currency := opts.cfg.Display.Currency
				var b strings.Builder
				fmt.Fprintf(&b, "# %s\n\n", args[0])
				if len(records) == 0 {
					fmt.Fprintln(&b, "No archived positions.")
				} else {
					fmt.Fprintln(&b, "| ID | Symbol | Strategy | Trades | Cost basis | Archived |")
					fmt.Fprintln(&b, "|:---|:---|:---|---:|---:|:---|")
					for _, r := range records {
						fmt.Fprintf(&b, "| %s | %s | %s | %d | %s | %s |\n",
							r.Position.ID,
							r.Position.Symbol,
							r.Position.StrategyType,
							len(r.Position.Trades),
							formatMoney(r.Metrics.CostBasis, currency),
							r.ArchivedAt.Format(time.RFC3339),
						)
					}
				}
				return render(cmd.OutOrStdout(), opts.output, b.String(), records)
			})
		},
	}
}
