package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/positionbook/internal/app"
	"github.com/alanyoungcy/positionbook/internal/domain"
	"github.com/alanyoungcy/positionbook/internal/service"
)

func newPositionCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "position",
		Aliases: []string{"positions", "pos"},
		Short:   "Inspect and manage positions",
	}
	cmd.AddCommand(
		newPositionShowCmd(opts),
		newPositionListCmd(opts),
		newPositionJournalCmd(opts),
		newPositionDeleteCmd(opts),
	)
	return cmd
}

func newPositionShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <position-id>",
		Short: "Show a position with its trades and current metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDeps(cmd.Context(), func(deps *app.Dependencies) error {
				view, err := deps.Positions.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				md := positionMarkdown(view, opts.cfg.Display.Currency)
				return render(cmd.OutOrStdout(), opts.output, md, view)
			})
		},
	}
}

func newPositionListCmd(opts *rootOptions) *cobra.Command {
	var (
		status string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List positions with their recomputed status and P&L",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := service.ListFilter{
				ListOpts: domain.ListOpts{Limit: limit, Offset: offset},
				Status:   domain.PositionStatus(strings.ToLower(status)),
			}
			if filter.Status != "" && !filter.Status.Valid() {
				return fmt.Errorf("unknown status %q (valid: planned, open, closed)", status)
			}

			return opts.withDeps(cmd.Context(), func(deps *app.Dependencies) error {
				views, err := deps.Positions.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				md := positionListMarkdown(views, opts.cfg.Display.Currency)
				return render(cmd.OutOrStdout(), opts.output, md, views)
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only positions in this status (planned|open|closed)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum positions to load")
	cmd.Flags().IntVar(&offset, "offset", 0, "positions to skip")
	return cmd
}

func newPositionJournalCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "journal <position-id>",
		Short: "List the journal entries of a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDeps(cmd.Context(), func(deps *app.Dependencies) error {
				entries, err := deps.Journal.ListByPosition(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.output, journalMarkdown(args[0], entries), entries)
			})
		},
	}
}

func newPositionDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <position-id>",
		Short: "Delete a position with its trades and journal entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDeps(cmd.Context(), func(deps *app.Dependencies) error {
				if err := deps.Positions.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted position %s\n", args[0])
				return err
			})
		},
	}
}

func positionMarkdown(v service.PositionView, currency string) string {
	p := v.Position
	m := v.Metrics

	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s (%s)\n\n", p.Symbol, p.StrategyType, p.Status)
	fmt.Fprintf(&b, "ID: `%s`  \nCreated: %s\n\n", p.ID, p.CreatedAt.Format(time.RFC3339))

	fmt.Fprintln(&b, "## Plan")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "| Field | Value |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Target entry | %s |\n", formatMoney(p.TargetEntryPrice, currency))
	fmt.Fprintf(&b, "| Target quantity | %s |\n", formatQty(p.TargetQuantity))
	fmt.Fprintf(&b, "| Profit target (%s) | %s |\n", p.ProfitTargetBasis, formatMoney(p.ProfitTarget, currency))
	fmt.Fprintf(&b, "| Stop loss (%s) | %s |\n", p.StopLossBasis, formatMoney(p.StopLoss, currency))
	if p.OptionType != nil && p.StrikePrice != nil && p.ExpirationDate != nil {
		fmt.Fprintf(&b, "| Contract | %s %s %s |\n", *p.OptionType,
			formatMoney(*p.StrikePrice, currency), p.ExpirationDate.Format(time.DateOnly))
	}
	if p.PositionThesis != "" {
		fmt.Fprintf(&b, "| Thesis | %s |\n", mdEscape(p.PositionThesis))
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "## Metrics")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "| Metric | Value |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Open quantity | %s |\n", formatQty(m.OpenQuantity))
	fmt.Fprintf(&b, "| Average cost | %s |\n", formatMoney(m.AvgCost, currency))
	fmt.Fprintf(&b, "| Cost basis | %s |\n", formatMoney(m.CostBasis, currency))
	fmt.Fprintf(&b, "| P&L | %s |\n", formatSignedMoney(m.PnL, currency))
	fmt.Fprintf(&b, "| P&L %% | %s |\n", formatPercent(m.PnLPercentage))

	if len(v.Prices) > 0 {
		syms := make([]string, 0, len(v.Prices))
		for s := range v.Prices {
			syms = append(syms, s)
		}
		sort.Strings(syms)
		parts := make([]string, 0, len(syms))
		for _, s := range syms {
			parts = append(parts, fmt.Sprintf("%s %s", s, formatMoney(v.Prices[s], currency)))
		}
		fmt.Fprintf(&b, "\nPrices: %s\n", strings.Join(parts, ", "))
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "## Trades")
	fmt.Fprintln(&b)
	if len(p.Trades) == 0 {
		fmt.Fprintln(&b, "No trades yet.")
		return b.String()
	}
	fmt.Fprintln(&b, "| Time | Direction | Quantity | Price | Underlying | Notes |")
	fmt.Fprintln(&b, "|:---|:---|---:|---:|:---|:---|")
	for _, t := range p.Trades {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			t.Timestamp.Format(time.RFC3339),
			t.Direction,
			formatQty(t.Quantity),
			formatMoney(t.Price, currency),
			t.Underlying,
			mdEscape(t.Notes),
		)
	}
	return b.String()
}

func positionListMarkdown(views []service.PositionView, currency string) string {
	var b strings.Builder
	fmt.Fprintln(&b, "# Positions")
	fmt.Fprintln(&b)
	if len(views) == 0 {
		fmt.Fprintln(&b, "No positions.")
		return b.String()
	}
	fmt.Fprintln(&b, "| ID | Symbol | Strategy | Status | Open qty | Cost basis | P&L | P&L % |")
	fmt.Fprintln(&b, "|:---|:---|:---|:---|---:|---:|---:|---:|")
	for _, v := range views {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			v.Position.ID,
			v.Position.Symbol,
			v.Position.StrategyType,
			v.Position.Status,
			formatQty(v.Metrics.OpenQuantity),
			formatMoney(v.Metrics.CostBasis, currency),
			formatSignedMoney(v.Metrics.PnL, currency),
			formatPercent(v.Metrics.PnLPercentage),
		)
	}
	return b.String()
}

func journalMarkdown(positionID string, entries []domain.JournalEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Journal for %s\n\n", positionID)
	if len(entries) == 0 {
		fmt.Fprintln(&b, "No journal entries.")
		return b.String()
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "## %s (%s)\n\n", e.EntryType, e.CreatedAt.Format(time.RFC3339))
		if e.TradeID != "" {
			fmt.Fprintf(&b, "Trade: `%s`\n\n", e.TradeID)
		}
		for _, f := range e.Fields {
			label := f.Prompt
			if label == "" {
				label = f.Name
			}
			fmt.Fprintf(&b, "- **%s**: %s\n", mdEscape(label), mdEscape(f.Response))
		}
		fmt.Fprintln(&b)
	}
	return b.String()
}
