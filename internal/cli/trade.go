package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/positionbook/internal/app"
	"github.com/alanyoungcy/positionbook/internal/domain"
	"github.com/alanyoungcy/positionbook/internal/service"
)

func newTradeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Record trades against positions",
	}
	cmd.AddCommand(newTradeAddCmd(opts))
	return cmd
}

func newTradeAddCmd(opts *rootOptions) *cobra.Command {
	var (
		in        service.TradeInput
		direction string
		at        string
		fields    []string
	)

	cmd := &cobra.Command{
		Use:   "add <position-id>",
		Short: "Append a buy or sell to a position's trade log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Direction = domain.TradeDirection(strings.ToLower(direction))
			if at != "" {
				ts, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("bad --at: %w", err)
				}
				in.Timestamp = &ts
			}
			parsed, err := parseJournalFields(fields)
			if err != nil {
				return err
			}
			in.JournalFields = parsed

			return opts.withDeps(cmd.Context(), func(deps *app.Dependencies) error {
				trade, err := deps.Positions.RecordTrade(cmd.Context(), args[0], in)
				if err != nil {
					return err
				}
				md := fmt.Sprintf("# Trade recorded\n\n%s %s %s @ %s  \nTrade: `%s`\n",
					trade.Direction,
					formatQty(trade.Quantity),
					trade.Underlying,
					formatMoney(trade.Price, opts.cfg.Display.Currency),
					trade.ID,
				)
				return render(cmd.OutOrStdout(), opts.output, md, trade)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&direction, "direction", "", "buy or sell")
	f.Float64Var(&in.Quantity, "quantity", 0, "shares or contracts")
	f.Float64Var(&in.Price, "price", 0, "execution price")
	f.StringVar(&in.Underlying, "underlying", "", "symbol the trade is priced against (defaults to the position's)")
	f.StringVar(&in.Notes, "notes", "", "free-form notes")
	f.StringVar(&at, "at", "", "execution time (RFC 3339, defaults to now)")
	f.StringArrayVar(&fields, "field", nil, "trade journal answer as name=response (repeatable)")
	_ = cmd.MarkFlagRequired("direction")
	_ = cmd.MarkFlagRequired("quantity")
	return cmd
}
