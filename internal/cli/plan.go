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

func newPlanCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Create trade plans",
	}
	cmd.AddCommand(newPlanCreateCmd(opts))
	return cmd
}

func newPlanCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		in          service.PlanInput
		strategy    string
		profitBasis string
		stopBasis   string
		optionType  string
		strike      float64
		expiration  string
		premium     float64
		fields      []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a planned position together with its plan journal entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in.StrategyType = domain.StrategyType(strategy)
			in.ProfitTargetBasis = domain.TargetBasis(profitBasis)
			in.StopLossBasis = domain.TargetBasis(stopBasis)

			if optionType != "" {
				ot := domain.OptionType(strings.ToLower(optionType))
				in.OptionType = &ot
			}
			if cmd.Flags().Changed("strike") {
				in.StrikePrice = &strike
			}
			if cmd.Flags().Changed("premium") {
				in.PremiumPerContract = &premium
			}
			if expiration != "" {
				exp, err := time.Parse(time.DateOnly, expiration)
				if err != nil {
					return fmt.Errorf("bad --expiration: %w", err)
				}
				in.ExpirationDate = &exp
			}

			parsed, err := parseJournalFields(fields)
			if err != nil {
				return err
			}
			in.JournalFields = parsed

			return opts.withDeps(cmd.Context(), func(deps *app.Dependencies) error {
				res, err := deps.Plans.CreatePositionWithJournal(cmd.Context(), in)
				if err != nil {
					return err
				}
				md := fmt.Sprintf("# Plan created\n\nPosition: `%s`  \nJournal entry: `%s`\n",
					res.Position.ID, res.Journal.ID)
				return render(cmd.OutOrStdout(), opts.output, md, res)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Symbol, "symbol", "", "underlying ticker")
	f.StringVar(&strategy, "strategy", string(domain.StrategyLongStock), `strategy type ("Long Stock" or "Short Put")`)
	f.Float64Var(&in.TargetEntryPrice, "entry", 0, "target entry price")
	f.Float64Var(&in.TargetQuantity, "quantity", 0, "target quantity")
	f.Float64Var(&in.ProfitTarget, "profit-target", 0, "profit target price")
	f.Float64Var(&in.StopLoss, "stop-loss", 0, "stop loss price")
	f.StringVar(&profitBasis, "profit-basis", string(domain.TargetBasisStockPrice), "profit target basis (stock_price|option_price)")
	f.StringVar(&stopBasis, "stop-basis", string(domain.TargetBasisStockPrice), "stop loss basis (stock_price|option_price)")
	f.StringVar(&in.PositionThesis, "thesis", "", "why this position is taken")
	f.StringVar(&optionType, "option-type", "", "option contract type (call|put)")
	f.Float64Var(&strike, "strike", 0, "option strike price")
	f.StringVar(&expiration, "expiration", "", "option expiration date (YYYY-MM-DD)")
	f.Float64Var(&premium, "premium", 0, "premium per contract")
	f.StringArrayVar(&fields, "field", nil, "journal answer as name=response (repeatable)")
	_ = cmd.MarkFlagRequired("symbol")
	return cmd
}

// parseJournalFields turns name=response pairs into journal fields.
func parseJournalFields(pairs []string) ([]domain.JournalField, error) {
	out := make([]domain.JournalField, 0, len(pairs))
	for _, pair := range pairs {
		name, response, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("bad --field %q: want name=response", pair)
		}
		out = append(out, domain.JournalField{Name: name, Response: strings.TrimSpace(response)})
	}
	return out, nil
}
