package cli

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/positionbook/internal/app"
)

func newPriceCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "price",
		Aliases: []string{"prices"},
		Short:   "Read and set latest prices",
	}
	cmd.AddCommand(newPriceGetCmd(opts), newPriceSetCmd(opts))
	return cmd
}

func newPriceGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <symbol>...",
		Short: "Show the latest known price of each symbol",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDeps(cmd.Context(), func(deps *app.Dependencies) error {
				snap, err := deps.Prices.Snapshot(cmd.Context(), args)
				if err != nil {
					return err
				}

				var b strings.Builder
				fmt.Fprintln(&b, "| Symbol | Price |")
				fmt.Fprintln(&b, "|:---|---:|")
				syms := append([]string(nil), args...)
				sort.Strings(syms)
				for _, s := range syms {
					price := "n/a"
					if p, ok := snap[s]; ok {
						price = formatMoney(p, opts.cfg.Display.Currency)
					}
					fmt.Fprintf(&b, "| %s | %s |\n", s, price)
				}
				return render(cmd.OutOrStdout(), opts.output, b.String(), snap)
			})
		},
	}
}

func newPriceSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <symbol> <price>",
		Short: "Record a price for a symbol",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := strconv.ParseFloat(args[1], 64)
			if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
				return fmt.Errorf("bad price %q: must be a positive number", args[1])
			}
			return opts.withDeps(cmd.Context(), func(deps *app.Dependencies) error {
				if err := deps.Prices.SetPrice(cmd.Context(), args[0], price, time.Now().UTC()); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], formatMoney(price, opts.cfg.Display.Currency))
				return err
			})
		},
	}
}
