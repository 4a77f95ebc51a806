package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/buyawarranty/warranty-quote/internal/pricing"
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Show prices for every excess and claim limit",
	Long:  "Prints the total and monthly price of each excess and claim limit combination for one period, with the selected add-ons and vehicle applied.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		sel, err := selectionFromFlags(cmd.Flags())
		if err != nil {
			return err
		}
		v := vehicleFromFlags(cmd.Flags())

		resolver, cleanup, err := cliResolver(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		formatGrid(os.Stdout, resolver.Grid(sel, v))
		return nil
	},
}

// formatGrid writes one row per excess and one column per claim limit.
func formatGrid(out io.Writer, quotes []pricing.Quote) {
	if len(quotes) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	header := []string{"EXCESS"}
	for _, l := range pricing.ClaimLimits {
		header = append(header, "LIMIT "+pricing.FormatGBP(l))
	}
	_, _ = fmt.Fprintf(w, "%s (%s)\n", quotes[0].Period, quotes[0].Category)
	_, _ = fmt.Fprintln(w, strings.Join(header, "\t"))

	byKey := make(map[pricing.Key]pricing.Quote, len(quotes))
	for _, q := range quotes {
		byKey[pricing.Key{Period: q.Period, Excess: q.Excess, ClaimLimit: q.ClaimLimit}] = q
	}
	for _, e := range pricing.Excesses {
		row := []string{pricing.FormatGBP(e)}
		for _, l := range pricing.ClaimLimits {
			q, ok := byKey[pricing.Key{Period: quotes[0].Period, Excess: e, ClaimLimit: l}]
			if !ok {
				row = append(row, "-")
				continue
			}
			row = append(row, fmt.Sprintf("%s (%s)", pricing.FormatGBP(q.TotalPrice), pricing.FormatMonthly(q.MonthlyPrice)))
		}
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func init() {
	addSelectionFlags(gridCmd.Flags())
	addVehicleFlags(gridCmd.Flags())
	rootCmd.AddCommand(gridCmd)
}
