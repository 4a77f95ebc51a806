package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/buyawarranty/warranty-quote/internal/model"
	"github.com/buyawarranty/warranty-quote/internal/pricing"
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a single plan selection",
	Long:  "Resolves the total, monthly, original price and savings for one period, excess and claim limit.",
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

		q := resolver.Resolve(sel, v)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(q)
		}
		formatQuote(os.Stdout, q)
		return nil
	},
}

// cliResolver opens the store only when prices come from it.
func cliResolver(ctx context.Context) (*pricing.Resolver, func(), error) {
	if cfg.Pricing.Source != "store" {
		r, err := initResolver(ctx, nil)
		return r, func() {}, err
	}
	st, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	r, err := initResolver(ctx, st)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, nil, err
	}
	return r, func() { st.Close() }, nil //nolint:errcheck
}

func addSelectionFlags(fs *pflag.FlagSet) {
	fs.Int("period", int(pricing.DefaultPeriod), "coverage period in months (12, 24, 36)")
	fs.Int("excess", pricing.DefaultExcess, "voluntary excess (0, 50, 100, 150)")
	fs.Int("claim-limit", pricing.DefaultClaimLimit, "claim limit (750, 1250, 2000)")
	fs.StringSlice("addon", nil, "add-on to include (europeanCover, transfer, wearAndTear, consequential)")
	fs.StringSlice("protection", nil, "protection add-on to include (breakdown, motFee, tyre, rental)")
}

func addVehicleFlags(fs *pflag.FlagSet) {
	fs.String("reg", "", "vehicle registration")
	fs.Int("mileage", 0, "vehicle mileage")
	fs.String("make", "", "vehicle make")
	fs.String("fuel", "", "fuel type as reported by the lookup")
	fs.String("vehicle-type", "", "vehicle category override (EV, PHEV, MOTORBIKE, VAN, PERFORMANCE)")
}

// selectionFromFlags validates the selection flags and builds a selection.
// Unknown add-on names are rejected rather than silently dropped.
func selectionFromFlags(fs *pflag.FlagSet) (pricing.Selection, error) {
	period, _ := fs.GetInt("period")
	excess, _ := fs.GetInt("excess")
	limit, _ := fs.GetInt("claim-limit")
	addOns, _ := fs.GetStringSlice("addon")
	protections, _ := fs.GetStringSlice("protection")

	p := pricing.Period(period)
	if !p.Valid() {
		return pricing.Selection{}, eris.Errorf("unsupported period %d", period)
	}
	if !pricing.ValidExcess(excess) {
		return pricing.Selection{}, eris.Errorf("unsupported excess %d", excess)
	}
	if !pricing.ValidClaimLimit(limit) {
		return pricing.Selection{}, eris.Errorf("unsupported claim limit %d", limit)
	}

	addOnFlags := make(map[string]bool, len(addOns))
	for _, name := range addOns {
		if _, ok := pricing.ParseAddOn(name); !ok {
			return pricing.Selection{}, eris.Errorf("unknown add-on %q", name)
		}
		addOnFlags[name] = true
	}
	protectionFlags := make(map[string]bool, len(protections))
	for _, name := range protections {
		if _, ok := pricing.ParseProtection(name); !ok {
			return pricing.Selection{}, eris.Errorf("unknown protection add-on %q", name)
		}
		protectionFlags[name] = true
	}
	return pricing.NewSelection(p, excess, limit, addOnFlags, protectionFlags), nil
}

// vehicleFromFlags returns nil when no vehicle details were given.
func vehicleFromFlags(fs *pflag.FlagSet) *model.VehicleData {
	reg, _ := fs.GetString("reg")
	mileage, _ := fs.GetInt("mileage")
	mk, _ := fs.GetString("make")
	fuel, _ := fs.GetString("fuel")
	vt, _ := fs.GetString("vehicle-type")
	if reg == "" && mileage == 0 && mk == "" && fuel == "" && vt == "" {
		return nil
	}
	v := &model.VehicleData{RegNumber: reg, Mileage: mileage, Make: mk, FuelType: fuel}
	if vt != "" {
		v.VehicleType = model.ParseVehicleType(vt)
	}
	return v
}

// formatQuote writes a price breakdown to w.
func formatQuote(out io.Writer, q pricing.Quote) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Plan:\t%s, %s excess, %s claim limit\n", q.Period, pricing.FormatGBP(q.Excess), pricing.FormatGBP(q.ClaimLimit))
	_, _ = fmt.Fprintf(w, "Vehicle category:\t%s\n", q.Category)
	_, _ = fmt.Fprintf(w, "Base price:\t%s\n", pricing.FormatGBP(q.BasePrice))
	if q.VehicleAdjustment != 0 {
		_, _ = fmt.Fprintf(w, "Vehicle adjustment:\t%s\n", pricing.FormatGBP(q.VehicleAdjustment))
	}
	if q.AddOnPrice > 0 {
		_, _ = fmt.Fprintf(w, "Add-ons (%s):\t%s\n", strings.Join(q.SelectedAddOns, ", "), pricing.FormatGBP(q.AddOnPrice))
	}
	if q.ProtectionPrice > 0 {
		_, _ = fmt.Fprintf(w, "Protection (%s):\t%s\n", strings.Join(q.ProtectionAddOns, ", "), pricing.FormatGBP(q.ProtectionPrice))
	}
	if len(q.IncludedAddOns) > 0 {
		_, _ = fmt.Fprintf(w, "Included:\t%s\n", strings.Join(q.IncludedAddOns, ", "))
	}
	if q.Discount > 0 {
		_, _ = fmt.Fprintf(w, "Discount:\t-%s\n", pricing.FormatGBP(q.Discount))
	}
	_, _ = fmt.Fprintf(w, "Total:\t%s\n", pricing.FormatGBP(q.TotalPrice))
	_, _ = fmt.Fprintf(w, "Monthly:\t%s\n", pricing.FormatMonthly(q.MonthlyPrice))
	if q.Savings > 0 {
		_, _ = fmt.Fprintf(w, "Was:\t%s (save %s)\n", pricing.FormatGBP(q.OriginalPrice), pricing.FormatGBP(q.Savings))
	}
	if q.Fallback {
		_, _ = fmt.Fprintln(w, "Note:\tno table price for this combination, fallback price used")
	}
	_ = w.Flush()
}

func init() {
	addSelectionFlags(quoteCmd.Flags())
	addVehicleFlags(quoteCmd.Flags())
	quoteCmd.Flags().Bool("json", false, "print the quote as JSON")
	rootCmd.AddCommand(quoteCmd)
}
