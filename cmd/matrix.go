package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/buyawarranty/warranty-quote/internal/matrix"
	"github.com/buyawarranty/warranty-quote/internal/pricing"
	"github.com/buyawarranty/warranty-quote/internal/store"
)

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Manage the base price matrix",
	Long:  "Import, inspect, export and compare the period, excess and claim limit price matrix.",
}

// -- matrix import --

var matrixImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Validate a matrix file and store it as the active version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]
		sheet, _ := cmd.Flags().GetString("sheet")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		cells, _, err := matrix.ReadFile(path, sheet)
		if err != nil {
			return err
		}
		warnings, err := matrix.Validate(cells)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}

		diffs := pricing.Diff(pricing.NewStaticTable(), pricing.NewMatrixTable(cells, 0))
		if dryRun {
			fmt.Fprintf(os.Stderr, "%d cells valid, %d differ from the standard list. Nothing stored.\n", len(cells), len(diffs))
			return nil
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		v, err := st.SaveMatrix(ctx, filepath.Base(path), cells)
		if err != nil {
			return eris.Wrap(err, "matrix import")
		}
		zap.L().Info("matrix imported",
			zap.String("version", v.ID),
			zap.String("source", v.Source),
			zap.Int("cells", v.CellCount),
			zap.Int("changed", len(diffs)),
		)
		fmt.Fprintf(os.Stderr, "Stored version %s (%d cells, %d differ from the standard list).\n", truncateID(v.ID), v.CellCount, len(diffs))
		return nil
	},
}

// -- matrix show --

var matrixShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active price matrix",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Pricing.Source != "store" {
			resolver, err := initResolver(ctx, nil)
			if err != nil {
				return err
			}
			formatMatrix(os.Stdout, resolver.Table())
			return nil
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		v, err := st.ActiveMatrix(ctx)
		if err != nil {
			return eris.Wrap(err, "matrix show")
		}
		resolver, err := initResolver(ctx, st)
		if err != nil {
			return err
		}
		formatMatrixVersion(os.Stdout, v)
		formatMatrix(os.Stdout, resolver.Table())
		return nil
	},
}

// -- matrix export --

var matrixExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the active price matrix to .xlsx or .yaml",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		resolver, cleanup, err := cliResolver(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		table := resolver.Table()
		cells := pricing.CellsOf(table)
		path := args[0]
		switch strings.ToLower(filepath.Ext(path)) {
		case ".xlsx":
			err = matrix.WriteXLSX(path, cells)
		case ".yaml", ".yml":
			err = matrix.WriteYAML(path, cells, table.Fallback())
		default:
			err = eris.Errorf("unsupported file type %q", filepath.Ext(path))
		}
		if err != nil {
			return eris.Wrap(err, "matrix export")
		}
		fmt.Fprintf(os.Stderr, "Wrote %d cells to %s.\n", len(cells), path)
		return nil
	},
}

// -- matrix diff --

var matrixDiffCmd = &cobra.Command{
	Use:   "diff <file>",
	Short: "Compare a matrix file against the active price matrix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sheet, _ := cmd.Flags().GetString("sheet")

		cells, fallback, err := matrix.ReadFile(args[0], sheet)
		if err != nil {
			return err
		}

		resolver, cleanup, err := cliResolver(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		diffs := pricing.Diff(resolver.Table(), pricing.NewMatrixTable(cells, fallback))
		if len(diffs) == 0 {
			fmt.Fprintln(os.Stderr, "No differences.")
			return nil
		}
		formatDiffs(os.Stdout, diffs)
		return nil
	},
}

func init() {
	matrixImportCmd.Flags().String("sheet", "", "worksheet name for .xlsx files (default first sheet)")
	matrixImportCmd.Flags().Bool("dry-run", false, "validate without storing")
	matrixDiffCmd.Flags().String("sheet", "", "worksheet name for .xlsx files (default first sheet)")

	matrixCmd.AddCommand(matrixImportCmd)
	matrixCmd.AddCommand(matrixShowCmd)
	matrixCmd.AddCommand(matrixExportCmd)
	matrixCmd.AddCommand(matrixDiffCmd)
	rootCmd.AddCommand(matrixCmd)
}

// formatMatrix writes one block per period, excess rows by claim limit columns.
func formatMatrix(out io.Writer, t pricing.Table) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, p := range pricing.Periods {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		_, _ = fmt.Fprintf(w, "%s\n", p)
		header := []string{"EXCESS"}
		for _, l := range pricing.ClaimLimits {
			header = append(header, pricing.FormatGBP(l))
		}
		_, _ = fmt.Fprintln(w, strings.Join(header, "\t"))
		for _, e := range pricing.Excesses {
			row := []string{pricing.FormatGBP(e)}
			for _, l := range pricing.ClaimLimits {
				if price, ok := t.Lookup(p, e, l); ok {
					row = append(row, pricing.FormatGBP(price))
				} else {
					row = append(row, "-")
				}
			}
			_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
		}
	}
	_, _ = fmt.Fprintf(w, "\nFallback:\t%s\n", pricing.FormatGBP(t.Fallback()))
	_ = w.Flush()
}

func formatMatrixVersion(out io.Writer, v *store.MatrixVersion) {
	_, _ = fmt.Fprintf(out, "Version %s from %s, %d cells, stored %s\n\n",
		truncateID(v.ID), v.Source, v.CellCount, v.CreatedAt.Format("2006-01-02 15:04"))
}

// formatDiffs lists changed cells; a "-" marks a cell missing on that side.
func formatDiffs(out io.Writer, diffs []pricing.CellDiff) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PERIOD\tEXCESS\tLIMIT\tCURRENT\tFILE\tCHANGE")
	for _, d := range diffs {
		change := "-"
		if d.Left > 0 && d.Right > 0 {
			change = fmt.Sprintf("%+d", d.Right-d.Left)
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			d.Key.Period.Months(),
			pricing.FormatGBP(d.Key.Excess),
			pricing.FormatGBP(d.Key.ClaimLimit),
			priceOrDash(d.Left),
			priceOrDash(d.Right),
			change,
		)
	}
	_ = w.Flush()
}

func priceOrDash(p int) string {
	if p <= 0 {
		return "-"
	}
	return pricing.FormatGBP(p)
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
