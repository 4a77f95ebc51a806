package matrix

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/buyawarranty/warranty-quote/internal/config"
	"github.com/buyawarranty/warranty-quote/internal/pricing"
)

// Source provides a stored pricing matrix.
type Source interface {
	LoadMatrix(ctx context.Context) ([]pricing.Cell, error)
}

// Validate rejects cells with unsupported dimensions, non-positive prices or
// duplicate keys. Supported triples the matrix leaves out are returned as
// warnings because they will price at the fallback.
func Validate(cells []pricing.Cell) (warnings []string, err error) {
	if len(cells) == 0 {
		return nil, eris.New("matrix: no cells")
	}

	seen := make(map[pricing.Key]bool, len(cells))
	for _, c := range cells {
		switch {
		case !c.Period.Valid():
			return nil, eris.Errorf("matrix: unsupported period %d", c.Period)
		case !pricing.ValidExcess(c.Excess):
			return nil, eris.Errorf("matrix: unsupported excess %d", c.Excess)
		case !pricing.ValidClaimLimit(c.ClaimLimit):
			return nil, eris.Errorf("matrix: unsupported claim limit %d", c.ClaimLimit)
		case c.Price <= 0:
			return nil, eris.Errorf("matrix: non-positive price %d for %d/%d/%d", c.Price, c.Period, c.Excess, c.ClaimLimit)
		case seen[c.Key()]:
			return nil, eris.Errorf("matrix: duplicate cell %d/%d/%d", c.Period, c.Excess, c.ClaimLimit)
		}
		seen[c.Key()] = true
	}

	for _, p := range pricing.Periods {
		for _, e := range pricing.Excesses {
			for _, l := range pricing.ClaimLimits {
				if !seen[pricing.Key{Period: p, Excess: e, ClaimLimit: l}] {
					warnings = append(warnings, fmt.Sprintf("missing cell %d/%d/%d", p, e, l))
				}
			}
		}
	}
	return warnings, nil
}

// ReadFile reads a matrix file by extension: .xlsx or .yaml/.yml. The
// returned fallback is zero unless the file sets one.
func ReadFile(path, sheet string) ([]pricing.Cell, int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		cells, err := ReadXLSX(path, sheet)
		return cells, 0, err
	case ".yaml", ".yml":
		doc, err := ReadYAML(path)
		if err != nil {
			return nil, 0, err
		}
		return doc.Cells(), doc.FallbackPrice, nil
	default:
		return nil, 0, eris.Errorf("matrix: unsupported file type %q", filepath.Ext(path))
	}
}

// Load builds the pricing table selected by cfg.Source. src is only used
// for the "store" source and may be nil otherwise.
func Load(ctx context.Context, cfg config.PricingConfig, src Source) (pricing.Table, error) {
	switch cfg.Source {
	case "", "static":
		return pricing.NewStaticTable().WithFallback(cfg.FallbackPrice), nil

	case "file":
		cells, fallback, err := ReadFile(cfg.MatrixPath, cfg.MatrixSheet)
		if err != nil {
			return nil, err
		}
		if fallback <= 0 {
			fallback = cfg.FallbackPrice
		}
		return build(cells, fallback, cfg.MatrixPath)

	case "store":
		if src == nil {
			return nil, eris.New("matrix: store source requires a store")
		}
		cells, err := src.LoadMatrix(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "matrix: load from store")
		}
		return build(cells, cfg.FallbackPrice, "store")

	default:
		return nil, eris.Errorf("matrix: unsupported pricing source %q", cfg.Source)
	}
}

func build(cells []pricing.Cell, fallback int, origin string) (*pricing.MatrixTable, error) {
	warnings, err := Validate(cells)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		zap.L().Warn("matrix: incomplete pricing matrix", zap.String("origin", origin), zap.String("detail", w))
	}

	table := pricing.NewMatrixTable(cells, fallback)
	if diffs := pricing.Diff(pricing.NewStaticTable(), table); len(diffs) > 0 {
		zap.L().Info("matrix: prices differ from the standard list",
			zap.String("origin", origin),
			zap.Int("cells", len(diffs)),
		)
	}
	zap.L().Info("matrix: pricing table loaded",
		zap.String("origin", origin),
		zap.Int("cells", table.Len()),
		zap.Int("fallback", table.Fallback()),
	)
	return table, nil
}
