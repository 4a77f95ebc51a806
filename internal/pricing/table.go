package pricing

import (
	"sort"

	"go.uber.org/zap"
)

// FallbackPrice is returned for any (period, excess, claim limit) triple the
// table does not define. Downstream reconciliation depends on this value.
const FallbackPrice = 467

// Cell is one entry of a pricing matrix.
type Cell struct {
	Period     Period `json:"period" yaml:"period" mapstructure:"period"`
	Excess     int    `json:"excess" yaml:"excess" mapstructure:"excess"`
	ClaimLimit int    `json:"claim_limit" yaml:"claim_limit" mapstructure:"claim_limit"`
	Price      int    `json:"price" yaml:"price" mapstructure:"price"`
}

// Key identifies a cell without its price.
type Key struct {
	Period     Period
	Excess     int
	ClaimLimit int
}

// Key returns the lookup key for c.
func (c Cell) Key() Key {
	return Key{Period: c.Period, Excess: c.Excess, ClaimLimit: c.ClaimLimit}
}

// Table looks up base prices. Lookup reports false when the cell is absent.
type Table interface {
	Lookup(period Period, excess, claimLimit int) (int, bool)
	Fallback() int
}

// BasePrice returns the table price for the triple, or the table's fallback
// price when the cell is missing. It never fails.
func BasePrice(t Table, period Period, excess, claimLimit int) int {
	price, _ := lookupBasePrice(t, period, excess, claimLimit)
	return price
}

func lookupBasePrice(t Table, period Period, excess, claimLimit int) (int, bool) {
	if price, ok := t.Lookup(period, excess, claimLimit); ok {
		return price, true
	}
	zap.L().Warn("pricing: table cell missing, using fallback price",
		zap.Int("period", int(period)),
		zap.Int("excess", excess),
		zap.Int("claim_limit", claimLimit),
		zap.Int("fallback", t.Fallback()),
	)
	return t.Fallback(), false
}

// standardPrices is the canonical price list, in GBP for the whole term.
// Rows are excess tiers; columns are the £750, £1250 and £2000 claim limits.
var standardPrices = map[Period]map[int][3]int{
	Period12: {
		0:   {497, 567, 627},
		50:  {467, 537, 597},
		100: {437, 507, 567},
		150: {407, 477, 537},
	},
	Period24: {
		0:   {947, 1087, 1207},
		50:  {887, 1027, 1147},
		100: {827, 967, 1087},
		150: {767, 907, 1027},
	},
	Period36: {
		0:   {1397, 1597, 1777},
		50:  {1307, 1507, 1687},
		100: {1217, 1417, 1597},
		150: {1127, 1327, 1507},
	},
}

// StaticTable serves the hardcoded canonical price list. The zero value
// falls back to FallbackPrice.
type StaticTable struct {
	fallback int
}

// NewStaticTable returns the canonical table.
func NewStaticTable() StaticTable {
	return StaticTable{}
}

// WithFallback returns the canonical table with a different fallback price.
// A non-positive price keeps FallbackPrice.
func (t StaticTable) WithFallback(price int) StaticTable {
	t.fallback = price
	return t
}

// Lookup implements Table.
func (StaticTable) Lookup(period Period, excess, claimLimit int) (int, bool) {
	byExcess, ok := standardPrices[period]
	if !ok {
		return 0, false
	}
	row, ok := byExcess[excess]
	if !ok {
		return 0, false
	}
	for i, limit := range ClaimLimits {
		if limit == claimLimit {
			return row[i], true
		}
	}
	return 0, false
}

// Fallback implements Table.
func (t StaticTable) Fallback() int {
	if t.fallback <= 0 {
		return FallbackPrice
	}
	return t.fallback
}

// StandardCells returns the canonical price list as matrix cells, ordered by
// period, excess and claim limit.
func StandardCells() []Cell {
	var cells []Cell
	for _, p := range Periods {
		for _, e := range Excesses {
			for i, l := range ClaimLimits {
				cells = append(cells, Cell{Period: p, Excess: e, ClaimLimit: l, Price: standardPrices[p][e][i]})
			}
		}
	}
	return cells
}

// MatrixTable is a data-driven table built from externally maintained cells.
type MatrixTable struct {
	prices   map[Key]int
	fallback int
}

// NewMatrixTable builds a table from cells. Later duplicates win. A
// non-positive fallback selects FallbackPrice.
func NewMatrixTable(cells []Cell, fallback int) *MatrixTable {
	if fallback <= 0 {
		fallback = FallbackPrice
	}
	prices := make(map[Key]int, len(cells))
	for _, c := range cells {
		prices[c.Key()] = c.Price
	}
	return &MatrixTable{prices: prices, fallback: fallback}
}

// Lookup implements Table.
func (m *MatrixTable) Lookup(period Period, excess, claimLimit int) (int, bool) {
	price, ok := m.prices[Key{Period: period, Excess: excess, ClaimLimit: claimLimit}]
	return price, ok
}

// Fallback implements Table.
func (m *MatrixTable) Fallback() int {
	return m.fallback
}

// Cells returns the matrix contents in period, excess, claim limit order.
func (m *MatrixTable) Cells() []Cell {
	cells := make([]Cell, 0, len(m.prices))
	for k, price := range m.prices {
		cells = append(cells, Cell{Period: k.Period, Excess: k.Excess, ClaimLimit: k.ClaimLimit, Price: price})
	}
	SortCells(cells)
	return cells
}

// Len returns the number of defined cells.
func (m *MatrixTable) Len() int {
	return len(m.prices)
}

// SortCells orders cells by period, excess, then claim limit.
func SortCells(cells []Cell) {
	sort.Slice(cells, func(i, j int) bool {
		a, b := cells[i], cells[j]
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		if a.Excess != b.Excess {
			return a.Excess < b.Excess
		}
		return a.ClaimLimit < b.ClaimLimit
	})
}

// Diff lists the cells where two tables disagree across all supported
// triples. Cells missing from one side are reported with a zero price there.
func Diff(a, b Table) []CellDiff {
	var diffs []CellDiff
	for _, p := range Periods {
		for _, e := range Excesses {
			for _, l := range ClaimLimits {
				pa, oka := a.Lookup(p, e, l)
				pb, okb := b.Lookup(p, e, l)
				if oka == okb && pa == pb {
					continue
				}
				diffs = append(diffs, CellDiff{
					Key:   Key{Period: p, Excess: e, ClaimLimit: l},
					Left:  pa,
					Right: pb,
				})
			}
		}
	}
	return diffs
}

// CellDiff describes a disagreement between two tables.
type CellDiff struct {
	Key   Key
	Left  int
	Right int
}

// CellsOf lists the defined cells of any table in period, excess, claim
// limit order.
func CellsOf(t Table) []Cell {
	var cells []Cell
	for _, p := range Periods {
		for _, e := range Excesses {
			for _, l := range ClaimLimits {
				if price, ok := t.Lookup(p, e, l); ok {
					cells = append(cells, Cell{Period: p, Excess: e, ClaimLimit: l, Price: price})
				}
			}
		}
	}
	return cells
}
