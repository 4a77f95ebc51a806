package pricing

import (
	"math"

	"github.com/buyawarranty/warranty-quote/internal/model"
)

// MonthsPerDisplayYear is the divisor for the "per month" figure. It is 12
// for every term, so a 36-month quote shows the full three-year cost over 12.
const MonthsPerDisplayYear = 12

// Quote is the price shown for a selection.
type Quote struct {
	Period     Period            `json:"paymentPeriod"`
	Excess     int               `json:"voluntaryExcess"`
	ClaimLimit int               `json:"claimLimit"`
	Category   model.VehicleType `json:"vehicleCategory"`

	BasePrice         int `json:"basePrice"`
	VehicleAdjustment int `json:"vehicleAdjustment"`
	AddOnPrice        int `json:"addOnPrice"`
	ProtectionPrice   int `json:"protectionPrice"`
	Discount          int `json:"discount"`

	TotalPrice    int `json:"totalPrice"`
	MonthlyPrice  int `json:"monthlyPrice"`
	OriginalPrice int `json:"originalPrice"`
	Savings       int `json:"savings"`

	SelectedAddOns   []string `json:"selectedAddOns"`
	ProtectionAddOns []string `json:"protectionAddOns"`
	IncludedAddOns   []string `json:"includedAddOns"`

	// Fallback is set when the table had no cell for the triple.
	Fallback bool `json:"fallback"`
}

// Resolver computes quotes against a price table. It holds no mutable state
// and is safe for concurrent use.
type Resolver struct {
	table Table
}

// NewResolver creates a Resolver. A nil table selects the static table.
func NewResolver(table Table) *Resolver {
	if table == nil {
		table = NewStaticTable()
	}
	return &Resolver{table: table}
}

// Table returns the resolver's price table.
func (r *Resolver) Table() Table {
	return r.table
}

// Resolve prices a selection for a vehicle. v may be nil when the
// registration lookup was skipped. Resolve never fails: unmapped cells price
// at the table's fallback.
func (r *Resolver) Resolve(sel Selection, v *model.VehicleData) Quote {
	months := sel.Period.Months()
	category := CategoryOf(v)

	base, found := lookupBasePrice(r.table, sel.Period, sel.Excess, sel.ClaimLimit)
	adjustment := adjustmentAmount(base, category, sel.Period.Years())
	addOns := AddOnPrice(sel.AddOns, months)
	bundled := AutoIncluded(sel.Period)
	protection := ProtectionPrice(sel.Protection.Manual.Union(bundled), sel.Period)

	raw := base + adjustment + addOns + protection
	total := ApplyDiscount(raw, sel.Period)

	return Quote{
		Period:     sel.Period,
		Excess:     sel.Excess,
		ClaimLimit: sel.ClaimLimit,
		Category:   category,

		BasePrice:         base,
		VehicleAdjustment: adjustment,
		AddOnPrice:        addOns,
		ProtectionPrice:   protection,
		Discount:          raw - total,

		TotalPrice:    total,
		MonthlyPrice:  MonthlyPrice(total),
		OriginalPrice: total + DiscountFor(sel.Period),
		Savings:       r.savings(sel, total),

		SelectedAddOns:   sel.AddOns.Names(),
		ProtectionAddOns: sel.Protection.Manual.Minus(bundled).Names(),
		IncludedAddOns:   bundled.Names(),

		Fallback: !found,
	}
}

// MonthlyPrice returns the displayed per-month figure for a term total.
func MonthlyPrice(totalPrice int) int {
	return int(math.Round(float64(totalPrice) / MonthsPerDisplayYear))
}

// savingsMultipliers scale the 12-month base to the length of longer terms.
var savingsMultipliers = map[Period]int{
	Period24: 2,
	Period36: 3,
}

// savings compares a multi-year total against buying the 12-month base
// price for the same excess and claim limit once per year.
func (r *Resolver) savings(sel Selection, total int) int {
	mult, ok := savingsMultipliers[sel.Period]
	if !ok {
		return 0
	}
	yearly, found := r.table.Lookup(Period12, sel.Excess, sel.ClaimLimit)
	if !found {
		yearly = r.table.Fallback()
	}
	return max(0, yearly*mult-total)
}

// Grid prices every supported excess and claim limit for one period with
// the selection's add-ons, in table order.
func (r *Resolver) Grid(sel Selection, v *model.VehicleData) []Quote {
	quotes := make([]Quote, 0, len(Excesses)*len(ClaimLimits))
	for _, e := range Excesses {
		for _, l := range ClaimLimits {
			s := sel
			s.Excess = e
			s.ClaimLimit = l
			quotes = append(quotes, r.Resolve(s, v))
		}
	}
	return quotes
}
