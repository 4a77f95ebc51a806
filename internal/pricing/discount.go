package pricing

// multiYearDiscounts are flat deductions (GBP) for longer terms.
var multiYearDiscounts = map[Period]int{
	Period24: 100,
	Period36: 200,
}

// DiscountFor returns the flat discount for a period. Twelve-month and
// unsupported periods get none.
func DiscountFor(period Period) int {
	return multiYearDiscounts[period]
}

// ApplyDiscount subtracts the period's flat discount once from the combined
// total. The result is never negative.
func ApplyDiscount(totalBeforeDiscount int, period Period) int {
	total := totalBeforeDiscount - DiscountFor(period)
	if total < 0 {
		return 0
	}
	return total
}
