// Package pricing resolves warranty quotes from a base price table, vehicle
// category adjustments, add-on surcharges and multi-year discounts.
package pricing

import "strconv"

// Period is a warranty term in months.
type Period int

const (
	Period12 Period = 12
	Period24 Period = 24
	Period36 Period = 36
)

// Periods lists the supported payment periods in display order.
var Periods = []Period{Period12, Period24, Period36}

// Excesses lists the supported voluntary excess tiers (GBP).
var Excesses = []int{0, 50, 100, 150}

// ClaimLimits lists the supported per-claim limits (GBP).
var ClaimLimits = []int{750, 1250, 2000}

// Valid reports whether p is one of the supported periods.
func (p Period) Valid() bool {
	switch p {
	case Period12, Period24, Period36:
		return true
	}
	return false
}

// Years returns the number of whole warranty years the period covers.
// Unsupported periods are rounded up to the next year, with a minimum of one.
func (p Period) Years() int {
	if p <= 12 {
		return 1
	}
	return (int(p) + 11) / 12
}

// Months returns the period as a month count.
func (p Period) Months() int {
	return int(p)
}

func (p Period) String() string {
	return strconv.Itoa(int(p)) + " months"
}

// ValidExcess reports whether excess is a supported tier.
func ValidExcess(excess int) bool {
	return contains(Excesses, excess)
}

// ValidClaimLimit reports whether limit is a supported tier.
func ValidClaimLimit(limit int) bool {
	return contains(ClaimLimits, limit)
}

func contains(vals []int, v int) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}
