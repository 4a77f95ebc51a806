package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/buyawarranty/warranty-quote/internal/model"
)

// Adjustment is a vehicle-category price rule: a percentage of the base price
// applied once, plus a flat amount per warranty year.
type Adjustment struct {
	Percent decimal.Decimal
	PerYear int
}

// categoryAdjustments maps vehicle categories to their price rules.
// Standard vehicles have no entry and pass through unchanged.
var categoryAdjustments = map[model.VehicleType]Adjustment{
	model.VehicleTypeEV:          {Percent: decimal.RequireFromString("0.10")},
	model.VehicleTypePHEV:        {Percent: decimal.RequireFromString("0.05")},
	model.VehicleTypeMotorbike:   {Percent: decimal.RequireFromString("-0.20")},
	model.VehicleTypeVan:         {PerYear: 75},
	model.VehicleTypePerformance: {Percent: decimal.RequireFromString("0.25"), PerYear: 50},
}

// performanceMakes are priced as PERFORMANCE when the lookup gives no type.
var performanceMakes = map[string]bool{
	"ASTON MARTIN": true,
	"BENTLEY":      true,
	"FERRARI":      true,
	"LAMBORGHINI":  true,
	"LOTUS":        true,
	"MASERATI":     true,
	"MCLAREN":      true,
	"PORSCHE":      true,
}

// AdjustmentFor returns the rule for a category. Unknown categories get the
// zero Adjustment.
func AdjustmentFor(category model.VehicleType) Adjustment {
	return categoryAdjustments[category]
}

// CategoryOf derives the pricing category of a vehicle. An explicit
// non-standard VehicleType wins; otherwise fuel type and make decide.
// A nil vehicle (manual entry with no lookup) is standard.
func CategoryOf(v *model.VehicleData) model.VehicleType {
	if v == nil {
		return model.VehicleTypeStandard
	}
	if t := model.ParseVehicleType(string(v.VehicleType)); t != model.VehicleTypeStandard {
		return t
	}

	fuel := strings.ToUpper(strings.TrimSpace(v.FuelType))
	switch {
	case fuel == "ELECTRIC" || fuel == "ELECTRICITY":
		return model.VehicleTypeEV
	case strings.Contains(fuel, "PLUG-IN") || strings.Contains(fuel, "PHEV"):
		return model.VehicleTypePHEV
	}

	if performanceMakes[strings.ToUpper(strings.TrimSpace(v.Make))] {
		return model.VehicleTypePerformance
	}
	return model.VehicleTypeStandard
}

// AdjustForVehicle applies the vehicle's category rule to a base price for a
// term of the given number of years. The result is never negative.
func AdjustForVehicle(basePrice int, v *model.VehicleData, years int) int {
	return adjustmentAmount(basePrice, CategoryOf(v), years) + basePrice
}

// adjustmentAmount returns the signed surcharge (or discount) for a category,
// clamped so the adjusted price cannot drop below zero.
func adjustmentAmount(basePrice int, category model.VehicleType, years int) int {
	rule, ok := categoryAdjustments[category]
	if !ok {
		return 0
	}
	if years < 1 {
		years = 1
	}

	pct := decimal.NewFromInt(int64(basePrice)).Mul(rule.Percent).Round(0).IntPart()
	amount := int(pct) + rule.PerYear*years
	if basePrice+amount < 0 {
		return -basePrice
	}
	return amount
}
