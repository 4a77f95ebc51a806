package pricing

import "encoding/json"

// AddOn is a generic add-on flag, charged at a flat monthly rate.
type AddOn uint8

const (
	AddOnEuropeanCover AddOn = 1 << iota
	AddOnTransfer
	AddOnWearAndTear
	AddOnConsequential
)

// AddOnMonthlyRate is the per-month surcharge of each active generic add-on.
const AddOnMonthlyRate = 2

var addOnNames = map[AddOn]string{
	AddOnEuropeanCover: "europeanCover",
	AddOnTransfer:      "transfer",
	AddOnWearAndTear:   "wearAndTear",
	AddOnConsequential: "consequential",
}

// AllAddOns lists the generic add-ons in bit order.
var AllAddOns = []AddOn{AddOnEuropeanCover, AddOnTransfer, AddOnWearAndTear, AddOnConsequential}

func (a AddOn) String() string {
	if name, ok := addOnNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseAddOn looks up a generic add-on by its funnel flag name.
func ParseAddOn(name string) (AddOn, bool) {
	for a, n := range addOnNames {
		if n == name {
			return a, true
		}
	}
	return 0, false
}

// AddOnSet is a set of generic add-ons.
type AddOnSet uint8

// Has reports whether a is in the set.
func (s AddOnSet) Has(a AddOn) bool { return s&AddOnSet(a) != 0 }

// With returns the set with a added.
func (s AddOnSet) With(a AddOn) AddOnSet { return s | AddOnSet(a) }

// Without returns the set with a removed.
func (s AddOnSet) Without(a AddOn) AddOnSet { return s &^ AddOnSet(a) }

// Toggle flips a.
func (s AddOnSet) Toggle(a AddOn) AddOnSet { return s ^ AddOnSet(a) }

// Len counts the active add-ons.
func (s AddOnSet) Len() int {
	n := 0
	for _, a := range AllAddOns {
		if s.Has(a) {
			n++
		}
	}
	return n
}

// Names returns the active flag names in bit order.
func (s AddOnSet) Names() []string {
	names := []string{}
	for _, a := range AllAddOns {
		if s.Has(a) {
			names = append(names, a.String())
		}
	}
	return names
}

// AddOnSetFromFlags builds a set from the funnel's boolean flag map. Unknown
// and false flags are ignored.
func AddOnSetFromFlags(flags map[string]bool) AddOnSet {
	var s AddOnSet
	for name, on := range flags {
		if a, ok := ParseAddOn(name); ok && on {
			s = s.With(a)
		}
	}
	return s
}

// Flags returns the set as the funnel's boolean flag map.
func (s AddOnSet) Flags() map[string]bool {
	flags := make(map[string]bool, len(AllAddOns))
	for _, a := range AllAddOns {
		flags[a.String()] = s.Has(a)
	}
	return flags
}

// MarshalJSON encodes the set as a flag map.
func (s AddOnSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Flags())
}

// UnmarshalJSON decodes a flag map.
func (s *AddOnSet) UnmarshalJSON(data []byte) error {
	var flags map[string]bool
	if err := json.Unmarshal(data, &flags); err != nil {
		return err
	}
	*s = AddOnSetFromFlags(flags)
	return nil
}

// AddOnPrice is the charge for generic add-ons over a term:
// active count × monthly rate × months.
func AddOnPrice(selected AddOnSet, durationMonths int) int {
	if durationMonths < 0 {
		durationMonths = 0
	}
	return selected.Len() * AddOnMonthlyRate * durationMonths
}

// Protection is a protection add-on flag. Some periods include a subset of
// these automatically at no charge.
type Protection uint8

const (
	ProtectionBreakdown Protection = 1 << iota
	ProtectionMOTFee
	ProtectionTyre
	ProtectionRental
)

var protectionNames = map[Protection]string{
	ProtectionBreakdown: "breakdown",
	ProtectionMOTFee:    "motFee",
	ProtectionTyre:      "tyre",
	ProtectionRental:    "rental",
}

// AllProtections lists protection add-ons in bit order.
var AllProtections = []Protection{ProtectionBreakdown, ProtectionMOTFee, ProtectionTyre, ProtectionRental}

func (p Protection) String() string {
	if name, ok := protectionNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParseProtection looks up a protection add-on by its funnel flag name.
func ParseProtection(name string) (Protection, bool) {
	for p, n := range protectionNames {
		if n == name {
			return p, true
		}
	}
	return 0, false
}

// ProtectionSet is a set of protection add-ons.
type ProtectionSet uint8

// Has reports whether p is in the set.
func (s ProtectionSet) Has(p Protection) bool { return s&ProtectionSet(p) != 0 }

// With returns the set with p added.
func (s ProtectionSet) With(p Protection) ProtectionSet { return s | ProtectionSet(p) }

// Without returns the set with p removed.
func (s ProtectionSet) Without(p Protection) ProtectionSet { return s &^ ProtectionSet(p) }

// Union returns s ∪ o.
func (s ProtectionSet) Union(o ProtectionSet) ProtectionSet { return s | o }

// Minus returns s \ o.
func (s ProtectionSet) Minus(o ProtectionSet) ProtectionSet { return s &^ o }

// Names returns the active flag names in bit order.
func (s ProtectionSet) Names() []string {
	names := []string{}
	for _, p := range AllProtections {
		if s.Has(p) {
			names = append(names, p.String())
		}
	}
	return names
}

// ProtectionSetFromFlags builds a set from a boolean flag map.
func ProtectionSetFromFlags(flags map[string]bool) ProtectionSet {
	var s ProtectionSet
	for name, on := range flags {
		if p, ok := ParseProtection(name); ok && on {
			s = s.With(p)
		}
	}
	return s
}

// Flags returns the set as a boolean flag map.
func (s ProtectionSet) Flags() map[string]bool {
	flags := make(map[string]bool, len(AllProtections))
	for _, p := range AllProtections {
		flags[p.String()] = s.Has(p)
	}
	return flags
}

// MarshalJSON encodes the set as a flag map.
func (s ProtectionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Flags())
}

// UnmarshalJSON decodes a flag map.
func (s *ProtectionSet) UnmarshalJSON(data []byte) error {
	var flags map[string]bool
	if err := json.Unmarshal(data, &flags); err != nil {
		return err
	}
	*s = ProtectionSetFromFlags(flags)
	return nil
}

// autoIncluded is the protection cover bundled with each period.
var autoIncluded = map[Period]ProtectionSet{
	Period12: 0,
	Period24: ProtectionSet(ProtectionMOTFee | ProtectionRental),
	Period36: ProtectionSet(ProtectionBreakdown | ProtectionMOTFee | ProtectionRental | ProtectionTyre),
}

// AutoIncluded returns the protection add-ons a period includes for free.
// Unsupported periods include nothing.
func AutoIncluded(period Period) ProtectionSet {
	return autoIncluded[period]
}

// protectionPrices holds whole-term prices of protection add-ons (GBP).
var protectionPrices = map[Protection]map[Period]int{
	ProtectionBreakdown: {Period12: 60, Period24: 110, Period36: 150},
	ProtectionMOTFee:    {Period12: 45, Period24: 85, Period36: 120},
	ProtectionTyre:      {Period12: 96, Period24: 180, Period36: 252},
	ProtectionRental:    {Period12: 72, Period24: 132, Period36: 180},
}

// ProtectionUnitPrice returns the whole-term price of one protection add-on,
// or zero for an unsupported period.
func ProtectionUnitPrice(p Protection, period Period) int {
	return protectionPrices[p][period]
}

// ProtectionPrice charges the active protection add-ons the period does not
// already include.
func ProtectionPrice(active ProtectionSet, period Period) int {
	chargeable := active.Minus(AutoIncluded(period))
	total := 0
	for _, p := range AllProtections {
		if chargeable.Has(p) {
			total += ProtectionUnitPrice(p, period)
		}
	}
	return total
}

// ProtectionState separates protection flags the customer ticked from those
// the current period bundles. The active set is their union.
type ProtectionState struct {
	Manual ProtectionSet `json:"manual"`
	Auto   ProtectionSet `json:"auto"`
}

// NewProtectionState returns the state for a period with nothing ticked.
func NewProtectionState(period Period) ProtectionState {
	return ProtectionState{Auto: AutoIncluded(period)}
}

// Active returns every protection add-on in force.
func (s ProtectionState) Active() ProtectionSet {
	return s.Manual.Union(s.Auto)
}

// Chargeable returns manual flags not covered by the bundle.
func (s ProtectionState) Chargeable() ProtectionSet {
	return s.Manual.Minus(s.Auto)
}

// NextProtection moves a protection state to a new period: the previous
// bundle is dropped, the new period's bundle applied, and manual flags kept.
func NextProtection(s ProtectionState, newPeriod Period) ProtectionState {
	return ProtectionState{Manual: s.Manual, Auto: AutoIncluded(newPeriod)}
}

// Toggle flips a manual flag. Flags bundled with the period cannot be
// switched off, so toggling them is a no-op.
func (s ProtectionState) Toggle(p Protection) ProtectionState {
	if s.Auto.Has(p) {
		return s
	}
	if s.Manual.Has(p) {
		s.Manual = s.Manual.Without(p)
	} else {
		s.Manual = s.Manual.With(p)
	}
	return s
}

