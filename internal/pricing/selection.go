package pricing

// Selection is the customer's current plan choice. It is a value: every
// update returns a new Selection and leaves the original untouched.
type Selection struct {
	Period     Period          `json:"paymentPeriod"`
	Excess     int             `json:"voluntaryExcess"`
	ClaimLimit int             `json:"claimLimit"`
	AddOns     AddOnSet        `json:"selectedAddOns"`
	Protection ProtectionState `json:"protectionAddOns"`
}

// Defaults used when the plan step mounts.
const (
	DefaultPeriod     = Period12
	DefaultExcess     = 50
	DefaultClaimLimit = 1250
)

// DefaultSelection returns the selection shown before any interaction.
func DefaultSelection() Selection {
	return Selection{
		Period:     DefaultPeriod,
		Excess:     DefaultExcess,
		ClaimLimit: DefaultClaimLimit,
		Protection: NewProtectionState(DefaultPeriod),
	}
}

// NewSelection builds a selection from funnel flag maps. Protection flags
// bundled with the period are treated as bundled rather than ticked.
func NewSelection(period Period, excess, claimLimit int, addOns, protection map[string]bool) Selection {
	auto := AutoIncluded(period)
	return Selection{
		Period:     period,
		Excess:     excess,
		ClaimLimit: claimLimit,
		AddOns:     AddOnSetFromFlags(addOns),
		Protection: ProtectionState{
			Manual: ProtectionSetFromFlags(protection).Minus(auto),
			Auto:   auto,
		},
	}
}

// Normalize rebuilds the bundled protection set from the period. Selections
// that arrive from a client go through it before any event is applied.
func (s Selection) Normalize() Selection {
	auto := AutoIncluded(s.Period)
	s.Protection = ProtectionState{Manual: s.Protection.Manual.Minus(auto), Auto: auto}
	return s
}

// EventType names a selection update.
type EventType string

const (
	EventSetPeriod        EventType = "set_period"
	EventSetExcess        EventType = "set_excess"
	EventSetClaimLimit    EventType = "set_claim_limit"
	EventToggleAddOn      EventType = "toggle_add_on"
	EventToggleProtection EventType = "toggle_protection"
)

// Event is one customer interaction on the plan step.
type Event struct {
	Type  EventType `json:"type"`
	Value int       `json:"value,omitempty"`
	Flag  string    `json:"flag,omitempty"`
}

// SetPeriod selects a duration tab.
func SetPeriod(p Period) Event { return Event{Type: EventSetPeriod, Value: int(p)} }

// SetExcess selects an excess button.
func SetExcess(excess int) Event { return Event{Type: EventSetExcess, Value: excess} }

// SetClaimLimit selects a claim limit.
func SetClaimLimit(limit int) Event { return Event{Type: EventSetClaimLimit, Value: limit} }

// ToggleAddOn flips a generic add-on checkbox.
func ToggleAddOn(a AddOn) Event { return Event{Type: EventToggleAddOn, Flag: a.String()} }

// ToggleProtection flips a protection add-on checkbox.
func ToggleProtection(p Protection) Event { return Event{Type: EventToggleProtection, Flag: p.String()} }

// Apply returns the selection after ev. Unknown events and flags leave the
// selection unchanged.
func Apply(sel Selection, ev Event) Selection {
	switch ev.Type {
	case EventSetPeriod:
		sel.Period = Period(ev.Value)
		sel.Protection = NextProtection(sel.Protection, sel.Period)
	case EventSetExcess:
		sel.Excess = ev.Value
	case EventSetClaimLimit:
		sel.ClaimLimit = ev.Value
	case EventToggleAddOn:
		if a, ok := ParseAddOn(ev.Flag); ok {
			sel.AddOns = sel.AddOns.Toggle(a)
		}
	case EventToggleProtection:
		if p, ok := ParseProtection(ev.Flag); ok {
			sel.Protection = sel.Protection.Toggle(p)
		}
	}
	return sel
}

// ApplyAll folds events over sel in order.
func ApplyAll(sel Selection, events ...Event) Selection {
	for _, ev := range events {
		sel = Apply(sel, ev)
	}
	return sel
}
