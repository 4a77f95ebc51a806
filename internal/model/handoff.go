package model

// PricingData is the pricing snapshot passed between funnel steps.
type PricingData struct {
	TotalPrice       int             `json:"totalPrice"`
	MonthlyPrice     int             `json:"monthlyPrice"`
	VoluntaryExcess  int             `json:"voluntaryExcess"`
	SelectedAddOns   map[string]bool `json:"selectedAddOns"`
	ProtectionAddOns map[string]bool `json:"protectionAddOns,omitempty"`
	ClaimLimit       int             `json:"claimLimit,omitempty"`
}

// PlanHandoff is what the plan step hands to checkout.
type PlanHandoff struct {
	PlanID      string      `json:"planId"`
	PaymentType string      `json:"paymentType"`
	PlanName    string      `json:"planName"`
	PricingData PricingData `json:"pricingData"`
}

// FinalizedPricing is the server-side pricing object consumed by payment and
// audit logging.
type FinalizedPricing struct {
	AuditID          string   `json:"auditId"`
	PlanID           string   `json:"planId"`
	PlanName         string   `json:"planName"`
	PaymentType      string   `json:"paymentType"`
	PeriodMonths     int      `json:"periodMonths"`
	VoluntaryExcess  int      `json:"voluntaryExcess"`
	ClaimLimit       int      `json:"claimLimit"`
	TotalPrice       int      `json:"totalPrice"`
	MonthlyPrice     int      `json:"monthlyPrice"`
	OriginalPrice    int      `json:"originalPrice"`
	Savings          int      `json:"savings"`
	SelectedAddOns   []string `json:"selectedAddOns"`
	ProtectionAddOns []string `json:"protectionAddOns"`
	IncludedAddOns   []string `json:"includedAddOns"`
	PriceMismatch    bool     `json:"priceMismatch"`
	FallbackPrice    bool     `json:"fallbackPrice"`
}
