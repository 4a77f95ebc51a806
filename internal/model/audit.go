package model

import "time"

// SyncStatus tracks whether an audit record reached the policy-admin system.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
)

// Valid reports whether s is a known sync status.
func (s SyncStatus) Valid() bool {
	switch s {
	case SyncStatusPending, SyncStatusSynced, SyncStatusFailed:
		return true
	}
	return false
}

// AuditRecord is a warranty_selection_audit row: the quoted price and plan
// selection kept for reconciliation against the policy-admin system.
type AuditRecord struct {
	ID               string      `json:"id"`
	PlanID           string      `json:"plan_id"`
	PlanName         string      `json:"plan_name"`
	PaymentType      string      `json:"payment_type"`
	Registration     string      `json:"registration"`
	Vehicle          VehicleData `json:"vehicle"`
	PeriodMonths     int         `json:"period_months"`
	VoluntaryExcess  int         `json:"voluntary_excess"`
	ClaimLimit       int         `json:"claim_limit"`
	TotalPrice       int         `json:"total_price"`
	MonthlyPrice     int         `json:"monthly_price"`
	ClientTotalPrice int         `json:"client_total_price"`
	SelectedAddOns   []string    `json:"selected_add_ons"`
	ProtectionAddOns []string    `json:"protection_add_ons"`
	PriceMismatch    bool        `json:"price_mismatch"`
	FallbackPrice    bool        `json:"fallback_price"`
	SyncStatus       SyncStatus  `json:"sync_status"`
	SyncError        string      `json:"sync_error,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}
