// Package checkout turns a plan-step handoff into the authoritative pricing
// object used for payment, and records it for reconciliation.
package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/buyawarranty/warranty-quote/internal/config"
	"github.com/buyawarranty/warranty-quote/internal/model"
	"github.com/buyawarranty/warranty-quote/internal/pricing"
)

var (
	// ErrVehicleBlocked is returned for vehicles the lookup flagged as
	// not coverable.
	ErrVehicleBlocked = eris.New("checkout: vehicle blocked")
	// ErrVehicleIneligible is returned when mileage or age exceed the limits.
	ErrVehicleIneligible = eris.New("checkout: vehicle ineligible")
	// ErrInvalidSelection is returned for payment types, excesses or claim
	// limits the plan step never offers.
	ErrInvalidSelection = eris.New("checkout: invalid selection")
)

// AuditStore is the persistence the service needs.
type AuditStore interface {
	CreateAudit(ctx context.Context, rec model.AuditRecord) (*model.AuditRecord, error)
	UpdateAuditSync(ctx context.Context, id string, status model.SyncStatus, syncErr string) error
}

// Service finalizes selections at checkout.
type Service struct {
	resolver *pricing.Resolver
	store    AuditStore
	cfg      config.CheckoutConfig
	now      func() time.Time
}

// NewService creates a checkout service. now defaults to time.Now.
func NewService(resolver *pricing.Resolver, st AuditStore, cfg config.CheckoutConfig, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{resolver: resolver, store: st, cfg: cfg, now: now}
}

// PeriodForPaymentType maps a funnel payment type to a coverage period.
func PeriodForPaymentType(paymentType string) (pricing.Period, bool) {
	switch strings.ToLower(strings.TrimSpace(paymentType)) {
	case "monthly", "yearly", "12months":
		return pricing.Period12, true
	case "24months", "two_yearly":
		return pricing.Period24, true
	case "36months", "three_yearly":
		return pricing.Period36, true
	}
	return 0, false
}

// CheckEligibility reports whether the vehicle can be covered.
func (s *Service) CheckEligibility(v model.VehicleData) error {
	if v.Blocked {
		reason := v.BlockReason
		if reason == "" {
			reason = "no reason given"
		}
		return eris.Wrapf(ErrVehicleBlocked, "%s: %s", v.NormalizedReg(), reason)
	}
	if s.cfg.MaxMileage > 0 && v.Mileage > s.cfg.MaxMileage {
		return eris.Wrapf(ErrVehicleIneligible, "mileage %d exceeds %d", v.Mileage, s.cfg.MaxMileage)
	}
	if s.cfg.MaxAgeYears > 0 && v.Year > 0 {
		if age := s.now().Year() - v.Year; age > s.cfg.MaxAgeYears {
			return eris.Wrapf(ErrVehicleIneligible, "age %d years exceeds %d", age, s.cfg.MaxAgeYears)
		}
	}
	return nil
}

// SelectionFromHandoff rebuilds the plan-step selection from a handoff.
// A zero claim limit means the customer kept the default.
func SelectionFromHandoff(h model.PlanHandoff) (pricing.Selection, error) {
	period, ok := PeriodForPaymentType(h.PaymentType)
	if !ok {
		return pricing.Selection{}, eris.Wrapf(ErrInvalidSelection, "payment type %q", h.PaymentType)
	}
	pd := h.PricingData
	if !pricing.ValidExcess(pd.VoluntaryExcess) {
		return pricing.Selection{}, eris.Wrapf(ErrInvalidSelection, "excess %d", pd.VoluntaryExcess)
	}
	limit := pd.ClaimLimit
	if limit == 0 {
		limit = pricing.DefaultClaimLimit
	}
	if !pricing.ValidClaimLimit(limit) {
		return pricing.Selection{}, eris.Wrapf(ErrInvalidSelection, "claim limit %d", limit)
	}
	return pricing.NewSelection(period, pd.VoluntaryExcess, limit, pd.SelectedAddOns, pd.ProtectionAddOns), nil
}

// Finalize re-prices the handoff server-side, records an audit row and
// returns the pricing to charge. The recomputed total always wins over the
// client's figure.
func (s *Service) Finalize(ctx context.Context, h model.PlanHandoff, v model.VehicleData) (*model.FinalizedPricing, error) {
	if err := s.CheckEligibility(v); err != nil {
		return nil, err
	}
	sel, err := SelectionFromHandoff(h)
	if err != nil {
		return nil, err
	}

	q := s.resolver.Resolve(sel, &v)
	mismatch := h.PricingData.TotalPrice != q.TotalPrice
	if mismatch {
		zap.L().Warn("checkout: client price differs from server quote",
			zap.String("registration", v.NormalizedReg()),
			zap.String("plan_id", h.PlanID),
			zap.String("payment_type", h.PaymentType),
			zap.Int("client_total", h.PricingData.TotalPrice),
			zap.Int("server_total", q.TotalPrice),
		)
	}

	rec, err := s.store.CreateAudit(ctx, model.AuditRecord{
		PlanID:           h.PlanID,
		PlanName:         h.PlanName,
		PaymentType:      h.PaymentType,
		Registration:     v.NormalizedReg(),
		Vehicle:          v,
		PeriodMonths:     q.Period.Months(),
		VoluntaryExcess:  q.Excess,
		ClaimLimit:       q.ClaimLimit,
		TotalPrice:       q.TotalPrice,
		MonthlyPrice:     q.MonthlyPrice,
		ClientTotalPrice: h.PricingData.TotalPrice,
		SelectedAddOns:   q.SelectedAddOns,
		ProtectionAddOns: q.ProtectionAddOns,
		PriceMismatch:    mismatch,
		FallbackPrice:    q.Fallback,
		SyncStatus:       model.SyncStatusPending,
	})
	if err != nil {
		return nil, eris.Wrap(err, "checkout: record audit")
	}

	zap.L().Info("checkout: pricing finalized",
		zap.String("audit_id", rec.ID),
		zap.String("registration", rec.Registration),
		zap.Int("period_months", rec.PeriodMonths),
		zap.Int("total_price", rec.TotalPrice),
	)

	return &model.FinalizedPricing{
		AuditID:          rec.ID,
		PlanID:           h.PlanID,
		PlanName:         h.PlanName,
		PaymentType:      h.PaymentType,
		PeriodMonths:     q.Period.Months(),
		VoluntaryExcess:  q.Excess,
		ClaimLimit:       q.ClaimLimit,
		TotalPrice:       q.TotalPrice,
		MonthlyPrice:     q.MonthlyPrice,
		OriginalPrice:    q.OriginalPrice,
		Savings:          q.Savings,
		SelectedAddOns:   q.SelectedAddOns,
		ProtectionAddOns: q.ProtectionAddOns,
		IncludedAddOns:   q.IncludedAddOns,
		PriceMismatch:    mismatch,
		FallbackPrice:    q.Fallback,
	}, nil
}

// MarkSynced records that the policy-admin system accepted the audit.
func (s *Service) MarkSynced(ctx context.Context, auditID string) error {
	return eris.Wrap(s.store.UpdateAuditSync(ctx, auditID, model.SyncStatusSynced, ""), "checkout: mark synced")
}

// MarkFailed records a failed policy-admin sync.
func (s *Service) MarkFailed(ctx context.Context, auditID string, syncErr error) error {
	msg := "unknown error"
	if syncErr != nil {
		msg = syncErr.Error()
	}
	zap.L().Warn("checkout: policy sync failed", zap.String("audit_id", auditID), zap.String("error", msg))
	return eris.Wrap(s.store.UpdateAuditSync(ctx, auditID, model.SyncStatusFailed, msg), "checkout: mark failed")
}
