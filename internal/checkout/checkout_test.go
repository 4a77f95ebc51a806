package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/buyawarranty/warranty-quote/internal/config"
	"github.com/buyawarranty/warranty-quote/internal/model"
	"github.com/buyawarranty/warranty-quote/internal/pricing"
)

type syncUpdate struct {
	id     string
	status model.SyncStatus
	msg    string
}

type fakeStore struct {
	created   []model.AuditRecord
	updates   []syncUpdate
	createErr error
	updateErr error
}

func (f *fakeStore) CreateAudit(_ context.Context, rec model.AuditRecord) (*model.AuditRecord, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	rec.ID = "audit-1"
	f.created = append(f.created, rec)
	return &rec, nil
}

func (f *fakeStore) UpdateAuditSync(_ context.Context, id string, status model.SyncStatus, msg string) error {
	f.updates = append(f.updates, syncUpdate{id, status, msg})
	return f.updateErr
}

var fixedNow = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }

func newTestService(st *fakeStore) *Service {
	return NewService(
		pricing.NewResolver(nil),
		st,
		config.CheckoutConfig{MaxMileage: 150000, MaxAgeYears: 15},
		fixedNow,
	)
}

func petrolFocus() model.VehicleData {
	return model.VehicleData{
		RegNumber: "ab12 cde",
		Mileage:   42000,
		Found:     true,
		Make:      "Ford",
		Model:     "Focus",
		FuelType:  "PETROL",
		Year:      2019,
	}
}

func TestPeriodForPaymentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   pricing.Period
		wantOK bool
	}{
		{"monthly", pricing.Period12, true},
		{"yearly", pricing.Period12, true},
		{"12months", pricing.Period12, true},
		{"24months", pricing.Period24, true},
		{"two_yearly", pricing.Period24, true},
		{"36months", pricing.Period36, true},
		{" Three_Yearly ", pricing.Period36, true},
		{"weekly", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := PeriodForPaymentType(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFinalize_TwoYear(t *testing.T) {
	st := &fakeStore{}
	svc := newTestService(st)

	fp, err := svc.Finalize(context.Background(), model.PlanHandoff{
		PlanID:      "basic",
		PlanName:    "Basic",
		PaymentType: "24months",
		PricingData: model.PricingData{TotalPrice: 1107, MonthlyPrice: 92, VoluntaryExcess: 0, ClaimLimit: 2000},
	}, petrolFocus())
	require.NoError(t, err)

	assert.Equal(t, "audit-1", fp.AuditID)
	assert.Equal(t, 24, fp.PeriodMonths)
	assert.Equal(t, 1107, fp.TotalPrice)
	assert.Equal(t, 92, fp.MonthlyPrice)
	assert.Equal(t, 1207, fp.OriginalPrice)
	assert.Equal(t, 147, fp.Savings)
	assert.Equal(t, []string{"motFee", "rental"}, fp.IncludedAddOns)
	assert.False(t, fp.PriceMismatch)
	assert.False(t, fp.FallbackPrice)

	require.Len(t, st.created, 1)
	rec := st.created[0]
	assert.Equal(t, "AB12CDE", rec.Registration)
	assert.Equal(t, model.SyncStatusPending, rec.SyncStatus)
	assert.Equal(t, 1107, rec.TotalPrice)
	assert.Equal(t, 1107, rec.ClientTotalPrice)
}

func TestFinalize_AddOnsAndManualProtection(t *testing.T) {
	st := &fakeStore{}
	svc := newTestService(st)

	fp, err := svc.Finalize(context.Background(), model.PlanHandoff{
		PlanID:      "basic",
		PaymentType: "two_yearly",
		PricingData: model.PricingData{
			TotalPrice:       1265,
			VoluntaryExcess:  0,
			ClaimLimit:       2000,
			SelectedAddOns:   map[string]bool{"europeanCover": true, "transfer": false},
			ProtectionAddOns: map[string]bool{"breakdown": true, "motFee": true},
		},
	}, petrolFocus())
	require.NoError(t, err)

	// 1207 base + 48 add-on + 110 breakdown - 100 discount; motFee is bundled.
	assert.Equal(t, 1265, fp.TotalPrice)
	assert.Equal(t, 105, fp.MonthlyPrice)
	assert.Equal(t, []string{"europeanCover"}, fp.SelectedAddOns)
	assert.Equal(t, []string{"breakdown"}, fp.ProtectionAddOns)
	assert.False(t, fp.PriceMismatch)
}

func TestFinalize_DefaultClaimLimit(t *testing.T) {
	st := &fakeStore{}
	svc := newTestService(st)

	fp, err := svc.Finalize(context.Background(), model.PlanHandoff{
		PaymentType: "monthly",
		PricingData: model.PricingData{TotalPrice: 537, VoluntaryExcess: 50},
	}, petrolFocus())
	require.NoError(t, err)
	assert.Equal(t, 1250, fp.ClaimLimit)
	assert.Equal(t, 537, fp.TotalPrice)
	assert.Equal(t, 45, fp.MonthlyPrice)
}

func TestFinalize_PriceMismatchUsesServerTotal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	st := &fakeStore{}
	svc := newTestService(st)

	fp, err := svc.Finalize(context.Background(), model.PlanHandoff{
		PaymentType: "12months",
		PricingData: model.PricingData{TotalPrice: 400, VoluntaryExcess: 50, ClaimLimit: 1250},
	}, petrolFocus())
	require.NoError(t, err)

	assert.True(t, fp.PriceMismatch)
	assert.Equal(t, 537, fp.TotalPrice)
	require.Len(t, st.created, 1)
	assert.True(t, st.created[0].PriceMismatch)
	assert.Equal(t, 400, st.created[0].ClientTotalPrice)

	entries := logs.FilterMessage("checkout: client price differs from server quote").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(400), entries[0].ContextMap()["client_total"])
	assert.Equal(t, int64(537), entries[0].ContextMap()["server_total"])
}

func TestFinalize_Rejections(t *testing.T) {
	blocked := petrolFocus()
	blocked.Blocked = true
	blocked.BlockReason = "write-off"

	highMileage := petrolFocus()
	highMileage.Mileage = 150001

	old := petrolFocus()
	old.Year = 2005

	good := model.PlanHandoff{PaymentType: "monthly", PricingData: model.PricingData{VoluntaryExcess: 50}}

	tests := []struct {
		name    string
		handoff model.PlanHandoff
		vehicle model.VehicleData
		want    error
		msg     string
	}{
		{"blocked", good, blocked, ErrVehicleBlocked, "write-off"},
		{"mileage", good, highMileage, ErrVehicleIneligible, "mileage 150001"},
		{"age", good, old, ErrVehicleIneligible, "age 21 years"},
		{"payment type", model.PlanHandoff{PaymentType: "weekly"}, petrolFocus(), ErrInvalidSelection, "weekly"},
		{"excess", model.PlanHandoff{PaymentType: "monthly", PricingData: model.PricingData{VoluntaryExcess: 75}}, petrolFocus(), ErrInvalidSelection, "excess 75"},
		{"claim limit", model.PlanHandoff{PaymentType: "monthly", PricingData: model.PricingData{ClaimLimit: 5000}}, petrolFocus(), ErrInvalidSelection, "claim limit 5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeStore{}
			_, err := newTestService(st).Finalize(context.Background(), tt.handoff, tt.vehicle)
			require.Error(t, err)
			assert.True(t, eris.Is(err, tt.want))
			assert.Contains(t, err.Error(), tt.msg)
			assert.Empty(t, st.created, "nothing recorded")
		})
	}
}

func TestFinalize_UnknownYearSkipsAgeCheck(t *testing.T) {
	v := petrolFocus()
	v.Year = 0
	svc := newTestService(&fakeStore{})
	assert.NoError(t, svc.CheckEligibility(v))
}

func TestFinalize_StoreError(t *testing.T) {
	st := &fakeStore{createErr: errors.New("disk full")}
	_, err := newTestService(st).Finalize(context.Background(), model.PlanHandoff{
		PaymentType: "monthly",
		PricingData: model.PricingData{VoluntaryExcess: 50},
	}, petrolFocus())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkout: record audit")
}

func TestMarkSyncedAndFailed(t *testing.T) {
	st := &fakeStore{}
	svc := newTestService(st)
	ctx := context.Background()

	require.NoError(t, svc.MarkSynced(ctx, "a1"))
	require.NoError(t, svc.MarkFailed(ctx, "a2", errors.New("policy API 503")))
	require.NoError(t, svc.MarkFailed(ctx, "a3", nil))

	assert.Equal(t, []syncUpdate{
		{"a1", model.SyncStatusSynced, ""},
		{"a2", model.SyncStatusFailed, "policy API 503"},
		{"a3", model.SyncStatusFailed, "unknown error"},
	}, st.updates)

	st.updateErr = errors.New("gone")
	err := svc.MarkSynced(ctx, "a4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mark synced")
}
