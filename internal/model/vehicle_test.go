package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVehicleType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want VehicleType
	}{
		{"EV", VehicleTypeEV},
		{" electric ", VehicleTypeEV},
		{"phev", VehicleTypePHEV},
		{"Plug-in Hybrid", VehicleTypePHEV},
		{"motorcycle", VehicleTypeMotorbike},
		{"LCV", VehicleTypeVan},
		{"performance", VehicleTypePerformance},
		{"", VehicleTypeStandard},
		{"hatchback", VehicleTypeStandard},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseVehicleType(tt.in), tt.in)
	}
}

func TestNormalizedReg(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "AB12CDE", VehicleData{RegNumber: " ab12 cde "}.NormalizedReg())
	assert.Equal(t, "", VehicleData{}.NormalizedReg())
}

func TestVehicleData_ManualEntryJSON(t *testing.T) {
	t.Parallel()
	var v VehicleData
	require.NoError(t, json.Unmarshal([]byte(`{"regNumber":"AB12CDE","mileage":42000}`), &v))
	assert.Equal(t, "AB12CDE", v.RegNumber)
	assert.Equal(t, 42000, v.Mileage)
	assert.False(t, v.Found)
	assert.Empty(t, v.VehicleType)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"regNumber":"AB12CDE","mileage":42000}`, string(out))
}

func TestSyncStatus_Valid(t *testing.T) {
	t.Parallel()
	for _, s := range []SyncStatus{SyncStatusPending, SyncStatusSynced, SyncStatusFailed} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, SyncStatus("").Valid())
	assert.False(t, SyncStatus("done").Valid())
}

func TestPlanHandoff_JSONFieldNames(t *testing.T) {
	t.Parallel()
	raw := `{
		"planId": "basic",
		"paymentType": "24months",
		"planName": "Basic",
		"pricingData": {
			"totalPrice": 1107,
			"monthlyPrice": 92,
			"voluntaryExcess": 0,
			"selectedAddOns": {"europeanCover": true},
			"claimLimit": 2000
		}
	}`
	var h PlanHandoff
	require.NoError(t, json.Unmarshal([]byte(raw), &h))
	assert.Equal(t, "24months", h.PaymentType)
	assert.Equal(t, 1107, h.PricingData.TotalPrice)
	assert.Equal(t, 2000, h.PricingData.ClaimLimit)
	assert.True(t, h.PricingData.SelectedAddOns["europeanCover"])
	assert.Nil(t, h.PricingData.ProtectionAddOns)
}
