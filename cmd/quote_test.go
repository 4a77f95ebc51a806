package main

import (
	"bytes"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buyawarranty/warranty-quote/internal/model"
	"github.com/buyawarranty/warranty-quote/internal/pricing"
)

func newQuoteFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addSelectionFlags(fs)
	addVehicleFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestSelectionFromFlags_Defaults(t *testing.T) {
	sel, err := selectionFromFlags(newQuoteFlags(t))
	require.NoError(t, err)
	assert.Equal(t, pricing.DefaultSelection(), sel)
}

func TestSelectionFromFlags_Values(t *testing.T) {
	sel, err := selectionFromFlags(newQuoteFlags(t,
		"--period", "24", "--excess", "0", "--claim-limit", "2000",
		"--addon", "europeanCover,wearAndTear", "--protection", "breakdown,motFee",
	))
	require.NoError(t, err)
	assert.Equal(t, pricing.Period24, sel.Period)
	assert.Equal(t, 0, sel.Excess)
	assert.Equal(t, 2000, sel.ClaimLimit)
	assert.Equal(t, 2, sel.AddOns.Len())
	assert.True(t, sel.Protection.Manual.Has(pricing.ProtectionBreakdown))
	assert.False(t, sel.Protection.Manual.Has(pricing.ProtectionMOTFee), "motFee is bundled at 24 months")
}

func TestSelectionFromFlags_Errors(t *testing.T) {
	tests := []struct {
		args    []string
		wantErr string
	}{
		{[]string{"--period", "18"}, "unsupported period 18"},
		{[]string{"--excess", "75"}, "unsupported excess 75"},
		{[]string{"--claim-limit", "1000"}, "unsupported claim limit 1000"},
		{[]string{"--addon", "gap"}, `unknown add-on "gap"`},
		{[]string{"--protection", "keys"}, `unknown protection add-on "keys"`},
	}
	for _, tt := range tests {
		_, err := selectionFromFlags(newQuoteFlags(t, tt.args...))
		require.Error(t, err, tt.args)
		assert.Contains(t, err.Error(), tt.wantErr)
	}
}

func TestVehicleFromFlags(t *testing.T) {
	assert.Nil(t, vehicleFromFlags(newQuoteFlags(t)))

	v := vehicleFromFlags(newQuoteFlags(t, "--reg", "AB12CDE", "--make", "Porsche", "--vehicle-type", "van"))
	require.NotNil(t, v)
	assert.Equal(t, "AB12CDE", v.RegNumber)
	assert.Equal(t, model.VehicleTypeVan, v.VehicleType)
}

func TestFormatQuote(t *testing.T) {
	r := pricing.NewResolver(nil)
	sel := pricing.ApplyAll(pricing.DefaultSelection(),
		pricing.SetPeriod(pricing.Period24),
		pricing.SetExcess(0),
		pricing.SetClaimLimit(2000),
		pricing.ToggleAddOn(pricing.AddOnEuropeanCover),
	)

	var buf bytes.Buffer
	formatQuote(&buf, r.Resolve(sel, nil))

	output := buf.String()
	assert.Contains(t, output, "24 months")
	assert.Contains(t, output, "£1,207")
	assert.Contains(t, output, "europeanCover")
	assert.Contains(t, output, "Included:")
	assert.Contains(t, output, "motFee, rental")
	assert.Contains(t, output, "-£100")
	assert.Contains(t, output, "£1,155")
	assert.NotContains(t, output, "fallback")
}

func TestFormatQuote_Fallback(t *testing.T) {
	r := pricing.NewResolver(pricing.NewMatrixTable([]pricing.Cell{
		{Period: pricing.Period12, Excess: 0, ClaimLimit: 750, Price: 500},
	}, 0))

	var buf bytes.Buffer
	formatQuote(&buf, r.Resolve(pricing.DefaultSelection(), nil))
	assert.Contains(t, buf.String(), "fallback price used")
	assert.Contains(t, buf.String(), "£467")
}

func TestFormatGrid(t *testing.T) {
	r := pricing.NewResolver(nil)
	var buf bytes.Buffer
	formatGrid(&buf, r.Grid(pricing.DefaultSelection(), nil))

	output := buf.String()
	assert.Contains(t, output, "12 months")
	assert.Contains(t, output, "LIMIT £2,000")
	assert.Contains(t, output, "£537 (£45/mo)")
	assert.Contains(t, output, "£150")

	buf.Reset()
	formatGrid(&buf, nil)
	assert.Empty(t, buf.String())
}
