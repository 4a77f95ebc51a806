package main

import (
	"bytes"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/buyawarranty/warranty-quote/internal/model"
)

func sampleAuditRecords() []model.AuditRecord {
	now := time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)
	return []model.AuditRecord{
		{
			ID:           "abc12345-6789-0000-0000-000000000000",
			PlanName:     "Basic",
			Registration: "AB12CDE",
			PeriodMonths: 24,
			TotalPrice:   1107,
			MonthlyPrice: 92,
			SyncStatus:   model.SyncStatusSynced,
			CreatedAt:    now,
		},
		{
			ID:            "def12345-6789-0000-0000-000000000000",
			PlanID:        "platinum-comprehensive-cover",
			Registration:  "XY99ZZZ",
			PeriodMonths:  12,
			TotalPrice:    467,
			MonthlyPrice:  39,
			PriceMismatch: true,
			FallbackPrice: true,
			SyncStatus:    model.SyncStatusFailed,
			CreatedAt:     now.Add(-time.Hour),
		},
		{
			ID:           "0123",
			PlanName:     "Gold",
			Registration: "LM70ABC",
			PeriodMonths: 12,
			TotalPrice:   537,
			MonthlyPrice: 45,
			SyncStatus:   model.SyncStatusPending,
			CreatedAt:    now,
		},
	}
}

func TestFormatAuditList(t *testing.T) {
	var buf bytes.Buffer
	formatAuditList(&buf, sampleAuditRecords())

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "REG")
	assert.Contains(t, output, "SYNC")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "AB12CDE")
	assert.Contains(t, output, "24m")
	assert.Contains(t, output, "£1,107")
	assert.Contains(t, output, "synced")
	assert.Contains(t, output, "platinum-comprehe...")
	assert.Contains(t, output, "MF")
	assert.Contains(t, output, "2026-06-15 10:30")
}

func TestFormatAuditList_MultiByteName(t *testing.T) {
	recs := sampleAuditRecords()[:1]
	recs[0].PlanName = "Garantie Première Sécurité"

	var buf bytes.Buffer
	formatAuditList(&buf, recs)
	assert.True(t, utf8.ValidString(buf.String()))
	assert.Contains(t, buf.String(), "Garantie Première...")
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "Basic", truncateText("Basic", 20))
	assert.Equal(t, "ÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉ", truncateText("ÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉ", 20))
	assert.Equal(t, "ÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉ...", truncateText("ÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉ", 20))
	assert.Equal(t, "platinum-comprehe...", truncateText("platinum-comprehensive-cover", 20))
}

func TestComputeAuditStats(t *testing.T) {
	s := computeAuditStats(sampleAuditRecords())
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Pending)
	assert.Equal(t, 1, s.Synced)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Mismatches)
	assert.Equal(t, 1, s.Fallbacks)
	assert.Equal(t, 1107+467+537, s.Revenue)
	assert.Equal(t, map[int]int{12: 2, 24: 1}, s.ByPeriod)
}

func TestFormatAuditStats(t *testing.T) {
	var buf bytes.Buffer
	formatAuditStats(&buf, computeAuditStats(sampleAuditRecords()))

	output := buf.String()
	assert.Contains(t, output, "Total checkouts:")
	assert.Contains(t, output, "£2,111")
	assert.Contains(t, output, "Avg total:")
	assert.Contains(t, output, "£703")
	assert.Contains(t, output, "12 months:")
	assert.Contains(t, output, "24 months:")
}

func TestFormatAuditStats_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatAuditStats(&buf, computeAuditStats(nil))
	assert.Contains(t, buf.String(), "Total checkouts:")
	assert.NotContains(t, buf.String(), "Avg total:")
}
