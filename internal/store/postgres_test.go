package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buyawarranty/warranty-quote/internal/model"
	"github.com/buyawarranty/warranty-quote/internal/pricing"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var auditColumnNames = []string{
	"id", "plan_id", "plan_name", "payment_type", "registration", "vehicle",
	"period_months", "voluntary_excess", "claim_limit", "total_price", "monthly_price", "client_total_price",
	"selected_add_ons", "protection_add_ons", "price_mismatch", "fallback_price",
	"sync_status", "sync_error", "created_at", "updated_at",
}

// auditInsertArgs matches the 20 insert parameters, pinning plan id,
// registration, totals and sync status.
func auditInsertArgs(planID, reg string) []any {
	args := make([]any, len(auditColumnNames))
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	args[1] = planID
	args[4] = reg
	args[9] = 1107
	args[11] = 1107
	args[16] = "pending"
	return args
}

func TestPostgresStore_CreateAudit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO warranty_selection_audit`).
		WithArgs(auditInsertArgs("basic", "AB12CDE")...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec, err := s.CreateAudit(context.Background(), sampleAudit("ab12 cde"))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "AB12CDE", rec.Registration)
	assert.Equal(t, model.SyncStatusPending, rec.SyncStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateAudit_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO warranty_selection_audit`).
		WithArgs(auditInsertArgs("basic", "AB12CDE")...).
		WillReturnError(errors.New("connection reset"))

	_, err := s.CreateAudit(context.Background(), sampleAudit("AB12CDE"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert audit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAudit(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`(?s)SELECT id, plan_id, .* FROM warranty_selection_audit WHERE id = \$1`).
		WithArgs("audit-1").
		WillReturnRows(pgxmock.NewRows(auditColumnNames).AddRow(
			"audit-1", "basic", "Basic", "monthly", "AB12CDE", []byte(`{"regNumber":"AB12CDE","mileage":42000}`),
			12, 50, 1250, 537, 45, 537,
			[]byte(`["europeanCover"]`), []byte(`[]`), false, false,
			"pending", "", now, now,
		))

	rec, err := s.GetAudit(context.Background(), "audit-1")
	require.NoError(t, err)
	assert.Equal(t, "audit-1", rec.ID)
	assert.Equal(t, 537, rec.TotalPrice)
	assert.Equal(t, 42000, rec.Vehicle.Mileage)
	assert.Equal(t, []string{"europeanCover"}, rec.SelectedAddOns)
	assert.Empty(t, rec.ProtectionAddOns)
	assert.Equal(t, model.SyncStatusPending, rec.SyncStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAudit_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM warranty_selection_audit WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetAudit(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAudits_Filtered(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`WHERE 1=1 AND sync_status = \$1 AND registration = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("failed", "AB12CDE", 10, 20).
		WillReturnRows(pgxmock.NewRows(auditColumnNames).AddRow(
			"audit-2", "gold", "Gold", "36months", "AB12CDE", []byte(`{"regNumber":"AB12CDE","mileage":1000}`),
			36, 150, 750, 927, 77, 927,
			[]byte(`[]`), []byte(`[]`), false, false,
			"failed", "timeout", now, now,
		))

	recs, err := s.ListAudits(context.Background(), AuditFilter{
		SyncStatus:   model.SyncStatusFailed,
		Registration: "AB12CDE",
		Limit:        10,
		Offset:       20,
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "timeout", recs[0].SyncError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAudits_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`WHERE 1=1 ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(defaultListLimit).
		WillReturnRows(pgxmock.NewRows(auditColumnNames))

	recs, err := s.ListAudits(context.Background(), AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateAuditSync(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE warranty_selection_audit SET sync_status = \$1`).
		WithArgs("synced", "", pgxmock.AnyArg(), "audit-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.UpdateAuditSync(context.Background(), "audit-1", model.SyncStatusSynced, ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateAuditSync_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE warranty_selection_audit`).
		WithArgs("failed", "boom", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateAuditSync(context.Background(), "missing", model.SyncStatusFailed, "boom")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveMatrix(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	cells := pricing.StandardCells()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE pricing_matrix_versions SET active = false`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO pricing_matrix_versions`).
		WithArgs(pgxmock.AnyArg(), "standard.yaml", 36, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"pricing_matrix_cells"}, matrixCellColumns).
		WillReturnResult(int64(len(cells)))
	mock.ExpectCommit()

	v, err := s.SaveMatrix(context.Background(), "standard.yaml", cells)
	require.NoError(t, err)
	assert.Equal(t, 36, v.CellCount)
	assert.Equal(t, "standard.yaml", v.Source)
	assert.True(t, v.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveMatrix_CopyFails(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE pricing_matrix_versions`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(`INSERT INTO pricing_matrix_versions`).
		WithArgs(pgxmock.AnyArg(), "bad", 36, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"pricing_matrix_cells"}, matrixCellColumns).
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	_, err := s.SaveMatrix(context.Background(), "bad", pricing.StandardCells())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy matrix cells")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadMatrix(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT c.period, c.excess, c.claim_limit, c.price`).
		WillReturnRows(pgxmock.NewRows([]string{"period", "excess", "claim_limit", "price"}).
			AddRow(12, 50, 1250, 537).
			AddRow(24, 0, 2000, 1207))

	cells, err := s.LoadMatrix(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []pricing.Cell{
		{Period: pricing.Period12, Excess: 50, ClaimLimit: 1250, Price: 537},
		{Period: pricing.Period24, Excess: 0, ClaimLimit: 2000, Price: 1207},
	}, cells)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadMatrix_NoActiveVersion(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM pricing_matrix_cells`).
		WillReturnRows(pgxmock.NewRows([]string{"period", "excess", "claim_limit", "price"}))

	_, err := s.LoadMatrix(context.Background())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ActiveMatrix(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM pricing_matrix_versions`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "source", "cell_count", "active", "created_at"}).
			AddRow("v1", "standard.xlsx", 36, true, now))

	v, err := s.ActiveMatrix(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1", v.ID)
	assert.Equal(t, 36, v.CellCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ActiveMatrix_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM pricing_matrix_versions`).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.ActiveMatrix(context.Background())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS warranty_selection_audit`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
