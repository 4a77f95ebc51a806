package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/buyawarranty/warranty-quote/internal/model"
	"github.com/buyawarranty/warranty-quote/internal/pricing"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS warranty_selection_audit (
	id                 TEXT PRIMARY KEY,
	plan_id            TEXT NOT NULL,
	plan_name          TEXT NOT NULL,
	payment_type       TEXT NOT NULL,
	registration       TEXT NOT NULL,
	vehicle            TEXT NOT NULL,
	period_months      INTEGER NOT NULL,
	voluntary_excess   INTEGER NOT NULL,
	claim_limit        INTEGER NOT NULL,
	total_price        INTEGER NOT NULL,
	monthly_price      INTEGER NOT NULL,
	client_total_price INTEGER NOT NULL,
	selected_add_ons   TEXT NOT NULL,
	protection_add_ons TEXT NOT NULL,
	price_mismatch     INTEGER NOT NULL DEFAULT 0,
	fallback_price     INTEGER NOT NULL DEFAULT 0,
	sync_status        TEXT NOT NULL DEFAULT 'pending',
	sync_error         TEXT NOT NULL DEFAULT '',
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS pricing_matrix_versions (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	cell_count INTEGER NOT NULL,
	active     INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS pricing_matrix_cells (
	version_id  TEXT NOT NULL REFERENCES pricing_matrix_versions(id),
	period      INTEGER NOT NULL,
	excess      INTEGER NOT NULL,
	claim_limit INTEGER NOT NULL,
	price       INTEGER NOT NULL,
	PRIMARY KEY (version_id, period, excess, claim_limit)
);

CREATE INDEX IF NOT EXISTS idx_audit_sync_status ON warranty_selection_audit(sync_status);
CREATE INDEX IF NOT EXISTS idx_audit_registration ON warranty_selection_audit(registration);
CREATE INDEX IF NOT EXISTS idx_audit_created_at ON warranty_selection_audit(created_at);
CREATE INDEX IF NOT EXISTS idx_matrix_versions_active ON pricing_matrix_versions(active);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const auditColumns = `id, plan_id, plan_name, payment_type, registration, vehicle,
	period_months, voluntary_excess, claim_limit, total_price, monthly_price, client_total_price,
	selected_add_ons, protection_add_ons, price_mismatch, fallback_price,
	sync_status, sync_error, created_at, updated_at`

func (s *SQLiteStore) CreateAudit(ctx context.Context, rec model.AuditRecord) (*model.AuditRecord, error) {
	rec.ID = uuid.New().String()
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	if rec.SyncStatus == "" {
		rec.SyncStatus = model.SyncStatusPending
	}
	if rec.Registration == "" {
		rec.Registration = rec.Vehicle.NormalizedReg()
	}

	vehicleJSON, addOnsJSON, protectionJSON, err := marshalAuditJSON(rec)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal audit")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO warranty_selection_audit (`+auditColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PlanID, rec.PlanName, rec.PaymentType, rec.Registration, string(vehicleJSON),
		rec.PeriodMonths, rec.VoluntaryExcess, rec.ClaimLimit, rec.TotalPrice, rec.MonthlyPrice, rec.ClientTotalPrice,
		string(addOnsJSON), string(protectionJSON), rec.PriceMismatch, rec.FallbackPrice,
		string(rec.SyncStatus), rec.SyncError, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert audit")
	}
	return &rec, nil
}

func (s *SQLiteStore) GetAudit(ctx context.Context, id string) (*model.AuditRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+auditColumns+` FROM warranty_selection_audit WHERE id = ?`, id,
	)
	rec, err := scanAudit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "audit %s", id)
	}
	return rec, err
}

func (s *SQLiteStore) ListAudits(ctx context.Context, filter AuditFilter) ([]model.AuditRecord, error) {
	query := `SELECT ` + auditColumns + ` FROM warranty_selection_audit WHERE 1=1`
	var args []any

	if filter.SyncStatus != "" {
		query += ` AND sync_status = ?`
		args = append(args, string(filter.SyncStatus))
	}
	if filter.Registration != "" {
		query += ` AND registration = ?`
		args = append(args, filter.Registration)
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audits")
	}
	defer rows.Close()

	var recs []model.AuditRecord
	for rows.Next() {
		rec, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list audits iterate")
}

func (s *SQLiteStore) UpdateAuditSync(ctx context.Context, id string, status model.SyncStatus, syncErr string) error {
	if !status.Valid() {
		return eris.Errorf("sqlite: invalid sync status %q", status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE warranty_selection_audit SET sync_status = ?, sync_error = ?, updated_at = ? WHERE id = ?`,
		string(status), syncErr, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update audit sync %s", id)
	}
	return checkRowsAffected(res, "audit", id)
}

func (s *SQLiteStore) SaveMatrix(ctx context.Context, source string, cells []pricing.Cell) (*MatrixVersion, error) {
	if len(cells) == 0 {
		return nil, eris.New("sqlite: save matrix: no cells")
	}

	v := &MatrixVersion{
		ID:        uuid.New().String(),
		Source:    source,
		CellCount: len(cells),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `UPDATE pricing_matrix_versions SET active = 0 WHERE active = 1`); err != nil {
		return nil, eris.Wrap(err, "sqlite: deactivate matrix")
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pricing_matrix_versions (id, source, cell_count, active, created_at) VALUES (?, ?, ?, 1, ?)`,
		v.ID, v.Source, v.CellCount, v.CreatedAt,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: insert matrix version")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pricing_matrix_cells (version_id, period, excess, claim_limit, price) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare matrix insert")
	}
	defer stmt.Close()

	for _, c := range cells {
		if _, err := stmt.ExecContext(ctx, v.ID, int(c.Period), c.Excess, c.ClaimLimit, c.Price); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert cell %d/%d/%d", c.Period, c.Excess, c.ClaimLimit)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit matrix")
	}
	return v, nil
}

func (s *SQLiteStore) LoadMatrix(ctx context.Context) ([]pricing.Cell, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.period, c.excess, c.claim_limit, c.price
		 FROM pricing_matrix_cells c
		 JOIN pricing_matrix_versions v ON v.id = c.version_id
		 WHERE v.active = 1
		 ORDER BY c.period, c.excess, c.claim_limit`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load matrix")
	}
	defer rows.Close()

	var cells []pricing.Cell
	for rows.Next() {
		var c pricing.Cell
		var period int
		if err := rows.Scan(&period, &c.Excess, &c.ClaimLimit, &c.Price); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cell")
		}
		c.Period = pricing.Period(period)
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: load matrix iterate")
	}
	if len(cells) == 0 {
		return nil, eris.Wrap(ErrNotFound, "no active pricing matrix")
	}
	return cells, nil
}

func (s *SQLiteStore) ActiveMatrix(ctx context.Context) (*MatrixVersion, error) {
	var v MatrixVersion
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, cell_count, active, created_at FROM pricing_matrix_versions
		 WHERE active = 1 ORDER BY created_at DESC LIMIT 1`,
	).Scan(&v.ID, &v.Source, &v.CellCount, &v.Active, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "no active pricing matrix")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: active matrix")
	}
	return &v, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAudit(row scannable) (*model.AuditRecord, error) {
	var rec model.AuditRecord
	var vehicleJSON, addOnsJSON, protectionJSON, status string

	err := row.Scan(
		&rec.ID, &rec.PlanID, &rec.PlanName, &rec.PaymentType, &rec.Registration, &vehicleJSON,
		&rec.PeriodMonths, &rec.VoluntaryExcess, &rec.ClaimLimit, &rec.TotalPrice, &rec.MonthlyPrice, &rec.ClientTotalPrice,
		&addOnsJSON, &protectionJSON, &rec.PriceMismatch, &rec.FallbackPrice,
		&status, &rec.SyncError, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan audit")
	}
	rec.SyncStatus = model.SyncStatus(status)

	if err := unmarshalAuditJSON(&rec, []byte(vehicleJSON), []byte(addOnsJSON), []byte(protectionJSON)); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal audit")
	}
	return &rec, nil
}

func marshalAuditJSON(rec model.AuditRecord) (vehicle, addOns, protection []byte, err error) {
	if rec.SelectedAddOns == nil {
		rec.SelectedAddOns = []string{}
	}
	if rec.ProtectionAddOns == nil {
		rec.ProtectionAddOns = []string{}
	}
	if vehicle, err = json.Marshal(rec.Vehicle); err != nil {
		return nil, nil, nil, err
	}
	if addOns, err = json.Marshal(rec.SelectedAddOns); err != nil {
		return nil, nil, nil, err
	}
	if protection, err = json.Marshal(rec.ProtectionAddOns); err != nil {
		return nil, nil, nil, err
	}
	return vehicle, addOns, protection, nil
}

func unmarshalAuditJSON(rec *model.AuditRecord, vehicle, addOns, protection []byte) error {
	if err := json.Unmarshal(vehicle, &rec.Vehicle); err != nil {
		return err
	}
	if err := json.Unmarshal(addOns, &rec.SelectedAddOns); err != nil {
		return err
	}
	return json.Unmarshal(protection, &rec.ProtectionAddOns)
}
