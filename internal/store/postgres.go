package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/buyawarranty/warranty-quote/internal/db"
	"github.com/buyawarranty/warranty-quote/internal/model"
	"github.com/buyawarranty/warranty-quote/internal/pricing"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"get_audit":         `SELECT ` + auditColumns + ` FROM warranty_selection_audit WHERE id = $1`,
	"update_audit_sync": `UPDATE warranty_selection_audit SET sync_status = $1, sync_error = $2, updated_at = $3 WHERE id = $4`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS warranty_selection_audit (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	plan_id            TEXT NOT NULL,
	plan_name          TEXT NOT NULL,
	payment_type       TEXT NOT NULL,
	registration       TEXT NOT NULL,
	vehicle            JSONB NOT NULL,
	period_months      INTEGER NOT NULL,
	voluntary_excess   INTEGER NOT NULL,
	claim_limit        INTEGER NOT NULL,
	total_price        INTEGER NOT NULL,
	monthly_price      INTEGER NOT NULL,
	client_total_price INTEGER NOT NULL,
	selected_add_ons   JSONB NOT NULL DEFAULT '[]',
	protection_add_ons JSONB NOT NULL DEFAULT '[]',
	price_mismatch     BOOLEAN NOT NULL DEFAULT false,
	fallback_price     BOOLEAN NOT NULL DEFAULT false,
	sync_status        TEXT NOT NULL DEFAULT 'pending',
	sync_error         TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pricing_matrix_versions (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source     TEXT NOT NULL,
	cell_count INTEGER NOT NULL,
	active     BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
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
CREATE INDEX IF NOT EXISTS idx_matrix_versions_active ON pricing_matrix_versions(active) WHERE active;
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateAudit(ctx context.Context, rec model.AuditRecord) (*model.AuditRecord, error) {
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
		return nil, eris.Wrap(err, "postgres: marshal audit")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO warranty_selection_audit (`+auditColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		rec.ID, rec.PlanID, rec.PlanName, rec.PaymentType, rec.Registration, vehicleJSON,
		rec.PeriodMonths, rec.VoluntaryExcess, rec.ClaimLimit, rec.TotalPrice, rec.MonthlyPrice, rec.ClientTotalPrice,
		addOnsJSON, protectionJSON, rec.PriceMismatch, rec.FallbackPrice,
		string(rec.SyncStatus), rec.SyncError, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert audit")
	}
	return &rec, nil
}

func (s *PostgresStore) GetAudit(ctx context.Context, id string) (*model.AuditRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+auditColumns+` FROM warranty_selection_audit WHERE id = $1`, id,
	)
	rec, err := scanAuditPG(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "audit %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get audit %s", id)
	}
	return rec, nil
}

func (s *PostgresStore) ListAudits(ctx context.Context, filter AuditFilter) ([]model.AuditRecord, error) {
	query := `SELECT ` + auditColumns + ` FROM warranty_selection_audit WHERE 1=1`
	var args []any
	argN := 1

	if filter.SyncStatus != "" {
		query += fmt.Sprintf(` AND sync_status = $%d`, argN)
		args = append(args, string(filter.SyncStatus))
		argN++
	}
	if filter.Registration != "" {
		query += fmt.Sprintf(` AND registration = $%d`, argN)
		args = append(args, filter.Registration)
		argN++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argN)
		args = append(args, filter.CreatedAfter)
		argN++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argN)
	args = append(args, limit)
	argN++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argN)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audits")
	}
	defer rows.Close()

	var recs []model.AuditRecord
	for rows.Next() {
		rec, err := scanAuditPG(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit")
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: list audits iterate")
}

func (s *PostgresStore) UpdateAuditSync(ctx context.Context, id string, status model.SyncStatus, syncErr string) error {
	if !status.Valid() {
		return eris.Errorf("postgres: invalid sync status %q", status)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE warranty_selection_audit SET sync_status = $1, sync_error = $2, updated_at = $3 WHERE id = $4`,
		string(status), syncErr, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update audit sync %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "audit %s", id)
	}
	return nil
}

var matrixCellColumns = []string{"version_id", "period", "excess", "claim_limit", "price"}

// SaveMatrix stores cells as a new active version. Previous versions are
// kept but deactivated.
func (s *PostgresStore) SaveMatrix(ctx context.Context, source string, cells []pricing.Cell) (*MatrixVersion, error) {
	if len(cells) == 0 {
		return nil, eris.New("postgres: save matrix: no cells")
	}

	v := &MatrixVersion{
		ID:        uuid.New().String(),
		Source:    source,
		CellCount: len(cells),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `UPDATE pricing_matrix_versions SET active = false WHERE active`); err != nil {
		return nil, eris.Wrap(err, "postgres: deactivate matrix")
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO pricing_matrix_versions (id, source, cell_count, active, created_at) VALUES ($1, $2, $3, true, $4)`,
		v.ID, v.Source, v.CellCount, v.CreatedAt,
	); err != nil {
		return nil, eris.Wrap(err, "postgres: insert matrix version")
	}

	rows := make([][]any, len(cells))
	for i, c := range cells {
		rows[i] = []any{v.ID, int(c.Period), c.Excess, c.ClaimLimit, c.Price}
	}
	if _, err := db.CopyFrom(ctx, tx, "pricing_matrix_cells", matrixCellColumns, rows); err != nil {
		return nil, eris.Wrap(err, "postgres: copy matrix cells")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit matrix")
	}
	return v, nil
}

func (s *PostgresStore) LoadMatrix(ctx context.Context) ([]pricing.Cell, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.period, c.excess, c.claim_limit, c.price
		 FROM pricing_matrix_cells c
		 JOIN pricing_matrix_versions v ON v.id = c.version_id
		 WHERE v.active
		 ORDER BY c.period, c.excess, c.claim_limit`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load matrix")
	}
	defer rows.Close()

	var cells []pricing.Cell
	for rows.Next() {
		var c pricing.Cell
		var period int
		if err := rows.Scan(&period, &c.Excess, &c.ClaimLimit, &c.Price); err != nil {
			return nil, eris.Wrap(err, "postgres: scan cell")
		}
		c.Period = pricing.Period(period)
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: load matrix iterate")
	}
	if len(cells) == 0 {
		return nil, eris.Wrap(ErrNotFound, "no active pricing matrix")
	}
	return cells, nil
}

func (s *PostgresStore) ActiveMatrix(ctx context.Context) (*MatrixVersion, error) {
	var v MatrixVersion
	err := s.pool.QueryRow(ctx,
		`SELECT id, source, cell_count, active, created_at FROM pricing_matrix_versions
		 WHERE active ORDER BY created_at DESC LIMIT 1`,
	).Scan(&v.ID, &v.Source, &v.CellCount, &v.Active, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "no active pricing matrix")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: active matrix")
	}
	return &v, nil
}

func scanAuditPG(row pgx.Row) (*model.AuditRecord, error) {
	var rec model.AuditRecord
	var vehicleJSON, addOnsJSON, protectionJSON []byte
	var status string

	err := row.Scan(
		&rec.ID, &rec.PlanID, &rec.PlanName, &rec.PaymentType, &rec.Registration, &vehicleJSON,
		&rec.PeriodMonths, &rec.VoluntaryExcess, &rec.ClaimLimit, &rec.TotalPrice, &rec.MonthlyPrice, &rec.ClientTotalPrice,
		&addOnsJSON, &protectionJSON, &rec.PriceMismatch, &rec.FallbackPrice,
		&status, &rec.SyncError, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.SyncStatus = model.SyncStatus(status)

	if err := unmarshalAuditJSON(&rec, vehicleJSON, addOnsJSON, protectionJSON); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal audit")
	}
	return &rec, nil
}
