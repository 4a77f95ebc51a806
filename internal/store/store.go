package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/buyawarranty/warranty-quote/internal/model"
	"github.com/buyawarranty/warranty-quote/internal/pricing"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = eris.New("store: not found")

// AuditFilter specifies criteria for listing audit records.
type AuditFilter struct {
	SyncStatus   model.SyncStatus `json:"sync_status,omitempty"`
	Registration string           `json:"registration,omitempty"`
	CreatedAfter time.Time        `json:"created_after,omitempty"`
	Limit        int              `json:"limit,omitempty"`
	Offset       int              `json:"offset,omitempty"`
}

// MatrixVersion describes a saved pricing matrix.
type MatrixVersion struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	CellCount int       `json:"cell_count"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the persistence interface for quote auditing and the
// data-driven pricing matrix.
type Store interface {
	// Audit records
	CreateAudit(ctx context.Context, rec model.AuditRecord) (*model.AuditRecord, error)
	GetAudit(ctx context.Context, id string) (*model.AuditRecord, error)
	ListAudits(ctx context.Context, filter AuditFilter) ([]model.AuditRecord, error)
	UpdateAuditSync(ctx context.Context, id string, status model.SyncStatus, syncErr string) error

	// Pricing matrix
	SaveMatrix(ctx context.Context, source string, cells []pricing.Cell) (*MatrixVersion, error)
	LoadMatrix(ctx context.Context) ([]pricing.Cell, error)
	ActiveMatrix(ctx context.Context) (*MatrixVersion, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100
