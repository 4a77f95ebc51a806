package resilience

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("boom")), true},
		{"wrapped explicit", fmt.Errorf("outer: %w", NewTransientError(errors.New("boom"))), true},
		{"conn refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"timeout", context.DeadlineExceeded, true},
		{"postgres starting", errors.New("FATAL: the database system is starting up (SQLSTATE 57P03)"), true},
		{"sqlite locked", eris.Wrap(errors.New("database is locked (5) (SQLITE_BUSY)"), "sqlite: insert audit"), true},
		{"constraint", errors.New("UNIQUE constraint failed: pricing_matrix_cells.version_id"), false},
		{"plain", errors.New("bad input"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
