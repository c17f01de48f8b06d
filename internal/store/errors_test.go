package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{"unique violation", "23505", ErrDuplicate},
		{"foreign key violation", "23503", ErrMissingGridCell},
		{"invalid text representation", "22P02", ErrInvalidGeometry},
		{"postgis internal error", "XX000", ErrInvalidGeometry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(&pgconn.PgError{Code: tt.code, Message: tt.name})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMapError_Passthrough(t *testing.T) {
	plain := errors.New("connection refused")
	assert.Equal(t, plain, mapError(plain))

	wrapped := fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23503"})
	assert.ErrorIs(t, mapError(wrapped), ErrMissingGridCell)

	other := &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
	assert.Equal(t, error(other), mapError(other))
}
