package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := NewPersistenceError("importing users", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(dup))
	assert.Equal(t, http.StatusConflict, HTTPStatusFromError(dup))

	fk := &pgconn.PgError{Code: "23503"}
	assert.False(t, IsUniqueViolation(fk))
	assert.False(t, IsUniqueViolation(errors.New("duplicate key")))
}

func TestHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("problem 3: %w", ErrNotFound), http.StatusNotFound},
		{NewAuthError("not instructor in course"), http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrValidation, http.StatusBadRequest},
		{ErrConflict, http.StatusConflict},
		{fmt.Errorf("enqueueing: %w: %w", ErrServiceUnavailable, errors.New("dial tcp")), http.StatusServiceUnavailable},
		{ErrLockFailed, http.StatusServiceUnavailable},
		{NewPersistenceError("getting user", errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatusFromError(tt.err), "%v", tt.err)
	}
}
