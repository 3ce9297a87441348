package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cloudcoder/internal/common"
)

// Tx is the handle a unit of work uses to talk to the store. Statements and
// result sets opened through it are released by the runner when the unit of
// work finishes, whatever the outcome.
type Tx struct {
	tx    *sql.Tx
	stmts []*sql.Stmt
	rows  []*sql.Rows
}

func newTx(tx *sql.Tx) *Tx {
	return &Tx{tx: tx}
}

// Prepare prepares a statement inside the transaction.
func (t *Tx) Prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	stmt, err := t.tx.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	t.stmts = append(t.stmts, stmt)
	return stmt, nil
}

// Query runs a query inside the transaction.
func (t *Tx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	t.rows = append(t.rows, rows)
	return rows, nil
}

// QueryStmt runs a prepared statement obtained from Prepare.
func (t *Tx) QueryStmt(ctx context.Context, stmt *sql.Stmt, args ...any) (*sql.Rows, error) {
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	t.rows = append(t.rows, rows)
	return rows, nil
}

func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

// InsertReturningKeys inserts every row of values into table with one
// statement and returns the generated keys in submission order. Receiving a
// different number of keys than rows fails with common.ErrShortBatch.
func (t *Tx) InsertReturningKeys(ctx context.Context, table, key string, columns []string, values [][]any) ([]int, error) {
	if len(values) == 0 {
		return nil, nil
	}

	var q strings.Builder
	q.WriteString("INSERT INTO ")
	q.WriteString(table)
	q.WriteString(" (")
	q.WriteString(strings.Join(columns, ", "))
	q.WriteString(") VALUES ")

	args := make([]any, 0, len(values)*len(columns))
	for i, row := range values {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values for %d columns", i, len(row), len(columns))
		}
		if i > 0 {
			q.WriteString(", ")
		}
		q.WriteString("(")
		q.WriteString(Placeholders(len(args)+1, len(row)))
		q.WriteString(")")
		args = append(args, row...)
	}
	q.WriteString(" RETURNING ")
	q.WriteString(key)

	rows, err := t.Query(ctx, q.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectKeys(rows, len(values))
}

type keyRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectKeys(rows keyRows, want int) ([]int, error) {
	keys := make([]int, 0, want)
	for rows.Next() {
		var k int
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(keys) != want {
		return nil, fmt.Errorf("%w: got %d, expected %d", common.ErrShortBatch, len(keys), want)
	}
	return keys, nil
}

func (t *Tx) cleanup() {
	for _, rows := range t.rows {
		rows.Close()
	}
	for _, stmt := range t.stmts {
		stmt.Close()
	}
	t.rows = nil
	t.stmts = nil
}

// AuthTx is handed to units of work that may signal an authentication failure.
type AuthTx struct {
	*Tx
}

// Deny returns the authentication-failure signal for reason.
func (t *AuthTx) Deny(reason string) error {
	return common.NewAuthError(reason)
}

// Placeholders renders n positional parameters starting at $start.
func Placeholders(start, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", start+i)
	}
	return b.String()
}
