package database

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
)

var errReleaseWithoutAcquire = errors.New("database: release without matching acquire")

// Registry hands out one connection per request context. The first Acquire
// on a context takes a dedicated connection from the pool; Acquire on the
// returned context (or any context derived from it) reuses that connection
// and bumps its reference count. Release gives the connection back once the
// count returns to zero.
//
// A lease belongs to the goroutine serving the request. Contexts carrying a
// lease must not be shared with other goroutines.
type Registry struct {
	db   *sql.DB
	open atomic.Int64
}

type leaseKey struct{ r *Registry }

type lease struct {
	conn     *sql.Conn
	refCount int
	tx       *Tx // transaction in progress on conn, if any
}

func NewRegistry(db *sql.DB) *Registry {
	return &Registry{db: db}
}

// Acquire returns a context bound to the connection together with the
// connection itself.
func (r *Registry) Acquire(ctx context.Context) (context.Context, *sql.Conn, error) {
	if l := r.lease(ctx); l != nil && l.refCount > 0 {
		l.refCount++
		return ctx, l.conn, nil
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return ctx, nil, err
	}
	r.open.Add(1)
	l := &lease{conn: conn, refCount: 1}
	return context.WithValue(ctx, leaseKey{r}, l), conn, nil
}

// Release drops one reference taken by Acquire on ctx.
func (r *Registry) Release(ctx context.Context) error {
	l := r.lease(ctx)
	if l == nil || l.refCount == 0 {
		return errReleaseWithoutAcquire
	}
	l.refCount--
	if l.refCount > 0 {
		return nil
	}

	conn := l.conn
	l.conn = nil
	l.tx = nil
	r.open.Add(-1)
	return conn.Close()
}

// OpenConnections is the number of leases currently holding a connection.
func (r *Registry) OpenConnections() int64 {
	return r.open.Load()
}

// RefCount reports the reference count of the lease carried by ctx.
func (r *Registry) RefCount(ctx context.Context) int {
	if l := r.lease(ctx); l != nil {
		return l.refCount
	}
	return 0
}

func (r *Registry) lease(ctx context.Context) *lease {
	l, _ := ctx.Value(leaseKey{r}).(*lease)
	return l
}
