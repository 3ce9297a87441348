package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cloudcoder/internal/common"
)

// Work is a unit of work that never signals an authentication failure.
type Work[T any] interface {
	Run(ctx context.Context, tx *Tx) (T, error)
	Description() string
}

// AuthWork is a unit of work that may signal an authentication failure
// through AuthTx.Deny.
type AuthWork[T any] interface {
	Run(ctx context.Context, tx *AuthTx) (T, error)
	Description() string
}

type workFunc[T any] struct {
	desc string
	fn   func(ctx context.Context, tx *Tx) (T, error)
}

func (w workFunc[T]) Run(ctx context.Context, tx *Tx) (T, error) { return w.fn(ctx, tx) }
func (w workFunc[T]) Description() string                         { return w.desc }

// NewWork wraps fn as a Work. desc names the operation in logs and errors.
func NewWork[T any](desc string, fn func(ctx context.Context, tx *Tx) (T, error)) Work[T] {
	return workFunc[T]{desc: desc, fn: fn}
}

type authWorkFunc[T any] struct {
	desc string
	fn   func(ctx context.Context, tx *AuthTx) (T, error)
}

func (w authWorkFunc[T]) Run(ctx context.Context, tx *AuthTx) (T, error) { return w.fn(ctx, tx) }
func (w authWorkFunc[T]) Description() string                             { return w.desc }

func NewAuthWork[T any](desc string, fn func(ctx context.Context, tx *AuthTx) (T, error)) AuthWork[T] {
	return authWorkFunc[T]{desc: desc, fn: fn}
}

type promoted[T any] struct {
	w Work[T]
}

func (p promoted[T]) Run(ctx context.Context, tx *AuthTx) (T, error) { return p.w.Run(ctx, tx.Tx) }
func (p promoted[T]) Description() string                             { return p.w.Description() }

// AsAuth lets w run wherever an AuthWork is expected.
func AsAuth[T any](w Work[T]) AuthWork[T] {
	return promoted[T]{w: w}
}

// Runner executes units of work inside explicit transactions.
type Runner struct {
	registry *Registry
	log      *zap.Logger
	metrics  *Metrics
}

// NewRunner builds a Runner. metrics may be nil.
func NewRunner(registry *Registry, log *zap.Logger, metrics *Metrics) *Runner {
	return &Runner{registry: registry, log: log, metrics: metrics}
}

func (r *Runner) Registry() *Registry {
	return r.registry
}

// Run executes w in a transaction and returns its result. An authentication
// failure escaping w is reported as common.ErrIllegalState.
func Run[T any](ctx context.Context, r *Runner, w Work[T]) (T, error) {
	var result T
	err := r.do(ctx, w.Description(), func(ctx context.Context, tx *Tx) error {
		var err error
		result, err = w.Run(ctx, tx)
		return err
	})
	if err != nil {
		var zero T
		if errors.Is(err, common.ErrUnauthorized) {
			return zero, fmt.Errorf("%w: %s signalled an authentication failure: %v", common.ErrIllegalState, w.Description(), err)
		}
		return zero, err
	}
	return result, nil
}

// RunAuth executes w in a transaction. Authentication failures are returned
// as *common.AuthError.
func RunAuth[T any](ctx context.Context, r *Runner, w AuthWork[T]) (T, error) {
	var result T
	err := r.do(ctx, w.Description(), func(ctx context.Context, tx *Tx) error {
		var err error
		result, err = w.Run(ctx, &AuthTx{Tx: tx})
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// do runs fn against the connection leased for ctx. A context whose lease
// already has a transaction in progress joins it: fn's effects commit or roll
// back with the outer unit of work.
func (r *Runner) do(ctx context.Context, desc string, fn func(ctx context.Context, tx *Tx) error) (err error) {
	ctx, conn, err := r.registry.Acquire(ctx)
	if err != nil {
		return common.NewPersistenceError(desc, err)
	}
	defer func() {
		if relErr := r.registry.Release(ctx); relErr != nil && err == nil {
			err = common.NewPersistenceError(desc, relErr)
		}
	}()

	l := r.registry.lease(ctx)
	if l.tx != nil {
		return classify(desc, fn(ctx, l.tx))
	}

	start := time.Now()
	sqlTx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return common.NewPersistenceError(desc, err)
	}
	tx := newTx(sqlTx)
	l.tx = tx

	// FIXME: a serialization failure or deadlock should be retried instead of surfaced.
	committed := false
	defer func() {
		tx.cleanup()
		l.tx = nil
		if committed {
			r.metrics.observe(outcomeCommit, start)
			r.log.Debug("transaction committed", zap.String("op", desc), zap.Duration("elapsed", time.Since(start)))
			return
		}
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.log.Error("rollback failed", zap.String("op", desc), zap.Error(rbErr))
		}
		r.metrics.observe(outcomeRollback, start)
		r.log.Warn("transaction rolled back", zap.String("op", desc), zap.Error(err))
	}()

	if err = fn(ctx, tx); err != nil {
		err = classify(desc, err)
		return err
	}
	tx.cleanup()
	if err = sqlTx.Commit(); err != nil {
		err = common.NewPersistenceError(desc, err)
		return err
	}
	committed = true
	return nil
}

// classify leaves already-typed failures alone and wraps everything else as
// a persistence failure.
func classify(desc string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		common.ErrUnauthorized,
		common.ErrPersistence,
		common.ErrIllegalState,
		common.ErrValidation,
		common.ErrBadRequest,
		common.ErrNotFound,
		common.ErrConflict,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return common.NewPersistenceError(desc, err)
}
