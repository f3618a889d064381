package order

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-mithai/internal/db"
)

// TxQueries is the write surface used while an order is being placed.
type TxQueries interface {
	NextOrderSequence(ctx context.Context, year int32) (int64, error)
	CreateOrder(ctx context.Context, arg db.CreateOrderParams) (db.Order, error)
	InsertOrderItem(ctx context.Context, arg db.InsertOrderItemParams) error
}

// TxRunner runs fn inside one database transaction, committing when fn
// returns nil.
type TxRunner interface {
	InTx(ctx context.Context, fn func(TxQueries) error) error
}

// PgxTxRunner runs transactions on a pgx pool.
type PgxTxRunner struct {
	Pool *pgxpool.Pool
	Q    *db.Queries
}

// InTx implements TxRunner.
func (r PgxTxRunner) InTx(ctx context.Context, fn func(TxQueries) error) error {
	if r.Pool == nil || r.Q == nil {
		return errors.New("order: transaction runner not configured")
	}
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(r.Q.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
