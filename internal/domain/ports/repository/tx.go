package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes a function inside one database transaction,
// handing the transaction handle back through `tx`.
//
// Repositories accept the same opaque `tx` and must gracefully fall back to
// their pooled connection when it is nil (NoTX). The concrete type is
// infra-defined (pgx.Tx for Postgres). Admission relies on this to run the
// quota check and its inserts atomically; enqueueing happens only after
// WithTx returns.
//
// Keep this interface small and stable.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
