package ports

import "context"

// Tx is an opaque transaction handle owned by infrastructure (for example *gorm.DB).
type Tx interface{}

// UnitOfWork runs fn in one transaction: a returned error rolls back, nil commits.
// Repositories pick the transaction up from the context passed to fn.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

func WithTxContext(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func TxFromContext(ctx context.Context) Tx {
	if ctx == nil {
		return nil
	}
	return ctx.Value(txKey{})
}
