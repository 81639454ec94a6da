package tx

import "context"

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores an open transaction in context for downstream store usage.
// A nil transaction leaves the context untouched.
func WithTx[T any](ctx context.Context, tx T) context.Context {
	if any(tx) == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a transaction of type T from context if present.
func From[T any](ctx context.Context) (T, bool) {
	tx, ok := ctx.Value(txKey).(T)
	return tx, ok
}
