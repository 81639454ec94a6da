package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ptkach/nomulus/internal/registry/models"
	dErrors "github.com/ptkach/nomulus/pkg/domain-errors"
	"github.com/ptkach/nomulus/pkg/platform/sentinel"
)

// Load reads key and asserts its concrete type.
func Load[T models.Entity](ctx context.Context, r Reader, key models.Key) (T, error) {
	var zero T
	e, err := r.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	typed, ok := e.(T)
	if !ok {
		return zero, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("entity %s has unexpected type %T", key, e))
	}
	return typed, nil
}

// LoadIfPresent is Load that reports absence instead of failing.
func LoadIfPresent[T models.Entity](ctx context.Context, r Reader, key models.Key) (T, bool, error) {
	typed, err := Load[T](ctx, r, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		return typed, false, err
	}
	return typed, true, nil
}

// QueryAll runs q and asserts every result's type.
func QueryAll[T models.Entity](ctx context.Context, r Reader, q Query) ([]T, error) {
	entities, err := r.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(entities))
	for _, e := range entities {
		typed, ok := e.(T)
		if !ok {
			return nil, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("entity %s has unexpected type %T", e.Key(), e))
		}
		out = append(out, typed)
	}
	return out, nil
}

// PutAll upserts entities in order.
func PutAll(ctx context.Context, w Writer, entities ...models.Entity) error {
	for _, e := range entities {
		if err := w.Put(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// InsertAll inserts immutable entities in order.
func InsertAll(ctx context.Context, w Writer, entities ...models.Entity) error {
	for _, e := range entities {
		if err := w.Insert(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
