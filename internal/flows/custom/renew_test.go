package custom

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptkach/nomulus/internal/registry/models"
)

func TestNoopRenewHooksPassThrough(t *testing.T) {
	ctx := context.Background()
	hooks := NoopRenewHooks{}

	require.NoError(t, hooks.BeforeValidation(ctx, RenewBeforeValidation{}))
	require.NoError(t, hooks.AfterValidation(ctx, RenewAfterValidation{Years: 2}))

	changes := EntityChanges{
		Saves:   []models.Entity{&models.Domain{RepoID: "1-TLD"}},
		Deletes: []models.Key{models.PollMessageKey(3)},
	}
	got, err := hooks.BeforeSave(ctx, RenewBeforeSave{Changes: changes})
	require.NoError(t, err)
	assert.Equal(t, changes, got)

	resp, err := hooks.BeforeResponse(ctx, RenewBeforeResponse{ResData: "data", Extensions: []any{"fee"}})
	require.NoError(t, err)
	assert.Equal(t, RenewResponse{ResData: "data", Extensions: []any{"fee"}}, resp)
}
