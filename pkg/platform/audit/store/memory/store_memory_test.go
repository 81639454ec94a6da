package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "github.com/ptkach/nomulus/pkg/platform/audit"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	targets := []string{"example.tld"}
	require.NoError(t, s.Append(ctx, audit.ActivityEvent{ServerTRID: "RGY-1", RegistrarID: "TheRegistrar", TargetIDs: targets}))
	require.NoError(t, s.Append(ctx, audit.ActivityEvent{ServerTRID: "RGY-2", RegistrarID: "NewRegistrar"}))
	require.NoError(t, s.Append(ctx, audit.ActivityEvent{ServerTRID: "RGY-3", RegistrarID: "TheRegistrar"}))
	targets[0] = "mutated.tld"

	mine, err := s.ListByRegistrar(ctx, "TheRegistrar")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "RGY-1", mine[0].ServerTRID)
	assert.Equal(t, []string{"example.tld"}, mine[0].TargetIDs, "stored events do not alias caller slices")

	recent, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"RGY-2", "RGY-3"}, []string{recent[0].ServerTRID, recent[1].ServerTRID})

	all, err := s.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	s.Clear()
	all, err = s.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, all)
}
