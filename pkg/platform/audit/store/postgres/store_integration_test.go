//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "github.com/ptkach/nomulus/pkg/platform/audit"
	"github.com/ptkach/nomulus/pkg/testutil/containers"
)

func TestActivityLogRoundTrip(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()

	pool, err := Open(ctx, pg.URL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool))
	require.NoError(t, Migrate(ctx, pool), "schema is idempotent")

	s := New(pool)
	base := time.Date(2029, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, registrar := range []string{"TheRegistrar", "NewRegistrar", "TheRegistrar"} {
		require.NoError(t, s.Append(ctx, audit.ActivityEvent{
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			ServerTRID:  "RGY-" + uuid.NewString(),
			ClientTRID:  "ABC-12345",
			RegistrarID: registrar,
			Flow:        "DomainRenewFlow",
			Activity:    audit.ActivityDomainRenew,
			TargetIDs:   []string{"example.tld"},
			TLDs:        []string{"tld"},
			Source:      "http",
		}))
	}

	events, err := s.ListByRegistrar(ctx, "TheRegistrar")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, base, events[0].Timestamp)
	assert.Equal(t, audit.ActivityDomainRenew, events[0].Activity)
	assert.Equal(t, []string{"example.tld"}, events[0].TargetIDs)
	assert.NotEqual(t, uuid.Nil, events[0].ID)

	recent, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "NewRegistrar", recent[0].RegistrarID, "oldest of the newest two first")
	assert.Equal(t, base.Add(2*time.Minute), recent[1].Timestamp)
}
