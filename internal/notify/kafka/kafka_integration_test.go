//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/ptkach/nomulus/internal/notify"
)

func TestPublishDeliversKeyedRecords(t *testing.T) {
	ctx := context.Background()
	container, err := redpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v24.1.7")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	broker, err := container.KafkaSeedBroker(ctx)
	require.NoError(t, err)

	const topic = "registry.domain-events"
	pub, err := New([]string{broker}, topic)
	require.NoError(t, err)
	t.Cleanup(pub.Close)
	require.NoError(t, pub.EnsureTopic(ctx, 1, 1))
	require.NoError(t, pub.EnsureTopic(ctx, 1, 1), "existing topics are accepted")

	event := notify.Event{
		Type:           notify.EventDomainRenewed,
		DomainName:     "example.tld",
		RegistrarID:    "TheRegistrar",
		ExpirationTime: time.Date(2032, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodYears:    2,
	}
	require.NoError(t, pub.Publish(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	pollCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(pollCtx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.Len(t, records, 1)

	assert.Equal(t, "example.tld", string(records[0].Key))
	var got notify.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, event.Type, got.Type)
	assert.Equal(t, 2, got.PeriodYears)
	assert.True(t, event.ExpirationTime.Equal(got.ExpirationTime))
}
