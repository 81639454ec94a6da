package notify

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptkach/nomulus/internal/platform/logger"
)

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	pub := NewLogPublisher(logger.NewWithWriter(&buf, "info", "json"))

	err := pub.Publish(context.Background(), Event{
		Type:           EventDomainRenewed,
		DomainName:     "example.tld",
		RegistrarID:    "TheRegistrar",
		ExpirationTime: time.Date(2032, 1, 1, 0, 0, 0, 0, time.UTC),
		ServerTRID:     "RGY-1",
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"type":"domain.renewed"`)
	assert.Contains(t, buf.String(), `"domain":"example.tld"`)
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.Publish(context.Background(), Event{}))
}
