package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ptkach/nomulus/internal/epp"
)

func TestStateless(t *testing.T) {
	s := Stateless("TheRegistrar", CredentialCertificate, SourceHTTP)
	assert.True(t, s.IsLoggedIn())
	assert.True(t, s.Declares(epp.FeeURI))
	assert.True(t, s.Declares(epp.AllocationTokenURI))
	assert.False(t, s.Declares("urn:ietf:params:xml:ns:secDNS-1.1"))

	s.ServiceExtensions[0] = "mutated"
	assert.Equal(t, epp.FeeURI, epp.ServiceExtensions[0], "sessions must not share the global list")
}

func TestAnonymousSession(t *testing.T) {
	var s Session
	assert.False(t, s.IsLoggedIn())
	assert.False(t, s.Declares(epp.FeeURI))
}
