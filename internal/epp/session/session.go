// Package session describes the registrar session a command arrives on, as
// established by the transport in front of the registry.
package session

import (
	"fmt"
	"slices"

	"github.com/ptkach/nomulus/internal/epp"
)

// CredentialKind is how the transport authenticated the registrar.
type CredentialKind string

const (
	CredentialNone        CredentialKind = "none"
	CredentialPassword    CredentialKind = "password"
	CredentialCertificate CredentialKind = "certificate"
	// CredentialTool marks commands issued through administrative tooling.
	CredentialTool CredentialKind = "tool"
)

// Source identifies the entry point a command came through.
type Source string

const (
	SourceHTTP Source = "http"
	SourceTool Source = "tool"
)

// Session is the registrar's view of the connection. A zero RegistrarID means
// nobody is logged in.
type Session struct {
	RegistrarID       string
	ServiceExtensions []string
	Credentials       CredentialKind
	Source            Source
}

// Stateless is a session for transports without an EPP login: the front end
// vouches for the registrar and every supported extension is declared.
func Stateless(registrarID string, credentials CredentialKind, source Source) Session {
	return Session{
		RegistrarID:       registrarID,
		ServiceExtensions: slices.Clone(epp.ServiceExtensions),
		Credentials:       credentials,
		Source:            source,
	}
}

func (s Session) IsLoggedIn() bool {
	return s.RegistrarID != ""
}

// Declares reports whether the session declared the extension uri.
func (s Session) Declares(uri string) bool {
	return slices.Contains(s.ServiceExtensions, uri)
}

// String renders the session for command logs.
func (s Session) String() string {
	return fmt.Sprintf("{registrar=%s extensions=%v credentials=%s}", s.RegistrarID, s.ServiceExtensions, s.Credentials)
}
