package flows

import (
	"github.com/ptkach/nomulus/internal/epp"
	"github.com/ptkach/nomulus/internal/epp/session"
)

// ExtensionManager tracks the protocol extensions a flow implements and
// checks the ones a command carries against them.
type ExtensionManager struct {
	implemented map[epp.ExtensionType]struct{}
}

func NewExtensionManager(types ...epp.ExtensionType) *ExtensionManager {
	m := &ExtensionManager{implemented: make(map[epp.ExtensionType]struct{}, len(types))}
	m.Register(types...)
	return m
}

// Register marks types as implemented by the flow.
func (m *ExtensionManager) Register(types ...epp.ExtensionType) {
	for _, t := range types {
		m.implemented[t] = struct{}{}
	}
}

func (m *ExtensionManager) Implements(t epp.ExtensionType) bool {
	_, ok := m.implemented[t]
	return ok
}

// Validate rejects extensions the session never declared (2002), then
// extension elements the flow does not implement (2103), then repeats of one
// element (2001). Metadata may only come from administrative tooling.
func (m *ExtensionManager) Validate(sess session.Session, ext epp.Extensions) error {
	for _, uri := range ext.URIs() {
		if !sess.Declares(uri) {
			return epp.ErrUndeclaredExtension(uri)
		}
	}
	for _, t := range ext.Types {
		if !m.Implements(t) {
			return epp.ErrUnimplementedExtension(t.String())
		}
	}
	seen := make(map[epp.ExtensionType]struct{}, len(ext.Types))
	for _, t := range ext.Types {
		if _, ok := seen[t]; ok {
			return epp.ErrRepeatedExtension(t.String())
		}
		seen[t] = struct{}{}
	}
	if ext.Metadata != nil && sess.Source != session.SourceTool {
		return epp.ErrMetadataNotFromTool()
	}
	return nil
}
