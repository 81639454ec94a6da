// Package flows executes EPP commands.
//
// A Flow is one state transition per command. The Runner executes a flow in a
// transaction (or inline when one is already open), captures dry runs by
// rolling the transaction back, and records activity. The Controller sits in
// front of the Runner: it parses input, assigns the server trid, picks the
// flow and maps every failure onto an EPP response.
package flows

import (
	"context"

	"github.com/ptkach/nomulus/internal/epp"
	"github.com/ptkach/nomulus/internal/epp/session"
	"github.com/ptkach/nomulus/internal/registry/models"
	"github.com/ptkach/nomulus/internal/registry/store"
	audit "github.com/ptkach/nomulus/pkg/platform/audit"
)

//go:generate mockgen -source=flow.go -destination=mocks/flow_mocks.go -package=mocks

// Descriptor is the static metadata of a flow.
type Descriptor struct {
	Name          string
	Transactional bool
	// Isolation overrides the manager default when set.
	Isolation store.Isolation
	Activity  audit.Activity
}

// Input is everything a flow may read besides persisted state.
type Input struct {
	Command   *epp.Command
	Session   session.Session
	Trid      models.Trid
	DryRun    bool
	Superuser bool
	// Raw is the unparsed command, stored on history entries.
	Raw []byte
}

// Flow implements one EPP command. tx is nil for flows that are not
// transactional.
type Flow interface {
	Descriptor() Descriptor
	Run(ctx context.Context, tx store.Tx, in *Input) (*epp.Response, error)
}

// ResultKind is how a run finished.
type ResultKind int

const (
	Committed ResultKind = iota
	DryRun
	// Inline runs joined an open transaction or needed none.
	Inline
)

func (k ResultKind) String() string {
	switch k {
	case DryRun:
		return "dry_run"
	case Inline:
		return "inline"
	default:
		return "committed"
	}
}

// Result is a successful run.
type Result struct {
	Response *epp.Response
	Kind     ResultKind
}
