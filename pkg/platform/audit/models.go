// Package audit records the append-only activity log: one entry per live EPP
// command, written before the command's transaction commits and kept apart
// from the history entries flows persist. Downstream ICANN activity reports
// are built from it.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Activity is the ICANN activity report field a command counts toward.
type Activity string

const (
	ActivityDomainRenew    Activity = "domain-renew"
	ActivityDomainCreate   Activity = "domain-create"
	ActivityDomainDelete   Activity = "domain-delete"
	ActivityDomainTransfer Activity = "domain-transfer"
	ActivityDomainInfo     Activity = "domain-info"
	ActivityOther          Activity = "other"
)

// ActivityEvent is one activity log entry.
type ActivityEvent struct {
	ID          uuid.UUID
	Timestamp   time.Time
	ServerTRID  string
	ClientTRID  string
	RegistrarID string
	Flow        string
	Activity    Activity
	TargetIDs   []string
	TLDs        []string
	Superuser   bool
	Source      string
	// RequestID is the transport correlation id, when there is one.
	RequestID string
}

// Store persists activity events.
type Store interface {
	Append(ctx context.Context, event ActivityEvent) error
	ListByRegistrar(ctx context.Context, registrarID string) ([]ActivityEvent, error)
	ListRecent(ctx context.Context, limit int) ([]ActivityEvent, error)
}
