// Package custom holds the extension points registries use to add their own
// logic to flows without forking them.
package custom

import (
	"context"
	"time"

	"github.com/ptkach/nomulus/internal/epp"
	"github.com/ptkach/nomulus/internal/registry/models"
)

// EntityChanges is what a flow persists when it completes.
type EntityChanges struct {
	Saves   []models.Entity
	Deletes []models.Key
}

type RenewBeforeValidation struct {
	Command     *epp.Command
	RegistrarID string
}

type RenewAfterValidation struct {
	Domain *models.Domain
	Years  int
	Now    time.Time
}

type RenewBeforeSave struct {
	ExistingDomain *models.Domain
	NewDomain      *models.Domain
	History        *models.HistoryEntry
	Changes        EntityChanges
	Years          int
	Now            time.Time
}

type RenewBeforeResponse struct {
	Domain     *models.Domain
	ResData    any
	Extensions []any
}

// RenewResponse is the response payload BeforeResponse hands back.
type RenewResponse struct {
	ResData    any
	Extensions []any
}

// DomainRenewHooks run at fixed stages of the renew flow. Returning an error
// aborts the command; protocol errors reach the registrar unchanged.
type DomainRenewHooks interface {
	BeforeValidation(ctx context.Context, p RenewBeforeValidation) error
	AfterValidation(ctx context.Context, p RenewAfterValidation) error
	// BeforeSave returns the changes to persist, which may replace the ones
	// the flow computed.
	BeforeSave(ctx context.Context, p RenewBeforeSave) (EntityChanges, error)
	BeforeResponse(ctx context.Context, p RenewBeforeResponse) (RenewResponse, error)
}

// NoopRenewHooks changes nothing.
type NoopRenewHooks struct{}

var _ DomainRenewHooks = NoopRenewHooks{}

func (NoopRenewHooks) BeforeValidation(context.Context, RenewBeforeValidation) error { return nil }

func (NoopRenewHooks) AfterValidation(context.Context, RenewAfterValidation) error { return nil }

func (NoopRenewHooks) BeforeSave(_ context.Context, p RenewBeforeSave) (EntityChanges, error) {
	return p.Changes, nil
}

func (NoopRenewHooks) BeforeResponse(_ context.Context, p RenewBeforeResponse) (RenewResponse, error) {
	return RenewResponse{ResData: p.ResData, Extensions: p.Extensions}, nil
}
