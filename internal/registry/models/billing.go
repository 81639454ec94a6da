package models

import (
	"slices"
	"time"
)

// BillingReason is why a billing event was charged.
type BillingReason string

const (
	BillingReasonCreate   BillingReason = "CREATE"
	BillingReasonRenew    BillingReason = "RENEW"
	BillingReasonRestore  BillingReason = "RESTORE"
	BillingReasonTransfer BillingReason = "TRANSFER"
)

// BillingFlag annotates a billing event.
type BillingFlag string

const (
	BillingFlagAutoRenew    BillingFlag = "AUTO_RENEW"
	BillingFlagAnchorTenant BillingFlag = "ANCHOR_TENANT"
)

// RenewalPriceBehavior selects how autorenewals are priced.
type RenewalPriceBehavior string

const (
	// RenewalPriceDefault charges the current renewal price, premium included.
	RenewalPriceDefault RenewalPriceBehavior = "DEFAULT"
	// RenewalPriceNonPremium charges the standard renewal price even for premium names.
	RenewalPriceNonPremium RenewalPriceBehavior = "NONPREMIUM"
	// RenewalPriceSpecified charges the recurrence's stored renewal price.
	RenewalPriceSpecified RenewalPriceBehavior = "SPECIFIED"
)

// BillingEvent is a one-time charge. Immutable once persisted.
type BillingEvent struct {
	ID                      int64         `json:"id"`
	Reason                  BillingReason `json:"reason"`
	Flags                   []BillingFlag `json:"flags,omitempty"`
	TargetID                string        `json:"targetId"`
	DomainRepoID            string        `json:"domainRepoId"`
	RegistrarID             string        `json:"registrarId"`
	Cost                    Money         `json:"cost"`
	PeriodYears             int           `json:"periodYears"`
	EventTime               time.Time     `json:"eventTime"`
	BillingTime             time.Time     `json:"billingTime"`
	DomainHistoryRevisionID int64         `json:"domainHistoryRevisionId"`
	AllocationToken         string        `json:"allocationToken,omitempty"`
}

func (b *BillingEvent) Key() Key { return BillingEventKey(b.ID) }

func (b *BillingEvent) Index() Index { return Index{Name: b.TargetID} }

func (b *BillingEvent) CloneEntity() Entity { return b.Clone() }

// Clone returns a deep copy.
func (b *BillingEvent) Clone() *BillingEvent {
	if b == nil {
		return nil
	}
	c := *b
	c.Flags = slices.Clone(b.Flags)
	return &c
}

// BillingRecurrence is the open-ended autorenew obligation of a domain.
// At most one recurrence per domain has RecurrenceEndTime in the future.
type BillingRecurrence struct {
	ID                      int64                `json:"id"`
	Reason                  BillingReason        `json:"reason"`
	Flags                   []BillingFlag        `json:"flags,omitempty"`
	TargetID                string               `json:"targetId"`
	DomainRepoID            string               `json:"domainRepoId"`
	RegistrarID             string               `json:"registrarId"`
	EventTime               time.Time            `json:"eventTime"`
	RecurrenceEndTime       time.Time            `json:"recurrenceEndTime"`
	RenewalPriceBehavior    RenewalPriceBehavior `json:"renewalPriceBehavior"`
	RenewalPrice            *Money               `json:"renewalPrice,omitempty"`
	DomainHistoryRevisionID int64                `json:"domainHistoryRevisionId"`
}

func (r *BillingRecurrence) Key() Key { return BillingRecurrenceKey(r.ID) }

func (r *BillingRecurrence) Index() Index { return Index{Name: r.TargetID} }

func (r *BillingRecurrence) CloneEntity() Entity { return r.Clone() }

// Clone returns a deep copy.
func (r *BillingRecurrence) Clone() *BillingRecurrence {
	if r == nil {
		return nil
	}
	c := *r
	c.Flags = slices.Clone(r.Flags)
	if r.RenewalPrice != nil {
		p := *r.RenewalPrice
		c.RenewalPrice = &p
	}
	return &c
}

// IsOpenAt reports whether the recurrence still bills at t.
func (r *BillingRecurrence) IsOpenAt(t time.Time) bool {
	return r.RecurrenceEndTime.After(t)
}

// ClosedAt returns a copy whose recurrence ends at t.
func (r *BillingRecurrence) ClosedAt(t time.Time) *BillingRecurrence {
	c := r.Clone()
	c.RecurrenceEndTime = t
	return c
}
