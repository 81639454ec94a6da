package models

import (
	"slices"
	"time"
)

// Domain is the aggregate root for a registered domain name.
//
// Invariants:
//   - RepoID is immutable and unique across all domains ever created
//   - A live domain has DeletionTime == EndOfTime; domains are soft-deleted only
//   - AutorenewBillingEventID references the single open BillingRecurrence
//   - Every GracePeriod references a persisted BillingEvent or BillingRecurrence
type Domain struct {
	RepoID                     string        `json:"repoId"`
	Name                       string        `json:"name"`
	TLD                        string        `json:"tld"`
	RegistrarID                string        `json:"registrarId"`
	CreationRegistrarID        string        `json:"creationRegistrarId"`
	CreationTime               time.Time     `json:"creationTime"`
	RegistrationExpirationTime time.Time     `json:"registrationExpirationTime"`
	DeletionTime               time.Time     `json:"deletionTime"`
	Statuses                   []StatusValue `json:"statuses,omitempty"`
	GracePeriods               []GracePeriod `json:"gracePeriods,omitempty"`
	AutorenewBillingEventID    int64         `json:"autorenewBillingEventId"`
	AutorenewPollMessageID     int64         `json:"autorenewPollMessageId"`
	LastEppUpdateTime          time.Time     `json:"lastEppUpdateTime"`
	LastEppUpdateRegistrarID   string        `json:"lastEppUpdateRegistrarId"`
	AuthInfo                   string        `json:"authInfo,omitempty"`
	CurrentBulkToken           string        `json:"currentBulkToken,omitempty"`
}

func (d *Domain) Key() Key { return DomainKey(d.RepoID) }

func (d *Domain) Index() Index {
	return Index{Name: d.Name, DeletionTime: d.DeletionTime}
}

func (d *Domain) CloneEntity() Entity { return d.Clone() }

// Clone returns a deep copy.
func (d *Domain) Clone() *Domain {
	if d == nil {
		return nil
	}
	c := *d
	c.Statuses = slices.Clone(d.Statuses)
	c.GracePeriods = slices.Clone(d.GracePeriods)
	return &c
}

// IsActiveAt reports whether the domain exists at t.
func (d *Domain) IsActiveAt(t time.Time) bool {
	return d.DeletionTime.IsZero() || d.DeletionTime.After(t)
}

func (d *Domain) HasStatus(s StatusValue) bool {
	return ContainsStatus(d.Statuses, s)
}

// IsBulkPriced reports whether the domain is currently billed under a bulk
// pricing token.
func (d *Domain) IsBulkPriced() bool {
	return d.CurrentBulkToken != ""
}

// ApplyRenewal moves the domain onto a new registration term. The caller has
// already created the recurrence and poll message the new ids point at.
func (d *Domain) ApplyRenewal(now time.Time, registrarID string, newExpiration time.Time,
	recurrenceID, pollMessageID int64, grace GracePeriod) {
	d.RegistrationExpirationTime = newExpiration
	d.LastEppUpdateTime = now
	d.LastEppUpdateRegistrarID = registrarID
	d.AutorenewBillingEventID = recurrenceID
	d.AutorenewPollMessageID = pollMessageID
	d.GracePeriods = append(d.GracePeriods, grace)
}
