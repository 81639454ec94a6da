package models

import "time"

// GracePeriodType identifies the action a grace period allows reversing.
type GracePeriodType string

const (
	GracePeriodAdd           GracePeriodType = "ADD"
	GracePeriodAutoRenew     GracePeriodType = "AUTO_RENEW"
	GracePeriodPendingDelete GracePeriodType = "PENDING_DELETE"
	GracePeriodRedemption    GracePeriodType = "REDEMPTION"
	GracePeriodRenew         GracePeriodType = "RENEW"
	GracePeriodTransfer      GracePeriodType = "TRANSFER"
)

// GracePeriod is a value embedded in its Domain. Grace periods are created and
// later removed, never edited in place.
type GracePeriod struct {
	Type                GracePeriodType `json:"type"`
	DomainRepoID        string          `json:"domainRepoId"`
	ExpirationTime      time.Time       `json:"expirationTime"`
	RegistrarID         string          `json:"registrarId"`
	BillingEventID      int64           `json:"billingEventId,omitempty"`
	BillingRecurrenceID int64           `json:"billingRecurrenceId,omitempty"`
}

// GracePeriodForBillingEvent builds a grace period that refunds event if the
// action is undone before expiration.
func GracePeriodForBillingEvent(t GracePeriodType, repoID string, expiration time.Time, event *BillingEvent) GracePeriod {
	return GracePeriod{
		Type:           t,
		DomainRepoID:   repoID,
		ExpirationTime: expiration,
		RegistrarID:    event.RegistrarID,
		BillingEventID: event.ID,
	}
}

// IsActiveAt reports whether the grace period has not yet expired at t.
func (g GracePeriod) IsActiveAt(t time.Time) bool {
	return g.ExpirationTime.After(t)
}
