package domain

import (
	"context"
	"time"

	"github.com/ptkach/nomulus/internal/flows/custom"
	"github.com/ptkach/nomulus/internal/registry/models"
	"github.com/ptkach/nomulus/internal/registry/store"
)

// renewalLedger is the set of billing and messaging records a renewal
// replaces.
type renewalLedger struct {
	event       *models.BillingEvent
	recurrence  *models.BillingRecurrence
	pollMessage *models.PollMessage
	closed      []models.Entity
	deleted     []models.Key
	gracePeriod models.GracePeriod
	historyID   models.HistoryEntryID
}

type ledgerParams struct {
	domain        *models.Domain
	tld           *models.Tld
	registrarID   string
	years         int
	now           time.Time
	newExpiration time.Time
	cost          models.Money
	// recurrence is closed; pricedAs seeds the pricing of its successor.
	recurrence *models.BillingRecurrence
	pricedAs   *models.BillingRecurrence
	token      *models.AllocationToken
}

// buildRenewalLedger allocates ids and creates the RENEW charge, the next
// autorenew recurrence and poll message, and closes the old ones.
func buildRenewalLedger(ctx context.Context, tx store.Tx, p ledgerParams) (*renewalLedger, error) {
	revision, err := tx.AllocateID(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 3)
	for i := range ids {
		if ids[i], err = tx.AllocateID(ctx); err != nil {
			return nil, err
		}
	}

	d := p.domain
	l := &renewalLedger{
		historyID: models.HistoryEntryID{RepoID: d.RepoID, RevisionID: revision},
	}

	l.event = &models.BillingEvent{
		ID:                      ids[0],
		Reason:                  models.BillingReasonRenew,
		TargetID:                d.Name,
		DomainRepoID:            d.RepoID,
		RegistrarID:             p.registrarID,
		Cost:                    p.cost,
		PeriodYears:             p.years,
		EventTime:               p.now,
		BillingTime:             p.now.Add(p.tld.RenewGrace()),
		DomainHistoryRevisionID: revision,
	}
	if p.token != nil && (p.token.Behavior == "" || p.token.Behavior == models.TokenBehaviorDefault) {
		l.event.AllocationToken = p.token.Token
	}

	behavior := models.RenewalPriceDefault
	var price *models.Money
	if p.pricedAs != nil {
		if p.pricedAs.RenewalPriceBehavior != "" {
			behavior = p.pricedAs.RenewalPriceBehavior
		}
		if p.pricedAs.RenewalPrice != nil {
			v := *p.pricedAs.RenewalPrice
			price = &v
		}
	}
	l.recurrence = &models.BillingRecurrence{
		ID:                      ids[1],
		Reason:                  models.BillingReasonRenew,
		Flags:                   []models.BillingFlag{models.BillingFlagAutoRenew},
		TargetID:                d.Name,
		DomainRepoID:            d.RepoID,
		RegistrarID:             d.RegistrarID,
		EventTime:               p.newExpiration,
		RecurrenceEndTime:       models.EndOfTime,
		RenewalPriceBehavior:    behavior,
		RenewalPrice:            price,
		DomainHistoryRevisionID: revision,
	}

	l.pollMessage = &models.PollMessage{
		ID:                      ids[2],
		Kind:                    models.PollMessageAutorenew,
		RegistrarID:             d.RegistrarID,
		EventTime:               p.newExpiration,
		Message:                 models.AutorenewPollMessageText,
		TargetID:                d.Name,
		DomainRepoID:            d.RepoID,
		AutorenewEndTime:        models.EndOfTime,
		DomainHistoryRevisionID: revision,
	}

	if p.recurrence != nil {
		l.closed = append(l.closed, p.recurrence.ClosedAt(p.now))
	}
	if err := l.closePollMessage(ctx, tx, d.AutorenewPollMessageID, p.now); err != nil {
		return nil, err
	}

	l.gracePeriod = models.GracePeriodForBillingEvent(models.GracePeriodRenew, d.RepoID, p.now.Add(p.tld.RenewGrace()), l.event)
	return l, nil
}

// closePollMessage ends the old autorenew poll message at now. A message
// whose first delivery is still ahead would never deliver and is removed.
func (l *renewalLedger) closePollMessage(ctx context.Context, tx store.Tx, id int64, now time.Time) error {
	if id == 0 {
		return nil
	}
	pm, ok, err := store.LoadIfPresent[*models.PollMessage](ctx, tx, models.PollMessageKey(id))
	if err != nil || !ok {
		return err
	}
	if !pm.EventTime.Before(now) {
		l.deleted = append(l.deleted, pm.Key())
		return nil
	}
	l.closed = append(l.closed, pm.WithAutorenewEndTime(now))
	return nil
}

func (l *renewalLedger) changes(domain *models.Domain, history *models.HistoryEntry, extra ...models.Entity) custom.EntityChanges {
	saves := []models.Entity{domain, history, l.event, l.recurrence, l.pollMessage}
	saves = append(saves, l.closed...)
	saves = append(saves, extra...)
	return custom.EntityChanges{Saves: saves, Deletes: l.deleted}
}

// persist writes changes. Billing events and history entries are immutable
// and inserted; everything else is upserted.
func persist(ctx context.Context, tx store.Tx, changes custom.EntityChanges) error {
	for _, e := range changes.Saves {
		var err error
		switch e.(type) {
		case *models.BillingEvent, *models.HistoryEntry:
			err = tx.Insert(ctx, e)
		default:
			err = tx.Put(ctx, e)
		}
		if err != nil {
			return err
		}
	}
	for _, key := range changes.Deletes {
		if err := tx.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
