package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ptkach/nomulus/internal/epp"
	"github.com/ptkach/nomulus/internal/flows"
	"github.com/ptkach/nomulus/internal/flows/custom"
	"github.com/ptkach/nomulus/internal/flows/pricing"
	"github.com/ptkach/nomulus/internal/flows/token"
	"github.com/ptkach/nomulus/internal/notify"
	"github.com/ptkach/nomulus/internal/registry/models"
	"github.com/ptkach/nomulus/internal/registry/store"
	dErrors "github.com/ptkach/nomulus/pkg/domain-errors"
	audit "github.com/ptkach/nomulus/pkg/platform/audit"
)

// renewDisallowedStatuses block an explicit renew.
var renewDisallowedStatuses = []models.StatusValue{
	models.StatusClientRenewProhibited,
	models.StatusServerRenewProhibited,
	models.StatusPendingDelete,
	models.StatusPendingTransfer,
}

// maxRenewYears is the longest single renewal term EPP allows.
const maxRenewYears = 10

// RenewFlow extends a domain's registration by a number of years.
//
// The registrar names the current expiration date, which must match the
// stored one, so a retried renew is rejected instead of renewing twice. The
// flow charges a one-time RENEW billing event, moves the autorenew
// recurrence and poll message to the new expiration and opens a renew grace
// period. A single-use allocation token is redeemed in the same transaction.
type RenewFlow struct {
	deps       Deps
	extensions *flows.ExtensionManager
}

var _ flows.Flow = (*RenewFlow)(nil)

func NewRenewFlow(deps Deps) *RenewFlow {
	return &RenewFlow{
		deps:       deps.withDefaults(),
		extensions: flows.NewExtensionManager(epp.FeeRenewExtension, epp.AllocationTokenExtension, epp.MetadataExtension),
	}
}

func (f *RenewFlow) Descriptor() flows.Descriptor {
	return flows.Descriptor{
		Name:          "DomainRenewFlow",
		Transactional: true,
		Activity:      audit.ActivityDomainRenew,
	}
}

// renewValidation carries what the checks established.
type renewValidation struct {
	registrarID string
	domain      *models.Domain
	tld         *models.Tld
	token       *models.AllocationToken
}

func (f *RenewFlow) Run(ctx context.Context, tx store.Tx, in *flows.Input) (*epp.Response, error) {
	cmd := in.Command.DomainRenew
	if cmd == nil {
		return nil, epp.ErrSyntax("missing domain:renew element")
	}
	ext := in.Command.Extensions
	if err := f.extensions.Validate(in.Session, ext); err != nil {
		return nil, err
	}
	registrarID := in.Session.RegistrarID
	if err := f.deps.Hooks.BeforeValidation(ctx, custom.RenewBeforeValidation{
		Command:     in.Command,
		RegistrarID: registrarID,
	}); err != nil {
		return nil, err
	}

	now := tx.Now()
	v, err := f.validate(ctx, tx, in, now)
	if err != nil {
		return nil, err
	}

	existing := token.ApplyBulkRemoval(v.domain, v.token)
	years := cmd.Period.Value
	if years < 1 || years > maxRenewYears {
		return nil, epp.ErrBadPeriodValue(years)
	}
	newExpiration := models.LeapSafeAddYears(existing.RegistrationExpirationTime, years)
	if newExpiration.After(models.LeapSafeAddYears(now, f.deps.MaxRegistrationYears)) {
		return nil, epp.ErrExceedsMaxRegistrationYears(f.deps.MaxRegistrationYears)
	}

	recurrence, err := loadRecurrence(ctx, tx, existing)
	if err != nil {
		return nil, err
	}
	pricedAs := pricingRecurrence(recurrence, v.token)
	fees, err := f.deps.Pricing.RenewPrice(ctx, tx, v.tld, existing.Name, now, years, pricedAs, v.token)
	if err != nil {
		return nil, err
	}
	if err := pricing.ValidateFeeChallenge(ext.FeeRenew, fees, token.IsDefaultPromo(v.token)); err != nil {
		return nil, err
	}

	if err := f.deps.Hooks.AfterValidation(ctx, custom.RenewAfterValidation{
		Domain: existing,
		Years:  years,
		Now:    now,
	}); err != nil {
		return nil, err
	}

	ledger, err := buildRenewalLedger(ctx, tx, ledgerParams{
		domain:        existing,
		tld:           v.tld,
		registrarID:   registrarID,
		years:         years,
		now:           now,
		newExpiration: newExpiration,
		cost:          fees.Total(),
		recurrence:    recurrence,
		pricedAs:      pricedAs,
		token:         v.token,
	})
	if err != nil {
		return nil, err
	}

	newDomain := existing.Clone()
	newDomain.ApplyRenewal(now, registrarID, newExpiration, ledger.recurrence.ID, ledger.pollMessage.ID, ledger.gracePeriod)

	history, err := f.historyEntry(in, newDomain, v.tld, ledger, years, now)
	if err != nil {
		return nil, err
	}

	var extra []models.Entity
	if v.token != nil && v.token.IsOneTimeUse() {
		redeemed, err := token.Redeem(v.token, ledger.historyID, now)
		if err != nil {
			return nil, err
		}
		extra = append(extra, redeemed)
	}

	changes, err := f.deps.Hooks.BeforeSave(ctx, custom.RenewBeforeSave{
		ExistingDomain: existing,
		NewDomain:      newDomain,
		History:        history,
		Changes:        ledger.changes(newDomain, history, extra...),
		Years:          years,
		Now:            now,
	})
	if err != nil {
		return nil, err
	}

	var extensions []any
	if ext.FeeRenew != nil {
		extensions = append(extensions, epp.NewFeeRenewData(fees.Total(), years, fees.Premium))
	}
	out, err := f.deps.Hooks.BeforeResponse(ctx, custom.RenewBeforeResponse{
		Domain:     newDomain,
		ResData:    epp.NewDomainRenewData(newDomain.Name, newExpiration),
		Extensions: extensions,
	})
	if err != nil {
		return nil, err
	}

	if err := persist(ctx, tx, changes); err != nil {
		return nil, err
	}
	f.notifyAfterCommit(tx, notify.Event{
		Type:           notify.EventDomainRenewed,
		DomainName:     newDomain.Name,
		RepoID:         newDomain.RepoID,
		TLD:            newDomain.TLD,
		RegistrarID:    registrarID,
		ExpirationTime: newExpiration,
		PeriodYears:    years,
		ServerTRID:     in.Trid.ServerTRID,
		OccurredAt:     now,
	})

	return epp.SuccessResponse(out.ResData, out.Extensions...), nil
}

func (f *RenewFlow) validate(ctx context.Context, tx store.Tx, in *flows.Input, now time.Time) (*renewValidation, error) {
	cmd := in.Command.DomainRenew
	if !in.Session.IsLoggedIn() {
		return nil, epp.ErrNotLoggedIn()
	}
	registrarID := in.Session.RegistrarID
	registrar, ok, err := store.LoadIfPresent[*models.Registrar](ctx, tx, models.RegistrarKey(registrarID))
	if err != nil {
		return nil, err
	}
	if !ok || !registrar.IsActive() {
		return nil, epp.ErrRegistrarInactive()
	}

	domain, err := loadActiveDomain(ctx, tx, cmd.Name, now)
	if err != nil {
		return nil, err
	}
	tld, ok, err := store.LoadIfPresent[*models.Tld](ctx, tx, models.TldKey(domain.TLD))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, epp.ErrNotAuthorizedForTld(domain.TLD)
	}

	tok, err := token.LoadOrDefault(ctx, tx, in.Command.Extensions.AllocationToken, tld, token.Request{
		RegistrarID: registrarID,
		DomainName:  domain.Name,
		TLD:         domain.TLD,
		Command:     models.CommandRenew,
		Now:         now,
	})
	if err != nil {
		return nil, err
	}

	if err := verifyRenewAllowed(cmd, domain, tld, registrar, tok, in.Superuser); err != nil {
		return nil, err
	}
	return &renewValidation{registrarID: registrarID, domain: domain, tld: tld, token: tok}, nil
}

func verifyRenewAllowed(cmd *epp.DomainRenew, d *models.Domain, tld *models.Tld, registrar *models.Registrar,
	tok *models.AllocationToken, superuser bool) error {
	if cmd.AuthInfo != "" && cmd.AuthInfo != d.AuthInfo {
		return epp.ErrBadAuthInfo()
	}
	var present []string
	for _, s := range renewDisallowedStatuses {
		if d.HasStatus(s) {
			present = append(present, string(s))
		}
	}
	if len(present) > 0 {
		return epp.ErrStatusProhibits(strings.Join(present, ", "))
	}
	if !superuser {
		if d.RegistrarID != registrar.ID {
			return epp.ErrNotOwner()
		}
		if !registrar.IsAllowedTLD(tld.Name) {
			return epp.ErrNotAuthorizedForTld(tld.Name)
		}
		if tld.Type == models.TldReal && !registrar.HasBillingAccount(tld.Currency) {
			return epp.ErrMissingBillingAccount(tld.Currency)
		}
	}
	if cmd.Period.Unit != models.PeriodYears {
		return epp.ErrBadPeriodUnit()
	}
	if err := token.VerifyBulkAllowed(d, tok); err != nil {
		return err
	}
	if models.DateOf(d.RegistrationExpirationTime) != cmd.CurExpDate {
		return epp.ErrStaleExpirationDate()
	}
	return nil
}

// loadActiveDomain finds the domain named name that exists at now.
func loadActiveDomain(ctx context.Context, r store.Reader, name string, now time.Time) (*models.Domain, error) {
	domains, err := store.QueryAll[*models.Domain](ctx, r, store.Query{
		Kind:     models.KindDomain,
		Name:     name,
		ActiveAt: now,
	})
	if err != nil {
		return nil, err
	}
	if len(domains) == 0 {
		return nil, epp.ErrDomainNotFound(name)
	}
	return domains[0], nil
}

// loadRecurrence returns the autorenew recurrence of d, if it has one.
func loadRecurrence(ctx context.Context, r store.Reader, d *models.Domain) (*models.BillingRecurrence, error) {
	if d.AutorenewBillingEventID == 0 {
		return nil, nil
	}
	rec, ok, err := store.LoadIfPresent[*models.BillingRecurrence](ctx, r, models.BillingRecurrenceKey(d.AutorenewBillingEventID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal,
			fmt.Sprintf("domain %s references missing autorenew recurrence %d", d.RepoID, d.AutorenewBillingEventID))
	}
	return rec, nil
}

// pricingRecurrence is the recurrence the renewal is priced by. Removing bulk
// pricing resets it to default pricing.
func pricingRecurrence(rec *models.BillingRecurrence, tok *models.AllocationToken) *models.BillingRecurrence {
	if rec == nil || tok == nil || tok.Behavior != models.TokenBehaviorRemoveBulkPricing {
		return rec
	}
	c := rec.Clone()
	c.RenewalPriceBehavior = models.RenewalPriceDefault
	c.RenewalPrice = nil
	return c
}

func (f *RenewFlow) historyEntry(in *flows.Input, d *models.Domain, tld *models.Tld, l *renewalLedger,
	years int, now time.Time) (*models.HistoryEntry, error) {
	field, err := models.NetRenewsFieldFromYears(years)
	if err != nil {
		return nil, err
	}
	records := []models.DomainTransactionRecord{{
		TLD:           tld.Name,
		ReportingTime: now.Add(tld.RenewGrace()),
		Field:         field,
		Amount:        1,
	}}
	h := &models.HistoryEntry{
		ID:                 l.historyID,
		Type:               models.HistoryDomainRenew,
		ModificationTime:   now,
		RegistrarID:        in.Session.RegistrarID,
		BySuperuser:        in.Superuser,
		Period:             &models.Period{Unit: models.PeriodYears, Value: years},
		Trid:               in.Trid,
		XMLBytes:           in.Raw,
		DomainName:         d.Name,
		DomainSnapshot:     d.Clone(),
		TransactionRecords: records,
	}
	if md := in.Command.Extensions.Metadata; md != nil {
		h.Reason = md.Reason
		h.RequestedByRegistrar = md.RequestedByRegistrar
	}
	return h, nil
}

// notifyAfterCommit publishes event once the renewal is durable. Failures are
// logged and counted, never surfaced to the registrar.
func (f *RenewFlow) notifyAfterCommit(tx store.Tx, event notify.Event) {
	tx.AfterCommit(func(ctx context.Context) {
		if err := f.deps.Notifier.Publish(ctx, event); err != nil {
			f.deps.Metrics.IncNotificationFailed()
			f.deps.Logger.WarnContext(ctx, "failed to publish domain event",
				slog.String("type", string(event.Type)),
				slog.String("domain", event.DomainName),
				slog.String("server_trid", event.ServerTRID),
				slog.Any("error", err),
			)
		}
	})
}
