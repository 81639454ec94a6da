// Package pricing computes what domain commands cost and checks the fees a
// registrar acknowledged against it.
package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ptkach/nomulus/internal/registry/models"
	"github.com/ptkach/nomulus/internal/registry/store"
)

// PremiumLookup resolves premium prices. A nil price means the label is not
// premium.
type PremiumLookup interface {
	PremiumPrice(ctx context.Context, r store.Reader, listName, label string) (*models.Money, error)
}

// FeesAndCredits is the price of a command.
type FeesAndCredits struct {
	Currency  string
	RenewCost models.Money
	// Premium is set when the cost comes from a premium list.
	Premium bool
}

// Total is the sum of all fees.
func (f FeesAndCredits) Total() models.Money {
	return f.RenewCost
}

// Logic prices domain renewals.
type Logic struct {
	premiums PremiumLookup
}

func NewLogic(premiums PremiumLookup) *Logic {
	return &Logic{premiums: premiums}
}

// RenewPrice prices renewing name for years at now. An open recurrence
// selects the renewal price behavior; tok may discount the result.
func (l *Logic) RenewPrice(ctx context.Context, r store.Reader, tld *models.Tld, name string, now time.Time,
	years int, recurrence *models.BillingRecurrence, tok *models.AllocationToken) (FeesAndCredits, error) {
	if years < 1 {
		return FeesAndCredits{}, fmt.Errorf("renew price: invalid period of %d years", years)
	}

	behavior := models.RenewalPriceDefault
	if recurrence != nil && recurrence.RenewalPriceBehavior != "" {
		behavior = recurrence.RenewalPriceBehavior
	}

	var (
		cost    models.Money
		premium bool
	)
	switch behavior {
	case models.RenewalPriceSpecified:
		if recurrence.RenewalPrice == nil {
			return FeesAndCredits{}, fmt.Errorf("recurrence %d is SPECIFIED without a renewal price", recurrence.ID)
		}
		cost = recurrence.RenewalPrice.Times(years)
	case models.RenewalPriceNonPremium:
		cost = discounted(tld.StandardRenewCost, years, false, tok)
	default:
		price, err := l.premiumPrice(ctx, r, tld, name)
		if err != nil {
			return FeesAndCredits{}, err
		}
		unit := tld.StandardRenewCost
		if price != nil {
			unit, premium = *price, true
		}
		cost = discounted(unit, years, premium, tok)
	}

	return FeesAndCredits{Currency: cost.Currency, RenewCost: cost.Rounded(), Premium: premium}, nil
}

func (l *Logic) premiumPrice(ctx context.Context, r store.Reader, tld *models.Tld, name string) (*models.Money, error) {
	if l.premiums == nil || tld.PremiumListName == "" {
		return nil, nil
	}
	label := strings.TrimSuffix(name, "."+tld.Name)
	price, err := l.premiums.PremiumPrice(ctx, r, tld.PremiumListName, label)
	if err != nil {
		return nil, fmt.Errorf("premium price of %s: %w", name, err)
	}
	return price, nil
}

// discounted applies the token discount to the first DiscountYears years.
// Premium prices are only discounted by tokens that allow it.
func discounted(unit models.Money, years int, premium bool, tok *models.AllocationToken) models.Money {
	total := unit.Times(years)
	if tok == nil || tok.DiscountFraction.IsZero() || (premium && !tok.DiscountPremiums) {
		return total
	}
	discountYears := tok.DiscountYears
	if discountYears < 1 {
		discountYears = 1
	}
	discountYears = min(discountYears, years)
	discount := unit.Amount.Mul(tok.DiscountFraction).Mul(decimal.NewFromInt(int64(discountYears)))
	return models.Money{Currency: total.Currency, Amount: total.Amount.Sub(discount)}
}

// StorePremiumLookup reads premium entries from the registry store.
type StorePremiumLookup struct{}

func (StorePremiumLookup) PremiumPrice(ctx context.Context, r store.Reader, listName, label string) (*models.Money, error) {
	entry, ok, err := store.LoadIfPresent[*models.PremiumEntry](ctx, r, models.PremiumEntryKey(listName, label))
	if err != nil || !ok {
		return nil, err
	}
	price := entry.Price
	return &price, nil
}
