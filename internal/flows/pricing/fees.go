package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ptkach/nomulus/internal/epp"
	"github.com/ptkach/nomulus/internal/registry/models"
)

// ValidateFeeChallenge checks the fees a registrar acknowledged. Without a fee
// extension only premium names are rejected, unless the price came from a
// default promotion the registrar did not ask for.
func ValidateFeeChallenge(fee *epp.FeeRenew, fees FeesAndCredits, defaultTokenUsed bool) error {
	if fee == nil {
		if fees.Premium && !defaultTokenUsed {
			return epp.ErrFeesRequiredForPremium(fees.Total().String())
		}
		return nil
	}

	currency := fees.Currency
	if fee.Currency != "" {
		code := strings.ToUpper(fee.Currency)
		if _, ok := models.CurrencyScale(code); !ok {
			return epp.ErrUnknownCurrency()
		}
		if code != fees.Currency {
			return epp.ErrCurrencyMismatch()
		}
		currency = code
	}
	scale, _ := models.CurrencyScale(currency)

	total := decimal.Zero
	for _, f := range fee.Fees {
		if !f.HasDefaultAttributes() {
			return epp.ErrUnsupportedFeeAttribute()
		}
		if !f.Amount.Equal(f.Amount.Truncate(scale)) {
			return epp.ErrCurrencyScale()
		}
		total = total.Add(f.Amount)
	}

	if !total.Equal(fees.Total().Amount) {
		return epp.ErrFeesMismatch(fees.Total().String())
	}
	return nil
}
