package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptkach/nomulus/internal/epp"
	"github.com/ptkach/nomulus/internal/registry/models"
)

func fee(amount string) epp.Fee {
	return epp.Fee{Amount: decimal.RequireFromString(amount)}
}

func TestValidateFeeChallenge(t *testing.T) {
	standard := FeesAndCredits{Currency: "USD", RenewCost: models.MustMoney("USD", "22")}
	premium := FeesAndCredits{Currency: "USD", RenewCost: models.MustMoney("USD", "200"), Premium: true}
	delayed := "delayed"
	notRefundable := false

	tests := []struct {
		name        string
		fee         *epp.FeeRenew
		fees        FeesAndCredits
		defaultUsed bool
		reason      epp.Reason
	}{
		{name: "no extension on a standard name", fees: standard},
		{name: "no extension on a premium name", fees: premium, reason: epp.ReasonFeesRequiredForPremium},
		{name: "no extension on a premium name priced by a default promotion", fees: premium, defaultUsed: true},
		{name: "matching total", fee: &epp.FeeRenew{Currency: "USD", Fees: []epp.Fee{fee("22.00")}}, fees: standard},
		{name: "currency omitted", fee: &epp.FeeRenew{Fees: []epp.Fee{fee("22")}}, fees: standard},
		{name: "lowercase currency", fee: &epp.FeeRenew{Currency: "usd", Fees: []epp.Fee{fee("22")}}, fees: standard},
		{name: "split fees", fee: &epp.FeeRenew{Currency: "USD", Fees: []epp.Fee{fee("20"), fee("2")}}, fees: standard},
		{
			name:   "wrong total",
			fee:    &epp.FeeRenew{Currency: "USD", Fees: []epp.Fee{fee("21.99")}},
			fees:   standard,
			reason: epp.ReasonFeesMismatch,
		},
		{
			name:   "no fees",
			fee:    &epp.FeeRenew{Currency: "USD"},
			fees:   standard,
			reason: epp.ReasonFeesMismatch,
		},
		{
			name:   "wrong currency",
			fee:    &epp.FeeRenew{Currency: "EUR", Fees: []epp.Fee{fee("22")}},
			fees:   standard,
			reason: epp.ReasonCurrencyMismatch,
		},
		{
			name:   "unknown currency",
			fee:    &epp.FeeRenew{Currency: "XYZ", Fees: []epp.Fee{fee("22")}},
			fees:   standard,
			reason: epp.ReasonUnknownCurrency,
		},
		{
			name:   "too many decimals",
			fee:    &epp.FeeRenew{Currency: "USD", Fees: []epp.Fee{fee("21.999")}},
			fees:   standard,
			reason: epp.ReasonCurrencyScale,
		},
		{
			name:   "delayed application",
			fee:    &epp.FeeRenew{Currency: "USD", Fees: []epp.Fee{{Amount: decimal.NewFromInt(22), Applied: &delayed}}},
			fees:   standard,
			reason: epp.ReasonUnsupportedFeeAttribute,
		},
		{
			name:   "not refundable",
			fee:    &epp.FeeRenew{Currency: "USD", Fees: []epp.Fee{{Amount: decimal.NewFromInt(22), Refundable: &notRefundable}}},
			fees:   standard,
			reason: epp.ReasonUnsupportedFeeAttribute,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFeeChallenge(tt.fee, tt.fees, tt.defaultUsed)
			if tt.reason == "" {
				require.NoError(t, err)
				return
			}
			assert.True(t, epp.HasReason(err, tt.reason), "got %v", err)
		})
	}
}
