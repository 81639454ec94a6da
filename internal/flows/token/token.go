// Package token resolves and validates allocation tokens for domain flows.
package token

import (
	"context"
	"time"

	"github.com/ptkach/nomulus/internal/epp"
	"github.com/ptkach/nomulus/internal/registry/models"
	"github.com/ptkach/nomulus/internal/registry/store"
)

// Request describes the command a token is being used for.
type Request struct {
	RegistrarID string
	DomainName  string
	TLD         string
	Command     models.CommandName
	Now         time.Time
}

// Validate checks that tok may be used for req. Redemption is checked first
// so a consumed token is reported as such whatever else is wrong with it.
func Validate(tok *models.AllocationToken, req Request) error {
	if tok.IsOneTimeUse() && tok.IsRedeemed() {
		return epp.ErrTokenRedeemed()
	}
	if !tok.AllowsRegistrar(req.RegistrarID) {
		return epp.ErrTokenWrongRegistrar()
	}
	if !tok.AllowsTLD(req.TLD) {
		return epp.ErrTokenWrongTld()
	}
	if !tok.AllowsDomain(req.DomainName) {
		return epp.ErrTokenWrongDomain()
	}
	if !tok.AllowsCommand(req.Command) {
		return epp.ErrTokenWrongCommand()
	}
	if tok.StatusAt(req.Now) != models.TokenValid {
		return epp.ErrTokenNotInPromotion()
	}
	return nil
}

// Load reads and validates the token named code.
func Load(ctx context.Context, r store.Reader, code string, req Request) (*models.AllocationToken, error) {
	if code == "" {
		return nil, epp.ErrTokenNonexistent()
	}
	tok, ok, err := store.LoadIfPresent[*models.AllocationToken](ctx, r, models.AllocationTokenKey(code))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, epp.ErrTokenNonexistent()
	}
	if err := Validate(tok, req); err != nil {
		return nil, err
	}
	return tok, nil
}

// LoadOrDefault returns the token the command names or, when it names none,
// the first of the TLD's default promotions that is valid for req. It returns
// nil when no token applies.
func LoadOrDefault(ctx context.Context, r store.Reader, ext *epp.AllocationToken, tld *models.Tld, req Request) (*models.AllocationToken, error) {
	if ext != nil {
		return Load(ctx, r, ext.Token, req)
	}
	for _, code := range tld.DefaultPromoTokens {
		tok, ok, err := store.LoadIfPresent[*models.AllocationToken](ctx, r, models.AllocationTokenKey(code))
		if err != nil {
			return nil, err
		}
		if !ok || tok.Type != models.TokenDefaultPromo {
			continue
		}
		if Validate(tok, req) == nil {
			return tok, nil
		}
	}
	return nil, nil
}

// IsDefaultPromo reports whether tok was applied automatically.
func IsDefaultPromo(tok *models.AllocationToken) bool {
	return tok != nil && tok.Type == models.TokenDefaultPromo
}

// VerifyBulkAllowed enforces that bulk priced domains are only touched with
// the bulk pricing removal token, and that the removal token is only used on
// bulk priced domains.
func VerifyBulkAllowed(d *models.Domain, tok *models.AllocationToken) error {
	removal := tok != nil && tok.Behavior == models.TokenBehaviorRemoveBulkPricing
	switch {
	case removal && !d.IsBulkPriced():
		return epp.ErrBulkTokenNotBulkDomain()
	case !removal && d.IsBulkPriced():
		return epp.ErrBulkTokenRequired()
	}
	return nil
}

// ApplyBulkRemoval takes the domain off bulk pricing when tok is the removal
// token. The returned domain is a copy; d is returned as is otherwise.
func ApplyBulkRemoval(d *models.Domain, tok *models.AllocationToken) *models.Domain {
	if tok == nil || tok.Behavior != models.TokenBehaviorRemoveBulkPricing {
		return d
	}
	c := d.Clone()
	c.CurrentBulkToken = ""
	return c
}

// Redeem returns a copy of tok consumed by historyID.
func Redeem(tok *models.AllocationToken, historyID models.HistoryEntryID, now time.Time) (*models.AllocationToken, error) {
	if err := tok.CanRedeem(); err != nil {
		return nil, epp.ErrTokenRedeemed()
	}
	c := tok.Clone()
	c.ApplyRedemption(historyID, now)
	return c, nil
}
