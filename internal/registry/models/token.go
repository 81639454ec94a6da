package models

import (
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	dErrors "github.com/ptkach/nomulus/pkg/domain-errors"
)

// TokenType controls how often a token may be used.
type TokenType string

const (
	TokenSingleUse    TokenType = "SINGLE_USE"
	TokenUnlimitedUse TokenType = "UNLIMITED_USE"
	// TokenDefaultPromo is applied automatically when listed on a TLD.
	TokenDefaultPromo TokenType = "DEFAULT_PROMO"
	// TokenBulkPricing pins a domain to bulk pricing until removed.
	TokenBulkPricing TokenType = "BULK_PRICING"
)

// TokenBehavior adds special handling beyond pricing.
type TokenBehavior string

const (
	TokenBehaviorDefault           TokenBehavior = "DEFAULT"
	TokenBehaviorRemoveBulkPricing TokenBehavior = "REMOVE_BULK_PRICING"
	TokenBehaviorBypassTldState    TokenBehavior = "BYPASS_TLD_STATE"
	TokenBehaviorAnchorTenant      TokenBehavior = "ANCHOR_TENANT"
)

// TokenStatus is the promotional state of a token at a point in time.
type TokenStatus string

const (
	TokenNotStarted TokenStatus = "NOT_STARTED"
	TokenValid      TokenStatus = "VALID"
	TokenEnded      TokenStatus = "ENDED"
	TokenCancelled  TokenStatus = "CANCELLED"
)

// CommandName names the domain commands a token may be restricted to.
type CommandName string

const (
	CommandCreate   CommandName = "CREATE"
	CommandRenew    CommandName = "RENEW"
	CommandRestore  CommandName = "RESTORE"
	CommandTransfer CommandName = "TRANSFER"
)

// StatusTransition switches a token to Status at At.
type StatusTransition struct {
	At     time.Time   `json:"at"`
	Status TokenStatus `json:"status"`
}

// AllocationToken modifies eligibility or pricing of a domain command.
//
// Invariants:
//   - A single-use token has RedemptionHistoryID set at most once
//   - StatusTransitions are sorted by At; an empty timeline means always valid
type AllocationToken struct {
	Token                string               `json:"token"`
	Type                 TokenType            `json:"type"`
	Behavior             TokenBehavior        `json:"behavior"`
	AllowedRegistrars    []string             `json:"allowedRegistrars,omitempty"`
	AllowedTLDs          []string             `json:"allowedTlds,omitempty"`
	AllowedCommands      []CommandName        `json:"allowedCommands,omitempty"`
	DomainName           string               `json:"domainName,omitempty"`
	DiscountFraction     decimal.Decimal      `json:"discountFraction"`
	DiscountPremiums     bool                 `json:"discountPremiums"`
	DiscountYears        int                  `json:"discountYears"`
	RenewalPriceBehavior RenewalPriceBehavior `json:"renewalPriceBehavior,omitempty"`
	StatusTransitions    []StatusTransition   `json:"statusTransitions,omitempty"`
	RedemptionHistoryID  *HistoryEntryID      `json:"redemptionHistoryId,omitempty"`
	CreationTime         time.Time            `json:"creationTime"`
	UpdateTime           time.Time            `json:"updateTime"`
}

func (t *AllocationToken) Key() Key { return AllocationTokenKey(t.Token) }

func (t *AllocationToken) Index() Index { return Index{Name: t.DomainName} }

func (t *AllocationToken) CloneEntity() Entity { return t.Clone() }

// Clone returns a deep copy.
func (t *AllocationToken) Clone() *AllocationToken {
	if t == nil {
		return nil
	}
	c := *t
	c.AllowedRegistrars = slices.Clone(t.AllowedRegistrars)
	c.AllowedTLDs = slices.Clone(t.AllowedTLDs)
	c.AllowedCommands = slices.Clone(t.AllowedCommands)
	c.StatusTransitions = slices.Clone(t.StatusTransitions)
	if t.RedemptionHistoryID != nil {
		id := *t.RedemptionHistoryID
		c.RedemptionHistoryID = &id
	}
	return &c
}

func (t *AllocationToken) IsRedeemed() bool {
	return t.RedemptionHistoryID != nil
}

// IsOneTimeUse reports whether redemption consumes the token.
func (t *AllocationToken) IsOneTimeUse() bool {
	return t.Type == TokenSingleUse
}

// StatusAt returns the promotional status in effect at now.
func (t *AllocationToken) StatusAt(now time.Time) TokenStatus {
	if len(t.StatusTransitions) == 0 {
		return TokenValid
	}
	status := TokenNotStarted
	for _, tr := range t.StatusTransitions {
		if tr.At.After(now) {
			break
		}
		status = tr.Status
	}
	return status
}

// SetStatusTransitions replaces the timeline, keeping it sorted.
func (t *AllocationToken) SetStatusTransitions(transitions []StatusTransition) {
	sorted := slices.Clone(transitions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })
	t.StatusTransitions = sorted
}

// EndPromotion ends the timeline at now with a terminal transition when the
// token is currently valid or not yet started. Transitions scheduled after
// now are dropped.
func (t *AllocationToken) EndPromotion(now time.Time, status TokenStatus) error {
	if status != TokenEnded && status != TokenCancelled {
		return dErrors.New(dErrors.CodeInvariantViolation, "promotion can only end as ENDED or CANCELLED")
	}
	current := t.StatusAt(now)
	if current == TokenEnded || current == TokenCancelled {
		return dErrors.New(dErrors.CodeInvariantViolation, "promotion has already ended")
	}
	kept := make([]StatusTransition, 0, len(t.StatusTransitions)+1)
	for _, tr := range t.StatusTransitions {
		if tr.At.Before(now) {
			kept = append(kept, tr)
		}
	}
	t.SetStatusTransitions(append(kept, StatusTransition{At: now, Status: status}))
	return nil
}

func (t *AllocationToken) AllowsRegistrar(registrarID string) bool {
	return len(t.AllowedRegistrars) == 0 || slices.Contains(t.AllowedRegistrars, registrarID)
}

func (t *AllocationToken) AllowsTLD(tld string) bool {
	return len(t.AllowedTLDs) == 0 || slices.Contains(t.AllowedTLDs, tld)
}

func (t *AllocationToken) AllowsCommand(cmd CommandName) bool {
	return len(t.AllowedCommands) == 0 || slices.Contains(t.AllowedCommands, cmd)
}

func (t *AllocationToken) AllowsDomain(name string) bool {
	return t.DomainName == "" || t.DomainName == name
}

// CanRedeem checks that a one-time token has not been consumed.
func (t *AllocationToken) CanRedeem() error {
	if t.IsOneTimeUse() && t.IsRedeemed() {
		return dErrors.New(dErrors.CodeInvariantViolation, "allocation token already redeemed")
	}
	return nil
}

// ApplyRedemption records the history entry that consumed the token.
// Call CanRedeem first.
func (t *AllocationToken) ApplyRedemption(historyID HistoryEntryID, now time.Time) {
	t.RedemptionHistoryID = &historyID
	t.UpdateTime = now
}
