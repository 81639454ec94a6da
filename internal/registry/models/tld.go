package models

import (
	"slices"
	"time"
)

// TldType separates production TLDs from test ones; only REAL TLDs require a
// billing account.
type TldType string

const (
	TldReal TldType = "REAL"
	TldTest TldType = "TEST"
)

// Tld is the per-TLD registry policy.
type Tld struct {
	Name                 string        `json:"name"`
	Type                 TldType       `json:"type"`
	Currency             string        `json:"currency"`
	RenewGracePeriod     time.Duration `json:"renewGracePeriod"`
	AutorenewGracePeriod time.Duration `json:"autorenewGracePeriod"`
	StandardRenewCost    Money         `json:"standardRenewCost"`
	PremiumListName      string        `json:"premiumListName,omitempty"`
	DefaultPromoTokens   []string      `json:"defaultPromoTokens,omitempty"`
}

// Default grace period lengths.
const (
	DefaultRenewGracePeriod     = 5 * 24 * time.Hour
	DefaultAutorenewGracePeriod = 45 * 24 * time.Hour
)

func (t *Tld) Key() Key { return TldKey(t.Name) }

func (t *Tld) Index() Index { return Index{} }

func (t *Tld) CloneEntity() Entity { return t.Clone() }

func (t *Tld) Clone() *Tld {
	if t == nil {
		return nil
	}
	c := *t
	c.DefaultPromoTokens = slices.Clone(t.DefaultPromoTokens)
	return &c
}

// RenewGrace returns the configured renew grace length or the default.
func (t *Tld) RenewGrace() time.Duration {
	if t.RenewGracePeriod > 0 {
		return t.RenewGracePeriod
	}
	return DefaultRenewGracePeriod
}
