package models

import (
	"maps"
	"slices"
)

// RegistrarState is the lifecycle state of a registrar account.
type RegistrarState string

const (
	RegistrarPending   RegistrarState = "PENDING"
	RegistrarActive    RegistrarState = "ACTIVE"
	RegistrarSuspended RegistrarState = "SUSPENDED"
	RegistrarDisabled  RegistrarState = "DISABLED"
)

// Registrar is an accredited client of the registry.
type Registrar struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	State       RegistrarState `json:"state"`
	AllowedTLDs []string       `json:"allowedTlds,omitempty"`
	// BillingAccounts maps currency code to billing account id.
	BillingAccounts map[string]string `json:"billingAccounts,omitempty"`
}

func (r *Registrar) Key() Key { return RegistrarKey(r.ID) }

func (r *Registrar) Index() Index { return Index{} }

func (r *Registrar) CloneEntity() Entity { return r.Clone() }

func (r *Registrar) Clone() *Registrar {
	if r == nil {
		return nil
	}
	c := *r
	c.AllowedTLDs = slices.Clone(r.AllowedTLDs)
	c.BillingAccounts = maps.Clone(r.BillingAccounts)
	return &c
}

func (r *Registrar) IsActive() bool {
	return r.State == RegistrarActive
}

func (r *Registrar) IsAllowedTLD(tld string) bool {
	return slices.Contains(r.AllowedTLDs, tld)
}

// HasBillingAccount reports whether an account exists for currency.
func (r *Registrar) HasBillingAccount(currency string) bool {
	_, ok := r.BillingAccounts[currency]
	return ok
}

// PremiumEntry prices one label on a premium list.
type PremiumEntry struct {
	ListName string `json:"listName"`
	Label    string `json:"label"`
	Price    Money  `json:"price"`
}

func (p *PremiumEntry) Key() Key { return PremiumEntryKey(p.ListName, p.Label) }

func (p *PremiumEntry) Index() Index { return Index{} }

func (p *PremiumEntry) CloneEntity() Entity {
	c := *p
	return &c
}
