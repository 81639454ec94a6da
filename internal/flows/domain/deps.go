// Package domain implements the domain object flows.
package domain

import (
	"log/slog"

	"github.com/ptkach/nomulus/internal/flows/custom"
	"github.com/ptkach/nomulus/internal/flows/pricing"
	"github.com/ptkach/nomulus/internal/notify"
	"github.com/ptkach/nomulus/internal/platform/metrics"
)

// DefaultMaxRegistrationYears caps how far into the future a registration may run.
const DefaultMaxRegistrationYears = 10

// Deps are the collaborators of the domain flows. Zero fields get defaults.
type Deps struct {
	Pricing              *pricing.Logic
	Hooks                custom.DomainRenewHooks
	Notifier             notify.Publisher
	Metrics              *metrics.Metrics
	MaxRegistrationYears int
	Logger               *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Pricing == nil {
		d.Pricing = pricing.NewLogic(pricing.StorePremiumLookup{})
	}
	if d.Hooks == nil {
		d.Hooks = custom.NoopRenewHooks{}
	}
	if d.Notifier == nil {
		d.Notifier = notify.Noop{}
	}
	if d.MaxRegistrationYears < 1 {
		d.MaxRegistrationYears = DefaultMaxRegistrationYears
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}
