// Package notify publishes domain lifecycle events once the transaction that
// produced them has committed.
package notify

import (
	"context"
	"log/slog"
	"time"
)

//go:generate mockgen -source=notify.go -destination=mocks/notify_mocks.go -package=mocks

// EventType names a lifecycle event.
type EventType string

const (
	EventDomainRenewed EventType = "domain.renewed"
)

// Event is one lifecycle change.
type Event struct {
	Type           EventType `json:"type"`
	DomainName     string    `json:"domainName"`
	RepoID         string    `json:"repoId"`
	TLD            string    `json:"tld"`
	RegistrarID    string    `json:"registrarId"`
	ExpirationTime time.Time `json:"expirationTime"`
	PeriodYears    int       `json:"periodYears"`
	ServerTRID     string    `json:"serverTrid"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// Publisher delivers events. Failures are reported but never undo the
// committed change.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes events to the log, for deployments without a broker.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "domain event",
		"type", string(event.Type),
		"domain", event.DomainName,
		"registrar_id", event.RegistrarID,
		"expiration_time", event.ExpirationTime,
		"server_trid", event.ServerTRID,
	)
	return nil
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
