package models

import "time"

// PollMessageKind distinguishes one-time notifications from the recurring
// autorenew notification.
type PollMessageKind string

const (
	PollMessageOneTime   PollMessageKind = "ONE_TIME"
	PollMessageAutorenew PollMessageKind = "AUTORENEW"
)

// AutorenewPollMessageText is delivered each time a domain autorenews.
const AutorenewPollMessageText = "Domain was auto-renewed."

// PollMessage is a notification queued for a registrar. An autorenew message
// is delivered once per year from EventTime until AutorenewEndTime.
type PollMessage struct {
	ID                      int64           `json:"id"`
	Kind                    PollMessageKind `json:"kind"`
	RegistrarID             string          `json:"registrarId"`
	EventTime               time.Time       `json:"eventTime"`
	Message                 string          `json:"message"`
	TargetID                string          `json:"targetId"`
	DomainRepoID            string          `json:"domainRepoId"`
	AutorenewEndTime        time.Time       `json:"autorenewEndTime,omitzero"`
	DomainHistoryRevisionID int64           `json:"domainHistoryRevisionId"`
}

func (p *PollMessage) Key() Key { return PollMessageKey(p.ID) }

func (p *PollMessage) Index() Index { return Index{Name: p.TargetID} }

func (p *PollMessage) CloneEntity() Entity { return p.Clone() }

func (p *PollMessage) Clone() *PollMessage {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// WithAutorenewEndTime returns a copy that stops recurring at t.
func (p *PollMessage) WithAutorenewEndTime(t time.Time) *PollMessage {
	c := p.Clone()
	c.AutorenewEndTime = t
	return c
}
