package models

import (
	"fmt"
	"slices"
	"strconv"
	"time"
)

// HistoryType names the command a history entry records.
type HistoryType string

const (
	HistoryDomainCreate          HistoryType = "DOMAIN_CREATE"
	HistoryDomainRenew           HistoryType = "DOMAIN_RENEW"
	HistoryDomainAutorenew       HistoryType = "DOMAIN_AUTORENEW"
	HistoryDomainDelete          HistoryType = "DOMAIN_DELETE"
	HistoryDomainTransferRequest HistoryType = "DOMAIN_TRANSFER_REQUEST"
	HistoryDomainUpdate          HistoryType = "DOMAIN_UPDATE"
)

// PeriodUnit is the EPP period unit.
type PeriodUnit string

const (
	PeriodYears  PeriodUnit = "y"
	PeriodMonths PeriodUnit = "m"
)

// Period is a registration term.
type Period struct {
	Unit  PeriodUnit `json:"unit"`
	Value int        `json:"value"`
}

// Trid pairs the registrar's transaction id with the one the server assigned.
// The server id is allocated once per command and survives transaction retries.
type Trid struct {
	ClientTRID string `json:"clientTrid,omitempty"`
	ServerTRID string `json:"serverTrid"`
}

// HistoryEntryID is (repo id, revision id). Revision ids come from a single
// monotonic sequence shared by all entities.
type HistoryEntryID struct {
	RepoID     string `json:"repoId"`
	RevisionID int64  `json:"revisionId"`
}

func (id HistoryEntryID) String() string {
	return id.RepoID + "@" + strconv.FormatInt(id.RevisionID, 10)
}

// HistoryEntryKey builds the store key of a history entry.
func HistoryEntryKey(id HistoryEntryID) Key {
	return Key{Kind: KindHistoryEntry, ID: id.String()}
}

// TransactionReportField is an ICANN monthly transaction report column.
type TransactionReportField string

// NetRenewsFieldFromYears returns NET_RENEWS_<n>_YR for a 1-10 year term.
func NetRenewsFieldFromYears(years int) (TransactionReportField, error) {
	if years < 1 || years > 10 {
		return "", fmt.Errorf("no net renews field for %d years", years)
	}
	return TransactionReportField(fmt.Sprintf("NET_RENEWS_%d_YR", years)), nil
}

// DomainTransactionRecord is one transaction report line.
type DomainTransactionRecord struct {
	TLD           string                 `json:"tld"`
	ReportingTime time.Time              `json:"reportingTime"`
	Field         TransactionReportField `json:"field"`
	Amount        int                    `json:"amount"`
}

// HistoryEntry is the immutable audit record of one mutating command.
type HistoryEntry struct {
	ID                   HistoryEntryID            `json:"id"`
	Type                 HistoryType               `json:"type"`
	ModificationTime     time.Time                 `json:"modificationTime"`
	RegistrarID          string                    `json:"registrarId"`
	BySuperuser          bool                      `json:"bySuperuser"`
	Reason               string                    `json:"reason,omitempty"`
	RequestedByRegistrar *bool                     `json:"requestedByRegistrar,omitempty"`
	Period               *Period                   `json:"period,omitempty"`
	Trid                 Trid                      `json:"trid"`
	XMLBytes             []byte                    `json:"xmlBytes,omitempty"`
	DomainName           string                    `json:"domainName"`
	DomainSnapshot       *Domain                   `json:"domainSnapshot,omitempty"`
	TransactionRecords   []DomainTransactionRecord `json:"transactionRecords,omitempty"`
}

func (h *HistoryEntry) Key() Key { return HistoryEntryKey(h.ID) }

func (h *HistoryEntry) Index() Index { return Index{Name: h.DomainName} }

func (h *HistoryEntry) CloneEntity() Entity { return h.Clone() }

// Clone returns a deep copy.
func (h *HistoryEntry) Clone() *HistoryEntry {
	if h == nil {
		return nil
	}
	c := *h
	if h.RequestedByRegistrar != nil {
		v := *h.RequestedByRegistrar
		c.RequestedByRegistrar = &v
	}
	if h.Period != nil {
		p := *h.Period
		c.Period = &p
	}
	c.XMLBytes = slices.Clone(h.XMLBytes)
	c.DomainSnapshot = h.DomainSnapshot.Clone()
	c.TransactionRecords = slices.Clone(h.TransactionRecords)
	return &c
}
