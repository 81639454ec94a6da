package models

import (
	"strconv"
	"time"
)

// Kind names an entity table.
type Kind string

const (
	KindDomain            Kind = "Domain"
	KindBillingEvent      Kind = "BillingEvent"
	KindBillingRecurrence Kind = "BillingRecurrence"
	KindPollMessage       Kind = "PollMessage"
	KindAllocationToken   Kind = "AllocationToken"
	KindHistoryEntry      Kind = "HistoryEntry"
	KindTld               Kind = "Tld"
	KindRegistrar         Kind = "Registrar"
	KindPremiumEntry      Kind = "PremiumEntry"
)

// Key identifies one persisted entity.
type Key struct {
	Kind Kind
	ID   string
}

func (k Key) String() string {
	return string(k.Kind) + "/" + k.ID
}

// Index carries the secondary columns stores filter on. Name is the domain
// name an entity belongs to; DeletionTime is zero for entities that are never
// soft-deleted.
type Index struct {
	Name         string
	DeletionTime time.Time
}

// Entity is implemented by every persisted type.
type Entity interface {
	Key() Key
	Index() Index
	// CloneEntity returns an independent copy so stores never share mutable
	// state with callers.
	CloneEntity() Entity
}

// ActiveAt reports whether an entity with this index is live at t.
func (i Index) ActiveAt(t time.Time) bool {
	return i.DeletionTime.IsZero() || i.DeletionTime.After(t)
}

// IDKey builds a key from a numeric id.
func IDKey(kind Kind, id int64) Key {
	return Key{Kind: kind, ID: strconv.FormatInt(id, 10)}
}

func DomainKey(repoID string) Key       { return Key{Kind: KindDomain, ID: repoID} }
func BillingEventKey(id int64) Key      { return IDKey(KindBillingEvent, id) }
func BillingRecurrenceKey(id int64) Key { return IDKey(KindBillingRecurrence, id) }
func PollMessageKey(id int64) Key       { return IDKey(KindPollMessage, id) }
func AllocationTokenKey(token string) Key {
	return Key{Kind: KindAllocationToken, ID: token}
}
func TldKey(name string) Key       { return Key{Kind: KindTld, ID: name} }
func RegistrarKey(id string) Key   { return Key{Kind: KindRegistrar, ID: id} }
func PremiumEntryKey(list, label string) Key {
	return Key{Kind: KindPremiumEntry, ID: list + ":" + label}
}
