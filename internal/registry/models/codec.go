package models

import (
	"encoding/json"
	"fmt"
)

// EncodeEntity serializes an entity for stores that persist payloads.
func EncodeEntity(e Entity) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Key(), err)
	}
	return b, nil
}

// DecodeEntity is the inverse of EncodeEntity.
func DecodeEntity(kind Kind, payload []byte) (Entity, error) {
	var e Entity
	switch kind {
	case KindDomain:
		e = &Domain{}
	case KindBillingEvent:
		e = &BillingEvent{}
	case KindBillingRecurrence:
		e = &BillingRecurrence{}
	case KindPollMessage:
		e = &PollMessage{}
	case KindAllocationToken:
		e = &AllocationToken{}
	case KindHistoryEntry:
		e = &HistoryEntry{}
	case KindTld:
		e = &Tld{}
	case KindRegistrar:
		e = &Registrar{}
	case KindPremiumEntry:
		e = &PremiumEntry{}
	default:
		return nil, fmt.Errorf("decode: unknown kind %q", kind)
	}
	if err := json.Unmarshal(payload, e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return e, nil
}
