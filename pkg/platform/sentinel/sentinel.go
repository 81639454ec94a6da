package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// so flows can translate them into EPP result codes.
//
// These describe the state of a record, not validation failures:
// - ErrNotFound: no record exists for the key
// - ErrAlreadyExists: an insert-only record already exists for the key
// - ErrConflict: a concurrent transaction changed a record this one touched
// - ErrUnavailable: the backing store is temporarily unreachable
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrConflict      = errors.New("conflict")
	ErrUnavailable   = errors.New("unavailable")
)
