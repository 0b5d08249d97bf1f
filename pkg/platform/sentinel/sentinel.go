package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, lockers and publishers
// return these (optionally wrapped) so services can translate them into
// domain errors without knowing which backend produced them.
//
// - ErrNotFound: record does not exist in the store
// - ErrConflict: a concurrent writer changed the record first
// - ErrUnavailable: backend temporarily unreachable
// - ErrLockNotObtained: a keyed lock is held by another submission
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnavailable     = errors.New("unavailable")
	ErrLockNotObtained = errors.New("lock not obtained")
)
