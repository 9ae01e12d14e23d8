// Package engine implements the inventory-reservation state machine: the
// transactional reserve, confirm and cancel operations plus the batch
// expiry pass used by the sweeper.  This file defines the error taxonomy
// surfaced to callers.  Sentinel values allow the HTTP layer to map each
// kind to a response code with errors.Is; anything not listed here is a
// storage fault, rolled back fully and propagated as retryable.
package engine

import "errors"

// ErrInvalidInput is returned when the caller supplies a missing or
// malformed correlation id or a non-positive quantity.  It is raised
// before any transaction opens.
var ErrInvalidInput = errors.New("invalid input")

// ErrNotFound is returned when a referenced inventory unit or reservation
// does not exist.
var ErrNotFound = errors.New("not found")

// ErrInsufficientCapacity is returned when a reserve cannot be satisfied.
// Callers must not retry blindly; a retry is meaningful only after
// capacity may have freed up (another cancel or expiry).
var ErrInsufficientCapacity = errors.New("insufficient capacity")

// ErrInvalidState is returned when confirm is attempted on a reservation
// that is not pending.  It signals a caller bug such as a double confirm
// and is deliberately not swallowed.
var ErrInvalidState = errors.New("invalid reservation state")
