package store

import "errors"

// ErrUnitNotFound is returned when a referenced inventory unit does not
// exist in the store.
var ErrUnitNotFound = errors.New("inventory unit not found")

// ErrReservationNotFound is returned when a referenced reservation does
// not exist in the store.
var ErrReservationNotFound = errors.New("reservation not found")
