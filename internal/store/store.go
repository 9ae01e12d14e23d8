// Package store defines the transactional storage contract the reservation
// engine runs on.  Implementations must guarantee that all operations made
// through a Tx either commit together or leave no observable trace, and
// that the ...ForUpdate reads hold a row-level exclusive lock for the rest
// of the transaction so no two concurrent capacity mutations on the same
// unit can interleave.
package store

import (
	"context"
	"time"

	"github.com/skyreserve/inventory-reservation/internal/model"
)

// Tx exposes the row operations available inside one atomic transaction.
// Methods returning model values return the latest committed state of the
// row at the time the lock was obtained.
type Tx interface {
	// InventoryUnitForUpdate loads a unit row under an exclusive lock.
	// Returns ErrUnitNotFound when no such unit exists.
	InventoryUnitForUpdate(ctx context.Context, id string) (*model.InventoryUnit, error)

	// AddAvailableCapacity adjusts a unit's available capacity by delta,
	// which may be negative.  The caller must already hold the unit's lock
	// for debits; credits acquire it implicitly through the row update.
	AddAvailableCapacity(ctx context.Context, id string, delta int64) error

	// InsertReservation persists a new reservation row.
	InsertReservation(ctx context.Context, r *model.Reservation) error

	// ReservationForUpdate loads a reservation row under an exclusive lock.
	// Returns ErrReservationNotFound when no such reservation exists.
	ReservationForUpdate(ctx context.Context, id string) (*model.Reservation, error)

	// UpdateReservationStatus moves a reservation to the given status and
	// clears its expiry.  The caller must hold the reservation's lock.
	UpdateReservationStatus(ctx context.Context, id string, status model.ReservationStatus) error

	// DueReservationsForUpdate returns, locked, all reservations that are
	// still pending with an expiry earlier than now.
	DueReservationsForUpdate(ctx context.Context, now time.Time) ([]model.Reservation, error)
}

// Store opens transactions and serves non-authoritative reads.  Reads done
// outside WithinTx take no locks and must not be used for correctness
// decisions; they exist for search/display purposes only.
type Store interface {
	// WithinTx runs fn inside one atomic transaction.  If fn returns an
	// error the transaction is rolled back and the error is returned
	// unchanged; otherwise the transaction is committed.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	// InventoryUnit reads a unit without locking.
	InventoryUnit(ctx context.Context, id string) (*model.InventoryUnit, error)

	// Reservation reads a reservation without locking.
	Reservation(ctx context.Context, id string) (*model.Reservation, error)
}
