package model

import "time"

// ReservationStatus is the state of a reservation in its lifecycle.
// Transitions are monotonic: a reservation starts as pending and moves to
// exactly one of the terminal states; no transition ever re-enters pending.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationExpired   ReservationStatus = "expired"
)

// Terminal reports whether the status is final.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationConfirmed || s == ReservationCancelled || s == ReservationExpired
}

// Reservation records a hold of capacity on one inventory unit on behalf
// of one external booking.  While the status is pending the quantity has
// already been deducted from the unit's available capacity; on cancel or
// expire the same quantity is credited back exactly once, on confirm the
// deduction becomes permanent.  ExpiresAt is set on creation and cleared
// once the reservation leaves pending.  Rows are never deleted: terminal
// reservations are kept for audit and idempotency checks.
//
// Fields:
//  ID                – generated, globally unique, opaque identifier.
//  InventoryUnitID   – unit whose capacity this reservation holds.
//  ExternalBookingID – correlation id supplied by the caller; not interpreted.
//  Quantity          – positive number of capacity units held.
//  Status            – current state, see ReservationStatus.
//  ExpiresAt         – end of the hold window; nil outside pending.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last modification timestamp.
type Reservation struct {
	ID                string            // reservations.id
	InventoryUnitID   string            // reservations.inventory_unit_id
	ExternalBookingID string            // reservations.external_booking_id
	Quantity          int64             // reservations.quantity
	Status            ReservationStatus // reservations.status
	ExpiresAt         *time.Time        // reservations.expires_at (nullable)
	CreatedAt         time.Time         // reservations.created_at
	UpdatedAt         time.Time         // reservations.updated_at
}
