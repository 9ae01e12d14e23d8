// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names for reservation lifecycle events.  One durable queue per
// transition keeps consumers free to subscribe only to what they handle.
const (
	QueueReserved  = "reservation.reserved"
	QueueConfirmed = "reservation.confirmed"
	QueueCancelled = "reservation.cancelled"
	QueueExpired   = "reservation.expired"
)

// ReservationEvent is published whenever a reservation changes state.  It
// carries enough for downstream consumers to log, notify or feed analytics
// without querying the primary database.  Events are informational only;
// the ledger row is the source of truth.
type ReservationEvent struct {
	ReservationID     string `json:"reservation_id"`
	InventoryUnitID   string `json:"inventory_unit_id"`
	ExternalBookingID string `json:"external_booking_id"`
	Quantity          int64  `json:"quantity"`
	Status            string `json:"status"`
	OccurredAt        string `json:"occurred_at"`
}
