package model

import "time"

// InventoryUnit is a bookable resource with a finite amount of capacity
// that may be consumed concurrently: a flight's seats, a hotel room-type's
// rooms, a car class's fleet count.  AvailableCapacity is the authoritative
// counter.  It is mutated only by the reservation engine under a row-level
// exclusive lock and never goes negative.
//
// Fields:
//  ID                – opaque unique identifier of the unit.
//  AvailableCapacity – capacity not currently held or consumed.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last modification timestamp.
type InventoryUnit struct {
	ID                string    // inventory_units.id
	AvailableCapacity int64     // inventory_units.available_capacity
	CreatedAt         time.Time // inventory_units.created_at
	UpdatedAt         time.Time // inventory_units.updated_at
}
