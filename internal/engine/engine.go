package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skyreserve/inventory-reservation/internal/model"
	"github.com/skyreserve/inventory-reservation/internal/store"
)

// DefaultHoldWindow is how long a pending reservation may occupy capacity
// before the sweeper reclaims it.
const DefaultHoldWindow = 15 * time.Minute

// Engine is the sole writer of inventory capacity and reservation status.
// Every operation is one atomic transaction against the store; capacity
// mutations for a unit are serialized by the row lock taken at the start
// of reserve, cancel and expire.  Confirm never touches capacity and locks
// only the reservation row.
type Engine struct {
	store  store.Store
	hold   time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// New returns an Engine over the given store.  A non-positive holdWindow
// falls back to DefaultHoldWindow.
func New(st store.Store, holdWindow time.Duration, logger zerolog.Logger) *Engine {
	if holdWindow <= 0 {
		holdWindow = DefaultHoldWindow
	}
	return &Engine{
		store:  st,
		hold:   holdWindow,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Reserve places a pessimistic hold of quantity on the unit on behalf of
// the external booking.  Inside one transaction it locks the unit row,
// checks capacity, debits it and inserts a pending reservation expiring
// after the hold window.  The row lock, not application retries, is what
// keeps concurrent reserves from overselling.
func (e *Engine) Reserve(ctx context.Context, unitID, bookingID string, quantity int64) (*model.Reservation, error) {
	unitID = strings.TrimSpace(unitID)
	bookingID = strings.TrimSpace(bookingID)
	if unitID == "" {
		return nil, fmt.Errorf("%w: inventory unit id is required", ErrInvalidInput)
	}
	if bookingID == "" {
		return nil, fmt.Errorf("%w: external booking id is required", ErrInvalidInput)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidInput, quantity)
	}

	now := e.now()
	expires := now.Add(e.hold)
	res := &model.Reservation{
		ID:                uuid.NewString(),
		InventoryUnitID:   unitID,
		ExternalBookingID: bookingID,
		Quantity:          quantity,
		Status:            model.ReservationPending,
		ExpiresAt:         &expires,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := e.store.WithinTx(ctx, func(tx store.Tx) error {
		unit, err := tx.InventoryUnitForUpdate(ctx, unitID)
		if err != nil {
			if errors.Is(err, store.ErrUnitNotFound) {
				return fmt.Errorf("%w: inventory unit %s", ErrNotFound, unitID)
			}
			return err
		}
		if unit.AvailableCapacity < quantity {
			return fmt.Errorf("%w: unit %s has %d available, requested %d",
				ErrInsufficientCapacity, unitID, unit.AvailableCapacity, quantity)
		}
		if err := tx.AddAvailableCapacity(ctx, unitID, -quantity); err != nil {
			return err
		}
		return tx.InsertReservation(ctx, res)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Str("reservation_id", res.ID).
		Str("inventory_unit_id", unitID).
		Str("external_booking_id", bookingID).
		Int64("quantity", quantity).
		Time("expires_at", expires).
		Msg("reservation placed")
	return res, nil
}

// Confirm moves a pending reservation to confirmed and clears its expiry.
// Capacity stays deducted permanently, so the unit row is never touched.
// Confirm is strict: a reservation already confirmed, cancelled or expired
// yields ErrInvalidState so the orchestrator can detect a double confirm
// instead of silently succeeding.
func (e *Engine) Confirm(ctx context.Context, reservationID string) (*model.Reservation, error) {
	var out *model.Reservation
	err := e.store.WithinTx(ctx, func(tx store.Tx) error {
		r, err := tx.ReservationForUpdate(ctx, reservationID)
		if err != nil {
			if errors.Is(err, store.ErrReservationNotFound) {
				return fmt.Errorf("%w: reservation %s", ErrNotFound, reservationID)
			}
			return err
		}
		if r.Status != model.ReservationPending {
			return fmt.Errorf("%w: reservation %s is %s", ErrInvalidState, reservationID, r.Status)
		}
		if err := tx.UpdateReservationStatus(ctx, reservationID, model.ReservationConfirmed); err != nil {
			return err
		}
		r.Status = model.ReservationConfirmed
		r.ExpiresAt = nil
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Str("reservation_id", out.ID).
		Str("inventory_unit_id", out.InventoryUnitID).
		Msg("reservation confirmed")
	return out, nil
}

// Cancel is the compensating action for Reserve.  When the reservation is
// still pending it is moved to cancelled and its quantity is credited back
// to the unit in the same transaction.  A missing or already-resolved
// reservation is treated as already handled and reported as success with
// released=false: a saga compensator may legitimately retry or race a
// concurrent confirm/expire and must not error.  Requiring the prior
// status to be exactly pending under the lock is what makes the capacity
// credit happen at most once.
func (e *Engine) Cancel(ctx context.Context, reservationID string) (r *model.Reservation, released bool, err error) {
	err = e.store.WithinTx(ctx, func(tx store.Tx) error {
		cur, err := tx.ReservationForUpdate(ctx, reservationID)
		if err != nil {
			if errors.Is(err, store.ErrReservationNotFound) {
				return nil // already handled, idempotent success
			}
			return err
		}
		r = cur
		if cur.Status != model.ReservationPending {
			return nil
		}
		if err := tx.UpdateReservationStatus(ctx, reservationID, model.ReservationCancelled); err != nil {
			return err
		}
		if err := tx.AddAvailableCapacity(ctx, cur.InventoryUnitID, cur.Quantity); err != nil {
			return err
		}
		cur.Status = model.ReservationCancelled
		cur.ExpiresAt = nil
		released = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if released {
		e.logger.Debug().
			Str("reservation_id", r.ID).
			Str("inventory_unit_id", r.InventoryUnitID).
			Int64("quantity", r.Quantity).
			Msg("reservation cancelled, capacity restored")
	}
	return r, released, nil
}

// ExpireDue reclaims every pending reservation whose hold window has
// elapsed.  All due rows are handled in one transaction: each is moved to
// expired and its quantity credited back to the owning unit.  Rows that
// left pending before their lock was obtained are skipped silently, which
// is the one place besides Cancel where a race is deliberately swallowed.
func (e *Engine) ExpireDue(ctx context.Context) ([]model.Reservation, error) {
	now := e.now()
	var expired []model.Reservation
	err := e.store.WithinTx(ctx, func(tx store.Tx) error {
		due, err := tx.DueReservationsForUpdate(ctx, now)
		if err != nil {
			return err
		}
		for i := range due {
			r := due[i]
			if r.Status != model.ReservationPending {
				continue // lost the race to a confirm or cancel
			}
			if err := tx.UpdateReservationStatus(ctx, r.ID, model.ReservationExpired); err != nil {
				return err
			}
			if err := tx.AddAvailableCapacity(ctx, r.InventoryUnitID, r.Quantity); err != nil {
				return err
			}
			r.Status = model.ReservationExpired
			r.ExpiresAt = nil
			expired = append(expired, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

// Availability returns the unit's available capacity as currently
// committed.  The value is read outside any engine transaction and is
// therefore non-authoritative: it serves search and display, never
// correctness decisions.
func (e *Engine) Availability(ctx context.Context, unitID string) (int64, error) {
	unit, err := e.store.InventoryUnit(ctx, unitID)
	if err != nil {
		if errors.Is(err, store.ErrUnitNotFound) {
			return 0, fmt.Errorf("%w: inventory unit %s", ErrNotFound, unitID)
		}
		return 0, err
	}
	return unit.AvailableCapacity, nil
}
