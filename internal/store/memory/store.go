// Package memory implements store.Store with mutex-guarded maps.  A single
// mutex serializes whole transactions, which trivially satisfies the
// contract that no two concurrent capacity mutations on the same unit
// observe each other's intermediate state.  Transactions operate on deep
// copies and are swapped in on success, so a failed transaction leaves the
// store untouched.
//
// The backend is used by the test suite and as a dev-mode store; it keeps
// every reservation ever created, mirroring the durable ledger.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/skyreserve/inventory-reservation/internal/model"
	"github.com/skyreserve/inventory-reservation/internal/store"
)

// Store is the in-memory implementation of store.Store.
type Store struct {
	mu           sync.Mutex
	units        map[string]*model.InventoryUnit
	reservations map[string]*model.Reservation
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		units:        make(map[string]*model.InventoryUnit),
		reservations: make(map[string]*model.Reservation),
	}
}

// PutInventoryUnit creates a unit or resets its available capacity.  Units
// are owned by upstream inventory management; this is the seeding hook.
func (s *Store) PutInventoryUnit(id string, capacity int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if u, ok := s.units[id]; ok {
		u.AvailableCapacity = capacity
		u.UpdatedAt = now
		return
	}
	s.units[id] = &model.InventoryUnit{
		ID:                id,
		AvailableCapacity: capacity,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// WithinTx runs fn against copies of the maps and publishes the copies only
// when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &storeTx{
		units:        cloneUnits(s.units),
		reservations: cloneReservations(s.reservations),
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.units = tx.units
	s.reservations = tx.reservations
	return nil
}

// InventoryUnit reads a unit without locking a transaction open.
func (s *Store) InventoryUnit(ctx context.Context, id string) (*model.InventoryUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[id]
	if !ok {
		return nil, store.ErrUnitNotFound
	}
	cp := *u
	return &cp, nil
}

// Reservation reads a reservation without locking a transaction open.
func (s *Store) Reservation(ctx context.Context, id string) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, store.ErrReservationNotFound
	}
	cp := copyReservation(r)
	return &cp, nil
}

// storeTx holds the transaction's private copies of both tables.
type storeTx struct {
	units        map[string]*model.InventoryUnit
	reservations map[string]*model.Reservation
}

func (t *storeTx) InventoryUnitForUpdate(ctx context.Context, id string) (*model.InventoryUnit, error) {
	u, ok := t.units[id]
	if !ok {
		return nil, store.ErrUnitNotFound
	}
	cp := *u
	return &cp, nil
}

func (t *storeTx) AddAvailableCapacity(ctx context.Context, id string, delta int64) error {
	u, ok := t.units[id]
	if !ok {
		return store.ErrUnitNotFound
	}
	u.AvailableCapacity += delta
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (t *storeTx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	cp := copyReservation(r)
	t.reservations[r.ID] = &cp
	return nil
}

func (t *storeTx) ReservationForUpdate(ctx context.Context, id string) (*model.Reservation, error) {
	r, ok := t.reservations[id]
	if !ok {
		return nil, store.ErrReservationNotFound
	}
	cp := copyReservation(r)
	return &cp, nil
}

func (t *storeTx) UpdateReservationStatus(ctx context.Context, id string, status model.ReservationStatus) error {
	r, ok := t.reservations[id]
	if !ok {
		return store.ErrReservationNotFound
	}
	r.Status = status
	r.ExpiresAt = nil
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (t *storeTx) DueReservationsForUpdate(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	var due []model.Reservation
	for _, r := range t.reservations {
		if r.Status == model.ReservationPending && r.ExpiresAt != nil && r.ExpiresAt.Before(now) {
			due = append(due, copyReservation(r))
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

func cloneUnits(in map[string]*model.InventoryUnit) map[string]*model.InventoryUnit {
	out := make(map[string]*model.InventoryUnit, len(in))
	for id, u := range in {
		cp := *u
		out[id] = &cp
	}
	return out
}

func cloneReservations(in map[string]*model.Reservation) map[string]*model.Reservation {
	out := make(map[string]*model.Reservation, len(in))
	for id, r := range in {
		cp := copyReservation(r)
		out[id] = &cp
	}
	return out
}

func copyReservation(r *model.Reservation) model.Reservation {
	cp := *r
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		cp.ExpiresAt = &t
	}
	return cp
}
