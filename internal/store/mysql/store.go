// Package mysql implements store.Store on MySQL using database/sql.  Row
// locks are taken with SELECT ... FOR UPDATE, which blocks concurrent
// locking readers of the same row until the owning transaction resolves.
//
// Expected schema:
//
//	CREATE TABLE inventory_units (
//	    id                 VARCHAR(64)  NOT NULL PRIMARY KEY,
//	    available_capacity BIGINT       NOT NULL,
//	    created_at         DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    updated_at         DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP
//	);
//
//	CREATE TABLE reservations (
//	    id                  VARCHAR(64)  NOT NULL PRIMARY KEY,
//	    inventory_unit_id   VARCHAR(64)  NOT NULL,
//	    external_booking_id VARCHAR(128) NOT NULL,
//	    quantity            BIGINT       NOT NULL,
//	    status              VARCHAR(16)  NOT NULL,
//	    expires_at          DATETIME     NULL,
//	    created_at          DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    updated_at          DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    KEY idx_status_expires (status, expires_at),
//	    CONSTRAINT fk_res_unit FOREIGN KEY (inventory_unit_id) REFERENCES inventory_units (id)
//	);
//
// The (status, expires_at) index keeps the sweeper's due-reservation scan
// cheap regardless of ledger size.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/skyreserve/inventory-reservation/internal/model"
	"github.com/skyreserve/inventory-reservation/internal/store"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// Store is the MySQL-backed implementation of store.Store.
type Store struct {
	db *sql.DB
}

// New returns a Store bound to the provided database handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

// WithinTx runs fn in a single database transaction.  Any error from fn or
// from commit leaves the database untouched.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&storeTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// InventoryUnit reads a unit without locking.  The returned capacity is a
// snapshot and may be stale by the time the caller looks at it.
func (s *Store) InventoryUnit(ctx context.Context, id string) (*model.InventoryUnit, error) {
	const q = `SELECT id, available_capacity, created_at, updated_at
               FROM inventory_units WHERE id = ?`
	return scanUnit(s.db.QueryRowContext(ctx, q, id))
}

// Reservation reads a reservation without locking.
func (s *Store) Reservation(ctx context.Context, id string) (*model.Reservation, error) {
	const q = `SELECT id, inventory_unit_id, external_booking_id, quantity, status, expires_at, created_at, updated_at
               FROM reservations WHERE id = ?`
	return scanReservation(s.db.QueryRowContext(ctx, q, id))
}

// UpsertInventoryUnit creates a unit or resets its available capacity.
// Units are owned by upstream inventory management; this helper exists for
// seeding and operational tooling, not for the reservation flow.
func (s *Store) UpsertInventoryUnit(ctx context.Context, id string, capacity int64) error {
	const q = `INSERT INTO inventory_units (id, available_capacity) VALUES (?, ?)
               ON DUPLICATE KEY UPDATE available_capacity = VALUES(available_capacity), updated_at = UTC_TIMESTAMP()`
	_, err := s.db.ExecContext(ctx, q, id, capacity)
	return err
}

// storeTx adapts *sql.Tx to the store.Tx contract.
type storeTx struct {
	tx *sql.Tx
}

func (t *storeTx) InventoryUnitForUpdate(ctx context.Context, id string) (*model.InventoryUnit, error) {
	const q = `SELECT id, available_capacity, created_at, updated_at
               FROM inventory_units WHERE id = ? FOR UPDATE`
	return scanUnit(t.tx.QueryRowContext(ctx, q, id))
}

func (t *storeTx) AddAvailableCapacity(ctx context.Context, id string, delta int64) error {
	const q = `UPDATE inventory_units
               SET available_capacity = available_capacity + ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ?`
	res, err := t.tx.ExecContext(ctx, q, delta, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrUnitNotFound
	}
	return nil
}

func (t *storeTx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	const q = `INSERT INTO reservations
               (id, inventory_unit_id, external_booking_id, quantity, status, expires_at, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	var expires interface{}
	if r.ExpiresAt != nil {
		expires = r.ExpiresAt.UTC()
	}
	_, err := t.tx.ExecContext(ctx, q,
		r.ID, r.InventoryUnitID, r.ExternalBookingID, r.Quantity, string(r.Status),
		expires, r.CreatedAt.UTC(), r.UpdatedAt.UTC())
	return err
}

func (t *storeTx) ReservationForUpdate(ctx context.Context, id string) (*model.Reservation, error) {
	const q = `SELECT id, inventory_unit_id, external_booking_id, quantity, status, expires_at, created_at, updated_at
               FROM reservations WHERE id = ? FOR UPDATE`
	return scanReservation(t.tx.QueryRowContext(ctx, q, id))
}

func (t *storeTx) UpdateReservationStatus(ctx context.Context, id string, status model.ReservationStatus) error {
	const q = `UPDATE reservations
               SET status = ?, expires_at = NULL, updated_at = UTC_TIMESTAMP()
               WHERE id = ?`
	res, err := t.tx.ExecContext(ctx, q, string(status), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrReservationNotFound
	}
	return nil
}

func (t *storeTx) DueReservationsForUpdate(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	// Ordered scan so two overlapping sweeps acquire locks in the same
	// order instead of deadlocking each other.
	const q = `SELECT id, inventory_unit_id, external_booking_id, quantity, status, expires_at, created_at, updated_at
               FROM reservations
               WHERE status = ? AND expires_at < ?
               ORDER BY id FOR UPDATE`
	rows, err := t.tx.QueryContext(ctx, q, string(model.ReservationPending), now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var due []model.Reservation
	for rows.Next() {
		r, err := scanReservationRow(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return due, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUnit(row rowScanner) (*model.InventoryUnit, error) {
	var u model.InventoryUnit
	err := row.Scan(&u.ID, &u.AvailableCapacity, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrUnitNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func scanReservation(row *sql.Row) (*model.Reservation, error) {
	r, err := scanReservationRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrReservationNotFound
	}
	return r, err
}

func scanReservationRow(row rowScanner) (*model.Reservation, error) {
	var (
		r       model.Reservation
		status  string
		expires sql.NullTime
	)
	if err := row.Scan(&r.ID, &r.InventoryUnitID, &r.ExternalBookingID, &r.Quantity,
		&status, &expires, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = model.ReservationStatus(status)
	if expires.Valid {
		t := expires.Time
		r.ExpiresAt = &t
	}
	return &r, nil
}
