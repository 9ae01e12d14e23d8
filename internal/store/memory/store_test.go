package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyreserve/inventory-reservation/internal/model"
	"github.com/skyreserve/inventory-reservation/internal/store"
)

func TestWithinTxCommits(t *testing.T) {
	st := New()
	st.PutInventoryUnit("u1", 5)
	ctx := context.Background()

	err := st.WithinTx(ctx, func(tx store.Tx) error {
		return tx.AddAvailableCapacity(ctx, "u1", -3)
	})
	require.NoError(t, err)

	u, err := st.InventoryUnit(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), u.AvailableCapacity)
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	st := New()
	st.PutInventoryUnit("u1", 5)
	ctx := context.Background()
	boom := errors.New("boom")

	err := st.WithinTx(ctx, func(tx store.Tx) error {
		if err := tx.AddAvailableCapacity(ctx, "u1", -3); err != nil {
			return err
		}
		if err := tx.InsertReservation(ctx, &model.Reservation{ID: "r1", InventoryUnitID: "u1"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Neither mutation from the failed transaction is visible.
	u, err := st.InventoryUnit(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), u.AvailableCapacity)
	_, err = st.Reservation(ctx, "r1")
	assert.ErrorIs(t, err, store.ErrReservationNotFound)
}

func TestSentinelErrors(t *testing.T) {
	st := New()
	ctx := context.Background()

	_, err := st.InventoryUnit(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrUnitNotFound)
	_, err = st.Reservation(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrReservationNotFound)

	err = st.WithinTx(ctx, func(tx store.Tx) error {
		if _, err := tx.InventoryUnitForUpdate(ctx, "missing"); !errors.Is(err, store.ErrUnitNotFound) {
			return errors.New("expected ErrUnitNotFound")
		}
		if _, err := tx.ReservationForUpdate(ctx, "missing"); !errors.Is(err, store.ErrReservationNotFound) {
			return errors.New("expected ErrReservationNotFound")
		}
		if err := tx.AddAvailableCapacity(ctx, "missing", 1); !errors.Is(err, store.ErrUnitNotFound) {
			return errors.New("expected ErrUnitNotFound from capacity update")
		}
		if err := tx.UpdateReservationStatus(ctx, "missing", model.ReservationExpired); !errors.Is(err, store.ErrReservationNotFound) {
			return errors.New("expected ErrReservationNotFound from status update")
		}
		return nil
	})
	require.NoError(t, err)
}

func TestDueReservationsFiltersAndOrders(t *testing.T) {
	st := New()
	st.PutInventoryUnit("u1", 10)
	ctx := context.Background()
	now := time.Now().UTC()

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	seed := []model.Reservation{
		{ID: "b-due", InventoryUnitID: "u1", Quantity: 1, Status: model.ReservationPending, ExpiresAt: &past},
		{ID: "a-due", InventoryUnitID: "u1", Quantity: 1, Status: model.ReservationPending, ExpiresAt: &past},
		{ID: "fresh", InventoryUnitID: "u1", Quantity: 1, Status: model.ReservationPending, ExpiresAt: &future},
		{ID: "done", InventoryUnitID: "u1", Quantity: 1, Status: model.ReservationConfirmed},
	}
	err := st.WithinTx(ctx, func(tx store.Tx) error {
		for i := range seed {
			if err := tx.InsertReservation(ctx, &seed[i]); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = st.WithinTx(ctx, func(tx store.Tx) error {
		due, err := tx.DueReservationsForUpdate(ctx, now)
		if err != nil {
			return err
		}
		require.Len(t, due, 2)
		assert.Equal(t, "a-due", due[0].ID)
		assert.Equal(t, "b-due", due[1].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateReservationStatusClearsExpiry(t *testing.T) {
	st := New()
	ctx := context.Background()
	expires := time.Now().UTC().Add(time.Minute)

	err := st.WithinTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertReservation(ctx, &model.Reservation{
			ID: "r1", InventoryUnitID: "u1", Quantity: 1,
			Status: model.ReservationPending, ExpiresAt: &expires,
		}); err != nil {
			return err
		}
		return tx.UpdateReservationStatus(ctx, "r1", model.ReservationConfirmed)
	})
	require.NoError(t, err)

	r, err := st.Reservation(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, model.ReservationConfirmed, r.Status)
	assert.Nil(t, r.ExpiresAt)
}

func TestPutInventoryUnitResetsCapacity(t *testing.T) {
	st := New()
	st.PutInventoryUnit("u1", 5)
	st.PutInventoryUnit("u1", 9)

	u, err := st.InventoryUnit(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(9), u.AvailableCapacity)
}
