package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyreserve/inventory-reservation/internal/model"
)

// stubEngine feeds scripted ExpireDue results to the sweeper.
type stubEngine struct {
	mu      sync.Mutex
	results []result
	calls   int
}

type result struct {
	expired []model.Reservation
	err     error
}

func (s *stubEngine) ExpireDue(ctx context.Context) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.results) == 0 {
		return nil, nil
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r.expired, r.err
}

func (s *stubEngine) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestSweepNotifiesOnExpired(t *testing.T) {
	expired := []model.Reservation{
		{ID: "r1", InventoryUnitID: "flight-1", Quantity: 1, Status: model.ReservationExpired},
		{ID: "r2", InventoryUnitID: "flight-2", Quantity: 2, Status: model.ReservationExpired},
	}
	eng := &stubEngine{results: []result{{expired: expired}}}

	s := New(eng, time.Minute, zerolog.Nop())
	var got []model.Reservation
	s.Notify = func(ctx context.Context, expired []model.Reservation) { got = expired }

	s.sweep(context.Background())
	require.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].ID)
}

func TestSweepSkipsNotifyWhenNothingExpired(t *testing.T) {
	eng := &stubEngine{}
	s := New(eng, time.Minute, zerolog.Nop())
	notified := false
	s.Notify = func(ctx context.Context, expired []model.Reservation) { notified = true }

	s.sweep(context.Background())
	assert.False(t, notified)
}

func TestSweepSwallowsEngineFailures(t *testing.T) {
	eng := &stubEngine{results: []result{
		{err: errors.New("lock wait timeout")},
		{expired: []model.Reservation{{ID: "r1", InventoryUnitID: "flight-1"}}},
	}}
	s := New(eng, time.Minute, zerolog.Nop())
	var got []model.Reservation
	s.Notify = func(ctx context.Context, expired []model.Reservation) { got = expired }

	// The failed pass is logged and dropped; the next pass succeeds.
	s.sweep(context.Background())
	assert.Empty(t, got)
	s.sweep(context.Background())
	assert.Len(t, got, 1)
}

func TestRunTicksUntilCancelled(t *testing.T) {
	eng := &stubEngine{}
	s := New(eng, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return eng.callCount() >= 3 },
		time.Second, 5*time.Millisecond, "sweeper should keep ticking")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}

func TestNewAppliesDefaultInterval(t *testing.T) {
	s := New(&stubEngine{}, 0, zerolog.Nop())
	assert.Equal(t, DefaultInterval, s.interval)
}
