package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/skyreserve/inventory-reservation/internal/cache"
	"github.com/skyreserve/inventory-reservation/internal/engine"
	"github.com/skyreserve/inventory-reservation/internal/model"
	"github.com/skyreserve/inventory-reservation/internal/queue"
)

// ReservationHandler exposes the reservation engine to the booking
// orchestrator over HTTP.  The engine owns all transactional behavior; the
// handler only binds requests, maps the engine's error taxonomy to status
// codes and performs the best-effort side work (event publishing, cache
// invalidation) after a commit.
type ReservationHandler struct {
	Engine *engine.Engine
	Cache  *cache.Availability
	Logger zerolog.Logger

	// Publish sends a lifecycle event to the named queue.  Nil disables
	// publishing; errors are ignored because events are informational.
	Publish func(ctx context.Context, queueName string, ev queue.ReservationEvent) error
}

// NewReservationHandler constructs a ReservationHandler.  The engine must
// be non-nil; cache and publisher are optional.
func NewReservationHandler(e *engine.Engine, c *cache.Availability, logger zerolog.Logger) *ReservationHandler {
	if e == nil {
		panic("nil engine passed to NewReservationHandler")
	}
	return &ReservationHandler{Engine: e, Cache: c, Logger: logger}
}

// Reserve handles POST /v1/reservations.  The body must carry the unit to
// hold capacity on and the caller's booking correlation id; quantity
// defaults to 1 when omitted.  On success it responds 201 with the new
// reservation id and the end of its hold window.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	var body struct {
		InventoryUnitID   string `json:"inventory_unit_id"`
		ExternalBookingID string `json:"external_booking_id"`
		Quantity          int64  `json:"quantity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Quantity == 0 {
		body.Quantity = 1
	}

	ctx := c.Request().Context()
	res, err := h.Engine.Reserve(ctx, body.InventoryUnitID, body.ExternalBookingID, body.Quantity)
	if err != nil {
		return h.writeError(c, err)
	}

	h.Cache.Invalidate(ctx, res.InventoryUnitID)
	h.publish(ctx, queue.QueueReserved, res)

	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": res.ID,
		"expires_at":     res.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Confirm handles POST /v1/reservations/:id/confirm.  Confirming is
// strict: a reservation that is not pending yields 409 so the orchestrator
// can detect a double confirm.
func (h *ReservationHandler) Confirm(c echo.Context) error {
	ctx := c.Request().Context()
	res, err := h.Engine.Confirm(ctx, c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}

	h.publish(ctx, queue.QueueConfirmed, res)

	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id": res.ID,
		"status":         string(res.Status),
	})
}

// Cancel handles DELETE /v1/reservations/:id.  Cancellation is the saga's
// compensating action and is idempotent: a missing or already-resolved
// reservation still answers 200 so a retried compensator never errors.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	res, released, err := h.Engine.Cancel(ctx, c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}

	status := "already_resolved"
	if released {
		status = string(model.ReservationCancelled)
		h.Cache.Invalidate(ctx, res.InventoryUnitID)
		h.publish(ctx, queue.QueueCancelled, res)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id": c.Param("id"),
		"status":         status,
	})
}

// Availability handles GET /v1/inventory/:id/availability.  The value is a
// non-authoritative snapshot served from the cache when possible.
func (h *ReservationHandler) Availability(c echo.Context) error {
	ctx := c.Request().Context()
	unitID := c.Param("id")

	if capacity, ok := h.Cache.Get(ctx, unitID); ok {
		return c.JSON(http.StatusOK, echo.Map{
			"inventory_unit_id":  unitID,
			"available_capacity": capacity,
		})
	}

	capacity, err := h.Engine.Availability(ctx, unitID)
	if err != nil {
		return h.writeError(c, err)
	}
	h.Cache.Set(ctx, unitID, capacity)

	return c.JSON(http.StatusOK, echo.Map{
		"inventory_unit_id":  unitID,
		"available_capacity": capacity,
	})
}

// writeError maps the engine's error taxonomy onto HTTP status codes.
// Caller-fault kinds map to 4xx; everything else is a storage fault and
// maps to 500 with the detail kept out of the response body.
func (h *ReservationHandler) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, engine.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, engine.ErrInsufficientCapacity):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, engine.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		h.Logger.Error().Err(err).Str("path", c.Path()).Msg("storage fault")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error, retry later"})
	}
}

func (h *ReservationHandler) publish(ctx context.Context, queueName string, r *model.Reservation) {
	if h.Publish == nil {
		return
	}
	_ = h.Publish(ctx, queueName, queue.ReservationEvent{
		ReservationID:     r.ID,
		InventoryUnitID:   r.InventoryUnitID,
		ExternalBookingID: r.ExternalBookingID,
		Quantity:          r.Quantity,
		Status:            string(r.Status),
		OccurredAt:        time.Now().UTC().Format(time.RFC3339),
	})
}
