package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyreserve/inventory-reservation/internal/cache"
	"github.com/skyreserve/inventory-reservation/internal/engine"
	"github.com/skyreserve/inventory-reservation/internal/store/memory"
)

func newTestHandler(t *testing.T, capacities map[string]int64) *ReservationHandler {
	t.Helper()
	st := memory.New()
	for id, c := range capacities {
		st.PutInventoryUnit(id, c)
	}
	eng := engine.New(st, 15*time.Minute, zerolog.Nop())
	return NewReservationHandler(eng, cache.NewAvailability(nil, 0), zerolog.Nop())
}

func postJSON(t *testing.T, h echo.HandlerFunc, target, body string, params ...string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	return doRequest(t, h, http.MethodPost, target, body, params...)
}

func doRequest(t *testing.T, h echo.HandlerFunc, method, target, body string, params ...string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) > 0 {
		var names, values []string
		for i := 0; i+1 < len(params); i += 2 {
			names = append(names, params[i])
			values = append(values, params[i+1])
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	require.NoError(t, h(c))

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func reserve(t *testing.T, h *ReservationHandler, unitID, bookingID string, quantity int64) string {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"inventory_unit_id":   unitID,
		"external_booking_id": bookingID,
		"quantity":            quantity,
	})
	require.NoError(t, err)
	rec, out := postJSON(t, h.Reserve, "/v1/reservations", string(body))
	require.Equal(t, http.StatusCreated, rec.Code)
	return out["reservation_id"].(string)
}

func TestReserveEndpoint(t *testing.T) {
	h := newTestHandler(t, map[string]int64{"flight-1": 2})

	rec, out := postJSON(t, h.Reserve, "/v1/reservations",
		`{"inventory_unit_id":"flight-1","external_booking_id":"booking-A","quantity":2}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, out["reservation_id"])
	_, err := time.Parse(time.RFC3339, out["expires_at"].(string))
	assert.NoError(t, err)
}

func TestReserveEndpointDefaultsQuantity(t *testing.T) {
	h := newTestHandler(t, map[string]int64{"flight-1": 2})

	rec, _ := postJSON(t, h.Reserve, "/v1/reservations",
		`{"inventory_unit_id":"flight-1","external_booking_id":"booking-A"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// One seat of two was held.
	rec, out := doRequest(t, h.Availability, http.MethodGet, "/v1/inventory/flight-1/availability", "", "id", "flight-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), out["available_capacity"])
}

func TestReserveEndpointErrors(t *testing.T) {
	h := newTestHandler(t, map[string]int64{"flight-1": 2})

	cases := []struct {
		name string
		body string
		code int
	}{
		{"missing booking id", `{"inventory_unit_id":"flight-1","quantity":1}`, http.StatusBadRequest},
		{"negative quantity", `{"inventory_unit_id":"flight-1","external_booking_id":"b","quantity":-1}`, http.StatusBadRequest},
		{"unknown unit", `{"inventory_unit_id":"flight-404","external_booking_id":"b","quantity":1}`, http.StatusNotFound},
		{"insufficient capacity", `{"inventory_unit_id":"flight-1","external_booking_id":"b","quantity":5}`, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, out := postJSON(t, h.Reserve, "/v1/reservations", tc.body)
			assert.Equal(t, tc.code, rec.Code)
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestConfirmEndpoint(t *testing.T) {
	h := newTestHandler(t, map[string]int64{"flight-1": 2})
	id := reserve(t, h, "flight-1", "booking-A", 1)

	rec, out := postJSON(t, h.Confirm, "/v1/reservations/"+id+"/confirm", "", "id", id)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "confirmed", out["status"])

	// Double confirm is surfaced as a conflict, not a silent success.
	rec, _ = postJSON(t, h.Confirm, "/v1/reservations/"+id+"/confirm", "", "id", id)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = postJSON(t, h.Confirm, "/v1/reservations/no-such/confirm", "", "id", "no-such")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelEndpointIsIdempotent(t *testing.T) {
	h := newTestHandler(t, map[string]int64{"flight-1": 2})
	id := reserve(t, h, "flight-1", "booking-A", 2)

	rec, out := doRequest(t, h.Cancel, http.MethodDelete, "/v1/reservations/"+id, "", "id", id)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", out["status"])

	rec, out = doRequest(t, h.Cancel, http.MethodDelete, "/v1/reservations/"+id, "", "id", id)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "already_resolved", out["status"])

	// Cancelling a reservation that never existed is still a success.
	rec, _ = doRequest(t, h.Cancel, http.MethodDelete, "/v1/reservations/ghost", "", "id", "ghost")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Capacity came back exactly once.
	rec, availability := doRequest(t, h.Availability, http.MethodGet, "/v1/inventory/flight-1/availability", "", "id", "flight-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), availability["available_capacity"])
}

func TestAvailabilityEndpoint(t *testing.T) {
	h := newTestHandler(t, map[string]int64{"flight-1": 7})

	rec, out := doRequest(t, h.Availability, http.MethodGet, "/v1/inventory/flight-1/availability", "", "id", "flight-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(7), out["available_capacity"])

	rec, _ = doRequest(t, h.Availability, http.MethodGet, "/v1/inventory/ghost/availability", "", "id", "ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
