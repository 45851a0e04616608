package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charismamove/apiserver/internal/services"
	"github.com/charismamove/apiserver/internal/store"
	"github.com/charismamove/apiserver/types"
)

// BookingHandler serves the rider booking endpoints.
type BookingHandler struct {
	bookingService *services.BookingService
}

func NewBookingHandler(bookingService *services.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req BookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	booking, err := req.booking()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.bookingService.Create(r.Context(), principal, booking)
	if err != nil {
		writeInternalError(w, r, err, "database error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// List returns the caller's bookings, newest first.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	bookings, err := h.bookingService.ListOwn(r.Context(), principal)
	if err != nil {
		writeInternalError(w, r, err, "database error")
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// Confirm marks the booking confirmed and triggers the notifications
// without waiting for them.
func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	booking, err := h.bookingService.Confirm(r.Context(), principal, id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "not found")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, "forbidden")
		default:
			writeInternalError(w, r, err, "database error")
		}
		return
	}
	writeJSON(w, http.StatusOK, ConfirmResponse{Success: true, Booking: booking})
}

type BookingRequest struct {
	Departure  string `json:"departure"`
	Arrival    string `json:"arrival"`
	TravelDate string `json:"travel_date"`
	TravelTime string `json:"travel_time"`
	Seats      int    `json:"seats"`
}

func (req BookingRequest) booking() (types.Booking, error) {
	booking := types.Booking{
		Departure:  strings.TrimSpace(req.Departure),
		Arrival:    strings.TrimSpace(req.Arrival),
		TravelDate: strings.TrimSpace(req.TravelDate),
		TravelTime: strings.TrimSpace(req.TravelTime),
		Seats:      req.Seats,
	}
	if booking.Departure == "" || booking.Arrival == "" || booking.TravelDate == "" || booking.TravelTime == "" {
		return types.Booking{}, errors.New("missing fields")
	}
	if booking.Seats < 1 {
		return types.Booking{}, errors.New("seats must be at least 1")
	}
	if _, err := time.Parse(types.DateLayout, booking.TravelDate); err != nil {
		return types.Booking{}, errors.New("travel_date must be YYYY-MM-DD")
	}
	clock, err := parseClock(booking.TravelTime)
	if err != nil {
		return types.Booking{}, errors.New("travel_time must be HH:MM")
	}
	booking.TravelTime = clock
	return booking, nil
}

// parseClock accepts HH:MM or HH:MM:SS and returns HH:MM.
func parseClock(value string) (string, error) {
	for _, layout := range []string{types.TimeLayout, "15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(types.TimeLayout), nil
		}
	}
	return "", errors.New("invalid time")
}

type ConfirmResponse struct {
	Success bool          `json:"success"`
	Booking types.Booking `json:"booking"`
}
