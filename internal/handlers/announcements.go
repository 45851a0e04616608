package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charismamove/apiserver/internal/services"
	"github.com/charismamove/apiserver/types"
)

// datetimeLayouts are the accepted announcement datetime formats. Values
// without a zone are read as UTC.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

type AnnouncementHandler struct {
	announcementService *services.AnnouncementService
}

func NewAnnouncementHandler(announcementService *services.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{announcementService: announcementService}
}

func (h *AnnouncementHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AnnouncementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Departure = strings.TrimSpace(req.Departure)
	req.Destination = strings.TrimSpace(req.Destination)
	if req.Departure == "" || req.Destination == "" || strings.TrimSpace(req.Datetime) == "" || req.Seats == 0 {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}
	if req.Seats < 1 {
		writeError(w, http.StatusBadRequest, "seats must be at least 1")
		return
	}
	when, err := parseDatetime(req.Datetime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid datetime")
		return
	}

	created, err := h.announcementService.Publish(r.Context(), principal, types.Announcement{
		Departure:   req.Departure,
		Destination: req.Destination,
		Datetime:    when,
		Seats:       req.Seats,
	})
	if err != nil {
		writeInternalError(w, r, err, "database error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// List filters on the departure, destination and seats query parameters.
func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := types.AnnouncementFilter{
		Departure:   strings.TrimSpace(query.Get("departure")),
		Destination: strings.TrimSpace(query.Get("destination")),
	}
	if raw := strings.TrimSpace(query.Get("seats")); raw != "" {
		seats, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "seats must be an integer")
			return
		}
		filter.MinSeats = seats
	}

	announcements, err := h.announcementService.Search(r.Context(), filter)
	if err != nil {
		writeInternalError(w, r, err, "database error")
		return
	}
	writeJSON(w, http.StatusOK, announcements)
}

type AnnouncementRequest struct {
	Departure   string `json:"departure"`
	Destination string `json:"destination"`
	Datetime    string `json:"datetime"`
	Seats       int    `json:"seats"`
}

func parseDatetime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("invalid datetime")
}
