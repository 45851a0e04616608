package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/charismamove/apiserver/internal/services"
	"github.com/charismamove/apiserver/internal/store"
)

// AdminHandler serves the administration dashboard endpoints.
type AdminHandler struct {
	userService    *services.UserService
	bookingService *services.BookingService
	adminService   *services.AdminService
}

func NewAdminHandler(userService *services.UserService, bookingService *services.BookingService, adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{userService: userService, bookingService: bookingService, adminService: adminService}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeInternalError(w, r, err, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if principal, ok := PrincipalFromContext(r.Context()); ok && principal.UserID == id {
		writeError(w, http.StatusConflict, "cannot delete your own account")
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, store.ErrReferenced):
			writeError(w, http.StatusConflict, "user has bookings or announcements")
		default:
			writeInternalError(w, r, err, "failed to delete user")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookingService.ListAll(r.Context())
	if err != nil {
		writeInternalError(w, r, err, "failed to list bookings")
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.Stats(r.Context())
	if err != nil {
		writeInternalError(w, r, err, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ExportBookings streams the bookings workbook as an attachment.
func (h *AdminHandler) ExportBookings(w http.ResponseWriter, r *http.Request) {
	report, err := h.adminService.ExportBookings(r.Context())
	if err != nil {
		writeInternalError(w, r, err, "failed to export bookings")
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(report.Data)))
	if report.Location != "" {
		w.Header().Set("X-Archive-Location", report.Location)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(report.Data)
}
