package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/charismamove/apiserver/internal/services"
	"github.com/charismamove/apiserver/internal/store"
	"github.com/charismamove/apiserver/types"
)

// UserHandler serves a user's own profile.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, id, ok := h.target(w, r)
	if !ok {
		return
	}

	user, err := h.userService.Get(r.Context(), principal, id)
	if err != nil {
		h.writeError(w, r, err, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Update changes the profile fields present in the body. Other fields,
// including email, password and the admin flag, are rejected.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var req ProfileUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name cannot be empty")
		return
	}

	update := types.ProfileUpdate{
		Name:      req.Name,
		FirstName: req.FirstName,
		Gender:    req.Gender,
		Phone:     req.Phone,
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		update.Name = &name
	}

	user, err := h.userService.UpdateProfile(r.Context(), principal, id, update)
	if err != nil {
		h.writeError(w, r, err, "failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) target(w http.ResponseWriter, r *http.Request) (types.Principal, int, bool) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return types.Principal{}, 0, false
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return types.Principal{}, 0, false
	}
	return principal, id, true
}

func (h *UserHandler) writeError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	default:
		writeInternalError(w, r, err, message)
	}
}

type ProfileUpdateRequest struct {
	Name      *string `json:"name"`
	FirstName *string `json:"first_name"`
	Gender    *string `json:"gender"`
	Phone     *string `json:"phone"`
}
