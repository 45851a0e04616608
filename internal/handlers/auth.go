package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/charismamove/apiserver/internal/services"
	"github.com/charismamove/apiserver/internal/store"
	"github.com/charismamove/apiserver/types"
)

// AuthHandler provides registration and login endpoints.
type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RequireAuth authenticates the bearer token and stores the principal in the
// request context. A missing or malformed header yields 401, a token that
// fails verification 403.
func RequireAuth(authService *services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			principal, err := authService.Authenticate(tokenString)
			if err != nil {
				writeError(w, http.StatusForbidden, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAdmin rejects principals without the admin flag. It must run after
// RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !principal.IsAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Register creates a new user account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}

	user, err := h.authService.Register(r.Context(), services.Registration{
		Name:      req.Name,
		FirstName: trimmed(req.FirstName),
		Gender:    trimmed(req.Gender),
		Email:     req.Email,
		Password:  req.Password,
		Phone:     trimmed(req.Phone),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "email already in use")
			return
		}
		writeInternalError(w, r, err, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Login verifies credentials and returns a token with the user.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLogin(w, r)
	if !ok {
		return
	}

	session, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeLoginError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: session.Token, User: session.User})
}

// AdminLogin is Login for accounts with the admin flag.
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLogin(w, r)
	if !ok {
		return
	}

	session, err := h.authService.AdminLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeLoginError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AdminAuthResponse{
		Token: session.Token,
		Admin: AdminSummary{ID: session.User.ID, Name: session.User.Name, Email: session.User.Email},
	})
}

func (h *AuthHandler) writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrInvalidCredentials) || errors.Is(err, services.ErrNotAdmin) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeInternalError(w, r, err, "failed to authenticate")
}

func decodeLogin(w http.ResponseWriter, r *http.Request) (LoginRequest, bool) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return LoginRequest{}, false
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return LoginRequest{}, false
	}
	return req, true
}

type RegisterRequest struct {
	Name      string  `json:"name"`
	FirstName *string `json:"first_name"`
	Gender    *string `json:"gender"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Phone     *string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

// AdminSummary is the admin identity returned by the admin login.
type AdminSummary struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type AdminAuthResponse struct {
	Token string       `json:"token"`
	Admin AdminSummary `json:"admin"`
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
