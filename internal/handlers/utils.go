package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/charismamove/apiserver/internal/logging"
	"github.com/charismamove/apiserver/types"
)

const maxBodyBytes = 1 << 20

type contextKey string

const contextPrincipalKey contextKey = "principal"

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func withPrincipal(ctx context.Context, principal types.Principal) context.Context {
	return context.WithValue(ctx, contextPrincipalKey, principal)
}

// PrincipalFromContext returns the authenticated caller stored by
// RequireAuth.
func PrincipalFromContext(ctx context.Context) (types.Principal, bool) {
	principal, ok := ctx.Value(contextPrincipalKey).(types.Principal)
	if !ok || principal.UserID < 1 {
		return types.Principal{}, false
	}
	return principal, true
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeInternalError logs err with the request id and hides it from the
// client.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error, message string) {
	logging.FromContext(r.Context()).WithError(err).WithField("path", r.URL.Path).Error(message)
	writeError(w, http.StatusInternalServerError, message)
}

// decodeJSON decodes a single JSON object into dst, rejecting unknown
// fields and trailing data.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if decoder.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

func parseID(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// trimmed returns nil for nil or blank values and the trimmed value otherwise.
func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
