package handlers

import (
	"net/http"
	"strings"

	"github.com/charismamove/apiserver/internal/services"
)

type ItemHandler struct {
	itemService *services.ItemService
}

func NewItemHandler(itemService *services.ItemService) *ItemHandler {
	return &ItemHandler{itemService: itemService}
}

// List returns every item, or those whose name contains the q parameter.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.itemService.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeInternalError(w, r, err, "database error")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}

	item, err := h.itemService.Create(r.Context(), req.Name)
	if err != nil {
		writeInternalError(w, r, err, "database error")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

type ItemRequest struct {
	Name string `json:"name"`
}
