package httpapi

import (
	"net/http"

	"github.com/atvirokodosprendimai/grocerydb/internal/core/domain"
)

type groceryRequest struct {
	Name string `json:"name"`
}

func (h *Handler) createGrocery(w http.ResponseWriter, r *http.Request) {
	var req groceryRequest
	if err := decodePayload(w, r, grocerySchema, &req); err != nil {
		handleDomainError(w, err)
		return
	}

	grocery, err := h.groceries.Persist(r.Context(), domain.Grocery{Name: req.Name})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, grocery)
}

func (h *Handler) listGroceries(w http.ResponseWriter, r *http.Request) {
	groceries, err := h.groceries.ListAll(r.Context())
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": groceries})
}

func (h *Handler) getGrocery(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	grocery, found, err := h.groceries.GetByID(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if !found {
		handleDomainError(w, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, grocery)
}

func (h *Handler) updateGrocery(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	var req groceryRequest
	if err := decodePayload(w, r, grocerySchema, &req); err != nil {
		handleDomainError(w, err)
		return
	}

	grocery, found, err := h.groceries.Update(r.Context(), id, domain.Grocery{Name: req.Name})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if !found {
		handleDomainError(w, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, grocery)
}

func (h *Handler) deleteGrocery(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	deleted, err := h.groceries.DeleteByID(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}
