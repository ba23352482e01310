package httpapi

import (
	"net/http"

	"github.com/atvirokodosprendimai/grocerydb/internal/core/domain"
)

type storeRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (h *Handler) createStore(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := decodePayload(w, r, storeSchema, &req); err != nil {
		handleDomainError(w, err)
		return
	}

	store, err := h.stores.Persist(r.Context(), domain.Store{Name: req.Name, Address: req.Address})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, store)
}

func (h *Handler) listStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.stores.ListAll(r.Context())
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": stores})
}

func (h *Handler) getStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	store, found, err := h.stores.GetByID(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if !found {
		handleDomainError(w, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, store)
}

func (h *Handler) updateStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	var req storeRequest
	if err := decodePayload(w, r, storeSchema, &req); err != nil {
		handleDomainError(w, err)
		return
	}

	store, found, err := h.stores.Update(r.Context(), id, domain.Store{Name: req.Name, Address: req.Address})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if !found {
		handleDomainError(w, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, store)
}

func (h *Handler) deleteStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	deleted, err := h.stores.DeleteByID(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}
