package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/atvirokodosprendimai/grocerydb/internal/core/domain"
	"github.com/atvirokodosprendimai/grocerydb/internal/core/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxJSONBodySize = 1 << 20

type Handler struct {
	groceries *usecase.GroceryService
	stores    *usecase.StoreService
	auth      *usecase.AuthService
	audit     *usecase.AuditService
}

func NewHandler(groceries *usecase.GroceryService, stores *usecase.StoreService, auth *usecase.AuthService, audit *usecase.AuditService) *Handler {
	return &Handler{groceries: groceries, stores: stores, auth: auth, audit: audit}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.healthz)
	r.Get("/openapi.json", h.openapi)

	r.Group(func(pr chi.Router) {
		pr.Use(h.requireAPIKey)

		pr.Route("/v1/groceries", func(gr chi.Router) {
			gr.Post("/", h.createGrocery)
			gr.Get("/", h.listGroceries)
			gr.Get("/{id}", h.getGrocery)
			gr.Put("/{id}", h.updateGrocery)
			gr.Delete("/{id}", h.deleteGrocery)
		})

		pr.Route("/v1/stores", func(sr chi.Router) {
			sr.Post("/", h.createStore)
			sr.Get("/", h.listStores)
			sr.Get("/{id}", h.getStore)
			sr.Put("/{id}", h.updateStore)
			sr.Delete("/{id}", h.deleteStore)
		})

		pr.Get("/v1/audit", h.listAudit)
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) openapi(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, openapiSpec())
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.AuditFilter{
		AggregateType: q.Get("aggregate_type"),
		Action:        q.Get("action"),
	}

	var ok bool
	if filter.AggregateID, ok = parseInt64Query(w, r, "aggregate_id"); !ok {
		return
	}
	if filter.AfterID, ok = parseInt64Query(w, r, "after_id"); !ok {
		return
	}
	limit, ok := parseInt64Query(w, r, "limit")
	if !ok {
		return
	}
	filter.Limit = int(limit)

	page, err := h.audit.List(r.Context(), filter)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// requireAPIKey authenticates the caller and stamps the request context with
// the mutation metadata that repositories record in change events.
func (h *Handler) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get("X-API-Key"))
		if token == "" {
			auth := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				token = strings.TrimSpace(auth[7:])
			}
		}

		apiKey, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, usecase.ErrUnauthorized) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			log.Printf("authenticate request_id=%s: %v", middleware.GetReqID(r.Context()), err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		ctx := domain.WithMutationMetadata(r.Context(), domain.MutationMetadata{
			Actor:     apiKey.Actor(),
			Source:    "api",
			RequestID: middleware.GetReqID(r.Context()),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	if err := domain.ValidateID(id); err != nil {
		return 0, err
	}
	return id, nil
}

func parseInt64Query(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be integer")
		return 0, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		log.Printf("encode json response: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func handleDomainError(w http.ResponseWriter, err error) {
	var pe *payloadError
	switch {
	case errors.As(err, &pe):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "payload validation failed", "details": pe.details})
	case errors.Is(err, errInvalidBody):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, domain.ErrInvalidID), errors.Is(err, domain.ErrInvalidFilter):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func openapiSpec() map[string]any {
	item := func(summary string) map[string]any { return map[string]any{"summary": summary} }
	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "grocerydb",
			"version": "1.0.0",
		},
		"paths": map[string]any{
			"/v1/groceries": map[string]any{
				"get":  item("List groceries"),
				"post": item("Create grocery"),
			},
			"/v1/groceries/{id}": map[string]any{
				"get":    item("Get grocery"),
				"put":    item("Update grocery name"),
				"delete": item("Delete grocery"),
			},
			"/v1/stores": map[string]any{
				"get":  item("List stores"),
				"post": item("Create store"),
			},
			"/v1/stores/{id}": map[string]any{
				"get":    item("Get store"),
				"put":    item("Update store name and address"),
				"delete": item("Delete store"),
			},
			"/v1/audit": map[string]any{
				"get": item("List change audit trail"),
			},
		},
	}
}
