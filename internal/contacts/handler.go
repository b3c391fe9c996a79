package contacts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/comercio-app/comercio/internal/platform/httpx"
	"github.com/comercio-app/comercio/internal/shared"
)

// Handler wires HTTP endpoints for clients and suppliers.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs contacts handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers client and supplier routes.
func (h *Handler) MountRoutes(r chi.Router) {
	for _, kind := range []Kind{KindClient, KindSupplier} {
		kind := kind
		r.Route("/"+string(kind), func(r chi.Router) {
			r.Get("/", h.list(kind))
			r.Post("/", h.create(kind))
			r.Get("/{id}", h.get(kind))
			r.Put("/{id}", h.update(kind))
			r.Delete("/{id}", h.delete(kind))
		})
	}
}

type listResponse struct {
	Data       []Contact         `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		f := ListFilters{
			Search:  r.URL.Query().Get("search"),
			Status:  r.URL.Query().Get("status"),
			Page:    page,
			PerPage: perPage,
		}
		contacts, total, err := h.service.List(r.Context(), kind, f)
		if err != nil {
			h.respondErr(w, "list "+string(kind), err)
			return
		}
		httpx.JSON(w, http.StatusOK, listResponse{
			Data:       contacts,
			Pagination: shared.NewPagination(f.Page, f.PerPage, total),
		})
	}
}

func (h *Handler) get(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := h.service.Get(r.Context(), kind, chi.URLParam(r, "id"))
		if err != nil {
			h.respondErr(w, "get "+string(kind), err)
			return
		}
		httpx.JSON(w, http.StatusOK, c)
	}
}

func (h *Handler) create(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpsertContactRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
			return
		}
		if err := h.validator.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		c, err := h.service.Create(r.Context(), kind, req)
		if err != nil {
			h.respondErr(w, "create "+string(kind), err)
			return
		}
		httpx.JSON(w, http.StatusCreated, c)
	}
}

func (h *Handler) update(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpsertContactRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
			return
		}
		if err := h.validator.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		c, err := h.service.Update(r.Context(), kind, chi.URLParam(r, "id"), req)
		if err != nil {
			h.respondErr(w, "update "+string(kind), err)
			return
		}
		httpx.JSON(w, http.StatusOK, c)
	}
}

func (h *Handler) delete(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.service.Delete(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
			h.respondErr(w, "delete "+string(kind), err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
