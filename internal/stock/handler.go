package stock

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/comercio-app/comercio/internal/platform/httpx"
	"github.com/comercio-app/comercio/internal/shared"
)

// Handler wires HTTP endpoints for stock documents.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs stock handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/stock-entries", func(r chi.Router) {
		r.Get("/", h.listEntries)
		r.Post("/", h.createEntry)
		r.Get("/{id}", h.getEntry)
		r.Put("/{id}", h.updateEntry)
		r.Delete("/{id}", h.deleteEntry)
	})
	r.Route("/stock-exits", func(r chi.Router) {
		r.Get("/", h.listExits)
		r.Post("/", h.createExit)
		r.Get("/{id}", h.getExit)
		r.Put("/{id}", h.updateExit)
		r.Delete("/{id}", h.deleteExit)
	})
}

func listFiltersFromQuery(r *http.Request) ListFilters {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	f := ListFilters{
		Search:  r.URL.Query().Get("search"),
		Page:    page,
		PerPage: perPage,
	}
	if from := r.URL.Query().Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			f.From = t
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			f.To = t
		}
	}
	return f
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	f := listFiltersFromQuery(r)
	entries, total, err := h.service.ListEntries(r.Context(), f)
	if err != nil {
		h.respondErr(w, "list stock entries", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":       entries,
		"pagination": shared.NewPagination(f.Page, f.PerPage, total),
	})
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, "get stock entry", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) createEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.CreateEntry(r.Context(), req)
	if err != nil {
		h.respondErr(w, "create stock entry", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) updateEntry(w http.ResponseWriter, r *http.Request) {
	var req UpdateEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.UpdateEntry(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.respondErr(w, "update stock entry", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondErr(w, "delete stock entry", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) listExits(w http.ResponseWriter, r *http.Request) {
	f := listFiltersFromQuery(r)
	exits, total, err := h.service.ListExits(r.Context(), f)
	if err != nil {
		h.respondErr(w, "list stock exits", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":       exits,
		"pagination": shared.NewPagination(f.Page, f.PerPage, total),
	})
}

func (h *Handler) getExit(w http.ResponseWriter, r *http.Request) {
	exit, err := h.service.GetExit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, "get stock exit", err)
		return
	}
	httpx.JSON(w, http.StatusOK, exit)
}

func (h *Handler) createExit(w http.ResponseWriter, r *http.Request) {
	var req CreateExitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	exit, err := h.service.CreateExit(r.Context(), req)
	if err != nil {
		h.respondErr(w, "create stock exit", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, exit)
}

func (h *Handler) updateExit(w http.ResponseWriter, r *http.Request) {
	var req UpdateExitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	exit, err := h.service.UpdateExit(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.respondErr(w, "update stock exit", err)
		return
	}
	httpx.JSON(w, http.StatusOK, exit)
}

func (h *Handler) deleteExit(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteExit(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondErr(w, "delete stock exit", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrNoItems), errors.Is(err, ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
