package recyclebin

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/comercio-app/comercio/internal/platform/httpx"
	"github.com/comercio-app/comercio/internal/shared"
)

// Handler wires HTTP endpoints for the recycle bin.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs recycle bin handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers recycle bin routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/recycle-bin", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/{table}/{id}/restore", h.restore)
		r.Delete("/{table}/{id}", h.purge)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.respondErr(w, "list recycle bin", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items})
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	err := h.service.Restore(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, "restore record", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

func (h *Handler) purge(w http.ResponseWriter, r *http.Request) {
	err := h.service.Purge(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, "purge record", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "purged"})
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrUnknownTable):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrReferenced):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
