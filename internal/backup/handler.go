package backup

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/comercio-app/comercio/internal/platform/httpx"
)

// Handler wires HTTP endpoints for import/export.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs backup handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers backup routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/backup", func(r chi.Router) {
		r.Get("/export", h.exportJSON)
		r.Post("/import", h.importJSON)
		r.Get("/{entity}/export.csv", h.exportCSV)
		r.Get("/{entity}/template.csv", h.templateCSV)
		r.Post("/{entity}/import.csv", h.importCSV)
	})
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	entity := Entity(chi.URLParam(r, "entity"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s-%s.csv"`, entity, time.Now().Format("2006-01-02")))
	if err := h.service.ExportCSV(r.Context(), entity, w); err != nil {
		h.respondErr(w, "export csv", err)
	}
}

func (h *Handler) templateCSV(w http.ResponseWriter, r *http.Request) {
	entity := Entity(chi.URLParam(r, "entity"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s-template.csv"`, entity))
	if err := h.service.TemplateCSV(entity, w); err != nil {
		h.respondErr(w, "csv template", err)
	}
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.ImportCSV(r.Context(), Entity(chi.URLParam(r, "entity")), r.Body)
	if err != nil {
		h.respondErr(w, "import csv", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) exportJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="backup-%s.json"`, time.Now().Format("2006-01-02")))
	if err := h.service.ExportJSON(r.Context(), w); err != nil {
		h.logger.Error("export backup", slog.Any("error", err))
	}
}

func (h *Handler) importJSON(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.ImportJSON(r.Context(), r.Body)
	if err != nil {
		h.respondErr(w, "import backup", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrUnknownEntity) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
