package audit

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atrium-hms/atrium/internal/platform/httpx"
	"github.com/atrium-hms/atrium/internal/rbac"
	"github.com/atrium-hms/atrium/internal/shared"
)

// Handler exposes the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs an audit Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermAuditView))
		r.Get("/audit", h.timeline)
		r.Get("/audit/export", h.export)
	})
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters, ok := h.parseFilters(w, r)
	if !ok {
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filters, ok := h.parseFilters(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-trail.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"occurred_at", "actor_id", "action", "entity", "entity_id", "field", "old_value", "new_value"})
	for _, row := range rows {
		_ = cw.Write([]string{
			row.At.Format(time.RFC3339),
			strconv.FormatInt(row.ActorID, 10),
			row.Action,
			row.Entity,
			row.EntityID,
			row.Field,
			row.OldValue,
			row.NewValue,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Error("audit export write", slog.Any("error", err))
	}
}

func (h *Handler) parseFilters(w http.ResponseWriter, r *http.Request) (TimelineFilters, bool) {
	filters := TimelineFilters{
		Entity: r.URL.Query().Get("entity"),
		Action: r.URL.Query().Get("action"),
	}
	if raw := r.URL.Query().Get("actor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid actor_id")
			return TimelineFilters{}, false
		}
		filters.ActorID = id
	}
	for name, dst := range map[string]*time.Time{"from": &filters.From, "to": &filters.To} {
		if raw := r.URL.Query().Get(name); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", name+" must be YYYY-MM-DD")
				return TimelineFilters{}, false
			}
			*dst = parsed
		}
	}
	if raw := r.URL.Query().Get("page"); raw != "" {
		filters.Page, _ = strconv.Atoi(raw)
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		filters.PageSize, _ = strconv.Atoi(raw)
	}
	return filters, true
}
