package reports

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atrium-hms/atrium/internal/platform/httpx"
	"github.com/atrium-hms/atrium/internal/rbac"
	"github.com/atrium-hms/atrium/internal/shared"
)

// Handler exposes reporting endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a reports Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers reporting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReportsView))
		r.Get("/reports/dashboard", h.dashboard)
		r.Get("/reports/monthly", h.monthly)
		r.Get("/reports/monthly/export", h.exportMonthly)
		r.Get("/reports/occupancy", h.occupancy)
		r.Get("/reports/payables", h.payables)
		r.Get("/reports/invoice-aging", h.invoiceAging)
	})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Dashboard(r.Context(), year)
	if err != nil {
		h.logger.Error("dashboard report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) monthly(w http.ResponseWriter, r *http.Request) {
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}
	summary, err := h.service.MonthlySummary(r.Context(), year)
	if err != nil {
		h.logger.Error("monthly report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) exportMonthly(w http.ResponseWriter, r *http.Request) {
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}
	summary, err := h.service.MonthlySummary(r.Context(), year)
	if err != nil {
		h.logger.Error("monthly report export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="monthly-%d.csv"`, year))
	if err := WriteMonthlyCSV(w, summary); err != nil {
		h.logger.Error("monthly report export write", slog.Any("error", err))
	}
}

func (h *Handler) occupancy(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Occupancy(r.Context())
	if err != nil {
		h.logger.Error("occupancy report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *Handler) payables(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	rows, err := h.service.Payables(r.Context(), limit)
	if err != nil {
		h.logger.Error("payables report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"vendors": rows})
}

func (h *Handler) invoiceAging(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.service.InvoiceAging(r.Context())
	if err != nil {
		h.logger.Error("invoice aging report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"buckets": buckets})
}

func (h *Handler) yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return time.Now().Year(), true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 2000 || year > 2100 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid year")
		return 0, false
	}
	return year, true
}
