package vendors

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atrium-hms/atrium/internal/platform/httpx"
	"github.com/atrium-hms/atrium/internal/rbac"
	"github.com/atrium-hms/atrium/internal/shared"
)

// Handler wires HTTP endpoints for vendors and vendor payments.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler constructs a vendors Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validate: validator.New()}
}

// MountRoutes registers vendor routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermVendorsView, shared.PermVendorsManage))
		r.Get("/vendors", h.listVendors)
		r.Get("/vendors/{id}", h.showVendor)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermVendorsManage))
		r.Post("/vendors", h.createVendor)
		r.Put("/vendors/{id}", h.updateVendor)
		r.Delete("/vendors/{id}", h.deleteVendor)
		r.Post("/vendors/{id}/payments", h.recordPayment)
	})
}

type createVendorRequest struct {
	Name          string `json:"name" validate:"required,min=2"`
	Category      string `json:"category"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email" validate:"omitempty,email"`
	Address       string `json:"address"`
}

type updateVendorRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=2"`
	Category      *string `json:"category"`
	ContactPerson *string `json:"contact_person"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email" validate:"omitempty,email"`
	Address       *string `json:"address"`
}

type vendorPaymentRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Mode   string  `json:"mode" validate:"required"`
	Notes  string  `json:"notes"`
	PaidAt string  `json:"paid_at"`
}

func (h *Handler) listVendors(w http.ResponseWriter, r *http.Request) {
	req := ListVendorsRequest{
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
	}
	vendors, err := h.service.ListVendors(r.Context(), req)
	if err != nil {
		h.logger.Error("list vendors", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"vendors": vendors})
}

func (h *Handler) showVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := h.vendorID(w, r)
	if !ok {
		return
	}
	v, err := h.service.GetVendor(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) createVendor(w http.ResponseWriter, r *http.Request) {
	var req createVendorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	v, err := h.service.CreateVendor(r.Context(), CreateVendorInput{
		Name:          req.Name,
		Category:      req.Category,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		ActorID:       shared.CurrentUserID(r.Context()),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, v)
}

func (h *Handler) updateVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := h.vendorID(w, r)
	if !ok {
		return
	}
	var req updateVendorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	v, err := h.service.UpdateVendor(r.Context(), UpdateVendorInput{
		VendorID:      id,
		Name:          req.Name,
		Category:      req.Category,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		ActorID:       shared.CurrentUserID(r.Context()),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) deleteVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := h.vendorID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteVendor(r.Context(), id, shared.CurrentUserID(r.Context())); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.vendorID(w, r)
	if !ok {
		return
	}
	var req vendorPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var paidAt time.Time
	if req.PaidAt != "" {
		parsed, err := time.Parse("2006-01-02", req.PaidAt)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "paid_at must be YYYY-MM-DD")
			return
		}
		paidAt = parsed
	}
	v, err := h.service.RecordPayment(r.Context(), RecordPaymentInput{
		VendorID: id,
		Amount:   req.Amount,
		Mode:     req.Mode,
		Notes:    req.Notes,
		PaidAt:   paidAt,
		ActorID:  shared.CurrentUserID(r.Context()),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) vendorID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid vendor id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrVendorNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrPaymentExceedsBalance):
		httpx.Problem(w, http.StatusBadRequest, "Payment Exceeds Balance", err.Error())
	case errors.Is(err, ErrVendorHasHistory):
		httpx.Problem(w, http.StatusConflict, "Vendor Has History", err.Error())
	default:
		h.logger.Error("vendors request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
