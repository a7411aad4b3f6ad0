package billing

import (
	"context"
	"errors"
	"fmt"
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

// IdempotencyGuard fences duplicate submissions keyed by a client token.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Handler wires HTTP endpoints for invoices and payments.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	idem     IdempotencyGuard
	validate *validator.Validate
}

// NewHandler constructs a billing Handler. The guard may be nil, in which
// case Idempotency-Key headers are ignored.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, idem IdempotencyGuard) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, idem: idem, validate: validator.New()}
}

// MountRoutes registers billing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermBillingView, shared.PermBillingManage))
		r.Get("/invoices", h.listInvoices)
		r.Get("/invoices/{id}", h.showInvoice)
		r.Get("/invoices/{id}/payments", h.listPayments)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermBillingManage))
		r.Post("/invoices/{id}/payments", h.recordPayment)
		r.Put("/invoices/{id}/charges", h.reviseCharges)
	})
}

type recordPaymentRequest struct {
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Mode      string  `json:"mode" validate:"required"`
	Reference string  `json:"reference"`
	Notes     string  `json:"notes"`
	PaidAt    string  `json:"paid_at"`
}

type reviseChargesRequest struct {
	Items    *[]InvoiceItem `json:"items"`
	Tax      *float64       `json:"tax" validate:"omitempty,gte=0"`
	Discount *float64       `json:"discount" validate:"omitempty,gte=0"`
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	req := ListInvoicesRequest{}
	if raw := r.URL.Query().Get("booking_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid booking_id")
			return
		}
		req.BookingID = id
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		req.Status = PaymentStatus(raw)
	}
	invoices, err := h.service.ListInvoices(r.Context(), req)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (h *Handler) showInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	payments, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	var req recordPaymentRequest
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
	// Payments are deliberately not deduplicated server-side; clients that
	// want a one-shot submit send an Idempotency-Key header.
	idemKey := ""
	if token := r.Header.Get("Idempotency-Key"); token != "" && h.idem != nil {
		idemKey = fmt.Sprintf("invoice-payment:%d:%s", id, token)
		if err := h.idem.CheckAndInsert(r.Context(), idemKey, "billing"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Duplicate Request", "payment with this idempotency key was already submitted")
				return
			}
			h.logger.Error("idempotency check", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
	}

	payment, err := h.service.RecordPayment(r.Context(), RecordPaymentInput{
		InvoiceID:  id,
		Amount:     req.Amount,
		Mode:       req.Mode,
		Reference:  req.Reference,
		Notes:      req.Notes,
		ReceivedBy: shared.CurrentUserID(r.Context()),
		PaidAt:     paidAt,
	})
	if err != nil {
		if idemKey != "" {
			if delErr := h.idem.Delete(r.Context(), idemKey); delErr != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) reviseCharges(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	var req reviseChargesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inv, err := h.service.ReviseCharges(r.Context(), ReviseChargesInput{
		InvoiceID: id,
		Items:     req.Items,
		Tax:       req.Tax,
		Discount:  req.Discount,
		ActorID:   shared.CurrentUserID(r.Context()),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) invoiceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvoiceNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidPaymentAmount):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payment Amount", err.Error())
	default:
		h.logger.Error("billing request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
