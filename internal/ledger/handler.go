package ledger

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

// Handler wires HTTP endpoints for the accounting ledger.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler constructs a ledger Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validate: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermLedgerView, shared.PermLedgerWrite))
		r.Get("/transactions", h.listTransactions)
		r.Get("/transactions/{id}", h.showTransaction)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermLedgerWrite))
		r.Post("/transactions", h.createTransaction)
		r.Put("/transactions/{id}", h.updateTransaction)
		r.Delete("/transactions/{id}", h.deleteTransaction)
	})
}

type createTransactionRequest struct {
	Type        string  `json:"type" validate:"required,oneof=revenue expense"`
	Category    string  `json:"category" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Date        string  `json:"date" validate:"required"`
	PaymentMode string  `json:"payment_mode" validate:"required"`
	Description string  `json:"description"`
	VendorID    int64   `json:"vendor_id"`
}

type updateTransactionRequest struct {
	Category    *string  `json:"category" validate:"omitempty,min=1"`
	Amount      *float64 `json:"amount" validate:"omitempty,gt=0"`
	Date        *string  `json:"date"`
	PaymentMode *string  `json:"payment_mode"`
	Description *string  `json:"description"`
	VendorID    *int64   `json:"vendor_id"`
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	req := ListTransactionsRequest{
		Type:     r.URL.Query().Get("type"),
		Category: r.URL.Query().Get("category"),
	}
	if raw := r.URL.Query().Get("vendor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid vendor_id")
			return
		}
		req.VendorID = id
	}
	for name, dst := range map[string]*time.Time{"from": &req.From, "to": &req.To} {
		if raw := r.URL.Query().Get(name); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", name+" must be YYYY-MM-DD")
				return
			}
			*dst = parsed
		}
	}
	transactions, err := h.service.ListTransactions(r.Context(), req)
	if err != nil {
		h.logger.Error("list transactions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": transactions})
}

func (h *Handler) showTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	tr, err := h.service.GetTransaction(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tr)
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	tr, err := h.service.CreateTransaction(r.Context(), CreateTransactionInput{
		Type:        req.Type,
		Category:    req.Category,
		Amount:      req.Amount,
		Date:        date,
		PaymentMode: req.PaymentMode,
		Description: req.Description,
		VendorID:    req.VendorID,
		ActorID:     shared.CurrentUserID(r.Context()),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tr)
}

func (h *Handler) updateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	var req updateTransactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	patch := TransactionPatch{
		TransactionID: id,
		Category:      req.Category,
		Amount:        req.Amount,
		PaymentMode:   req.PaymentMode,
		Description:   req.Description,
		VendorID:      req.VendorID,
		ActorID:       shared.CurrentUserID(r.Context()),
	}
	if req.Date != nil {
		parsed, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
		patch.Date = &parsed
	}
	tr, err := h.service.UpdateTransaction(r.Context(), patch)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tr)
}

func (h *Handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteTransaction(r.Context(), id, shared.CurrentUserID(r.Context())); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) transactionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid transaction id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTransactionNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidTransaction):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrLinkedTransaction):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("ledger request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
