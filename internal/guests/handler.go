package guests

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atrium-hms/atrium/internal/platform/httpx"
	"github.com/atrium-hms/atrium/internal/rbac"
	"github.com/atrium-hms/atrium/internal/shared"
)

// Handler wires HTTP endpoints for guests.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler constructs a guests Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validate: validator.New()}
}

// MountRoutes registers guest routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermGuestsView, shared.PermGuestsManage))
		r.Get("/guests", h.listGuests)
		r.Get("/guests/{id}", h.showGuest)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermGuestsManage))
		r.Post("/guests", h.createGuest)
		r.Put("/guests/{id}", h.updateGuest)
		r.Delete("/guests/{id}", h.deleteGuest)
	})
}

type createGuestRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
	IDType    string `json:"id_type"`
	IDNumber  string `json:"id_number"`
	Address   string `json:"address"`
	Notes     string `json:"notes"`
}

type updateGuestRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone"`
	IDType    *string `json:"id_type"`
	IDNumber  *string `json:"id_number"`
	Address   *string `json:"address"`
	Notes     *string `json:"notes"`
}

func (h *Handler) listGuests(w http.ResponseWriter, r *http.Request) {
	guests, err := h.service.ListGuests(r.Context(), ListGuestsRequest{
		Search: r.URL.Query().Get("search"),
	})
	if err != nil {
		h.logger.Error("list guests", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"guests": guests})
}

func (h *Handler) showGuest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.guestID(w, r)
	if !ok {
		return
	}
	g, err := h.service.GetGuest(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, g)
}

func (h *Handler) createGuest(w http.ResponseWriter, r *http.Request) {
	var req createGuestRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	g, err := h.service.CreateGuest(r.Context(), CreateGuestInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		IDType:    req.IDType,
		IDNumber:  req.IDNumber,
		Address:   req.Address,
		Notes:     req.Notes,
		ActorID:   shared.CurrentUserID(r.Context()),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, g)
}

func (h *Handler) updateGuest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.guestID(w, r)
	if !ok {
		return
	}
	var req updateGuestRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	g, err := h.service.UpdateGuest(r.Context(), UpdateGuestInput{
		GuestID:   id,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		IDType:    req.IDType,
		IDNumber:  req.IDNumber,
		Address:   req.Address,
		Notes:     req.Notes,
		ActorID:   shared.CurrentUserID(r.Context()),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, g)
}

func (h *Handler) deleteGuest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.guestID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteGuest(r.Context(), id, shared.CurrentUserID(r.Context())); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) guestID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid guest id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrGuestNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	h.logger.Error("guests request failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
