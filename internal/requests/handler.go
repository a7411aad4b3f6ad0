package requests

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

// Handler wires HTTP endpoints for service requests.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler constructs a requests Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validate: validator.New()}
}

// MountRoutes registers service request routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRequestsView, shared.PermRequestsManage))
		r.Get("/requests", h.listRequests)
		r.Get("/requests/{id}", h.showRequest)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermRequestsManage))
		r.Post("/requests", h.createRequest)
		r.Put("/requests/{id}/assign", h.assign)
		r.Put("/requests/{id}/status", h.setStatus)
	})
}

type createRequestRequest struct {
	RoomID      int64  `json:"room_id" validate:"required,gt=0"`
	GuestID     int64  `json:"guest_id"`
	Type        string `json:"type" validate:"required"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	Description string `json:"description"`
}

type assignRequest struct {
	StaffID int64 `json:"staff_id" validate:"required,gt=0"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=open in_progress resolved cancelled"`
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	filter := ListRequestsRequest{
		Status: r.URL.Query().Get("status"),
		Type:   r.URL.Query().Get("type"),
	}
	if raw := r.URL.Query().Get("room_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid room_id")
			return
		}
		filter.RoomID = id
	}
	out, err := h.service.ListRequests(r.Context(), filter)
	if err != nil {
		h.logger.Error("list requests", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requests": out})
}

func (h *Handler) showRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}
	req, err := h.service.GetRequest(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	var req createRequestRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.CreateRequest(r.Context(), CreateRequestInput{
		RoomID:      req.RoomID,
		GuestID:     req.GuestID,
		Type:        req.Type,
		Priority:    req.Priority,
		Description: req.Description,
		ActorID:     shared.CurrentUserID(r.Context()),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	updated, err := h.service.Assign(r.Context(), id, req.StaffID, shared.CurrentUserID(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	updated, err := h.service.SetStatus(r.Context(), id, req.Status, shared.CurrentUserID(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) requestID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRequestNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("requests request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
