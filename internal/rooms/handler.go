package rooms

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

// Handler wires HTTP endpoints for rooms.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler constructs a rooms Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validate: validator.New()}
}

// MountRoutes registers room routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRoomsView, shared.PermRoomsManage))
		r.Get("/rooms", h.listRooms)
		r.Get("/rooms/{id}", h.showRoom)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermRoomsManage))
		r.Post("/rooms", h.createRoom)
		r.Put("/rooms/{id}", h.updateRoom)
		r.Delete("/rooms/{id}", h.deleteRoom)
		r.Put("/rooms/{id}/status", h.setStatus)
	})
}

type createRoomRequest struct {
	Number       string  `json:"number" validate:"required"`
	Type         string  `json:"type" validate:"required"`
	Floor        int     `json:"floor"`
	Capacity     int     `json:"capacity" validate:"gte=1"`
	RatePerNight float64 `json:"rate_per_night" validate:"gte=0"`
	Description  string  `json:"description"`
}

type updateRoomRequest struct {
	Number       *string  `json:"number"`
	Type         *string  `json:"type"`
	Floor        *int     `json:"floor"`
	Capacity     *int     `json:"capacity" validate:"omitempty,gte=1"`
	RatePerNight *float64 `json:"rate_per_night" validate:"omitempty,gte=0"`
	Status       *string  `json:"status"`
	Description  *string  `json:"description"`
}

type roomStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=available occupied maintenance"`
}

func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.ListRooms(r.Context(), ListRoomsRequest{
		Status: r.URL.Query().Get("status"),
		Type:   r.URL.Query().Get("type"),
	})
	if err != nil {
		h.logger.Error("list rooms", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (h *Handler) showRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roomID(w, r)
	if !ok {
		return
	}
	room, err := h.service.GetRoom(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, room)
}

func (h *Handler) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	room, err := h.service.CreateRoom(r.Context(), CreateRoomInput{
		Number:       req.Number,
		Type:         req.Type,
		Floor:        req.Floor,
		Capacity:     req.Capacity,
		RatePerNight: req.RatePerNight,
		Description:  req.Description,
		ActorID:      shared.CurrentUserID(r.Context()),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, room)
}

func (h *Handler) updateRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roomID(w, r)
	if !ok {
		return
	}
	var req updateRoomRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	room, err := h.service.UpdateRoom(r.Context(), UpdateRoomInput{
		RoomID:       id,
		Number:       req.Number,
		Type:         req.Type,
		Floor:        req.Floor,
		Capacity:     req.Capacity,
		RatePerNight: req.RatePerNight,
		Status:       req.Status,
		Description:  req.Description,
		ActorID:      shared.CurrentUserID(r.Context()),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, room)
}

func (h *Handler) deleteRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roomID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteRoom(r.Context(), id, shared.CurrentUserID(r.Context())); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roomID(w, r)
	if !ok {
		return
	}
	var req roomStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.SetStatus(r.Context(), id, req.Status, shared.CurrentUserID(r.Context())); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) roomID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid room id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateRoomNumber):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("rooms request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
