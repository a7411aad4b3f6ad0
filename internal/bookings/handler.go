package bookings

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atrium-hms/atrium/internal/billing"
	"github.com/atrium-hms/atrium/internal/platform/httpx"
	"github.com/atrium-hms/atrium/internal/rbac"
	"github.com/atrium-hms/atrium/internal/rooms"
	"github.com/atrium-hms/atrium/internal/shared"
)

// Handler wires HTTP endpoints for bookings.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler constructs a bookings Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validate: validator.New()}
}

// MountRoutes registers booking routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermBookingsView, shared.PermBookingsManage))
		r.Get("/bookings", h.listBookings)
		r.Get("/bookings/{id}", h.showBooking)
		r.Get("/bookings/{id}/charges", h.listCharges)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermBookingsManage))
		r.Post("/bookings", h.createBooking)
		r.Put("/bookings/{id}", h.updateBooking)
		r.Post("/bookings/{id}/charges", h.addCharge)
		r.Post("/bookings/{id}/check-in", h.checkIn)
		r.Post("/bookings/{id}/checkout", h.checkout)
		r.Post("/bookings/{id}/cancel", h.cancel)
	})
}

type createBookingRequest struct {
	GuestID  int64  `json:"guest_id" validate:"required,gt=0"`
	RoomID   int64  `json:"room_id" validate:"required,gt=0"`
	CheckIn  string `json:"check_in" validate:"required"`
	CheckOut string `json:"check_out" validate:"required"`
	Adults   int    `json:"adults" validate:"gte=0"`
	Children int    `json:"children" validate:"gte=0"`
	Notes    string `json:"notes"`
}

type updateBookingRequest struct {
	RoomID   *int64  `json:"room_id" validate:"omitempty,gt=0"`
	CheckIn  *string `json:"check_in"`
	CheckOut *string `json:"check_out"`
	Adults   *int    `json:"adults" validate:"omitempty,gte=0"`
	Children *int    `json:"children" validate:"omitempty,gte=0"`
	Notes    *string `json:"notes"`
}

func (h *Handler) listBookings(w http.ResponseWriter, r *http.Request) {
	req := ListBookingsRequest{Status: r.URL.Query().Get("status")}
	for name, dst := range map[string]*int64{"guest_id": &req.GuestID, "room_id": &req.RoomID} {
		if raw := r.URL.Query().Get(name); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid "+name)
				return
			}
			*dst = id
		}
	}
	bookings, err := h.service.ListBookings(r.Context(), req)
	if err != nil {
		h.logger.Error("list bookings", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (h *Handler) showBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}
	b, err := h.service.GetBooking(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	checkIn, err := time.Parse("2006-01-02", req.CheckIn)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "check_in must be YYYY-MM-DD")
		return
	}
	checkOut, err := time.Parse("2006-01-02", req.CheckOut)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "check_out must be YYYY-MM-DD")
		return
	}
	b, err := h.service.CreateBooking(r.Context(), CreateBookingInput{
		GuestID:  req.GuestID,
		RoomID:   req.RoomID,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Adults:   req.Adults,
		Children: req.Children,
		Notes:    req.Notes,
		ActorID:  shared.CurrentUserID(r.Context()),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) updateBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}
	var req updateBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := UpdateBookingInput{
		BookingID: id,
		RoomID:    req.RoomID,
		Adults:    req.Adults,
		Children:  req.Children,
		Notes:     req.Notes,
		ActorID:   shared.CurrentUserID(r.Context()),
	}
	if req.CheckIn != nil {
		parsed, err := time.Parse("2006-01-02", *req.CheckIn)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "check_in must be YYYY-MM-DD")
			return
		}
		input.CheckIn = &parsed
	}
	if req.CheckOut != nil {
		parsed, err := time.Parse("2006-01-02", *req.CheckOut)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "check_out must be YYYY-MM-DD")
			return
		}
		input.CheckOut = &parsed
	}
	b, err := h.service.UpdateBooking(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

type addChargeRequest struct {
	Description string  `json:"description" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	Rate        float64 `json:"rate" validate:"gte=0"`
}

func (h *Handler) addCharge(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}
	var req addChargeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	c, err := h.service.AddCharge(r.Context(), AddChargeInput{
		BookingID:   id,
		Description: req.Description,
		Quantity:    req.Quantity,
		Rate:        req.Rate,
		ActorID:     shared.CurrentUserID(r.Context()),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) listCharges(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}
	charges, err := h.service.ListCharges(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"charges": charges})
}

func (h *Handler) checkIn(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}
	b, err := h.service.CheckIn(r.Context(), id, shared.CurrentUserID(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.Checkout(r.Context(), id, shared.CurrentUserID(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}
	b, err := h.service.Cancel(r.Context(), id, shared.CurrentUserID(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) bookingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid booking id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBookingNotFound), errors.Is(err, rooms.ErrRoomNotFound), errors.Is(err, billing.ErrInvoiceNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrRoomUnavailable), errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrInvalidStay):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("bookings request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
