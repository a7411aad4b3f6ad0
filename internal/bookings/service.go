package bookings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/atrium-hms/atrium/internal/billing"
	"github.com/atrium-hms/atrium/internal/rooms"
	"github.com/atrium-hms/atrium/internal/shared"
)

var (
	ErrBookingNotFound   = errors.New("booking not found")
	ErrRoomUnavailable   = errors.New("room is not available for the requested dates")
	ErrInvalidTransition = errors.New("invalid booking status transition")
	ErrInvalidStay       = errors.New("check-out must be after check-in")
)

// InvoiceCreator raises and looks up invoices for finalized stays.
type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, input billing.CreateInvoiceInput) (billing.Invoice, error)
	GetInvoiceByBooking(ctx context.Context, bookingID int64) (billing.Invoice, error)
}

// RoomDirectory exposes the room operations bookings depend on.
type RoomDirectory interface {
	GetRoom(ctx context.Context, id int64) (rooms.Room, error)
	SetStatus(ctx context.Context, roomID int64, status string, actorID int64) error
}

// IdempotencyGuard fences one-shot operations like invoice finalization.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service manages the reservation lifecycle. Checking out finalizes the stay
// into an invoice exactly once per booking.
type Service struct {
	repo     Repository
	rooms    RoomDirectory
	invoices InvoiceCreator
	idem     IdempotencyGuard
	audit    *shared.AuditLogger
	logger   *slog.Logger
}

// NewService constructs a bookings Service.
func NewService(repo Repository, rooms RoomDirectory, invoices InvoiceCreator, idem IdempotencyGuard, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, rooms: rooms, invoices: invoices, idem: idem, audit: audit, logger: logger}
}

// CreateBooking reserves a room. The room must exist and have no live booking
// overlapping the requested stay.
func (s *Service) CreateBooking(ctx context.Context, input CreateBookingInput) (Booking, error) {
	if !input.CheckOut.After(input.CheckIn) {
		return Booking{}, ErrInvalidStay
	}
	if _, err := s.rooms.GetRoom(ctx, input.RoomID); err != nil {
		return Booking{}, err
	}
	overlapping, err := s.repo.CountOverlapping(ctx, input.RoomID, input.CheckIn, input.CheckOut, 0)
	if err != nil {
		return Booking{}, err
	}
	if overlapping > 0 {
		return Booking{}, ErrRoomUnavailable
	}

	id, err := s.repo.CreateBooking(ctx, Booking{
		GuestID:   input.GuestID,
		RoomID:    input.RoomID,
		CheckIn:   input.CheckIn,
		CheckOut:  input.CheckOut,
		Adults:    input.Adults,
		Children:  input.Children,
		Status:    StatusReserved,
		Notes:     input.Notes,
		CreatedBy: input.ActorID,
	})
	if err != nil {
		return Booking{}, err
	}
	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  input.ActorID,
		Action:   "booking.create",
		Entity:   "booking",
		EntityID: strconv.FormatInt(id, 10),
	})
	return s.repo.GetBooking(ctx, id)
}

// UpdateBooking patches a reservation before checkout. Date or room changes
// re-run the overlap check.
func (s *Service) UpdateBooking(ctx context.Context, input UpdateBookingInput) (Booking, error) {
	b, err := s.repo.GetBooking(ctx, input.BookingID)
	if err != nil {
		return Booking{}, err
	}
	if b.Status == StatusCheckedOut || b.Status == StatusCancelled {
		return Booking{}, fmt.Errorf("%w: booking is %s", ErrInvalidTransition, b.Status)
	}

	if input.RoomID != nil {
		b.RoomID = *input.RoomID
	}
	if input.CheckIn != nil {
		b.CheckIn = *input.CheckIn
	}
	if input.CheckOut != nil {
		b.CheckOut = *input.CheckOut
	}
	if input.Adults != nil {
		b.Adults = *input.Adults
	}
	if input.Children != nil {
		b.Children = *input.Children
	}
	if input.Notes != nil {
		b.Notes = *input.Notes
	}
	if !b.CheckOut.After(b.CheckIn) {
		return Booking{}, ErrInvalidStay
	}
	if input.RoomID != nil || input.CheckIn != nil || input.CheckOut != nil {
		overlapping, err := s.repo.CountOverlapping(ctx, b.RoomID, b.CheckIn, b.CheckOut, b.ID)
		if err != nil {
			return Booking{}, err
		}
		if overlapping > 0 {
			return Booking{}, ErrRoomUnavailable
		}
	}

	if err := s.repo.UpdateBooking(ctx, b); err != nil {
		return Booking{}, err
	}
	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  input.ActorID,
		Action:   "booking.update",
		Entity:   "booking",
		EntityID: strconv.FormatInt(b.ID, 10),
	})
	return b, nil
}

// AddCharge records an extra item against a live stay. Charges land on the
// invoice at checkout, not on the ledger directly.
func (s *Service) AddCharge(ctx context.Context, input AddChargeInput) (Charge, error) {
	if input.Description == "" || input.Quantity <= 0 || input.Rate < 0 {
		return Charge{}, errors.New("charge requires a description, positive quantity and non-negative rate")
	}
	b, err := s.repo.GetBooking(ctx, input.BookingID)
	if err != nil {
		return Charge{}, err
	}
	if b.Status != StatusReserved && b.Status != StatusCheckedIn {
		return Charge{}, fmt.Errorf("%w: cannot add charges to a %s booking", ErrInvalidTransition, b.Status)
	}

	c := Charge{
		BookingID:   b.ID,
		Description: input.Description,
		Quantity:    input.Quantity,
		Rate:        input.Rate,
		Amount:      input.Quantity * input.Rate,
		CreatedBy:   input.ActorID,
	}
	id, err := s.repo.AddCharge(ctx, c)
	if err != nil {
		return Charge{}, err
	}
	c.ID = id
	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  input.ActorID,
		Action:   "booking.charge",
		Entity:   "booking",
		EntityID: strconv.FormatInt(b.ID, 10),
		Field:    "charge",
		NewValue: input.Description,
	})
	return c, nil
}

// ListCharges lists the extra items accrued on a booking.
func (s *Service) ListCharges(ctx context.Context, bookingID int64) ([]Charge, error) {
	if _, err := s.repo.GetBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.repo.ListCharges(ctx, bookingID)
}

// CheckIn moves a reservation into residence and marks the room occupied.
func (s *Service) CheckIn(ctx context.Context, bookingID, actorID int64) (Booking, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return Booking{}, err
	}
	if b.Status != StatusReserved {
		return Booking{}, fmt.Errorf("%w: cannot check in a %s booking", ErrInvalidTransition, b.Status)
	}
	b.Status = StatusCheckedIn
	if err := s.repo.UpdateBooking(ctx, b); err != nil {
		return Booking{}, err
	}
	if err := s.rooms.SetStatus(ctx, b.RoomID, rooms.StatusOccupied, actorID); err != nil {
		s.logger.Warn("room status update failed on check-in",
			slog.Int64("booking_id", b.ID), slog.Int64("room_id", b.RoomID), slog.Any("error", err))
	}
	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   "booking.check_in",
		Entity:   "booking",
		EntityID: strconv.FormatInt(b.ID, 10),
		Field:    "status",
		OldValue: StatusReserved,
		NewValue: StatusCheckedIn,
	})
	return b, nil
}

// Checkout finalizes the stay: the booking closes, the room frees up and an
// invoice for the room charges is raised exactly once. A concurrent or
// repeated checkout returns the invoice the first call produced.
func (s *Service) Checkout(ctx context.Context, bookingID, actorID int64) (billing.Invoice, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return billing.Invoice{}, err
	}
	if b.Status == StatusCheckedOut {
		return s.invoices.GetInvoiceByBooking(ctx, b.ID)
	}
	if b.Status != StatusCheckedIn {
		return billing.Invoice{}, fmt.Errorf("%w: cannot check out a %s booking", ErrInvalidTransition, b.Status)
	}

	key := fmt.Sprintf("booking-invoice:%d", b.ID)
	if err := s.idem.CheckAndInsert(ctx, key, "bookings"); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return s.invoices.GetInvoiceByBooking(ctx, b.ID)
		}
		return billing.Invoice{}, err
	}

	room, err := s.rooms.GetRoom(ctx, b.RoomID)
	if err != nil {
		_ = s.idem.Delete(ctx, key)
		return billing.Invoice{}, err
	}
	charges, err := s.repo.ListCharges(ctx, b.ID)
	if err != nil {
		_ = s.idem.Delete(ctx, key)
		return billing.Invoice{}, err
	}

	nights := b.Nights()
	items := []billing.InvoiceItem{{
		Description: fmt.Sprintf("Room %s (%s) x %d nights", room.Number, room.Type, nights),
		Quantity:    float64(nights),
		Rate:        room.RatePerNight,
	}}
	for _, c := range charges {
		items = append(items, billing.InvoiceItem{
			Description: c.Description,
			Quantity:    c.Quantity,
			Rate:        c.Rate,
		})
	}
	inv, err := s.invoices.CreateInvoice(ctx, billing.CreateInvoiceInput{
		BookingID: b.ID,
		Items:     items,
		CreatedBy: actorID,
	})
	if err != nil {
		_ = s.idem.Delete(ctx, key)
		return billing.Invoice{}, err
	}

	b.Status = StatusCheckedOut
	if err := s.repo.UpdateBooking(ctx, b); err != nil {
		return billing.Invoice{}, err
	}
	if err := s.rooms.SetStatus(ctx, b.RoomID, rooms.StatusAvailable, actorID); err != nil {
		s.logger.Warn("room status update failed on checkout",
			slog.Int64("booking_id", b.ID), slog.Int64("room_id", b.RoomID), slog.Any("error", err))
	}
	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   "booking.checkout",
		Entity:   "booking",
		EntityID: strconv.FormatInt(b.ID, 10),
		Field:    "status",
		OldValue: StatusCheckedIn,
		NewValue: StatusCheckedOut,
	})
	return inv, nil
}

// Cancel voids a reservation that has not checked in.
func (s *Service) Cancel(ctx context.Context, bookingID, actorID int64) (Booking, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return Booking{}, err
	}
	if b.Status != StatusReserved {
		return Booking{}, fmt.Errorf("%w: cannot cancel a %s booking", ErrInvalidTransition, b.Status)
	}
	b.Status = StatusCancelled
	if err := s.repo.UpdateBooking(ctx, b); err != nil {
		return Booking{}, err
	}
	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   "booking.cancel",
		Entity:   "booking",
		EntityID: strconv.FormatInt(b.ID, 10),
		Field:    "status",
		OldValue: StatusReserved,
		NewValue: StatusCancelled,
	})
	return b, nil
}

// GetBooking fetches one booking.
func (s *Service) GetBooking(ctx context.Context, id int64) (Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

// ListBookings lists bookings with optional filters.
func (s *Service) ListBookings(ctx context.Context, req ListBookingsRequest) ([]Booking, error) {
	return s.repo.ListBookings(ctx, req)
}
