package bookings

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atrium-hms/atrium/internal/billing"
	"github.com/atrium-hms/atrium/internal/rooms"
	"github.com/atrium-hms/atrium/internal/shared"
)

type memoryRepo struct {
	bookings     map[int64]Booking
	charges      map[int64][]Charge
	nextID       int64
	nextChargeID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{bookings: make(map[int64]Booking), charges: make(map[int64][]Charge)}
}

func (r *memoryRepo) CreateBooking(ctx context.Context, b Booking) (int64, error) {
	r.nextID++
	b.ID = r.nextID
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	r.bookings[b.ID] = b
	return b.ID, nil
}

func (r *memoryRepo) UpdateBooking(ctx context.Context, b Booking) error {
	if _, ok := r.bookings[b.ID]; !ok {
		return ErrBookingNotFound
	}
	b.UpdatedAt = time.Now()
	r.bookings[b.ID] = b
	return nil
}

func (r *memoryRepo) GetBooking(ctx context.Context, id int64) (Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return Booking{}, ErrBookingNotFound
	}
	return b, nil
}

func (r *memoryRepo) ListBookings(ctx context.Context, req ListBookingsRequest) ([]Booking, error) {
	var out []Booking
	for _, b := range r.bookings {
		out = append(out, b)
	}
	return out, nil
}

func (r *memoryRepo) CountOverlapping(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeID int64) (int64, error) {
	var n int64
	for _, b := range r.bookings {
		if b.RoomID != roomID || b.ID == excludeID {
			continue
		}
		if b.Status != StatusReserved && b.Status != StatusCheckedIn {
			continue
		}
		if b.CheckIn.Before(checkOut) && b.CheckOut.After(checkIn) {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) AddCharge(ctx context.Context, c Charge) (int64, error) {
	r.nextChargeID++
	c.ID = r.nextChargeID
	c.CreatedAt = time.Now()
	r.charges[c.BookingID] = append(r.charges[c.BookingID], c)
	return c.ID, nil
}

func (r *memoryRepo) ListCharges(ctx context.Context, bookingID int64) ([]Charge, error) {
	return r.charges[bookingID], nil
}

type fakeRooms struct {
	rooms    map[int64]rooms.Room
	statuses map[int64]string
}

func newFakeRooms() *fakeRooms {
	return &fakeRooms{
		rooms: map[int64]rooms.Room{
			1: {ID: 1, Number: "101", Type: "Deluxe", RatePerNight: 250, Status: rooms.StatusAvailable},
		},
		statuses: make(map[int64]string),
	}
}

func (f *fakeRooms) GetRoom(ctx context.Context, id int64) (rooms.Room, error) {
	room, ok := f.rooms[id]
	if !ok {
		return rooms.Room{}, rooms.ErrRoomNotFound
	}
	return room, nil
}

func (f *fakeRooms) SetStatus(ctx context.Context, roomID int64, status string, actorID int64) error {
	f.statuses[roomID] = status
	return nil
}

type fakeInvoices struct {
	created   map[int64]billing.Invoice
	nextID    int64
	callCount int
}

func newFakeInvoices() *fakeInvoices {
	return &fakeInvoices{created: make(map[int64]billing.Invoice)}
}

func (f *fakeInvoices) CreateInvoice(ctx context.Context, input billing.CreateInvoiceInput) (billing.Invoice, error) {
	f.callCount++
	f.nextID++
	var total float64
	for _, item := range input.Items {
		total += item.Quantity * item.Rate
	}
	inv := billing.Invoice{
		ID:            f.nextID,
		BookingID:     input.BookingID,
		Items:         input.Items,
		Subtotal:      total,
		TotalAmount:   total,
		DueAmount:     total,
		PaymentStatus: billing.StatusPending,
	}
	f.created[input.BookingID] = inv
	return inv, nil
}

func (f *fakeInvoices) GetInvoiceByBooking(ctx context.Context, bookingID int64) (billing.Invoice, error) {
	inv, ok := f.created[bookingID]
	if !ok {
		return billing.Invoice{}, billing.ErrInvoiceNotFound
	}
	return inv, nil
}

type fakeGuard struct {
	keys map[string]bool
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{keys: make(map[string]bool)}
}

func (f *fakeGuard) CheckAndInsert(ctx context.Context, key, module string) error {
	if f.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	f.keys[key] = true
	return nil
}

func (f *fakeGuard) Delete(ctx context.Context, key string) error {
	delete(f.keys, key)
	return nil
}

func newTestService(repo Repository, fr *fakeRooms, fi *fakeInvoices, fg *fakeGuard) *Service {
	return NewService(repo, fr, fi, fg, nil, slog.Default())
}

func seedBooking(t *testing.T, svc *Service) Booking {
	t.Helper()
	b, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		GuestID:  3,
		RoomID:   1,
		CheckIn:  time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC),
		Adults:   2,
		ActorID:  1,
	})
	require.NoError(t, err)
	require.Equal(t, StatusReserved, b.Status)
	return b
}

func TestCreateBookingRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo(), newFakeRooms(), newFakeInvoices(), newFakeGuard())
	seedBooking(t, svc)

	_, err := svc.CreateBooking(ctx, CreateBookingInput{
		GuestID:  4,
		RoomID:   1,
		CheckIn:  time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, ErrRoomUnavailable)

	// A stay starting on the previous checkout day is fine.
	_, err = svc.CreateBooking(ctx, CreateBookingInput{
		GuestID:  4,
		RoomID:   1,
		CheckIn:  time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
}

func TestCreateBookingRejectsInvertedStay(t *testing.T) {
	svc := newTestService(newMemoryRepo(), newFakeRooms(), newFakeInvoices(), newFakeGuard())
	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		GuestID:  3,
		RoomID:   1,
		CheckIn:  time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, ErrInvalidStay)
}

func TestCheckInMarksRoomOccupied(t *testing.T) {
	ctx := context.Background()
	fr := newFakeRooms()
	svc := newTestService(newMemoryRepo(), fr, newFakeInvoices(), newFakeGuard())
	b := seedBooking(t, svc)

	checked, err := svc.CheckIn(ctx, b.ID, 1)
	require.NoError(t, err)
	require.Equal(t, StatusCheckedIn, checked.Status)
	require.Equal(t, rooms.StatusOccupied, fr.statuses[b.RoomID])

	_, err = svc.CheckIn(ctx, b.ID, 1)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCheckoutRaisesInvoiceOnce(t *testing.T) {
	ctx := context.Background()
	fr := newFakeRooms()
	fi := newFakeInvoices()
	svc := newTestService(newMemoryRepo(), fr, fi, newFakeGuard())
	b := seedBooking(t, svc)
	_, err := svc.CheckIn(ctx, b.ID, 1)
	require.NoError(t, err)

	inv, err := svc.Checkout(ctx, b.ID, 1)
	require.NoError(t, err)
	require.Equal(t, b.ID, inv.BookingID)
	// 3 nights at the room rate.
	require.InDelta(t, 750.0, inv.TotalAmount, 0.001)
	require.Equal(t, rooms.StatusAvailable, fr.statuses[b.RoomID])

	// Re-running checkout returns the same invoice without raising another.
	again, err := svc.Checkout(ctx, b.ID, 1)
	require.NoError(t, err)
	require.Equal(t, inv.ID, again.ID)
	require.Equal(t, 1, fi.callCount)
}

func TestCheckoutFoldsStayChargesIntoInvoice(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo(), newFakeRooms(), newFakeInvoices(), newFakeGuard())
	b := seedBooking(t, svc)
	_, err := svc.CheckIn(ctx, b.ID, 1)
	require.NoError(t, err)

	_, err = svc.AddCharge(ctx, AddChargeInput{
		BookingID:   b.ID,
		Description: "Minibar",
		Quantity:    2,
		Rate:        15,
		ActorID:     1,
	})
	require.NoError(t, err)

	inv, err := svc.Checkout(ctx, b.ID, 1)
	require.NoError(t, err)
	require.Len(t, inv.Items, 2)
	// 3 nights at 250 plus the minibar charge.
	require.InDelta(t, 780.0, inv.TotalAmount, 0.001)

	_, err = svc.AddCharge(ctx, AddChargeInput{
		BookingID:   b.ID,
		Description: "Late fee",
		Quantity:    1,
		Rate:        20,
		ActorID:     1,
	})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCheckoutGuardBlocksConcurrentDuplicate(t *testing.T) {
	ctx := context.Background()
	fg := newFakeGuard()
	fi := newFakeInvoices()
	repo := newMemoryRepo()
	svc := newTestService(repo, newFakeRooms(), fi, fg)
	b := seedBooking(t, svc)
	_, err := svc.CheckIn(ctx, b.ID, 1)
	require.NoError(t, err)

	// Simulate a racing checkout that already claimed the key and raised
	// the invoice but has not yet flipped the booking status.
	require.NoError(t, fg.CheckAndInsert(ctx, "booking-invoice:1", "bookings"))
	_, err = fi.CreateInvoice(ctx, billing.CreateInvoiceInput{BookingID: b.ID, Items: []billing.InvoiceItem{{Quantity: 1, Rate: 100}}})
	require.NoError(t, err)

	inv, err := svc.Checkout(ctx, b.ID, 1)
	require.NoError(t, err)
	require.Equal(t, b.ID, inv.BookingID)
	require.Equal(t, 1, fi.callCount)
}

func TestCancelOnlyFromReserved(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo(), newFakeRooms(), newFakeInvoices(), newFakeGuard())
	b := seedBooking(t, svc)

	cancelled, err := svc.Cancel(ctx, b.ID, 1)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)

	_, err = svc.Cancel(ctx, b.ID, 1)
	require.ErrorIs(t, err, ErrInvalidTransition)
}
