package bookings

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines booking data access.
type Repository interface {
	CreateBooking(ctx context.Context, b Booking) (int64, error)
	UpdateBooking(ctx context.Context, b Booking) error
	GetBooking(ctx context.Context, id int64) (Booking, error)
	ListBookings(ctx context.Context, req ListBookingsRequest) ([]Booking, error)
	CountOverlapping(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeID int64) (int64, error)
	AddCharge(ctx context.Context, c Charge) (int64, error)
	ListCharges(ctx context.Context, bookingID int64) ([]Charge, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres-backed bookings repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const bookingColumns = `id, guest_id, room_id, check_in, check_out, adults, children, status, notes, created_by, created_at, updated_at`

func (r *pgRepository) CreateBooking(ctx context.Context, b Booking) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO bookings (guest_id, room_id, check_in, check_out, adults, children, status, notes, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10) RETURNING id`,
		b.GuestID, b.RoomID, b.CheckIn, b.CheckOut, b.Adults, b.Children, b.Status, b.Notes, b.CreatedBy, time.Now()).Scan(&id)
	return id, err
}

func (r *pgRepository) UpdateBooking(ctx context.Context, b Booking) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE bookings SET guest_id = $1, room_id = $2, check_in = $3, check_out = $4, adults = $5,
		 children = $6, status = $7, notes = $8, updated_at = $9 WHERE id = $10`,
		b.GuestID, b.RoomID, b.CheckIn, b.CheckOut, b.Adults, b.Children, b.Status, b.Notes, time.Now(), b.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (r *pgRepository) GetBooking(ctx context.Context, id int64) (Booking, error) {
	var b Booking
	err := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id).
		Scan(&b.ID, &b.GuestID, &b.RoomID, &b.CheckIn, &b.CheckOut, &b.Adults, &b.Children,
			&b.Status, &b.Notes, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, ErrBookingNotFound
		}
		return Booking{}, err
	}
	return b, nil
}

func (r *pgRepository) ListBookings(ctx context.Context, req ListBookingsRequest) ([]Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE 1=1`
	args := []any{}
	if req.GuestID != 0 {
		args = append(args, req.GuestID)
		query += ` AND guest_id = $1`
	}
	if req.RoomID != 0 {
		args = append(args, req.RoomID)
		query += ` AND room_id = $` + strconv.Itoa(len(args))
	}
	if req.Status != "" {
		args = append(args, req.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY check_in DESC`
	if req.Limit > 0 {
		args = append(args, req.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		args = append(args, req.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.GuestID, &b.RoomID, &b.CheckIn, &b.CheckOut, &b.Adults,
			&b.Children, &b.Status, &b.Notes, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *pgRepository) AddCharge(ctx context.Context, c Charge) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO booking_charges (booking_id, description, quantity, rate, amount, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		c.BookingID, c.Description, c.Quantity, c.Rate, c.Amount, c.CreatedBy, time.Now()).Scan(&id)
	return id, err
}

func (r *pgRepository) ListCharges(ctx context.Context, bookingID int64) ([]Charge, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, booking_id, description, quantity, rate, amount, created_by, created_at
		 FROM booking_charges WHERE booking_id = $1 ORDER BY id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var charges []Charge
	for rows.Next() {
		var c Charge
		if err := rows.Scan(&c.ID, &c.BookingID, &c.Description, &c.Quantity, &c.Rate,
			&c.Amount, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		charges = append(charges, c)
	}
	return charges, rows.Err()
}

// CountOverlapping counts live bookings for a room whose stay intersects the
// given range. Cancelled and checked-out bookings do not block the room.
func (r *pgRepository) CountOverlapping(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeID int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings
		 WHERE room_id = $1 AND id <> $2 AND status IN ($3, $4)
		 AND check_in < $5 AND check_out > $6`,
		roomID, excludeID, StatusReserved, StatusCheckedIn, checkOut, checkIn).Scan(&n)
	return n, err
}
