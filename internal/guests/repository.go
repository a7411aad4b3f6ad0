package guests

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines guest data access.
type Repository interface {
	CreateGuest(ctx context.Context, g Guest) (int64, error)
	UpdateGuest(ctx context.Context, g Guest) error
	DeleteGuest(ctx context.Context, id int64) error
	GetGuest(ctx context.Context, id int64) (Guest, error)
	ListGuests(ctx context.Context, req ListGuestsRequest) ([]Guest, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres-backed guests repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const guestColumns = `id, first_name, last_name, email, phone, id_type, id_number, address, notes, created_at, updated_at`

func (r *pgRepository) CreateGuest(ctx context.Context, g Guest) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO guests (first_name, last_name, email, phone, id_type, id_number, address, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9) RETURNING id`,
		g.FirstName, g.LastName, g.Email, g.Phone, g.IDType, g.IDNumber, g.Address, g.Notes, time.Now()).Scan(&id)
	return id, err
}

func (r *pgRepository) UpdateGuest(ctx context.Context, g Guest) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE guests SET first_name = $1, last_name = $2, email = $3, phone = $4, id_type = $5,
		 id_number = $6, address = $7, notes = $8, updated_at = $9 WHERE id = $10`,
		g.FirstName, g.LastName, g.Email, g.Phone, g.IDType, g.IDNumber, g.Address, g.Notes, time.Now(), g.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrGuestNotFound
	}
	return nil
}

func (r *pgRepository) DeleteGuest(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM guests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrGuestNotFound
	}
	return nil
}

func (r *pgRepository) GetGuest(ctx context.Context, id int64) (Guest, error) {
	var g Guest
	err := r.pool.QueryRow(ctx, `SELECT `+guestColumns+` FROM guests WHERE id = $1`, id).
		Scan(&g.ID, &g.FirstName, &g.LastName, &g.Email, &g.Phone, &g.IDType, &g.IDNumber,
			&g.Address, &g.Notes, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Guest{}, ErrGuestNotFound
		}
		return Guest{}, err
	}
	return g, nil
}

func (r *pgRepository) ListGuests(ctx context.Context, req ListGuestsRequest) ([]Guest, error) {
	query := `SELECT ` + guestColumns + ` FROM guests WHERE 1=1`
	args := []any{}
	if req.Search != "" {
		args = append(args, "%"+req.Search+"%")
		query += ` AND (first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1 OR phone ILIKE $1)`
	}
	query += ` ORDER BY last_name, first_name`
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

	var guests []Guest
	for rows.Next() {
		var g Guest
		if err := rows.Scan(&g.ID, &g.FirstName, &g.LastName, &g.Email, &g.Phone, &g.IDType,
			&g.IDNumber, &g.Address, &g.Notes, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		guests = append(guests, g)
	}
	return guests, rows.Err()
}
