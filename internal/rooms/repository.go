package rooms

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines room data access.
type Repository interface {
	CreateRoom(ctx context.Context, room Room) (int64, error)
	UpdateRoom(ctx context.Context, room Room) error
	DeleteRoom(ctx context.Context, id int64) error
	GetRoom(ctx context.Context, id int64) (Room, error)
	GetRoomByNumber(ctx context.Context, number string) (Room, error)
	ListRooms(ctx context.Context, req ListRoomsRequest) ([]Room, error)
	SetStatus(ctx context.Context, id int64, status string) error
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres-backed rooms repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const roomColumns = `id, number, type, floor, capacity, rate_per_night, status, description, created_at, updated_at`

func (r *pgRepository) CreateRoom(ctx context.Context, room Room) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO rooms (number, type, floor, capacity, rate_per_night, status, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING id`,
		room.Number, room.Type, room.Floor, room.Capacity, room.RatePerNight, room.Status, room.Description, time.Now()).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateRoomNumber
		}
		return 0, err
	}
	return id, nil
}

func (r *pgRepository) UpdateRoom(ctx context.Context, room Room) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE rooms SET number = $1, type = $2, floor = $3, capacity = $4, rate_per_night = $5,
		 status = $6, description = $7, updated_at = $8 WHERE id = $9`,
		room.Number, room.Type, room.Floor, room.Capacity, room.RatePerNight,
		room.Status, room.Description, time.Now(), room.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateRoomNumber
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (r *pgRepository) DeleteRoom(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (r *pgRepository) GetRoom(ctx context.Context, id int64) (Room, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
	return scanRoom(row)
}

func (r *pgRepository) GetRoomByNumber(ctx context.Context, number string) (Room, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE number = $1`, number)
	return scanRoom(row)
}

func (r *pgRepository) ListRooms(ctx context.Context, req ListRoomsRequest) ([]Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE 1=1`
	args := []any{}
	if req.Status != "" {
		args = append(args, req.Status)
		query += ` AND status = $1`
	}
	if req.Type != "" {
		args = append(args, req.Type)
		query += ` AND type = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY number`
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

	var rooms []Room
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.ID, &room.Number, &room.Type, &room.Floor, &room.Capacity,
			&room.RatePerNight, &room.Status, &room.Description, &room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (r *pgRepository) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE rooms SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func scanRoom(row pgx.Row) (Room, error) {
	var room Room
	err := row.Scan(&room.ID, &room.Number, &room.Type, &room.Floor, &room.Capacity,
		&room.RatePerNight, &room.Status, &room.Description, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Room{}, ErrRoomNotFound
		}
		return Room{}, err
	}
	return room, nil
}
