package requests

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines service request data access.
type Repository interface {
	CreateRequest(ctx context.Context, req ServiceRequest) (int64, error)
	UpdateRequest(ctx context.Context, req ServiceRequest) error
	GetRequest(ctx context.Context, id int64) (ServiceRequest, error)
	ListRequests(ctx context.Context, req ListRequestsRequest) ([]ServiceRequest, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres-backed requests repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const requestColumns = `id, room_id, COALESCE(guest_id, 0), type, priority, description, status, COALESCE(assigned_to, 0), created_by, resolved_at, created_at, updated_at`

func (r *pgRepository) CreateRequest(ctx context.Context, req ServiceRequest) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO service_requests (room_id, guest_id, type, priority, description, status, assigned_to, created_by, created_at, updated_at)
		 VALUES ($1, NULLIF($2, 0), $3, $4, $5, $6, NULLIF($7, 0), $8, $9, $9) RETURNING id`,
		req.RoomID, req.GuestID, req.Type, req.Priority, req.Description, req.Status, req.AssignedTo, req.CreatedBy, time.Now()).Scan(&id)
	return id, err
}

func (r *pgRepository) UpdateRequest(ctx context.Context, req ServiceRequest) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE service_requests SET type = $1, priority = $2, description = $3, status = $4,
		 assigned_to = NULLIF($5, 0), resolved_at = $6, updated_at = $7 WHERE id = $8`,
		req.Type, req.Priority, req.Description, req.Status, req.AssignedTo, req.ResolvedAt, time.Now(), req.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}

func (r *pgRepository) GetRequest(ctx context.Context, id int64) (ServiceRequest, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM service_requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ServiceRequest{}, ErrRequestNotFound
		}
		return ServiceRequest{}, err
	}
	return req, nil
}

func (r *pgRepository) ListRequests(ctx context.Context, filter ListRequestsRequest) ([]ServiceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE 1=1`
	args := []any{}
	if filter.RoomID != 0 {
		args = append(args, filter.RoomID)
		query += ` AND room_id = $1`
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += ` AND type = $` + strconv.Itoa(len(args))
	}
	if filter.AssignedTo != 0 {
		args = append(args, filter.AssignedTo)
		query += ` AND assigned_to = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ServiceRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (ServiceRequest, error) {
	var req ServiceRequest
	err := row.Scan(&req.ID, &req.RoomID, &req.GuestID, &req.Type, &req.Priority, &req.Description,
		&req.Status, &req.AssignedTo, &req.CreatedBy, &req.ResolvedAt, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return ServiceRequest{}, err
	}
	return req, nil
}
