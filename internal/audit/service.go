package audit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TimelineRow is one audit entry as presented to reviewers.
type TimelineRow struct {
	At       time.Time `json:"at"`
	ActorID  int64     `json:"actor_id"`
	Action   string    `json:"action"`
	Entity   string    `json:"entity"`
	EntityID string    `json:"entity_id"`
	Field    string    `json:"field,omitempty"`
	OldValue string    `json:"old_value,omitempty"`
	NewValue string    `json:"new_value,omitempty"`
}

// TimelineFilters narrows the audit timeline.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	ActorID  int64
	Entity   string
	Action   string
	Page     int
	PageSize int
}

// PagingInfo describes the window returned by Timeline.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result wraps timeline rows with paging information.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}

// Service reads the audit trail.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs an audit Service.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// Timeline fetches audit entries with paging. The window reads one extra row
// to detect whether a next page exists.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.pool == nil {
		return Result{}, fmt.Errorf("audit: pool not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	query, args := buildTimelineQuery(filters)
	args = append(args, pageSize+1)
	query += ` LIMIT $` + strconv.Itoa(len(args))
	args = append(args, offset)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	var out []TimelineRow
	for rows.Next() {
		var row TimelineRow
		if err := rows.Scan(&row.At, &row.ActorID, &row.Action, &row.Entity, &row.EntityID,
			&row.Field, &row.OldValue, &row.NewValue); err != nil {
			return Result{}, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}

	hasNext := len(out) > pageSize
	if hasNext {
		out = out[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: out, Paging: paging}, nil
}

// Export fetches the full filtered timeline without paging.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("audit: pool not configured")
	}
	query, args := buildTimelineQuery(filters)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimelineRow
	for rows.Next() {
		var row TimelineRow
		if err := rows.Scan(&row.At, &row.ActorID, &row.Action, &row.Entity, &row.EntityID,
			&row.Field, &row.OldValue, &row.NewValue); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func buildTimelineQuery(filters TimelineFilters) (string, []any) {
	query := `SELECT occurred_at, actor_id, action, entity, entity_id,
	 COALESCE(field, ''), COALESCE(old_value, ''), COALESCE(new_value, '')
	 FROM audit_logs WHERE 1=1`
	args := []any{}
	if !filters.From.IsZero() {
		args = append(args, filters.From)
		query += ` AND occurred_at >= $` + strconv.Itoa(len(args))
	}
	if !filters.To.IsZero() {
		args = append(args, filters.To)
		query += ` AND occurred_at <= $` + strconv.Itoa(len(args))
	}
	if filters.ActorID != 0 {
		args = append(args, filters.ActorID)
		query += ` AND actor_id = $` + strconv.Itoa(len(args))
	}
	if entity := strings.TrimSpace(filters.Entity); entity != "" {
		args = append(args, entity)
		query += ` AND entity = $` + strconv.Itoa(len(args))
	}
	if action := strings.TrimSpace(filters.Action); action != "" {
		args = append(args, action)
		query += ` AND action = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY occurred_at DESC, id DESC`
	return query, args
}
