package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const cacheTTL = 5 * time.Minute

// DashboardSummary bundles the sections shown on the back office dashboard.
type DashboardSummary struct {
	Year      int                 `json:"year"`
	Months    []MonthlyTotals     `json:"months"`
	Occupancy OccupancySnapshot   `json:"occupancy"`
	Payables  []VendorOutstanding `json:"payables"`
	Aging     []AgingBucket       `json:"invoice_aging"`
}

// Service builds reports with a Redis cache in front of the aggregate
// queries. Concurrent requests for the same section share one build.
type Service struct {
	repo   Repository
	cache  *redis.Client
	group  singleflight.Group
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a reports Service. The cache client may be nil,
// in which case every call hits the repository.
func NewService(repo Repository, cache *redis.Client, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger, now: time.Now}
}

// MonthlySummary returns the twelve month revenue/expense breakdown.
func (s *Service) MonthlySummary(ctx context.Context, year int) (YearSummary, error) {
	key := fmt.Sprintf("reports:monthly:%d", year)
	var summary YearSummary
	err := s.cached(ctx, key, &summary, func(ctx context.Context) (any, error) {
		months, err := s.repo.MonthlyTotals(ctx, year)
		if err != nil {
			return nil, err
		}
		return YearSummary{Year: year, Months: months}, nil
	})
	return summary, err
}

// Occupancy returns the room status snapshot.
func (s *Service) Occupancy(ctx context.Context) (OccupancySnapshot, error) {
	var snap OccupancySnapshot
	err := s.cached(ctx, "reports:occupancy", &snap, func(ctx context.Context) (any, error) {
		return s.repo.Occupancy(ctx)
	})
	return snap, err
}

// Payables returns vendors with open balances, largest first.
func (s *Service) Payables(ctx context.Context, limit int) ([]VendorOutstanding, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	key := fmt.Sprintf("reports:payables:%d", limit)
	var out []VendorOutstanding
	err := s.cached(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.repo.VendorsOutstanding(ctx, limit)
	})
	return out, err
}

// InvoiceAging buckets unpaid invoice value by age as of today.
func (s *Service) InvoiceAging(ctx context.Context) ([]AgingBucket, error) {
	var out []AgingBucket
	err := s.cached(ctx, "reports:aging", &out, func(ctx context.Context) (any, error) {
		return s.repo.InvoiceAging(ctx, s.now())
	})
	return out, err
}

// Dashboard fetches all dashboard sections concurrently.
func (s *Service) Dashboard(ctx context.Context, year int) (DashboardSummary, error) {
	summary := DashboardSummary{Year: year}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ys, err := s.MonthlySummary(ctx, year)
		if err != nil {
			return fmt.Errorf("monthly summary: %w", err)
		}
		summary.Months = ys.Months
		return nil
	})
	g.Go(func() error {
		snap, err := s.Occupancy(ctx)
		if err != nil {
			return fmt.Errorf("occupancy: %w", err)
		}
		summary.Occupancy = snap
		return nil
	})
	g.Go(func() error {
		payables, err := s.Payables(ctx, 10)
		if err != nil {
			return fmt.Errorf("payables: %w", err)
		}
		summary.Payables = payables
		return nil
	})
	g.Go(func() error {
		aging, err := s.InvoiceAging(ctx)
		if err != nil {
			return fmt.Errorf("invoice aging: %w", err)
		}
		summary.Aging = aging
		return nil
	})
	if err := g.Wait(); err != nil {
		return DashboardSummary{}, err
	}
	return summary, nil
}

// cached resolves key from Redis, falling back to a singleflight build.
// Cache failures degrade to a direct build rather than erroring the request.
func (s *Service) cached(ctx context.Context, key string, dst any, build func(context.Context) (any, error)) error {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key).Bytes()
		if err == nil {
			if err := json.Unmarshal(raw, dst); err == nil {
				return nil
			}
			s.logger.Warn("report cache entry unreadable", slog.String("key", key))
		} else if err != redis.Nil {
			s.logger.Warn("report cache read failed", slog.String("key", key), slog.Any("error", err))
		}
	}

	bctx := context.WithoutCancel(ctx)
	resultChan := s.group.DoChan(key, func() (any, error) {
		value, err := build(bctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(bctx, key, raw, cacheTTL).Err(); err != nil {
				s.logger.Warn("report cache write failed", slog.String("key", key), slog.Any("error", err))
			}
		}
		return raw, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.([]byte), dst)
	}
}
