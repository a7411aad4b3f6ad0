package reports

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	monthlyCalls int32
	months       []MonthlyTotals
	occupancy    OccupancySnapshot
	payables     []VendorOutstanding
	aging        []AgingBucket
}

func (s *stubRepo) MonthlyTotals(ctx context.Context, year int) ([]MonthlyTotals, error) {
	atomic.AddInt32(&s.monthlyCalls, 1)
	return s.months, nil
}

func (s *stubRepo) Occupancy(ctx context.Context) (OccupancySnapshot, error) {
	return s.occupancy, nil
}

func (s *stubRepo) VendorsOutstanding(ctx context.Context, limit int) ([]VendorOutstanding, error) {
	return s.payables, nil
}

func (s *stubRepo) InvoiceAging(ctx context.Context, asOf time.Time) ([]AgingBucket, error) {
	return s.aging, nil
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewService(repo, client, slog.Default())
}

func TestMonthlySummaryUsesCache(t *testing.T) {
	repo := &stubRepo{months: []MonthlyTotals{
		{Month: time.January, Revenue: 1200, Expense: 400, Net: 800},
	}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	first, err := svc.MonthlySummary(ctx, 2026)
	require.NoError(t, err)
	require.Equal(t, 2026, first.Year)
	require.Len(t, first.Months, 1)
	require.InDelta(t, 800, first.Months[0].Net, 0.001)

	second, err := svc.MonthlySummary(ctx, 2026)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.EqualValues(t, 1, atomic.LoadInt32(&repo.monthlyCalls))
}

func TestMonthlySummaryWithoutCache(t *testing.T) {
	repo := &stubRepo{months: []MonthlyTotals{{Month: time.March, Revenue: 50}}}
	svc := NewService(repo, nil, slog.Default())
	ctx := context.Background()

	_, err := svc.MonthlySummary(ctx, 2026)
	require.NoError(t, err)
	_, err = svc.MonthlySummary(ctx, 2026)
	require.NoError(t, err)
	require.EqualValues(t, 2, atomic.LoadInt32(&repo.monthlyCalls))
}

func TestDashboardAssemblesAllSections(t *testing.T) {
	repo := &stubRepo{
		months:    []MonthlyTotals{{Month: time.June, Revenue: 900, Expense: 300, Net: 600}},
		occupancy: OccupancySnapshot{Total: 10, Available: 6, Occupied: 4, Rate: 0.4},
		payables:  []VendorOutstanding{{VendorID: 3, Name: "City Linen", Outstanding: 450}},
		aging:     []AgingBucket{{Label: "0-30", Count: 2, Due: 700}},
	}
	svc := newTestService(t, repo)

	summary, err := svc.Dashboard(context.Background(), 2026)
	require.NoError(t, err)
	require.Equal(t, 2026, summary.Year)
	require.Len(t, summary.Months, 1)
	require.InDelta(t, 0.4, summary.Occupancy.Rate, 0.001)
	require.Len(t, summary.Payables, 1)
	require.Equal(t, "City Linen", summary.Payables[0].Name)
	require.Len(t, summary.Aging, 1)
}

func TestWriteMonthlyCSVGroupsAmounts(t *testing.T) {
	var sb strings.Builder
	err := WriteMonthlyCSV(&sb, YearSummary{
		Year: 2026,
		Months: []MonthlyTotals{
			{Month: time.January, Revenue: 1234567.891, Expense: 1000, Net: 1233567.891},
		},
	})
	require.NoError(t, err)

	out := sb.String()
	require.Contains(t, out, "month,revenue,expense,net")
	require.Contains(t, out, `"1,234,567.89"`)
	require.Contains(t, out, "Total")
}
