package vendors

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atrium-hms/atrium/internal/shared"
)

type memoryRepo struct {
	vendors  map[int64]Vendor
	payments []PaymentEntry
	txCounts map[int64]int64
	nextID   int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		vendors:  make(map[int64]Vendor),
		txCounts: make(map[int64]int64),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetVendor(ctx context.Context, id int64) (Vendor, error) {
	v, ok := r.vendors[id]
	if !ok {
		return Vendor{}, ErrVendorNotFound
	}
	return v, nil
}

func (r *memoryRepo) ListVendors(ctx context.Context, req ListVendorsRequest) ([]Vendor, error) {
	var out []Vendor
	for _, v := range r.vendors {
		out = append(out, v)
	}
	return out, nil
}

func (r *memoryRepo) CountTransactions(ctx context.Context, vendorID int64) (int64, error) {
	return r.txCounts[vendorID], nil
}

func (tx *memoryTx) CreateVendor(ctx context.Context, v Vendor) (int64, error) {
	tx.repo.nextID++
	v.ID = tx.repo.nextID
	now := time.Now()
	v.CreatedAt = now
	v.UpdatedAt = now
	tx.repo.vendors[v.ID] = v
	return v.ID, nil
}

func (tx *memoryTx) UpdateProfile(ctx context.Context, v Vendor) error {
	stored, ok := tx.repo.vendors[v.ID]
	if !ok {
		return ErrVendorNotFound
	}
	v.OutstandingBalance = stored.OutstandingBalance
	v.TotalPaid = stored.TotalPaid
	v.TotalTransactions = stored.TotalTransactions
	tx.repo.vendors[v.ID] = v
	return nil
}

func (tx *memoryTx) UpdateAggregates(ctx context.Context, vendorID int64, outstanding, totalPaid float64, totalTransactions int64) error {
	v, ok := tx.repo.vendors[vendorID]
	if !ok {
		return ErrVendorNotFound
	}
	v.OutstandingBalance = outstanding
	v.TotalPaid = totalPaid
	v.TotalTransactions = totalTransactions
	tx.repo.vendors[vendorID] = v
	return nil
}

func (tx *memoryTx) DeleteVendor(ctx context.Context, id int64) error {
	if _, ok := tx.repo.vendors[id]; !ok {
		return ErrVendorNotFound
	}
	delete(tx.repo.vendors, id)
	return nil
}

func (tx *memoryTx) AppendPaymentTransaction(ctx context.Context, entry PaymentEntry) error {
	tx.repo.payments = append(tx.repo.payments, entry)
	tx.repo.txCounts[entry.VendorID]++
	return nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, shared.NewKeyedMutex(), nil, slog.Default())
}

func seedVendor(t *testing.T, svc *Service, name string) Vendor {
	t.Helper()
	v, err := svc.CreateVendor(context.Background(), CreateVendorInput{Name: name, Category: "Linen", ActorID: 1})
	require.NoError(t, err)
	require.Zero(t, v.OutstandingBalance)
	require.Zero(t, v.TotalPaid)
	require.Zero(t, v.TotalTransactions)
	return v
}

func TestExpenseRaisesOutstandingBalance(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := newTestService(repo)
	v := seedVendor(t, svc, "Crisp Linen Co")

	require.NoError(t, svc.OnExpenseCreated(ctx, v.ID, 1200))
	require.NoError(t, svc.OnExpenseCreated(ctx, v.ID, 300))

	got, err := svc.GetVendor(ctx, v.ID)
	require.NoError(t, err)
	require.InDelta(t, 1500.0, got.OutstandingBalance, 0.001)
	require.EqualValues(t, 2, got.TotalTransactions)
}

func TestRecordPaymentSettlesBalance(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := newTestService(repo)
	v := seedVendor(t, svc, "Crisp Linen Co")
	require.NoError(t, svc.OnExpenseCreated(ctx, v.ID, 1000))

	got, err := svc.RecordPayment(ctx, RecordPaymentInput{VendorID: v.ID, Amount: 400, Mode: "TRANSFER", ActorID: 1})
	require.NoError(t, err)
	require.InDelta(t, 600.0, got.OutstandingBalance, 0.001)
	require.InDelta(t, 400.0, got.TotalPaid, 0.001)

	require.Len(t, repo.payments, 1)
	require.Equal(t, v.ID, repo.payments[0].VendorID)
	require.InDelta(t, 400.0, repo.payments[0].Amount, 0.001)

	// Paying more than what is owed is rejected, as is a non-positive amount.
	_, err = svc.RecordPayment(ctx, RecordPaymentInput{VendorID: v.ID, Amount: 700, Mode: "TRANSFER"})
	require.ErrorIs(t, err, ErrPaymentExceedsBalance)
	_, err = svc.RecordPayment(ctx, RecordPaymentInput{VendorID: v.ID, Amount: 0, Mode: "TRANSFER"})
	require.ErrorIs(t, err, ErrPaymentExceedsBalance)

	got, err = svc.RecordPayment(ctx, RecordPaymentInput{VendorID: v.ID, Amount: 600, Mode: "CASH", ActorID: 1})
	require.NoError(t, err)
	require.Zero(t, got.OutstandingBalance)
	require.InDelta(t, 1000.0, got.TotalPaid, 0.001)
}

func TestExpenseAmountChangeAppliesDelta(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo())
	v := seedVendor(t, svc, "Crisp Linen Co")
	require.NoError(t, svc.OnExpenseCreated(ctx, v.ID, 500))

	require.NoError(t, svc.OnExpenseAmountChanged(ctx, v.ID, 500, v.ID, 800))
	got, err := svc.GetVendor(ctx, v.ID)
	require.NoError(t, err)
	require.InDelta(t, 800.0, got.OutstandingBalance, 0.001)

	require.NoError(t, svc.OnExpenseAmountChanged(ctx, v.ID, 800, v.ID, 200))
	got, err = svc.GetVendor(ctx, v.ID)
	require.NoError(t, err)
	require.InDelta(t, 200.0, got.OutstandingBalance, 0.001)
}

func TestExpenseAmountChangeUnderDriftFloorsThenReapplies(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo())
	v := seedVendor(t, svc, "Crisp Linen Co")
	require.NoError(t, svc.OnExpenseCreated(ctx, v.ID, 300))

	// A payment has already pulled the balance below the expense being
	// edited. Reversing the old amount floors at zero, so the revised
	// amount stands in full rather than being netted against the drift.
	_, err := svc.RecordPayment(ctx, RecordPaymentInput{VendorID: v.ID, Amount: 200, Mode: "CASH"})
	require.NoError(t, err)

	require.NoError(t, svc.OnExpenseAmountChanged(ctx, v.ID, 300, v.ID, 250))
	got, err := svc.GetVendor(ctx, v.ID)
	require.NoError(t, err)
	require.InDelta(t, 250.0, got.OutstandingBalance, 0.001)
}

func TestExpenseRetargetMovesContribution(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo())
	a := seedVendor(t, svc, "Crisp Linen Co")
	b := seedVendor(t, svc, "Fresh Produce Ltd")
	require.NoError(t, svc.OnExpenseCreated(ctx, a.ID, 500))

	require.NoError(t, svc.OnExpenseAmountChanged(ctx, a.ID, 500, b.ID, 750))

	gotA, err := svc.GetVendor(ctx, a.ID)
	require.NoError(t, err)
	require.Zero(t, gotA.OutstandingBalance)

	gotB, err := svc.GetVendor(ctx, b.ID)
	require.NoError(t, err)
	require.InDelta(t, 750.0, gotB.OutstandingBalance, 0.001)
}

func TestExpenseDeleteFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo())
	v := seedVendor(t, svc, "Crisp Linen Co")
	require.NoError(t, svc.OnExpenseCreated(ctx, v.ID, 300))

	// A payment already settled part of the balance, so reversing the full
	// expense would drive it negative. The balance floors at zero instead.
	_, err := svc.RecordPayment(ctx, RecordPaymentInput{VendorID: v.ID, Amount: 200, Mode: "CASH"})
	require.NoError(t, err)
	require.NoError(t, svc.OnExpenseDeleted(ctx, v.ID, 300))

	got, err := svc.GetVendor(ctx, v.ID)
	require.NoError(t, err)
	require.Zero(t, got.OutstandingBalance)
}

func TestDeleteVendorGuardedByHistory(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := newTestService(repo)
	v := seedVendor(t, svc, "Crisp Linen Co")
	require.NoError(t, svc.OnExpenseCreated(ctx, v.ID, 100))
	repo.txCounts[v.ID] = 1

	err := svc.DeleteVendor(ctx, v.ID, 1)
	require.ErrorIs(t, err, ErrVendorHasHistory)

	repo.txCounts[v.ID] = 0
	require.NoError(t, svc.DeleteVendor(ctx, v.ID, 1))
	_, err = svc.GetVendor(ctx, v.ID)
	require.ErrorIs(t, err, ErrVendorNotFound)
}

func TestUpdateVendorLeavesAggregatesAlone(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo())
	v := seedVendor(t, svc, "Crisp Linen Co")
	require.NoError(t, svc.OnExpenseCreated(ctx, v.ID, 450))

	name := "Crisp Linen & Sons"
	got, err := svc.UpdateVendor(ctx, UpdateVendorInput{VendorID: v.ID, Name: &name, ActorID: 1})
	require.NoError(t, err)
	require.Equal(t, name, got.Name)
	require.InDelta(t, 450.0, got.OutstandingBalance, 0.001)
	require.EqualValues(t, 1, got.TotalTransactions)
}
