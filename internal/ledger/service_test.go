package ledger

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	transactions map[int64]Transaction
	nextID       int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{transactions: make(map[int64]Transaction)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	tr, ok := r.transactions[id]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return tr, nil
}

func (r *memoryRepo) ListTransactions(ctx context.Context, req ListTransactionsRequest) ([]Transaction, error) {
	var out []Transaction
	for _, tr := range r.transactions {
		if req.Type != "" && tr.Type != req.Type {
			continue
		}
		if req.VendorID != 0 && tr.VendorID != req.VendorID {
			continue
		}
		out = append(out, tr)
	}
	return out, nil
}

func (tx *memoryTx) CreateTransaction(ctx context.Context, tr Transaction) (int64, error) {
	tx.repo.nextID++
	tr.ID = tx.repo.nextID
	now := time.Now()
	tr.CreatedAt = now
	tr.UpdatedAt = now
	tx.repo.transactions[tr.ID] = tr
	return tr.ID, nil
}

func (tx *memoryTx) UpdateTransaction(ctx context.Context, tr Transaction) error {
	stored, ok := tx.repo.transactions[tr.ID]
	if !ok {
		return ErrTransactionNotFound
	}
	tr.CreatedAt = stored.CreatedAt
	tr.UpdatedAt = time.Now()
	tx.repo.transactions[tr.ID] = tr
	return nil
}

func (tx *memoryTx) DeleteTransaction(ctx context.Context, id int64) error {
	if _, ok := tx.repo.transactions[id]; !ok {
		return ErrTransactionNotFound
	}
	delete(tx.repo.transactions, id)
	return nil
}

type balanceCall struct {
	kind                 string
	vendorID, oldVendor  int64
	amount, oldAmount    float64
	newVendor            int64
	newAmount            float64
}

type fakeBalances struct {
	calls []balanceCall
	err   error
}

func (f *fakeBalances) OnExpenseCreated(ctx context.Context, vendorID int64, amount float64) error {
	f.calls = append(f.calls, balanceCall{kind: "created", vendorID: vendorID, amount: amount})
	return f.err
}

func (f *fakeBalances) OnExpenseAmountChanged(ctx context.Context, oldVendorID int64, oldAmount float64, newVendorID int64, newAmount float64) error {
	f.calls = append(f.calls, balanceCall{kind: "changed", oldVendor: oldVendorID, oldAmount: oldAmount, newVendor: newVendorID, newAmount: newAmount})
	return f.err
}

func (f *fakeBalances) OnExpenseDeleted(ctx context.Context, vendorID int64, amount float64) error {
	f.calls = append(f.calls, balanceCall{kind: "deleted", vendorID: vendorID, amount: amount})
	return f.err
}

func newTestService(repo Repository, balances VendorBalances) *Service {
	svc := NewService(repo, nil, slog.Default())
	if balances != nil {
		svc.SetVendorBalances(balances)
	}
	return svc
}

var entryDate = time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

func TestCreateExpenseNotifiesVendorBalances(t *testing.T) {
	ctx := context.Background()
	balances := &fakeBalances{}
	svc := newTestService(newMemoryRepo(), balances)

	tr, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		Type: TypeExpense, Category: "Supplies", Amount: 350, Date: entryDate, PaymentMode: "CASH", VendorID: 4, ActorID: 1,
	})
	require.NoError(t, err)
	require.NotZero(t, tr.ID)
	require.Len(t, balances.calls, 1)
	require.Equal(t, "created", balances.calls[0].kind)
	require.EqualValues(t, 4, balances.calls[0].vendorID)
	require.InDelta(t, 350.0, balances.calls[0].amount, 0.001)
}

func TestCreateWithoutVendorSkipsCallback(t *testing.T) {
	ctx := context.Background()
	balances := &fakeBalances{}
	svc := newTestService(newMemoryRepo(), balances)

	_, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		Type: TypeExpense, Category: "Utilities", Amount: 90, Date: entryDate, PaymentMode: "CASH", ActorID: 1,
	})
	require.NoError(t, err)
	require.Empty(t, balances.calls)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo(), nil)

	cases := []CreateTransactionInput{
		{Type: "transfer", Category: "Supplies", Amount: 10, Date: entryDate, PaymentMode: "CASH"},
		{Type: TypeExpense, Category: "Supplies", Amount: 0, Date: entryDate, PaymentMode: "CASH"},
		{Type: TypeExpense, Category: "Supplies", Amount: -5, Date: entryDate, PaymentMode: "CASH"},
		{Type: TypeExpense, Amount: 10, Date: entryDate, PaymentMode: "CASH"},
		{Type: TypeExpense, Category: "Supplies", Amount: 10, PaymentMode: "CASH"},
		{Type: TypeExpense, Category: "Supplies", Amount: 10, Date: entryDate},
		{Type: TypeRevenue, Category: "Misc", Amount: 10, Date: entryDate, PaymentMode: "CASH", VendorID: 3},
	}
	for _, input := range cases {
		_, err := svc.CreateTransaction(ctx, input)
		require.ErrorIs(t, err, ErrInvalidTransaction)
	}
}

func TestUpdateAmountReversesAndReapplies(t *testing.T) {
	ctx := context.Background()
	balances := &fakeBalances{}
	svc := newTestService(newMemoryRepo(), balances)

	tr, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		Type: TypeExpense, Category: "Supplies", Amount: 500, Date: entryDate, PaymentMode: "CASH", VendorID: 4, ActorID: 1,
	})
	require.NoError(t, err)
	balances.calls = nil

	amount := 800.0
	updated, err := svc.UpdateTransaction(ctx, TransactionPatch{TransactionID: tr.ID, Amount: &amount, ActorID: 1})
	require.NoError(t, err)
	require.InDelta(t, 800.0, updated.Amount, 0.001)

	require.Len(t, balances.calls, 1)
	call := balances.calls[0]
	require.Equal(t, "changed", call.kind)
	require.EqualValues(t, 4, call.oldVendor)
	require.InDelta(t, 500.0, call.oldAmount, 0.001)
	require.EqualValues(t, 4, call.newVendor)
	require.InDelta(t, 800.0, call.newAmount, 0.001)
}

func TestUpdateRetargetsVendor(t *testing.T) {
	ctx := context.Background()
	balances := &fakeBalances{}
	svc := newTestService(newMemoryRepo(), balances)

	tr, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		Type: TypeExpense, Category: "Supplies", Amount: 500, Date: entryDate, PaymentMode: "CASH", VendorID: 4, ActorID: 1,
	})
	require.NoError(t, err)
	balances.calls = nil

	vendor := int64(9)
	amount := 750.0
	_, err = svc.UpdateTransaction(ctx, TransactionPatch{TransactionID: tr.ID, VendorID: &vendor, Amount: &amount, ActorID: 1})
	require.NoError(t, err)

	require.Len(t, balances.calls, 1)
	call := balances.calls[0]
	require.Equal(t, "changed", call.kind)
	require.EqualValues(t, 4, call.oldVendor)
	require.EqualValues(t, 9, call.newVendor)
	require.InDelta(t, 750.0, call.newAmount, 0.001)
}

func TestUpdateWithoutBalanceImpactSkipsCallback(t *testing.T) {
	ctx := context.Background()
	balances := &fakeBalances{}
	svc := newTestService(newMemoryRepo(), balances)

	tr, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		Type: TypeExpense, Category: "Supplies", Amount: 500, Date: entryDate, PaymentMode: "CASH", VendorID: 4, ActorID: 1,
	})
	require.NoError(t, err)
	balances.calls = nil

	desc := "quarterly restock"
	_, err = svc.UpdateTransaction(ctx, TransactionPatch{TransactionID: tr.ID, Description: &desc, ActorID: 1})
	require.NoError(t, err)
	require.Empty(t, balances.calls)
}

func TestDeleteReversesContribution(t *testing.T) {
	ctx := context.Background()
	balances := &fakeBalances{}
	repo := newMemoryRepo()
	svc := newTestService(repo, balances)

	tr, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		Type: TypeExpense, Category: "Supplies", Amount: 500, Date: entryDate, PaymentMode: "CASH", VendorID: 4, ActorID: 1,
	})
	require.NoError(t, err)
	balances.calls = nil

	require.NoError(t, svc.DeleteTransaction(ctx, tr.ID, 1))
	require.Len(t, balances.calls, 1)
	require.Equal(t, "deleted", balances.calls[0].kind)
	require.InDelta(t, 500.0, balances.calls[0].amount, 0.001)

	_, err = svc.GetTransaction(ctx, tr.ID)
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestInvoiceLinkedRowsAreImmutableHere(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	id, err := (&memoryTx{repo: repo}).CreateTransaction(ctx, Transaction{
		Type: TypeRevenue, Category: "Room Booking", Amount: 400, InvoiceID: 12, BookingID: 7,
	})
	require.NoError(t, err)

	amount := 999.0
	_, err = svc.UpdateTransaction(ctx, TransactionPatch{TransactionID: id, Amount: &amount})
	require.ErrorIs(t, err, ErrLinkedTransaction)
	require.ErrorIs(t, svc.DeleteTransaction(ctx, id, 1), ErrLinkedTransaction)
}

func TestCompensationFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	balances := &fakeBalances{err: errors.New("vendor missing")}
	svc := newTestService(newMemoryRepo(), balances)

	_, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		Type: TypeExpense, Category: "Supplies", Amount: 100, Date: entryDate, PaymentMode: "CASH", VendorID: 4,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "vendor balance update failed")
}
