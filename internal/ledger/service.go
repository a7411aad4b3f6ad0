package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/atrium-hms/atrium/internal/shared"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidTransaction  = errors.New("invalid transaction")
	ErrLinkedTransaction   = errors.New("transaction is linked to an invoice and cannot be modified here")
)

// VendorBalances receives compensation callbacks when expense ledger rows
// naming a vendor are created, changed or deleted. The vendors service
// implements it; the indirection keeps the import graph acyclic.
type VendorBalances interface {
	OnExpenseCreated(ctx context.Context, vendorID int64, amount float64) error
	OnExpenseAmountChanged(ctx context.Context, oldVendorID int64, oldAmount float64, newVendorID int64, newAmount float64) error
	OnExpenseDeleted(ctx context.Context, vendorID int64, amount float64) error
}

// Service owns manual ledger entries. Revenue rows raised by invoice payments
// and expense rows raised by vendor payments are appended by those modules in
// their own transactions; this service covers everything entered by hand.
type Service struct {
	repo     Repository
	balances VendorBalances
	audit    *shared.AuditLogger
	logger   *slog.Logger
}

// NewService constructs a ledger Service. Wire the vendor balance tracker
// with SetVendorBalances before serving traffic.
func NewService(repo Repository, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// SetVendorBalances wires the compensation callbacks.
func (s *Service) SetVendorBalances(b VendorBalances) {
	s.balances = b
}

// CreateTransaction records a manual ledger entry. For an expense naming a
// vendor the vendor's outstanding balance is raised after the row commits.
func (s *Service) CreateTransaction(ctx context.Context, input CreateTransactionInput) (Transaction, error) {
	if err := validateInput(input); err != nil {
		return Transaction{}, err
	}

	tr := Transaction{
		Type:        input.Type,
		Category:    input.Category,
		Amount:      input.Amount,
		Date:        input.Date,
		PaymentMode: input.PaymentMode,
		Description: input.Description,
		VendorID:    input.VendorID,
		CreatedBy:   input.ActorID,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateTransaction(ctx, tr)
		if err != nil {
			return err
		}
		tr.ID = id
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}

	if tr.Type == TypeExpense && tr.VendorID != 0 && s.balances != nil {
		if err := s.balances.OnExpenseCreated(ctx, tr.VendorID, tr.Amount); err != nil {
			return Transaction{}, fmt.Errorf("transaction %d recorded but vendor balance update failed: %w", tr.ID, err)
		}
	}

	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  input.ActorID,
		Action:   "transaction.create",
		Entity:   "transaction",
		EntityID: strconv.FormatInt(tr.ID, 10),
	})
	return s.repo.GetTransaction(ctx, tr.ID)
}

// UpdateTransaction patches a manual entry. A vendor-linked expense reverses
// its old contribution and applies the new one, so changing the amount or
// retargeting the vendor keeps both balances consistent.
func (s *Service) UpdateTransaction(ctx context.Context, patch TransactionPatch) (Transaction, error) {
	old, err := s.repo.GetTransaction(ctx, patch.TransactionID)
	if err != nil {
		return Transaction{}, err
	}
	if old.InvoiceID != 0 {
		return Transaction{}, ErrLinkedTransaction
	}

	updated := old
	if patch.Category != nil {
		updated.Category = *patch.Category
	}
	if patch.Amount != nil {
		if *patch.Amount <= 0 {
			return Transaction{}, fmt.Errorf("%w: amount must be positive", ErrInvalidTransaction)
		}
		updated.Amount = *patch.Amount
	}
	if patch.Date != nil {
		updated.Date = *patch.Date
	}
	if patch.PaymentMode != nil {
		updated.PaymentMode = *patch.PaymentMode
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.VendorID != nil {
		if old.Type != TypeExpense && *patch.VendorID != 0 {
			return Transaction{}, fmt.Errorf("%w: only expenses may name a vendor", ErrInvalidTransaction)
		}
		updated.VendorID = *patch.VendorID
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateTransaction(ctx, updated)
	})
	if err != nil {
		return Transaction{}, err
	}

	if old.Type == TypeExpense && s.balances != nil &&
		(old.VendorID != updated.VendorID || old.Amount != updated.Amount) {
		if err := s.balances.OnExpenseAmountChanged(ctx, old.VendorID, old.Amount, updated.VendorID, updated.Amount); err != nil {
			return Transaction{}, fmt.Errorf("transaction %d updated but vendor balance update failed: %w", updated.ID, err)
		}
	}

	s.auditFieldChanges(ctx, patch.ActorID, old, updated)
	return updated, nil
}

// DeleteTransaction removes a manual entry, reversing its vendor contribution.
func (s *Service) DeleteTransaction(ctx context.Context, id, actorID int64) error {
	old, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if old.InvoiceID != 0 {
		return ErrLinkedTransaction
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.DeleteTransaction(ctx, id)
	})
	if err != nil {
		return err
	}

	if old.Type == TypeExpense && old.VendorID != 0 && s.balances != nil {
		if err := s.balances.OnExpenseDeleted(ctx, old.VendorID, old.Amount); err != nil {
			return fmt.Errorf("transaction %d deleted but vendor balance update failed: %w", id, err)
		}
	}

	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   "transaction.delete",
		Entity:   "transaction",
		EntityID: strconv.FormatInt(id, 10),
		Field:    "amount",
		OldValue: strconv.FormatFloat(old.Amount, 'f', 2, 64),
	})
	return nil
}

// GetTransaction fetches one ledger entry.
func (s *Service) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

// ListTransactions lists ledger entries with optional filters.
func (s *Service) ListTransactions(ctx context.Context, req ListTransactionsRequest) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, req)
}

func (s *Service) auditFieldChanges(ctx context.Context, actorID int64, old, updated Transaction) {
	entityID := strconv.FormatInt(updated.ID, 10)
	record := func(field, oldVal, newVal string) {
		s.audit.RecordChange(ctx, shared.AuditEntry{
			ActorID:  actorID,
			Action:   "transaction.update",
			Entity:   "transaction",
			EntityID: entityID,
			Field:    field,
			OldValue: oldVal,
			NewValue: newVal,
		})
	}
	if old.Amount != updated.Amount {
		record("amount", strconv.FormatFloat(old.Amount, 'f', 2, 64), strconv.FormatFloat(updated.Amount, 'f', 2, 64))
	}
	if old.Category != updated.Category {
		record("category", old.Category, updated.Category)
	}
	if old.VendorID != updated.VendorID {
		record("vendor_id", strconv.FormatInt(old.VendorID, 10), strconv.FormatInt(updated.VendorID, 10))
	}
	if old.PaymentMode != updated.PaymentMode {
		record("payment_mode", old.PaymentMode, updated.PaymentMode)
	}
	if !old.Date.Equal(updated.Date) {
		record("date", old.Date.Format("2006-01-02"), updated.Date.Format("2006-01-02"))
	}
	if old.Description != updated.Description {
		record("description", old.Description, updated.Description)
	}
}

func validateInput(input CreateTransactionInput) error {
	if input.Type != TypeRevenue && input.Type != TypeExpense {
		return fmt.Errorf("%w: type must be revenue or expense", ErrInvalidTransaction)
	}
	if input.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidTransaction)
	}
	if input.Category == "" {
		return fmt.Errorf("%w: category required", ErrInvalidTransaction)
	}
	if input.Date.IsZero() {
		return fmt.Errorf("%w: date required", ErrInvalidTransaction)
	}
	if input.PaymentMode == "" {
		return fmt.Errorf("%w: payment mode required", ErrInvalidTransaction)
	}
	if input.Type == TypeRevenue && input.VendorID != 0 {
		return fmt.Errorf("%w: only expenses may name a vendor", ErrInvalidTransaction)
	}
	return nil
}
