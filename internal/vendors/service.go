package vendors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/atrium-hms/atrium/internal/shared"
)

var (
	ErrVendorNotFound        = errors.New("vendor not found")
	ErrPaymentExceedsBalance = errors.New("payment must be positive and within the outstanding balance")
	ErrVendorHasHistory      = errors.New("vendor has recorded transactions")
)

// Service maintains vendor profiles and their denormalized balance aggregates.
// Expense ledger writes call back into the OnExpense* methods so the
// aggregates track the ledger; payments settle the balance directly.
type Service struct {
	repo   Repository
	locks  *shared.KeyedMutex
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService constructs a vendors Service.
func NewService(repo Repository, locks *shared.KeyedMutex, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, locks: locks, audit: audit, logger: logger}
}

// CreateVendor registers a vendor with zeroed aggregates.
func (s *Service) CreateVendor(ctx context.Context, input CreateVendorInput) (Vendor, error) {
	if input.Name == "" {
		return Vendor{}, errors.New("vendor name required")
	}
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created, err := tx.CreateVendor(ctx, Vendor{
			Name:          input.Name,
			Category:      input.Category,
			ContactPerson: input.ContactPerson,
			Phone:         input.Phone,
			Email:         input.Email,
			Address:       input.Address,
		})
		if err != nil {
			return err
		}
		id = created
		return nil
	})
	if err != nil {
		return Vendor{}, err
	}
	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  input.ActorID,
		Action:   "vendor.create",
		Entity:   "vendor",
		EntityID: strconv.FormatInt(id, 10),
	})
	return s.repo.GetVendor(ctx, id)
}

// UpdateVendor patches profile fields. Aggregates stay untouched.
func (s *Service) UpdateVendor(ctx context.Context, input UpdateVendorInput) (Vendor, error) {
	unlock := s.locks.Lock(shared.VendorLockKey(input.VendorID))
	defer unlock()

	v, err := s.repo.GetVendor(ctx, input.VendorID)
	if err != nil {
		return Vendor{}, err
	}
	if input.Name != nil {
		v.Name = *input.Name
	}
	if input.Category != nil {
		v.Category = *input.Category
	}
	if input.ContactPerson != nil {
		v.ContactPerson = *input.ContactPerson
	}
	if input.Phone != nil {
		v.Phone = *input.Phone
	}
	if input.Email != nil {
		v.Email = *input.Email
	}
	if input.Address != nil {
		v.Address = *input.Address
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateProfile(ctx, v)
	})
	if err != nil {
		return Vendor{}, err
	}
	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  input.ActorID,
		Action:   "vendor.update",
		Entity:   "vendor",
		EntityID: strconv.FormatInt(v.ID, 10),
	})
	return v, nil
}

// DeleteVendor removes a vendor with no ledger history. The guard counts live
// transaction rows rather than trusting the denormalized counter.
func (s *Service) DeleteVendor(ctx context.Context, vendorID, actorID int64) error {
	unlock := s.locks.Lock(shared.VendorLockKey(vendorID))
	defer unlock()

	if _, err := s.repo.GetVendor(ctx, vendorID); err != nil {
		return err
	}
	n, err := s.repo.CountTransactions(ctx, vendorID)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %d transactions", ErrVendorHasHistory, n)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.DeleteVendor(ctx, vendorID)
	})
	if err != nil {
		return err
	}
	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   "vendor.delete",
		Entity:   "vendor",
		EntityID: strconv.FormatInt(vendorID, 10),
	})
	return nil
}

// RecordPayment settles part of the outstanding balance. The aggregate update
// and the expense ledger row commit together; the append does not loop back
// through OnExpenseCreated, which would double-count the balance.
func (s *Service) RecordPayment(ctx context.Context, input RecordPaymentInput) (Vendor, error) {
	unlock := s.locks.Lock(shared.VendorLockKey(input.VendorID))
	defer unlock()

	v, err := s.repo.GetVendor(ctx, input.VendorID)
	if err != nil {
		return Vendor{}, err
	}
	if input.Amount <= 0 || input.Amount > v.OutstandingBalance {
		return Vendor{}, fmt.Errorf("%w: amount %.2f, outstanding %.2f", ErrPaymentExceedsBalance, input.Amount, v.OutstandingBalance)
	}

	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	oldOutstanding := v.OutstandingBalance
	v.OutstandingBalance = s.floorZero(v.ID, v.OutstandingBalance-input.Amount)
	v.TotalPaid += input.Amount
	v.TotalTransactions++

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateAggregates(ctx, v.ID, v.OutstandingBalance, v.TotalPaid, v.TotalTransactions); err != nil {
			return err
		}
		return tx.AppendPaymentTransaction(ctx, PaymentEntry{
			VendorID:    v.ID,
			Amount:      input.Amount,
			Date:        paidAt,
			PaymentMode: input.Mode,
			Notes:       input.Notes,
			CreatedBy:   input.ActorID,
		})
	})
	if err != nil {
		return Vendor{}, err
	}

	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  input.ActorID,
		Action:   "vendor.payment",
		Entity:   "vendor",
		EntityID: strconv.FormatInt(v.ID, 10),
		Field:    "outstanding_balance",
		OldValue: strconv.FormatFloat(oldOutstanding, 'f', 2, 64),
		NewValue: strconv.FormatFloat(v.OutstandingBalance, 'f', 2, 64),
	})
	return v, nil
}

// OnExpenseCreated raises the vendor's outstanding balance when a new expense
// ledger row names the vendor.
func (s *Service) OnExpenseCreated(ctx context.Context, vendorID int64, amount float64) error {
	if vendorID == 0 {
		return nil
	}
	unlock := s.locks.Lock(shared.VendorLockKey(vendorID))
	defer unlock()
	return s.applyDelta(ctx, vendorID, amount, 1)
}

// OnExpenseAmountChanged compensates the aggregates when an expense row's
// amount or vendor changes. The old contribution is reversed and the new one
// applied; a zero vendor id on either side means no vendor was linked.
func (s *Service) OnExpenseAmountChanged(ctx context.Context, oldVendorID int64, oldAmount float64, newVendorID int64, newAmount float64) error {
	if oldVendorID == newVendorID {
		if oldVendorID == 0 {
			return nil
		}
		unlock := s.locks.Lock(shared.VendorLockKey(oldVendorID))
		defer unlock()
		// Two floored steps, not one net delta: when drift has pushed the
		// balance below the old amount, the subtraction floors at zero and
		// the new amount lands in full.
		if err := s.applyDelta(ctx, oldVendorID, -oldAmount, 0); err != nil {
			return err
		}
		return s.applyDelta(ctx, oldVendorID, newAmount, 0)
	}

	// Two distinct vendors: lock in ascending id order so concurrent
	// retargets cannot deadlock.
	first, second := oldVendorID, newVendorID
	if second != 0 && (first == 0 || second < first) {
		first, second = second, first
	}
	if first != 0 {
		unlock := s.locks.Lock(shared.VendorLockKey(first))
		defer unlock()
	}
	if second != 0 {
		unlock := s.locks.Lock(shared.VendorLockKey(second))
		defer unlock()
	}

	if oldVendorID != 0 {
		if err := s.applyDelta(ctx, oldVendorID, -oldAmount, 0); err != nil {
			return err
		}
	}
	if newVendorID != 0 {
		return s.applyDelta(ctx, newVendorID, newAmount, 0)
	}
	return nil
}

// OnExpenseDeleted reverses a deleted expense row's contribution.
func (s *Service) OnExpenseDeleted(ctx context.Context, vendorID int64, amount float64) error {
	if vendorID == 0 {
		return nil
	}
	unlock := s.locks.Lock(shared.VendorLockKey(vendorID))
	defer unlock()
	return s.applyDelta(ctx, vendorID, -amount, 0)
}

// GetVendor fetches one vendor.
func (s *Service) GetVendor(ctx context.Context, id int64) (Vendor, error) {
	return s.repo.GetVendor(ctx, id)
}

// ListVendors lists vendors with optional filters.
func (s *Service) ListVendors(ctx context.Context, req ListVendorsRequest) ([]Vendor, error) {
	return s.repo.ListVendors(ctx, req)
}

// applyDelta adjusts the outstanding balance by delta, flooring at zero, and
// bumps the transaction counter by countDelta. Callers hold the vendor lock.
func (s *Service) applyDelta(ctx context.Context, vendorID int64, delta float64, countDelta int64) error {
	v, err := s.repo.GetVendor(ctx, vendorID)
	if err != nil {
		return err
	}
	v.OutstandingBalance = s.floorZero(vendorID, v.OutstandingBalance+delta)
	v.TotalTransactions += countDelta
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateAggregates(ctx, vendorID, v.OutstandingBalance, v.TotalPaid, v.TotalTransactions)
	})
}

func (s *Service) floorZero(vendorID int64, balance float64) float64 {
	if balance >= 0 {
		return balance
	}
	if s.logger != nil {
		s.logger.Warn("vendor balance floored at zero",
			slog.Int64("vendor_id", vendorID),
			slog.Float64("computed", balance))
	}
	return 0
}
