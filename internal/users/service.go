package users

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/atrium-hms/atrium/internal/shared"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrDuplicateEmail  = errors.New("email already registered")
)

// Service manages staff accounts.
type Service struct {
	pool   *pgxpool.Pool
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService constructs a users Service.
func NewService(pool *pgxpool.Pool, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{pool: pool, audit: audit, logger: logger}
}

// CreateAccount registers an active account with a bcrypt password hash.
func (s *Service) CreateAccount(ctx context.Context, input CreateAccountInput) (Account, error) {
	if input.Email == "" {
		return Account{}, errors.New("email required")
	}
	if len(input.Password) < 8 {
		return Account{}, errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}

	var a Account
	now := time.Now()
	err = s.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, password_hash, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, true, $4, $4)
		 RETURNING id, email, name, is_active, created_at, updated_at`,
		input.Email, input.Name, string(hash), now).
		Scan(&a.ID, &a.Email, &a.Name, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, ErrDuplicateEmail
		}
		return Account{}, err
	}

	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  input.ActorID,
		Action:   "user.create",
		Entity:   "user",
		EntityID: strconv.FormatInt(a.ID, 10),
	})
	return a, nil
}

// UpdateAccount patches an account; password rotation rehashes.
func (s *Service) UpdateAccount(ctx context.Context, input UpdateAccountInput) (Account, error) {
	a, err := s.GetAccount(ctx, input.AccountID)
	if err != nil {
		return Account{}, err
	}
	if input.Email != nil {
		a.Email = *input.Email
	}
	if input.Name != nil {
		a.Name = *input.Name
	}
	if input.IsActive != nil {
		a.IsActive = *input.IsActive
	}

	var hash *string
	if input.Password != nil {
		if len(*input.Password) < 8 {
			return Account{}, errors.New("password must be at least 8 characters")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return Account{}, err
		}
		str := string(hashed)
		hash = &str
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE users SET email = $1, name = $2, is_active = $3,
		 password_hash = COALESCE($4, password_hash), updated_at = $5 WHERE id = $6`,
		a.Email, a.Name, a.IsActive, hash, time.Now(), a.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, ErrDuplicateEmail
		}
		return Account{}, err
	}

	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  input.ActorID,
		Action:   "user.update",
		Entity:   "user",
		EntityID: strconv.FormatInt(a.ID, 10),
	})
	return a, nil
}

// GetAccount fetches one account.
func (s *Service) GetAccount(ctx context.Context, id int64) (Account, error) {
	var a Account
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, is_active, created_at, updated_at FROM users WHERE id = $1`, id).
		Scan(&a.ID, &a.Email, &a.Name, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

// ListAccounts lists all accounts ordered by name.
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, email, name, is_active, created_at, updated_at FROM users ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Email, &a.Name, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
