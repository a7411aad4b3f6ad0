package guests

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/atrium-hms/atrium/internal/shared"
)

var ErrGuestNotFound = errors.New("guest not found")

// Service manages the guest registry.
type Service struct {
	repo   Repository
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService constructs a guests Service.
func NewService(repo Repository, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// CreateGuest registers a guest.
func (s *Service) CreateGuest(ctx context.Context, input CreateGuestInput) (Guest, error) {
	if input.FirstName == "" && input.LastName == "" {
		return Guest{}, errors.New("guest name required")
	}
	id, err := s.repo.CreateGuest(ctx, Guest{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Phone:     input.Phone,
		IDType:    input.IDType,
		IDNumber:  input.IDNumber,
		Address:   input.Address,
		Notes:     input.Notes,
	})
	if err != nil {
		return Guest{}, err
	}
	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  input.ActorID,
		Action:   "guest.create",
		Entity:   "guest",
		EntityID: strconv.FormatInt(id, 10),
	})
	return s.repo.GetGuest(ctx, id)
}

// UpdateGuest patches guest fields.
func (s *Service) UpdateGuest(ctx context.Context, input UpdateGuestInput) (Guest, error) {
	g, err := s.repo.GetGuest(ctx, input.GuestID)
	if err != nil {
		return Guest{}, err
	}
	if input.FirstName != nil {
		g.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		g.LastName = *input.LastName
	}
	if input.Email != nil {
		g.Email = *input.Email
	}
	if input.Phone != nil {
		g.Phone = *input.Phone
	}
	if input.IDType != nil {
		g.IDType = *input.IDType
	}
	if input.IDNumber != nil {
		g.IDNumber = *input.IDNumber
	}
	if input.Address != nil {
		g.Address = *input.Address
	}
	if input.Notes != nil {
		g.Notes = *input.Notes
	}
	if err := s.repo.UpdateGuest(ctx, g); err != nil {
		return Guest{}, err
	}
	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  input.ActorID,
		Action:   "guest.update",
		Entity:   "guest",
		EntityID: strconv.FormatInt(g.ID, 10),
	})
	return g, nil
}

// DeleteGuest removes a guest record.
func (s *Service) DeleteGuest(ctx context.Context, guestID, actorID int64) error {
	if err := s.repo.DeleteGuest(ctx, guestID); err != nil {
		return err
	}
	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   "guest.delete",
		Entity:   "guest",
		EntityID: strconv.FormatInt(guestID, 10),
	})
	return nil
}

// GetGuest fetches one guest.
func (s *Service) GetGuest(ctx context.Context, id int64) (Guest, error) {
	return s.repo.GetGuest(ctx, id)
}

// ListGuests lists guests with optional search.
func (s *Service) ListGuests(ctx context.Context, req ListGuestsRequest) ([]Guest, error) {
	return s.repo.ListGuests(ctx, req)
}
