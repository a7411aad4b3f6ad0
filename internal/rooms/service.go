package rooms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/atrium-hms/atrium/internal/shared"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrDuplicateRoomNumber = errors.New("room number already exists")
	ErrInvalidStatus       = errors.New("invalid room status")
)

// Service manages the room inventory.
type Service struct {
	repo   Repository
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService constructs a rooms Service.
func NewService(repo Repository, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// CreateRoom registers a room, available by default.
func (s *Service) CreateRoom(ctx context.Context, input CreateRoomInput) (Room, error) {
	if input.Number == "" {
		return Room{}, errors.New("room number required")
	}
	if input.RatePerNight < 0 {
		return Room{}, errors.New("rate per night must not be negative")
	}
	id, err := s.repo.CreateRoom(ctx, Room{
		Number:       input.Number,
		Type:         input.Type,
		Floor:        input.Floor,
		Capacity:     input.Capacity,
		RatePerNight: input.RatePerNight,
		Status:       StatusAvailable,
		Description:  input.Description,
	})
	if err != nil {
		return Room{}, err
	}
	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  input.ActorID,
		Action:   "room.create",
		Entity:   "room",
		EntityID: strconv.FormatInt(id, 10),
	})
	return s.repo.GetRoom(ctx, id)
}

// UpdateRoom patches room fields.
func (s *Service) UpdateRoom(ctx context.Context, input UpdateRoomInput) (Room, error) {
	room, err := s.repo.GetRoom(ctx, input.RoomID)
	if err != nil {
		return Room{}, err
	}
	if input.Number != nil {
		room.Number = *input.Number
	}
	if input.Type != nil {
		room.Type = *input.Type
	}
	if input.Floor != nil {
		room.Floor = *input.Floor
	}
	if input.Capacity != nil {
		room.Capacity = *input.Capacity
	}
	if input.RatePerNight != nil {
		if *input.RatePerNight < 0 {
			return Room{}, errors.New("rate per night must not be negative")
		}
		room.RatePerNight = *input.RatePerNight
	}
	if input.Status != nil {
		if !validStatus(*input.Status) {
			return Room{}, fmt.Errorf("%w: %s", ErrInvalidStatus, *input.Status)
		}
		room.Status = *input.Status
	}
	if input.Description != nil {
		room.Description = *input.Description
	}
	if err := s.repo.UpdateRoom(ctx, room); err != nil {
		return Room{}, err
	}
	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  input.ActorID,
		Action:   "room.update",
		Entity:   "room",
		EntityID: strconv.FormatInt(room.ID, 10),
	})
	return room, nil
}

// DeleteRoom removes a room from the inventory.
func (s *Service) DeleteRoom(ctx context.Context, roomID, actorID int64) error {
	if err := s.repo.DeleteRoom(ctx, roomID); err != nil {
		return err
	}
	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   "room.delete",
		Entity:   "room",
		EntityID: strconv.FormatInt(roomID, 10),
	})
	return nil
}

// SetStatus transitions a room's occupancy status.
func (s *Service) SetStatus(ctx context.Context, roomID int64, status string, actorID int64) error {
	if !validStatus(status) {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	old, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if err := s.repo.SetStatus(ctx, roomID, status); err != nil {
		return err
	}
	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   "room.status",
		Entity:   "room",
		EntityID: strconv.FormatInt(roomID, 10),
		Field:    "status",
		OldValue: old.Status,
		NewValue: status,
	})
	return nil
}

// GetRoom fetches one room.
func (s *Service) GetRoom(ctx context.Context, id int64) (Room, error) {
	return s.repo.GetRoom(ctx, id)
}

// ListRooms lists rooms with optional filters.
func (s *Service) ListRooms(ctx context.Context, req ListRoomsRequest) ([]Room, error) {
	return s.repo.ListRooms(ctx, req)
}

func validStatus(status string) bool {
	switch status {
	case StatusAvailable, StatusOccupied, StatusMaintenance:
		return true
	}
	return false
}
