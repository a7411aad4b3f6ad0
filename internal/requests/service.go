package requests

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
	ErrRequestNotFound   = errors.New("service request not found")
	ErrInvalidTransition = errors.New("invalid service request status transition")
)

// Service manages housekeeping and maintenance requests.
type Service struct {
	repo   Repository
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService constructs a requests Service.
func NewService(repo Repository, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// CreateRequest opens a service request.
func (s *Service) CreateRequest(ctx context.Context, input CreateRequestInput) (ServiceRequest, error) {
	if input.RoomID == 0 {
		return ServiceRequest{}, errors.New("room id required")
	}
	if input.Type == "" {
		return ServiceRequest{}, errors.New("request type required")
	}
	priority := input.Priority
	if priority == "" {
		priority = "normal"
	}
	id, err := s.repo.CreateRequest(ctx, ServiceRequest{
		RoomID:      input.RoomID,
		GuestID:     input.GuestID,
		Type:        input.Type,
		Priority:    priority,
		Description: input.Description,
		Status:      StatusOpen,
		CreatedBy:   input.ActorID,
	})
	if err != nil {
		return ServiceRequest{}, err
	}
	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  input.ActorID,
		Action:   "request.create",
		Entity:   "service_request",
		EntityID: strconv.FormatInt(id, 10),
	})
	return s.repo.GetRequest(ctx, id)
}

// Assign hands the request to a staff member and moves it in progress.
func (s *Service) Assign(ctx context.Context, requestID, staffID, actorID int64) (ServiceRequest, error) {
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return ServiceRequest{}, err
	}
	if req.Status == StatusResolved || req.Status == StatusCancelled {
		return ServiceRequest{}, fmt.Errorf("%w: request is %s", ErrInvalidTransition, req.Status)
	}
	req.AssignedTo = staffID
	req.Status = StatusInProgress
	if err := s.repo.UpdateRequest(ctx, req); err != nil {
		return ServiceRequest{}, err
	}
	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   "request.assign",
		Entity:   "service_request",
		EntityID: strconv.FormatInt(req.ID, 10),
		Field:    "assigned_to",
		NewValue: strconv.FormatInt(staffID, 10),
	})
	return req, nil
}

// SetStatus transitions a request. Resolving stamps the resolution time.
func (s *Service) SetStatus(ctx context.Context, requestID int64, status string, actorID int64) (ServiceRequest, error) {
	switch status {
	case StatusOpen, StatusInProgress, StatusResolved, StatusCancelled:
	default:
		return ServiceRequest{}, fmt.Errorf("%w: unknown status %s", ErrInvalidTransition, status)
	}
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return ServiceRequest{}, err
	}
	if req.Status == status {
		return req, nil
	}
	old := req.Status
	req.Status = status
	if status == StatusResolved {
		now := time.Now()
		req.ResolvedAt = &now
	} else {
		req.ResolvedAt = nil
	}
	if err := s.repo.UpdateRequest(ctx, req); err != nil {
		return ServiceRequest{}, err
	}
	s.audit.RecordChange(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   "request.status",
		Entity:   "service_request",
		EntityID: strconv.FormatInt(req.ID, 10),
		Field:    "status",
		OldValue: old,
		NewValue: status,
	})
	return req, nil
}

// GetRequest fetches one service request.
func (s *Service) GetRequest(ctx context.Context, id int64) (ServiceRequest, error) {
	return s.repo.GetRequest(ctx, id)
}

// ListRequests lists service requests with optional filters.
func (s *Service) ListRequests(ctx context.Context, req ListRequestsRequest) ([]ServiceRequest, error) {
	return s.repo.ListRequests(ctx, req)
}
