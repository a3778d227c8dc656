package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/bogdanivan12/odes/internal/dto"
	"github.com/bogdanivan12/odes/internal/models"
	appErrors "github.com/bogdanivan12/odes/pkg/errors"
)

type roomStore interface {
	ListByInstitution(ctx context.Context, institutionID string) ([]models.Room, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, room *models.Room) error
	Delete(ctx context.Context, institutionID, id string) error
}

// RoomService manages rooms within an institution.
type RoomService struct {
	rooms        roomStore
	institutions institutionReader
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewRoomService constructs a RoomService.
func NewRoomService(rooms roomStore, institutions institutionReader, validate *validator.Validate, logger *zap.Logger) *RoomService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RoomService{rooms: rooms, institutions: institutions, validator: validate, logger: logger}
}

// Create registers a room under the institution.
func (s *RoomService) Create(ctx context.Context, institutionID string, req dto.CreateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	if err := s.checkInstitution(ctx, institutionID); err != nil {
		return nil, err
	}
	room := &models.Room{
		InstitutionID: institutionID,
		Name:          req.Name,
		Capacity:      req.Capacity,
		Features:      pq.StringArray(req.Features),
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to create room")
	}
	return room, nil
}

// List returns all rooms of the institution.
func (s *RoomService) List(ctx context.Context, institutionID string) ([]models.Room, error) {
	rooms, err := s.rooms.ListByInstitution(ctx, institutionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	return rooms, nil
}

// Get returns one room scoped to the institution.
func (s *RoomService) Get(ctx context.Context, institutionID, id string) (*models.Room, error) {
	room, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	if room.InstitutionID != institutionID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
	}
	return room, nil
}

// Update replaces a room's mutable fields.
func (s *RoomService) Update(ctx context.Context, institutionID, id string, req dto.UpdateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	room, err := s.Get(ctx, institutionID, id)
	if err != nil {
		return nil, err
	}
	room.Name = req.Name
	room.Capacity = req.Capacity
	room.Features = pq.StringArray(req.Features)
	if err := s.rooms.Update(ctx, room); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to update room")
	}
	return room, nil
}

// Delete removes a room.
func (s *RoomService) Delete(ctx context.Context, institutionID, id string) error {
	if err := s.rooms.Delete(ctx, institutionID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to delete room")
	}
	return nil
}

func (s *RoomService) checkInstitution(ctx context.Context, institutionID string) error {
	if _, err := s.institutions.FindByID(ctx, institutionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institution")
	}
	return nil
}
