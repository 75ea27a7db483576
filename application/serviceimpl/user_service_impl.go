package serviceimpl

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"incident-map/domain/models"
	"incident-map/domain/repositories"
	"incident-map/domain/services"
	"incident-map/pkg/geo"
	"incident-map/pkg/logger"
)

type UserServiceImpl struct {
	userRepo    repositories.UserRepository
	contactRepo repositories.ContactRepository
}

func NewUserService(userRepo repositories.UserRepository, contactRepo repositories.ContactRepository) services.UserService {
	return &UserServiceImpl{
		userRepo:    userRepo,
		contactRepo: contactRepo,
	}
}

func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, services.ErrUserNotFound)
	}
	return user, nil
}

func (s *UserServiceImpl) UpdateLocation(ctx context.Context, userID uuid.UUID, longitude, latitude float64) error {
	if !geo.ValidLonLat(longitude, latitude) {
		return fmt.Errorf("%w: invalid coordinates", services.ErrValidation)
	}
	if err := s.userRepo.UpdateLocation(ctx, userID, models.NewGeoPoint(longitude, latitude)); err != nil {
		return storeErr(err, services.ErrUserNotFound)
	}
	return nil
}

func (s *UserServiceImpl) AddContact(ctx context.Context, userID, contactID uuid.UUID) error {
	if userID == contactID {
		return fmt.Errorf("%w: cannot add yourself as a contact", services.ErrValidation)
	}
	if _, err := s.userRepo.GetByID(ctx, contactID); err != nil {
		return storeErr(err, services.ErrUserNotFound)
	}
	if err := s.contactRepo.Add(ctx, userID, contactID); err != nil {
		return fmt.Errorf("%w: add contact: %v", services.ErrUpstream, err)
	}

	logger.Info(logger.CategoryAPI, "contact_added", "Contact added", map[string]interface{}{
		"user_id":    userID.String(),
		"contact_id": contactID.String(),
	})
	return nil
}

func (s *UserServiceImpl) RemoveContact(ctx context.Context, userID, contactID uuid.UUID) error {
	if err := s.contactRepo.Remove(ctx, userID, contactID); err != nil {
		return storeErr(err, fmt.Errorf("%w: contact", services.ErrNotFound))
	}
	return nil
}

func (s *UserServiceImpl) ListContacts(ctx context.Context, userID uuid.UUID) ([]models.User, error) {
	contacts, err := s.contactRepo.ListContacts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list contacts: %v", services.ErrUpstream, err)
	}
	return contacts, nil
}
