package services

import (
	"context"

	"github.com/google/uuid"

	"incident-map/domain/models"
)

type UserService interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateLocation(ctx context.Context, userID uuid.UUID, longitude, latitude float64) error
	AddContact(ctx context.Context, userID, contactID uuid.UUID) error
	RemoveContact(ctx context.Context, userID, contactID uuid.UUID) error
	ListContacts(ctx context.Context, userID uuid.UUID) ([]models.User, error)
}
