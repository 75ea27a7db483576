package repositories

import (
	"context"

	"github.com/google/uuid"

	"incident-map/domain/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, location models.GeoPoint) error
	// ListWithLocation returns every user that has shared a location.
	ListWithLocation(ctx context.Context) ([]models.User, error)
	List(ctx context.Context, offset, limit int) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
}

type ContactRepository interface {
	// Add inserts the user->contact edge; an existing edge is not an error.
	Add(ctx context.Context, userID, contactID uuid.UUID) error
	Remove(ctx context.Context, userID, contactID uuid.UUID) error
	// ListContacts returns the users that userID has listed as contacts.
	ListContacts(ctx context.Context, userID uuid.UUID) ([]models.User, error)
}
