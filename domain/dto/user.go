package dto

import (
	"time"

	"github.com/google/uuid"
)

type UpdateLocationRequest struct {
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
}

type UserResponse struct {
	ID                uuid.UUID  `json:"id"`
	Email             string     `json:"email"`
	Username          string     `json:"username"`
	PhoneNumber       string     `json:"phone_number"`
	Longitude         *float64   `json:"longitude,omitempty"`
	Latitude          *float64   `json:"latitude,omitempty"`
	LocationUpdatedAt *time.Time `json:"location_updated_at,omitempty"`
}
