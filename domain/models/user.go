package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID          uuid.UUID `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Email       string    `gorm:"uniqueIndex;not null"`
	PhoneNumber string    `gorm:"uniqueIndex;size:15"`
	Username    string    `gorm:"not null"`
	Role        string    `gorm:"default:'user'"`

	// Last reported position; nil until the user shares one
	CurrentLocation   *GeoPoint `gorm:"type:geometry(Point,4326)"`
	LocationUpdatedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// Relations
	Reports  []Report      `gorm:"foreignKey:UserID"`
	Contacts []UserContact `gorm:"foreignKey:UserID"`
}

func (User) TableName() string {
	return "users"
}

// UserContact is a directed "user lists contact" edge.
type UserContact struct {
	UserID    uuid.UUID `gorm:"primaryKey;type:uuid"`
	ContactID uuid.UUID `gorm:"primaryKey;type:uuid;index"`
	CreatedAt time.Time

	User    *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Contact *User `gorm:"foreignKey:ContactID;constraint:OnDelete:CASCADE"`
}

func (UserContact) TableName() string {
	return "user_contacts"
}

// NearbyUser is a user found by a proximity query, with its great-circle distance.
type NearbyUser struct {
	User
	DistanceMeters float64
}
