package services

import (
	"context"

	"github.com/google/uuid"

	"incident-map/domain/models"
)

// DefaultAlertRadiusMeters applies when a caller passes a non-positive radius.
const DefaultAlertRadiusMeters = 4000.0

type RecipientSource string

const (
	SourceProximity RecipientSource = "proximity"
	SourceContact   RecipientSource = "contact"
	SourceBoth      RecipientSource = "both"
)

type AlertRecipient struct {
	UserID      uuid.UUID       `json:"user_id"`
	Username    string          `json:"username"`
	Email       string          `json:"email"`
	PhoneNumber string          `json:"phone_number"`
	Distance    *float64        `json:"distance,omitempty"` // meters; nil for contact-only recipients
	Source      RecipientSource `json:"source"`
}

type AlertResolution struct {
	Recipients []AlertRecipient `json:"recipients"`
	// Degraded is set when one of the two lookups failed and the list is partial.
	Degraded bool `json:"degraded"`
}

// AlertEvent is the payload handed to notification delivery.
type AlertEvent struct {
	ReportID   uuid.UUID        `json:"report_id"`
	CreatorID  uuid.UUID        `json:"creator_id"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	Longitude  float64          `json:"longitude"`
	Latitude   float64          `json:"latitude"`
	Recipients []AlertRecipient `json:"recipients"`
}

type AlertService interface {
	// ResolveAlertRecipients unions users near location with the creator's contacts,
	// once per user, preferring the proximity record.
	ResolveAlertRecipients(ctx context.Context, creatorID uuid.UUID, location models.GeoPoint, radiusMeters float64) (*AlertResolution, error)
	// DispatchAlert hands the event to the publisher and the live hub. Best-effort.
	DispatchAlert(ctx context.Context, report *models.Report, recipients []AlertRecipient) error
}

// AlertPublisher delivers alert events to the notification pipeline.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, event *AlertEvent) error
}

// AlertNotifier pushes alert events to recipients connected right now.
type AlertNotifier interface {
	NotifyUsers(userIDs []uuid.UUID, messageType string, payload interface{}) int
}
