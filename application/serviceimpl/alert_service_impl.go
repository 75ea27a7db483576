package serviceimpl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"incident-map/domain/models"
	"incident-map/domain/repositories"
	"incident-map/domain/services"
	"incident-map/pkg/geo"
	"incident-map/pkg/logger"
	"incident-map/pkg/retry"
)

const (
	alertTitle   = "Alert"
	alertMessage = "Incident occurred"

	// MessageTypeSOSAlert is the websocket message type for live SOS pushes.
	MessageTypeSOSAlert = "sos_alert"
)

type AlertSettings struct {
	RadiusMeters   float64
	ExcludeCreator bool
	QueryTimeout   time.Duration
}

type AlertServiceImpl struct {
	proximity   repositories.ProximityIndex
	contactRepo repositories.ContactRepository
	publisher   services.AlertPublisher
	notifier    services.AlertNotifier
	settings    AlertSettings
}

// NewAlertService wires the alert resolver. publisher and notifier may be nil.
func NewAlertService(
	proximity repositories.ProximityIndex,
	contactRepo repositories.ContactRepository,
	publisher services.AlertPublisher,
	notifier services.AlertNotifier,
	settings AlertSettings,
) services.AlertService {
	if settings.RadiusMeters <= 0 {
		settings.RadiusMeters = services.DefaultAlertRadiusMeters
	}
	return &AlertServiceImpl{
		proximity:   proximity,
		contactRepo: contactRepo,
		publisher:   publisher,
		notifier:    notifier,
		settings:    settings,
	}
}

func (s *AlertServiceImpl) ResolveAlertRecipients(ctx context.Context, creatorID uuid.UUID, location models.GeoPoint, radiusMeters float64) (*services.AlertResolution, error) {
	if !geo.ValidLonLat(location.Lon, location.Lat) {
		return nil, fmt.Errorf("%w: invalid emergency location", services.ErrValidation)
	}
	if radiusMeters <= 0 {
		radiusMeters = s.settings.RadiusMeters
	}

	var (
		wg               sync.WaitGroup
		nearby           []models.NearbyUser
		contacts         []models.User
		nearErr, contErr error
	)

	// Both lookups are pure reads and run side by side.
	wg.Add(2)
	go func() {
		defer wg.Done()
		nearby, nearErr = retry.Once(ctx, s.settings.QueryTimeout, func(ctx context.Context) ([]models.NearbyUser, error) {
			return s.proximity.UsersWithinRadius(ctx, location, radiusMeters)
		})
	}()
	go func() {
		defer wg.Done()
		contacts, contErr = retry.Once(ctx, s.settings.QueryTimeout, func(ctx context.Context) ([]models.User, error) {
			return s.contactRepo.ListContacts(ctx, creatorID)
		})
	}()
	wg.Wait()

	if nearErr != nil {
		logger.AlertError("proximity_failed", "Proximity lookup failed, continuing with contacts", nearErr, map[string]interface{}{
			"creator_id": creatorID.String(),
			"radius":     radiusMeters,
		})
	}
	if contErr != nil {
		logger.AlertError("contacts_failed", "Contact lookup failed", contErr, map[string]interface{}{"creator_id": creatorID.String()})
	}
	if nearErr != nil && contErr != nil {
		return nil, fmt.Errorf("%w: alert recipients: %v", services.ErrUpstream, errors.Join(nearErr, contErr))
	}

	recipients := mergeRecipients(nearby, contacts)
	if s.settings.ExcludeCreator {
		recipients = withoutUser(recipients, creatorID)
	}

	logger.Alert("recipients_resolved", "Alert recipients resolved", map[string]interface{}{
		"creator_id": creatorID.String(),
		"nearby":     len(nearby),
		"contacts":   len(contacts),
		"recipients": len(recipients),
	})

	return &services.AlertResolution{
		Recipients: recipients,
		Degraded:   nearErr != nil || contErr != nil,
	}, nil
}

// mergeRecipients unions both lists keyed by user id. The proximity record wins
// because it carries the distance.
func mergeRecipients(nearby []models.NearbyUser, contacts []models.User) []services.AlertRecipient {
	out := make([]services.AlertRecipient, 0, len(nearby)+len(contacts))
	seen := make(map[uuid.UUID]int, len(nearby)+len(contacts))

	for _, n := range nearby {
		if _, dup := seen[n.ID]; dup {
			continue
		}
		d := n.DistanceMeters
		seen[n.ID] = len(out)
		out = append(out, recipientFromUser(&n.User, &d, services.SourceProximity))
	}

	for i := range contacts {
		c := &contacts[i]
		if idx, dup := seen[c.ID]; dup {
			if out[idx].Source == services.SourceProximity {
				out[idx].Source = services.SourceBoth
			}
			continue
		}
		seen[c.ID] = len(out)
		out = append(out, recipientFromUser(c, nil, services.SourceContact))
	}

	return out
}

func recipientFromUser(u *models.User, distance *float64, source services.RecipientSource) services.AlertRecipient {
	return services.AlertRecipient{
		UserID:      u.ID,
		Username:    u.Username,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Distance:    distance,
		Source:      source,
	}
}

func withoutUser(recipients []services.AlertRecipient, userID uuid.UUID) []services.AlertRecipient {
	out := recipients[:0]
	for _, r := range recipients {
		if r.UserID != userID {
			out = append(out, r)
		}
	}
	return out
}

func (s *AlertServiceImpl) DispatchAlert(ctx context.Context, report *models.Report, recipients []services.AlertRecipient) error {
	event := &services.AlertEvent{
		ReportID:   report.ID,
		CreatorID:  report.UserID,
		Title:      alertTitle,
		Message:    alertMessage,
		Longitude:  report.Location.Lon,
		Latitude:   report.Location.Lat,
		Recipients: recipients,
	}

	var publishErr error
	if s.publisher != nil {
		if publishErr = s.publisher.PublishAlert(ctx, event); publishErr != nil {
			logger.AlertError("publish_failed", "Failed to publish alert event", publishErr, map[string]interface{}{"report_id": report.ID.String()})
		}
	}

	delivered := 0
	if s.notifier != nil && len(recipients) > 0 {
		ids := make([]uuid.UUID, len(recipients))
		for i, r := range recipients {
			ids[i] = r.UserID
		}
		delivered = s.notifier.NotifyUsers(ids, MessageTypeSOSAlert, event)
	}

	logger.Alert("dispatched", "Alert dispatched", map[string]interface{}{
		"report_id":  report.ID.String(),
		"recipients": len(recipients),
		"live":       delivered,
	})

	if publishErr != nil {
		return fmt.Errorf("%w: dispatch alert: %v", services.ErrUpstream, publishErr)
	}
	return nil
}
