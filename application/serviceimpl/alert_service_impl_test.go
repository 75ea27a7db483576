package serviceimpl

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"incident-map/domain/models"
	"incident-map/domain/services"
)

type stubProximity struct {
	mu     sync.Mutex
	users  []models.NearbyUser
	err    error
	radius float64
	calls  int
}

func (s *stubProximity) UsersWithinRadius(ctx context.Context, center models.GeoPoint, radiusMeters float64) ([]models.NearbyUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.radius = radiusMeters
	return s.users, s.err
}

type stubContacts struct {
	mu    sync.Mutex
	users []models.User
	err   error
	calls int
}

func (s *stubContacts) Add(ctx context.Context, userID, contactID uuid.UUID) error    { return nil }
func (s *stubContacts) Remove(ctx context.Context, userID, contactID uuid.UUID) error { return nil }

func (s *stubContacts) ListContacts(ctx context.Context, userID uuid.UUID) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.users, s.err
}

type stubPublisher struct {
	events []*services.AlertEvent
	err    error
}

func (s *stubPublisher) PublishAlert(ctx context.Context, event *services.AlertEvent) error {
	s.events = append(s.events, event)
	return s.err
}

type stubNotifier struct {
	userIDs     []uuid.UUID
	messageType string
}

func (s *stubNotifier) NotifyUsers(userIDs []uuid.UUID, messageType string, payload interface{}) int {
	s.userIDs = userIDs
	s.messageType = messageType
	return len(userIDs)
}

func nearby(id uuid.UUID, name string, meters float64) models.NearbyUser {
	return models.NearbyUser{User: models.User{ID: id, Username: name}, DistanceMeters: meters}
}

func TestResolveAlertRecipientsUnion(t *testing.T) {
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	// N=3 nearby, M=2 contacts, K=1 overlap (b) -> 4 recipients.
	prox := &stubProximity{users: []models.NearbyUser{nearby(a, "a", 100), nearby(b, "b", 3000), nearby(c, "c", 3900)}}
	contacts := &stubContacts{users: []models.User{{ID: b, Username: "b"}, {ID: d, Username: "d"}}}
	svc := NewAlertService(prox, contacts, nil, nil, AlertSettings{})

	res, err := svc.ResolveAlertRecipients(context.Background(), uuid.New(), models.NewGeoPoint(100.5, 13.7), 0)
	if err != nil {
		t.Fatalf("ResolveAlertRecipients: %v", err)
	}
	if res.Degraded {
		t.Error("Degraded set with both lookups healthy")
	}
	if len(res.Recipients) != 4 {
		t.Fatalf("got %d recipients, want 4: %+v", len(res.Recipients), res.Recipients)
	}
	if prox.radius != services.DefaultAlertRadiusMeters {
		t.Errorf("radius = %f, want default %f", prox.radius, services.DefaultAlertRadiusMeters)
	}

	seen := map[uuid.UUID]services.AlertRecipient{}
	for _, r := range res.Recipients {
		if _, dup := seen[r.UserID]; dup {
			t.Fatalf("%s listed twice", r.Username)
		}
		seen[r.UserID] = r
	}

	both := seen[b]
	if both.Source != services.SourceBoth || both.Distance == nil || *both.Distance != 3000 {
		t.Errorf("overlapping recipient should keep proximity record: %+v", both)
	}
	if seen[d].Source != services.SourceContact || seen[d].Distance != nil {
		t.Errorf("contact-only recipient = %+v", seen[d])
	}
}

func TestResolveAlertRecipientsDegrades(t *testing.T) {
	contact := uuid.New()

	prox := &stubProximity{err: errBoom}
	contacts := &stubContacts{users: []models.User{{ID: contact}}}
	svc := NewAlertService(prox, contacts, nil, nil, AlertSettings{})

	res, err := svc.ResolveAlertRecipients(context.Background(), uuid.New(), models.NewGeoPoint(0, 0), 4000)
	if err != nil {
		t.Fatalf("proximity failure should degrade, got %v", err)
	}
	if !res.Degraded || len(res.Recipients) != 1 || res.Recipients[0].UserID != contact {
		t.Errorf("res = %+v", res)
	}
	if prox.calls != 2 {
		t.Errorf("proximity read attempted %d times, want 2", prox.calls)
	}
}

func TestResolveAlertRecipientsBothFail(t *testing.T) {
	svc := NewAlertService(&stubProximity{err: errBoom}, &stubContacts{err: errBoom}, nil, nil, AlertSettings{})

	_, err := svc.ResolveAlertRecipients(context.Background(), uuid.New(), models.NewGeoPoint(0, 0), 4000)
	if !errors.Is(err, services.ErrUpstream) {
		t.Errorf("err = %v, want ErrUpstream", err)
	}
}

func TestResolveAlertRecipientsRejectsBadLocation(t *testing.T) {
	prox := &stubProximity{}
	svc := NewAlertService(prox, &stubContacts{}, nil, nil, AlertSettings{})

	_, err := svc.ResolveAlertRecipients(context.Background(), uuid.New(), models.NewGeoPoint(200, 0), 4000)
	if !errors.Is(err, services.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
	if prox.calls != 0 {
		t.Error("query issued for invalid location")
	}
}

func TestResolveAlertRecipientsCreatorPolicy(t *testing.T) {
	creator := uuid.New()
	prox := &stubProximity{users: []models.NearbyUser{nearby(creator, "me", 0)}}

	keep := NewAlertService(prox, &stubContacts{}, nil, nil, AlertSettings{})
	res, _ := keep.ResolveAlertRecipients(context.Background(), creator, models.NewGeoPoint(0, 0), 4000)
	if len(res.Recipients) != 1 {
		t.Errorf("creator should be kept by default: %+v", res.Recipients)
	}

	exclude := NewAlertService(prox, &stubContacts{}, nil, nil, AlertSettings{ExcludeCreator: true})
	res, _ = exclude.ResolveAlertRecipients(context.Background(), creator, models.NewGeoPoint(0, 0), 4000)
	if len(res.Recipients) != 0 {
		t.Errorf("creator should be excluded: %+v", res.Recipients)
	}
}

func TestDispatchAlert(t *testing.T) {
	pub := &stubPublisher{}
	notifier := &stubNotifier{}
	svc := NewAlertService(&stubProximity{}, &stubContacts{}, pub, notifier, AlertSettings{})

	report := &models.Report{ID: uuid.New(), UserID: uuid.New(), Location: models.NewGeoPoint(1, 2)}
	recipients := []services.AlertRecipient{{UserID: uuid.New()}, {UserID: uuid.New()}}

	if err := svc.DispatchAlert(context.Background(), report, recipients); err != nil {
		t.Fatalf("DispatchAlert: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("published %d events", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Title != "Alert" || ev.ReportID != report.ID || ev.Longitude != 1 || len(ev.Recipients) != 2 {
		t.Errorf("event = %+v", ev)
	}
	if notifier.messageType != MessageTypeSOSAlert || len(notifier.userIDs) != 2 {
		t.Errorf("notifier got %q %v", notifier.messageType, notifier.userIDs)
	}

	pub.err = errBoom
	if err := svc.DispatchAlert(context.Background(), report, recipients); !errors.Is(err, services.ErrUpstream) {
		t.Errorf("publish failure: err = %v", err)
	}
}
