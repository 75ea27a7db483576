package serviceimpl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"incident-map/domain/models"
	"incident-map/domain/services"
)

type reportFixture struct {
	reports  *fakeReportRepo
	images   *fakeImageRepo
	index    *fakeEmbeddingIndex
	storage  *fakeStorage
	clusters *fakeClusterService
	alerts   *fakeAlertService
	svc      services.ReportService
	actor    uuid.UUID
}

func newReportFixture() *reportFixture {
	f := &reportFixture{
		reports:  newFakeReportRepo(),
		index:    &fakeEmbeddingIndex{},
		storage:  &fakeStorage{},
		clusters: &fakeClusterService{},
		alerts:   &fakeAlertService{resolution: &services.AlertResolution{Recipients: []services.AlertRecipient{{UserID: uuid.New()}}}},
		actor:    uuid.New(),
	}
	f.images = newFakeImageRepo(f.reports)
	f.svc = NewReportService(f.reports, f.images, f.index, f.storage, f.clusters, f.alerts, ReportSettings{ReclusterTimeout: time.Minute})
	return f
}

func (f *reportFixture) create(t *testing.T, reportType models.ReportType) *models.Report {
	t.Helper()
	res, err := f.svc.CreateReport(context.Background(), f.actor, &services.CreateReportRequest{
		Name:      "Fire",
		Type:      reportType,
		Longitude: 100.5,
		Latitude:  13.7,
	})
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	return res.Report
}

func TestCreateNormalReport(t *testing.T) {
	f := newReportFixture()

	res, err := f.svc.CreateReport(context.Background(), f.actor, &services.CreateReportRequest{Name: "Pothole", Longitude: 1, Latitude: 2})
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	if res.Report.Type != models.ReportTypeNormal || res.Report.ClusterID != models.NoiseClusterID {
		t.Errorf("report = %+v", res.Report)
	}
	if f.clusters.calls != 1 {
		t.Errorf("recluster calls = %d, want 1", f.clusters.calls)
	}
	if f.alerts.resolved != 0 || res.AlertRecipients != nil {
		t.Error("alert resolution ran for a normal report")
	}
}

func TestCreateSOSReportResolvesAlerts(t *testing.T) {
	f := newReportFixture()

	res, err := f.svc.CreateReport(context.Background(), f.actor, &services.CreateReportRequest{Name: "Help", Type: models.ReportTypeSOS, Longitude: 1, Latitude: 2})
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	if len(res.AlertRecipients) != 1 || res.AlertDegraded {
		t.Errorf("result = %+v", res)
	}
	if f.alerts.dispatched != 1 {
		t.Errorf("dispatched = %d", f.alerts.dispatched)
	}
}

func TestCreateSOSReportSurvivesAlertFailure(t *testing.T) {
	f := newReportFixture()
	f.alerts.err = services.ErrUpstream

	res, err := f.svc.CreateReport(context.Background(), f.actor, &services.CreateReportRequest{Name: "Help", Type: models.ReportTypeSOS, Longitude: 1, Latitude: 2})
	if err != nil {
		t.Fatalf("alert failure must not fail creation: %v", err)
	}
	if !res.AlertDegraded {
		t.Error("AlertDegraded not set")
	}
	if _, err := f.reports.GetByID(context.Background(), res.Report.ID); err != nil {
		t.Error("report rolled back")
	}
}

func TestCreateReportSurvivesReclusterFailure(t *testing.T) {
	f := newReportFixture()
	f.clusters.err = services.ErrUpstream

	if _, err := f.svc.CreateReport(context.Background(), f.actor, &services.CreateReportRequest{Name: "x", Longitude: 0, Latitude: 0}); err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
}

func TestCreateReportReclustersDetachedFromCaller(t *testing.T) {
	f := newReportFixture()
	ctx, cancel := context.WithCancel(context.Background())
	// The caller is already gone by the time clustering runs.
	cancel()

	if _, err := f.svc.CreateReport(ctx, f.actor, &services.CreateReportRequest{Name: "x", Longitude: 0, Latitude: 0}); err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	if f.clusters.ctxErr != nil {
		t.Errorf("recluster saw cancelled context: %v", f.clusters.ctxErr)
	}
}

func TestCreateReportValidation(t *testing.T) {
	f := newReportFixture()

	tests := []struct {
		name string
		req  services.CreateReportRequest
	}{
		{"missing name", services.CreateReportRequest{Longitude: 0, Latitude: 0}},
		{"bad type", services.CreateReportRequest{Name: "x", Type: "panic"}},
		{"longitude out of range", services.CreateReportRequest{Name: "x", Longitude: 190}},
		{"latitude out of range", services.CreateReportRequest{Name: "x", Latitude: -95}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			if _, err := f.svc.CreateReport(context.Background(), f.actor, &req); !errors.Is(err, services.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
	if f.clusters.calls != 0 {
		t.Error("recluster ran for rejected input")
	}
}

func TestUpdateReportReclustersOnlyOnMove(t *testing.T) {
	f := newReportFixture()
	report := f.create(t, models.ReportTypeNormal)
	f.clusters.calls = 0

	name := "Fire (contained)"
	updated, err := f.svc.UpdateReport(context.Background(), f.actor, report.ID, &services.UpdateReportRequest{Name: &name})
	if err != nil {
		t.Fatalf("UpdateReport: %v", err)
	}
	if updated.Name != name || f.clusters.calls != 0 {
		t.Errorf("metadata edit: name=%q recluster calls=%d", updated.Name, f.clusters.calls)
	}

	sameLon, sameLat := 100.5, 13.7
	if _, err := f.svc.UpdateReport(context.Background(), f.actor, report.ID, &services.UpdateReportRequest{Longitude: &sameLon, Latitude: &sameLat}); err != nil {
		t.Fatalf("UpdateReport: %v", err)
	}
	if f.clusters.calls != 0 {
		t.Error("unchanged location triggered recluster")
	}

	lon, lat := 101.0, 14.0
	moved, err := f.svc.UpdateReport(context.Background(), f.actor, report.ID, &services.UpdateReportRequest{Longitude: &lon, Latitude: &lat})
	if err != nil {
		t.Fatalf("UpdateReport: %v", err)
	}
	if moved.Location != models.NewGeoPoint(101, 14) || f.clusters.calls != 1 {
		t.Errorf("move: location=%+v recluster calls=%d", moved.Location, f.clusters.calls)
	}
}

func TestUpdateReportRules(t *testing.T) {
	f := newReportFixture()
	report := f.create(t, models.ReportTypeNormal)
	name := "x"
	lon := 5.0

	if _, err := f.svc.UpdateReport(context.Background(), uuid.New(), report.ID, &services.UpdateReportRequest{Name: &name}); !errors.Is(err, services.ErrForbidden) {
		t.Errorf("non-owner: err = %v", err)
	}
	if _, err := f.svc.UpdateReport(context.Background(), f.actor, report.ID, &services.UpdateReportRequest{Longitude: &lon}); !errors.Is(err, services.ErrValidation) {
		t.Errorf("lon without lat: err = %v", err)
	}
	if _, err := f.svc.UpdateReport(context.Background(), f.actor, uuid.New(), &services.UpdateReportRequest{Name: &name}); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("missing report: err = %v", err)
	}

	stored, _ := f.reports.GetByID(context.Background(), report.ID)
	if stored.Name != "Fire" {
		t.Errorf("rejected update mutated the report: %+v", stored)
	}
}

func TestDeleteReport(t *testing.T) {
	f := newReportFixture()
	report := f.create(t, models.ReportTypeNormal)
	img := &models.ReportImage{ReportID: report.ID, ImageURL: "http://objects/a.jpg"}
	_ = f.images.Create(context.Background(), img)
	f.clusters.calls = 0

	if err := f.svc.DeleteReport(context.Background(), uuid.New(), report.ID); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("non-owner: err = %v", err)
	}
	if f.clusters.calls != 0 {
		t.Error("recluster after a rejected delete")
	}

	if err := f.svc.DeleteReport(context.Background(), f.actor, report.ID); err != nil {
		t.Fatalf("DeleteReport: %v", err)
	}
	if f.clusters.calls != 1 {
		t.Errorf("recluster calls = %d, want 1", f.clusters.calls)
	}
	if len(f.storage.deleted) != 1 || len(f.index.removed) != 1 {
		t.Errorf("image cleanup: deleted=%v removed=%v", f.storage.deleted, f.index.removed)
	}
	if _, err := f.svc.GetReport(context.Background(), report.ID); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("GetReport after delete: err = %v", err)
	}
}

func TestListSOSReports(t *testing.T) {
	f := newReportFixture()
	f.create(t, models.ReportTypeNormal)
	f.create(t, models.ReportTypeSOS)
	f.create(t, models.ReportTypeSOS)

	reports, total, err := f.svc.ListSOSReports(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("ListSOSReports: %v", err)
	}
	if total != 2 || len(reports) != 1 {
		t.Errorf("total=%d len=%d", total, len(reports))
	}
}
