package serviceimpl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"incident-map/domain/models"
	"incident-map/domain/repositories"
	"incident-map/domain/services"
	"incident-map/pkg/geo"
	"incident-map/pkg/logger"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type ReportSettings struct {
	// ReclusterTimeout bounds a recluster pass triggered by a mutation.
	ReclusterTimeout time.Duration
}

type ReportServiceImpl struct {
	reportRepo     repositories.ReportRepository
	imageRepo      repositories.ReportImageRepository
	index          repositories.EmbeddingIndex
	storage        services.ObjectStorage
	clusterService services.ClusterService
	alertService   services.AlertService
	settings       ReportSettings
}

func NewReportService(
	reportRepo repositories.ReportRepository,
	imageRepo repositories.ReportImageRepository,
	index repositories.EmbeddingIndex,
	storage services.ObjectStorage,
	clusterService services.ClusterService,
	alertService services.AlertService,
	settings ReportSettings,
) services.ReportService {
	return &ReportServiceImpl{
		reportRepo:     reportRepo,
		imageRepo:      imageRepo,
		index:          index,
		storage:        storage,
		clusterService: clusterService,
		alertService:   alertService,
		settings:       settings,
	}
}

func validReportType(t models.ReportType) bool {
	return t == models.ReportTypeNormal || t == models.ReportTypeSOS
}

func (s *ReportServiceImpl) CreateReport(ctx context.Context, actorID uuid.UUID, req *services.CreateReportRequest) (*services.CreateReportResult, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", services.ErrValidation)
	}
	if req.Type == "" {
		req.Type = models.ReportTypeNormal
	}
	if !validReportType(req.Type) {
		return nil, fmt.Errorf("%w: unknown report type %q", services.ErrValidation, req.Type)
	}
	if !geo.ValidLonLat(req.Longitude, req.Latitude) {
		return nil, fmt.Errorf("%w: invalid coordinates", services.ErrValidation)
	}

	report := &models.Report{
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		Country:     req.Country,
		City:        req.City,
		Type:        req.Type,
		Location:    models.NewGeoPoint(req.Longitude, req.Latitude),
		ClusterID:   models.NoiseClusterID,
		UserID:      actorID,
	}

	if err := s.reportRepo.Create(ctx, report); err != nil {
		logger.ReportError("create_failed", "Failed to create report", err, map[string]interface{}{"user_id": actorID.String()})
		return nil, fmt.Errorf("%w: create report: %v", services.ErrUpstream, err)
	}

	logger.Report("created", "Report created", map[string]interface{}{
		"report_id": report.ID.String(),
		"user_id":   actorID.String(),
		"type":      report.Type,
	})

	report = s.recluster(ctx, "create", report)

	result := &services.CreateReportResult{Report: report}
	if !report.IsSOS() {
		return result, nil
	}

	// The report is committed; alerting past this point degrades, never fails.
	resolution, err := s.alertService.ResolveAlertRecipients(ctx, actorID, report.Location, 0)
	if err != nil {
		logger.AlertError("resolve_failed", "SOS recipients could not be resolved", err, map[string]interface{}{"report_id": report.ID.String()})
		result.AlertDegraded = true
		return result, nil
	}

	result.AlertRecipients = resolution.Recipients
	result.AlertDegraded = resolution.Degraded
	_ = s.alertService.DispatchAlert(ctx, report, resolution.Recipients)

	return result, nil
}

func validateUpdate(req *services.UpdateReportRequest) error {
	if (req.Longitude == nil) != (req.Latitude == nil) {
		return fmt.Errorf("%w: longitude and latitude must be updated together", services.ErrValidation)
	}
	if req.Longitude != nil && !geo.ValidLonLat(*req.Longitude, *req.Latitude) {
		return fmt.Errorf("%w: invalid coordinates", services.ErrValidation)
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", services.ErrValidation)
	}
	if req.Type != nil && !validReportType(*req.Type) {
		return fmt.Errorf("%w: unknown report type %q", services.ErrValidation, *req.Type)
	}
	return nil
}

func (s *ReportServiceImpl) UpdateReport(ctx context.Context, actorID, reportID uuid.UUID, req *services.UpdateReportRequest) (*models.Report, error) {
	if err := validateUpdate(req); err != nil {
		return nil, err
	}

	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		return nil, storeErr(err, services.ErrReportNotFound)
	}
	if report.UserID != actorID {
		return nil, services.ErrNotReportOwner
	}

	if req.Name != nil {
		report.Name = *req.Name
	}
	if req.Description != nil {
		report.Description = *req.Description
	}
	if req.Address != nil {
		report.Address = *req.Address
	}
	if req.Country != nil {
		report.Country = *req.Country
	}
	if req.City != nil {
		report.City = *req.City
	}
	if req.Type != nil {
		report.Type = *req.Type
	}

	locationChanged := false
	if req.Longitude != nil {
		next := models.NewGeoPoint(*req.Longitude, *req.Latitude)
		locationChanged = next != report.Location
		report.Location = next
	}

	if err := s.reportRepo.Update(ctx, report); err != nil {
		logger.ReportError("update_failed", "Failed to update report", err, map[string]interface{}{"report_id": reportID.String()})
		return nil, fmt.Errorf("%w: update report: %v", services.ErrUpstream, err)
	}

	logger.Report("updated", "Report updated", map[string]interface{}{
		"report_id":        reportID.String(),
		"location_changed": locationChanged,
	})

	if locationChanged {
		report = s.recluster(ctx, "update", report)
	}
	return report, nil
}

func (s *ReportServiceImpl) DeleteReport(ctx context.Context, actorID, reportID uuid.UUID) error {
	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		return storeErr(err, services.ErrReportNotFound)
	}
	if report.UserID != actorID {
		return services.ErrNotReportOwner
	}

	// Rows cascade with the report; objects and index entries do not.
	images, err := s.imageRepo.ListByReport(ctx, reportID)
	if err != nil {
		logger.ReportError("list_images_failed", "Could not list images of deleted report", err, map[string]interface{}{"report_id": reportID.String()})
	}

	if err := s.reportRepo.Delete(ctx, reportID); err != nil {
		logger.ReportError("delete_failed", "Failed to delete report", err, map[string]interface{}{"report_id": reportID.String()})
		return fmt.Errorf("%w: delete report: %v", services.ErrUpstream, err)
	}

	logger.Report("deleted", "Report deleted", map[string]interface{}{"report_id": reportID.String(), "images": len(images)})

	for _, img := range images {
		if err := s.index.Remove(ctx, img.ID); err != nil {
			logger.FaceError("index_remove_failed", "Failed to drop embedding from index", err, map[string]interface{}{"image_id": img.ID.String()})
		}
		if s.storage != nil {
			if err := s.storage.DeleteByURL(ctx, img.ImageURL); err != nil {
				logger.StorageError("delete_failed", "Failed to delete stored image", err, map[string]interface{}{"url": img.ImageURL})
			}
		}
	}

	s.recluster(ctx, "delete", nil)
	return nil
}

func (s *ReportServiceImpl) GetReport(ctx context.Context, reportID uuid.UUID) (*models.Report, error) {
	report, err := s.reportRepo.GetWithRelations(ctx, reportID)
	if err != nil {
		return nil, storeErr(err, services.ErrReportNotFound)
	}
	return report, nil
}

func (s *ReportServiceImpl) ListSOSReports(ctx context.Context, page, limit int) ([]models.Report, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	reports, total, err := s.reportRepo.ListByType(ctx, models.ReportTypeSOS, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list sos reports: %v", services.ErrUpstream, err)
	}
	return reports, total, nil
}

// recluster runs a full pass on a context detached from the caller, so an aborted
// request cannot leave labels half-applied. Failures leave the region map stale
// until the next pass. When report is non-nil it is reloaded to pick up its label.
func (s *ReportServiceImpl) recluster(ctx context.Context, reason string, report *models.Report) *models.Report {
	rctx := context.WithoutCancel(ctx)
	if s.settings.ReclusterTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(rctx, s.settings.ReclusterTimeout)
		defer cancel()
	}

	if _, err := s.clusterService.Recluster(rctx); err != nil {
		logger.ClusterWarn("stale_region_map", "Region map left stale after report "+reason, err, nil)
		return report
	}
	if report == nil {
		return nil
	}

	fresh, err := s.reportRepo.GetByID(rctx, report.ID)
	if err != nil {
		return report
	}
	return fresh
}
