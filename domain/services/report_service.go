package services

import (
	"context"

	"github.com/google/uuid"

	"incident-map/domain/models"
)

type CreateReportRequest struct {
	Name        string
	Description string
	Address     string
	Country     string
	City        string
	Type        models.ReportType
	Longitude   float64
	Latitude    float64
}

// UpdateReportRequest lists every mutable field; nil leaves a field unchanged.
// Longitude and Latitude must be set together.
type UpdateReportRequest struct {
	Name        *string
	Description *string
	Address     *string
	Country     *string
	City        *string
	Type        *models.ReportType
	Longitude   *float64
	Latitude    *float64
}

type CreateReportResult struct {
	Report *models.Report
	// AlertRecipients is set for sos reports only.
	AlertRecipients []AlertRecipient
	// AlertDegraded is set when recipient resolution failed or was partial.
	AlertDegraded bool
}

type ReportService interface {
	CreateReport(ctx context.Context, actorID uuid.UUID, req *CreateReportRequest) (*CreateReportResult, error)
	UpdateReport(ctx context.Context, actorID, reportID uuid.UUID, req *UpdateReportRequest) (*models.Report, error)
	DeleteReport(ctx context.Context, actorID, reportID uuid.UUID) error
	GetReport(ctx context.Context, reportID uuid.UUID) (*models.Report, error)
	ListSOSReports(ctx context.Context, page, limit int) ([]models.Report, int64, error)
}
