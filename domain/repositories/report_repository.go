package repositories

import (
	"context"

	"github.com/google/uuid"

	"incident-map/domain/models"
)

type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	// GetWithRelations loads the owner and images alongside the report.
	GetWithRelations(ctx context.Context, id uuid.UUID) (*models.Report, error)
	ListByType(ctx context.Context, reportType models.ReportType, offset, limit int) ([]models.Report, int64, error)
	Update(ctx context.Context, report *models.Report) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ListLocations returns id and location of every report, ordered by id.
	ListLocations(ctx context.Context) ([]models.Report, error)
	// ListClustered returns every report with a cluster label other than the noise label,
	// with User and Images preloaded.
	ListClustered(ctx context.Context) ([]models.Report, error)
	// ApplyClusterLabels writes every label in one transaction.
	ApplyClusterLabels(ctx context.Context, labels []models.ClusterLabel) error
}

type ReportImageRepository interface {
	Create(ctx context.Context, image *models.ReportImage) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReportImage, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ReportImage, error)
	GetByURL(ctx context.Context, imageURL string) (*models.ReportImage, error)
	ListByReport(ctx context.Context, reportID uuid.UUID) ([]models.ReportImage, error)
	// ListWithFaces returns every image whose HasFace flag is set.
	ListWithFaces(ctx context.Context) ([]models.ReportImage, error)
	Update(ctx context.Context, image *models.ReportImage) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ReportClusterRepository interface {
	// ReplaceAll swaps the whole cluster table for clusters in one transaction.
	ReplaceAll(ctx context.Context, clusters []models.ReportCluster) error
	List(ctx context.Context) ([]models.ReportCluster, error)
}
