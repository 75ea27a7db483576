package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"incident-map/domain/models"
	"incident-map/domain/repositories"
)

const labelBatchSize = 500

type ReportRepositoryImpl struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) repositories.ReportRepository {
	return &ReportRepositoryImpl{db: db}
}

func (r *ReportRepositoryImpl) Create(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Omit("User", "Images").Create(report).Error
}

func (r *ReportRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&report).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &report, nil
}

func (r *ReportRepositoryImpl) GetWithRelations(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Images").
		Where("id = ?", id).
		First(&report).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &report, nil
}

func (r *ReportRepositoryImpl) ListByType(ctx context.Context, reportType models.ReportType, offset, limit int) ([]models.Report, int64, error) {
	var reports []models.Report
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Report{}).Where("type = ?", reportType).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Preload("User").
		Where("type = ?", reportType).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&reports).Error

	return reports, total, err
}

// Update writes the author-editable columns only; cluster_id belongs to clustering.
func (r *ReportRepositoryImpl) Update(ctx context.Context, report *models.Report) error {
	result := r.db.WithContext(ctx).
		Model(report).
		Select("Name", "Description", "Address", "Country", "City", "Type", "Location").
		Updates(report)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *ReportRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Report{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *ReportRepositoryImpl) ListLocations(ctx context.Context) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.WithContext(ctx).Select("id", "location").Order("id").Find(&reports).Error
	return reports, err
}

func (r *ReportRepositoryImpl) ListClustered(ctx context.Context) ([]models.Report, error) {
	return listClustered(r.db.WithContext(ctx))
}

func listClustered(db *gorm.DB) ([]models.Report, error) {
	var reports []models.Report
	err := db.
		Preload("User").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Where("cluster_id <> ?", models.NoiseClusterID).
		Order("cluster_id, created_at, id").
		Find(&reports).Error
	return reports, err
}

func (r *ReportRepositoryImpl) ApplyClusterLabels(ctx context.Context, labels []models.ClusterLabel) error {
	byCluster := make(map[string][]uuid.UUID)
	for _, l := range labels {
		byCluster[l.ClusterID] = append(byCluster[l.ClusterID], l.ReportID)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for clusterID, ids := range byCluster {
			for start := 0; start < len(ids); start += labelBatchSize {
				end := start + labelBatchSize
				if end > len(ids) {
					end = len(ids)
				}
				// UpdateColumn leaves updated_at alone: relabelling is not an edit.
				err := tx.Model(&models.Report{}).
					Where("id IN ?", ids[start:end]).
					UpdateColumn("cluster_id", clusterID).Error
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
}
