package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"incident-map/domain/models"
	"incident-map/domain/repositories"
)

type ReportImageRepositoryImpl struct {
	db *gorm.DB
}

func NewReportImageRepository(db *gorm.DB) repositories.ReportImageRepository {
	return &ReportImageRepositoryImpl{db: db}
}

func (r *ReportImageRepositoryImpl) Create(ctx context.Context, image *models.ReportImage) error {
	return r.db.WithContext(ctx).Omit("Report").Create(image).Error
}

func (r *ReportImageRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.ReportImage, error) {
	var image models.ReportImage
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&image).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &image, nil
}

func (r *ReportImageRepositoryImpl) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ReportImage, error) {
	var images []models.ReportImage
	if len(ids) == 0 {
		return images, nil
	}
	err := r.db.WithContext(ctx).Preload("Report").Where("id IN ?", ids).Find(&images).Error
	return images, err
}

func (r *ReportImageRepositoryImpl) GetByURL(ctx context.Context, imageURL string) (*models.ReportImage, error) {
	var image models.ReportImage
	err := r.db.WithContext(ctx).Where("image_url = ?", imageURL).First(&image).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &image, nil
}

func (r *ReportImageRepositoryImpl) ListByReport(ctx context.Context, reportID uuid.UUID) ([]models.ReportImage, error) {
	var images []models.ReportImage
	err := r.db.WithContext(ctx).Where("report_id = ?", reportID).Order("created_at").Find(&images).Error
	return images, err
}

func (r *ReportImageRepositoryImpl) ListWithFaces(ctx context.Context) ([]models.ReportImage, error) {
	var images []models.ReportImage
	err := r.db.WithContext(ctx).Where("has_face = ?", true).Order("id").Find(&images).Error
	return images, err
}

func (r *ReportImageRepositoryImpl) Update(ctx context.Context, image *models.ReportImage) error {
	result := r.db.WithContext(ctx).
		Model(image).
		Select("Name", "ImageURL", "Encoding", "HasFace").
		Updates(image)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *ReportImageRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ReportImage{}).Error
}

type ReportClusterRepositoryImpl struct {
	db *gorm.DB
}

func NewReportClusterRepository(db *gorm.DB) repositories.ReportClusterRepository {
	return &ReportClusterRepositoryImpl{db: db}
}

// ReplaceAll uses DELETE rather than TRUNCATE so readers keep seeing the old
// projection until the transaction commits.
func (r *ReportClusterRepositoryImpl) ReplaceAll(ctx context.Context, clusters []models.ReportCluster) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM report_clusters").Error; err != nil {
			return err
		}
		if len(clusters) == 0 {
			return nil
		}
		return tx.CreateInBatches(clusters, 100).Error
	})
}

func (r *ReportClusterRepositoryImpl) List(ctx context.Context) ([]models.ReportCluster, error) {
	var clusters []models.ReportCluster
	err := r.db.WithContext(ctx).Order("cluster_id").Find(&clusters).Error
	return clusters, err
}
