package serviceimpl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"incident-map/domain/models"
	"incident-map/domain/repositories"
	"incident-map/domain/services"
	"incident-map/pkg/embedding"
	"incident-map/pkg/logger"
	"incident-map/pkg/retry"
)

type FaceSettings struct {
	Limit        int
	QueryTimeout time.Duration
}

type FaceServiceImpl struct {
	index      repositories.EmbeddingIndex
	imageRepo  repositories.ReportImageRepository
	reportRepo repositories.ReportRepository
	embedder   services.Embedder
	storage    services.ObjectStorage
	settings   FaceSettings
}

// NewFaceService wires the face matcher. A nil embedder stores images without faces
// and makes MatchImage fail.
func NewFaceService(
	index repositories.EmbeddingIndex,
	imageRepo repositories.ReportImageRepository,
	reportRepo repositories.ReportRepository,
	embedder services.Embedder,
	storage services.ObjectStorage,
	settings FaceSettings,
) services.FaceService {
	if settings.Limit <= 0 {
		settings.Limit = services.DefaultMatchLimit
	}
	return &FaceServiceImpl{
		index:      index,
		imageRepo:  imageRepo,
		reportRepo: reportRepo,
		embedder:   embedder,
		storage:    storage,
		settings:   settings,
	}
}

func (s *FaceServiceImpl) FindMatches(ctx context.Context, query []float32, threshold float64, limit int) ([]services.FaceMatch, error) {
	if err := embedding.CheckDimension(query); err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrDimensionMismatch, err)
	}
	if err := embedding.CheckThreshold(threshold); err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrValidation, err)
	}
	if limit <= 0 {
		limit = s.settings.Limit
	}

	hits, err := retry.Once(ctx, s.settings.QueryTimeout, func(ctx context.Context) ([]repositories.EmbeddingHit, error) {
		return s.index.Search(ctx, query, threshold, limit)
	})
	if err != nil {
		logger.FaceError("search_failed", "Similarity search failed", err, nil)
		return nil, fmt.Errorf("%w: similarity search: %v", services.ErrUpstream, err)
	}

	matches := make([]services.FaceMatch, 0, len(hits))
	if len(hits) == 0 {
		return matches, nil
	}

	ids := make([]uuid.UUID, len(hits))
	for i, h := range hits {
		ids[i] = h.ImageID
	}
	images, err := retry.Once(ctx, s.settings.QueryTimeout, func(ctx context.Context) ([]models.ReportImage, error) {
		return s.imageRepo.GetByIDs(ctx, ids)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: load matched images: %v", services.ErrUpstream, err)
	}

	byID := make(map[uuid.UUID]*models.ReportImage, len(images))
	for i := range images {
		byID[images[i].ID] = &images[i]
	}

	for _, h := range hits {
		img, ok := byID[h.ImageID]
		// Deleted since the search, or an index entry that outlived its face.
		if !ok || !img.HasFace {
			continue
		}
		m := services.FaceMatch{
			ImageID:    img.ID,
			ImageURL:   img.ImageURL,
			ImageName:  img.Name,
			ReportID:   img.ReportID,
			Similarity: h.Similarity,
		}
		if img.Report != nil {
			m.ReportName = img.Report.Name
			m.ReportDescription = img.Report.Description
		}
		matches = append(matches, m)
	}

	logger.Face("matched", "Face matches found", map[string]interface{}{
		"hits":      len(hits),
		"matches":   len(matches),
		"threshold": threshold,
		"limit":     limit,
	})
	return matches, nil
}

func (s *FaceServiceImpl) MatchImage(ctx context.Context, imageData []byte, filename string, threshold float64, limit int) ([]services.FaceMatch, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("%w: empty image", services.ErrValidation)
	}
	if err := embedding.CheckThreshold(threshold); err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrValidation, err)
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: embedding service disabled", services.ErrUpstream)
	}

	vec, err := s.embed(ctx, imageData, filename)
	if err != nil {
		return nil, err
	}
	if vec == nil {
		return nil, services.ErrNoFaceDetected
	}
	return s.FindMatches(ctx, vec, threshold, limit)
}

func (s *FaceServiceImpl) embed(ctx context.Context, imageData []byte, filename string) ([]float32, error) {
	if s.embedder == nil {
		return nil, nil
	}

	vec, err := retry.Once(ctx, s.settings.QueryTimeout, func(ctx context.Context) ([]float32, error) {
		return s.embedder.Embed(ctx, imageData, filename)
	})
	if err != nil {
		logger.FaceError("embed_failed", "Embedding service call failed", err, map[string]interface{}{"filename": filename})
		return nil, fmt.Errorf("%w: embedding: %v", services.ErrUpstream, err)
	}
	if vec != nil {
		if err := embedding.CheckDimension(vec); err != nil {
			return nil, fmt.Errorf("%w: embedding service returned %v", services.ErrUpstream, err)
		}
	}
	return vec, nil
}

func (s *FaceServiceImpl) ownedReport(ctx context.Context, actorID, reportID uuid.UUID) (*models.Report, error) {
	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		return nil, storeErr(err, services.ErrReportNotFound)
	}
	if report.UserID != actorID {
		return nil, services.ErrNotReportOwner
	}
	return report, nil
}

func (s *FaceServiceImpl) AddImage(ctx context.Context, actorID, reportID uuid.UUID, upload services.ImageUpload) (*models.ReportImage, error) {
	if len(upload.Data) == 0 {
		return nil, fmt.Errorf("%w: empty image", services.ErrValidation)
	}
	if _, err := s.ownedReport(ctx, actorID, reportID); err != nil {
		return nil, err
	}

	// Embed before storing anything so a failed call leaves no orphan object.
	vec, err := s.embed(ctx, upload.Data, upload.Name)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.Upload(ctx, upload.Data, upload.Name, upload.ContentType)
	if err != nil {
		logger.StorageError("upload_failed", "Image upload failed", err, map[string]interface{}{"report_id": reportID.String()})
		return nil, fmt.Errorf("%w: upload image: %v", services.ErrUpstream, err)
	}

	image := &models.ReportImage{
		ReportID: reportID,
		Name:     upload.Name,
		ImageURL: url,
	}
	image.SetEmbedding(vec)

	if err := s.imageRepo.Create(ctx, image); err != nil {
		if derr := s.storage.DeleteByURL(ctx, url); derr != nil {
			logger.StorageError("cleanup_failed", "Failed to remove orphaned upload", derr, map[string]interface{}{"url": url})
		}
		return nil, fmt.Errorf("%w: save image: %v", services.ErrUpstream, err)
	}

	s.syncIndex(ctx, image)

	logger.Face("image_added", "Report image stored", map[string]interface{}{
		"report_id": reportID.String(),
		"image_id":  image.ID.String(),
		"has_face":  image.HasFace,
	})
	return image, nil
}

func (s *FaceServiceImpl) ReplaceImage(ctx context.Context, actorID, imageID uuid.UUID, upload services.ImageUpload) (*models.ReportImage, error) {
	if len(upload.Data) == 0 {
		return nil, fmt.Errorf("%w: empty image", services.ErrValidation)
	}

	image, err := s.imageRepo.GetByID(ctx, imageID)
	if err != nil {
		return nil, storeErr(err, services.ErrImageNotFound)
	}
	if _, err := s.ownedReport(ctx, actorID, image.ReportID); err != nil {
		return nil, err
	}

	vec, err := s.embed(ctx, upload.Data, upload.Name)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.Replace(ctx, image.ImageURL, upload.Data, upload.ContentType)
	if err != nil {
		logger.StorageError("replace_failed", "Image replace failed", err, map[string]interface{}{"image_id": imageID.String()})
		return nil, fmt.Errorf("%w: replace image: %v", services.ErrUpstream, err)
	}

	image.ImageURL = url
	if upload.Name != "" {
		image.Name = upload.Name
	}
	image.SetEmbedding(vec)

	if err := s.imageRepo.Update(ctx, image); err != nil {
		return nil, fmt.Errorf("%w: update image: %v", services.ErrUpstream, err)
	}

	s.syncIndex(ctx, image)
	return image, nil
}

func (s *FaceServiceImpl) DeleteImage(ctx context.Context, actorID, imageID uuid.UUID) error {
	image, err := s.imageRepo.GetByID(ctx, imageID)
	if err != nil {
		return storeErr(err, services.ErrImageNotFound)
	}
	if _, err := s.ownedReport(ctx, actorID, image.ReportID); err != nil {
		return err
	}

	if err := s.imageRepo.Delete(ctx, imageID); err != nil {
		return fmt.Errorf("%w: delete image: %v", services.ErrUpstream, err)
	}

	if err := s.index.Remove(ctx, imageID); err != nil {
		logger.FaceError("index_remove_failed", "Failed to drop embedding from index", err, map[string]interface{}{"image_id": imageID.String()})
	}
	if err := s.storage.DeleteByURL(ctx, image.ImageURL); err != nil {
		logger.StorageError("delete_failed", "Failed to delete stored image", err, map[string]interface{}{"url": image.ImageURL})
	}

	logger.Face("image_deleted", "Report image deleted", map[string]interface{}{"image_id": imageID.String()})
	return nil
}

func (s *FaceServiceImpl) ListReportImages(ctx context.Context, reportID uuid.UUID) ([]models.ReportImage, error) {
	if _, err := s.reportRepo.GetByID(ctx, reportID); err != nil {
		return nil, storeErr(err, services.ErrReportNotFound)
	}
	images, err := s.imageRepo.ListByReport(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("%w: list images: %v", services.ErrUpstream, err)
	}
	return images, nil
}

// syncIndex keeps the embedding index in step with the row. The row is already
// committed, so an index failure is logged and left for a reindex.
func (s *FaceServiceImpl) syncIndex(ctx context.Context, image *models.ReportImage) {
	var err error
	if image.HasFace {
		err = s.index.Upsert(ctx, image)
	} else {
		err = s.index.Remove(ctx, image.ID)
	}
	if err != nil {
		logger.FaceError("index_sync_failed", "Embedding index out of step with image", err, map[string]interface{}{"image_id": image.ID.String()})
	}
}
