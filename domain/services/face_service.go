package services

import (
	"context"

	"github.com/google/uuid"

	"incident-map/domain/models"
)

const (
	DefaultMatchThreshold = 0.9
	DefaultMatchLimit     = 5
)

// FaceMatch is one stored image similar to the query, joined with its report.
type FaceMatch struct {
	ImageID           uuid.UUID `json:"image_id"`
	ImageURL          string    `json:"image_url"`
	ImageName         string    `json:"image_name"`
	ReportID          uuid.UUID `json:"report_id"`
	ReportName        string    `json:"report_name"`
	ReportDescription string    `json:"report_description"`
	Similarity        float64   `json:"similarity"`
}

// ImageUpload is a raw image to store against a report.
type ImageUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Embedder turns an image into a face embedding. A nil vector with a nil error
// means the image has no face.
type Embedder interface {
	Embed(ctx context.Context, imageData []byte, filename string) ([]float32, error)
}

// ObjectStorage stores image bytes and hands back a public URL.
type ObjectStorage interface {
	Upload(ctx context.Context, data []byte, filename, contentType string) (string, error)
	Replace(ctx context.Context, url string, data []byte, contentType string) (string, error)
	DeleteByURL(ctx context.Context, url string) error
}

type FaceService interface {
	// FindMatches ranks stored embeddings against query. threshold is used as given
	// and must lie in [-1, 1); a non-positive limit falls back to the default.
	FindMatches(ctx context.Context, query []float32, threshold float64, limit int) ([]FaceMatch, error)
	// MatchImage embeds the image and runs FindMatches with it.
	MatchImage(ctx context.Context, imageData []byte, filename string, threshold float64, limit int) ([]FaceMatch, error)

	AddImage(ctx context.Context, actorID, reportID uuid.UUID, upload ImageUpload) (*models.ReportImage, error)
	ReplaceImage(ctx context.Context, actorID, imageID uuid.UUID, upload ImageUpload) (*models.ReportImage, error)
	DeleteImage(ctx context.Context, actorID, imageID uuid.UUID) error
	ListReportImages(ctx context.Context, reportID uuid.UUID) ([]models.ReportImage, error)
}
