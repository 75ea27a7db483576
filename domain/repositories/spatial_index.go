package repositories

import (
	"context"

	"github.com/google/uuid"

	"incident-map/domain/models"
)

// ClusterIndex assigns DBSCAN labels and projects them into cluster rows.
type ClusterIndex interface {
	// AssignClusterLabels labels every report in one atomic write and returns the
	// number of distinct clusters, noise excluded. maxDistanceMeters is measured
	// in Web Mercator meters.
	AssignClusterLabels(ctx context.Context, minPoints int, maxDistanceMeters float64) (int, error)
	// BuildClusterProjection computes hull, centroid and markers for every
	// non-noise label without writing anything.
	BuildClusterProjection(ctx context.Context) ([]models.ReportCluster, error)
}

// ProximityIndex finds users by great-circle distance.
type ProximityIndex interface {
	UsersWithinRadius(ctx context.Context, center models.GeoPoint, radiusMeters float64) ([]models.NearbyUser, error)
}

// EmbeddingHit is one image whose cosine similarity beat the threshold.
type EmbeddingHit struct {
	ImageID    uuid.UUID
	ReportID   uuid.UUID
	Similarity float64
}

// EmbeddingIndex searches face embeddings by cosine similarity.
type EmbeddingIndex interface {
	Upsert(ctx context.Context, image *models.ReportImage) error
	Remove(ctx context.Context, imageID uuid.UUID) error
	// Search returns hits with similarity strictly greater than threshold,
	// most similar first, at most limit of them.
	Search(ctx context.Context, query []float32, threshold float64, limit int) ([]EmbeddingHit, error)
}
