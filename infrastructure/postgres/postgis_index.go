package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"incident-map/domain/models"
	"incident-map/domain/repositories"
	"incident-map/pkg/embedding"
)

// PostGISIndex runs clustering and proximity inside PostGIS and similarity inside
// pgvector.
type PostGISIndex struct {
	db *gorm.DB
}

func NewPostGISIndex(db *gorm.DB) *PostGISIndex {
	return &PostGISIndex{db: db}
}

var (
	_ repositories.ClusterIndex   = (*PostGISIndex)(nil)
	_ repositories.ProximityIndex = (*PostGISIndex)(nil)
	_ repositories.EmbeddingIndex = (*PostGISIndex)(nil)
)

// Labels come from DBSCAN over EPSG:3857 so eps is in (Web Mercator) meters.
// Reports DBSCAN leaves unlabelled get the noise label.
const assignClustersSQL = `
UPDATE reports
SET cluster_id = COALESCE(labelled.cid::text, '-1')
FROM (
	SELECT id, ST_ClusterDBSCAN(ST_Transform(location, 3857), eps := ?, minpoints := ?) OVER () AS cid
	FROM reports
) AS labelled
WHERE reports.id = labelled.id`

func (x *PostGISIndex) AssignClusterLabels(ctx context.Context, minPoints int, maxDistanceMeters float64) (int, error) {
	var clusters int64
	err := x.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(assignClustersSQL, maxDistanceMeters, minPoints).Error; err != nil {
			return err
		}
		return tx.Model(&models.Report{}).
			Where("cluster_id <> ?", models.NoiseClusterID).
			Distinct("cluster_id").
			Count(&clusters).Error
	})
	return int(clusters), err
}

const clusterGeometrySQL = `
SELECT
	cluster_id,
	ST_AsGeoJSON(ST_ConvexHull(ST_Collect(location))) AS polygon,
	ST_AsGeoJSON(ST_Centroid(ST_ConvexHull(ST_Collect(location)))) AS centroid
FROM reports
WHERE cluster_id <> ?
GROUP BY cluster_id
ORDER BY cluster_id`

type clusterGeometryRow struct {
	ClusterID string
	Polygon   models.Geometry
	Centroid  models.Geometry
}

// BuildClusterProjection reads geometry and members from one snapshot so hulls and
// markers agree on membership.
func (x *PostGISIndex) BuildClusterProjection(ctx context.Context) ([]models.ReportCluster, error) {
	var projection []models.ReportCluster

	err := x.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []clusterGeometryRow
		if err := tx.Raw(clusterGeometrySQL, models.NoiseClusterID).Scan(&rows).Error; err != nil {
			return err
		}

		members, err := listClustered(tx)
		if err != nil {
			return err
		}
		markers := make(map[string]models.ClusterMarkers, len(rows))
		for i := range members {
			m := &members[i]
			markers[m.ClusterID] = append(markers[m.ClusterID], models.MarkerFromReport(m))
		}

		projection = make([]models.ReportCluster, 0, len(rows))
		for _, row := range rows {
			projection = append(projection, models.ReportCluster{
				ClusterID: row.ClusterID,
				Polygon:   row.Polygon,
				Centroid:  row.Centroid,
				Markers:   markers[row.ClusterID],
			})
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})

	return projection, err
}

const usersWithinRadiusSQL = `
SELECT * FROM (
	SELECT
		u.id, u.email, u.phone_number, u.username, u.role, u.current_location,
		ST_DistanceSphere(u.current_location, ST_SetSRID(ST_MakePoint(?, ?), 4326)) AS distance_meters
	FROM users u
	WHERE u.current_location IS NOT NULL
) AS nearby
WHERE distance_meters <= ?
ORDER BY distance_meters, id`

type nearbyUserRow struct {
	ID              uuid.UUID
	Email           string
	PhoneNumber     string
	Username        string
	Role            string
	CurrentLocation *models.GeoPoint
	DistanceMeters  float64
}

func (x *PostGISIndex) UsersWithinRadius(ctx context.Context, center models.GeoPoint, radiusMeters float64) ([]models.NearbyUser, error) {
	var rows []nearbyUserRow
	err := x.db.WithContext(ctx).
		Raw(usersWithinRadiusSQL, center.Lon, center.Lat, radiusMeters).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	users := make([]models.NearbyUser, len(rows))
	for i, row := range rows {
		users[i] = models.NearbyUser{
			User: models.User{
				ID:              row.ID,
				Email:           row.Email,
				PhoneNumber:     row.PhoneNumber,
				Username:        row.Username,
				Role:            row.Role,
				CurrentLocation: row.CurrentLocation,
			},
			DistanceMeters: row.DistanceMeters,
		}
	}
	return users, nil
}

// Upsert is a no-op: the report_images row is the pgvector index entry.
func (x *PostGISIndex) Upsert(ctx context.Context, image *models.ReportImage) error {
	return nil
}

func (x *PostGISIndex) Remove(ctx context.Context, imageID uuid.UUID) error {
	return nil
}

// pgvector's <=> is cosine distance, so similarity = 1 - distance.
const similarImagesSQL = `
SELECT id AS image_id, report_id, 1 - (encoding <=> ?) AS similarity
FROM report_images
WHERE has_face = true
	AND encoding IS NOT NULL
	AND 1 - (encoding <=> ?) > ?
ORDER BY encoding <=> ?, id
LIMIT ?`

func (x *PostGISIndex) Search(ctx context.Context, query []float32, threshold float64, limit int) ([]repositories.EmbeddingHit, error) {
	if err := embedding.CheckDimension(query); err != nil {
		return nil, err
	}

	vec := pgvector.NewVector(query)
	var hits []repositories.EmbeddingHit
	err := x.db.WithContext(ctx).
		Raw(similarImagesSQL, vec, vec, threshold, vec, limit).
		Scan(&hits).Error
	return hits, err
}
