// Package spatial implements the spatial index in process, for stores without
// PostGIS or pgvector.
package spatial

import (
	"context"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"incident-map/domain/models"
	"incident-map/domain/repositories"
	"incident-map/pkg/embedding"
	"incident-map/pkg/geo"
)

// NativeIndex loads rows through the repositories and does the geometry itself.
// Results match the PostGIS index: DBSCAN in Web Mercator meters, hulls and
// centroids in lon/lat, distances on the PostGIS sphere.
type NativeIndex struct {
	reports repositories.ReportRepository
	users   repositories.UserRepository
	images  repositories.ReportImageRepository
}

func NewNativeIndex(
	reports repositories.ReportRepository,
	users repositories.UserRepository,
	images repositories.ReportImageRepository,
) *NativeIndex {
	return &NativeIndex{reports: reports, users: users, images: images}
}

var (
	_ repositories.ClusterIndex   = (*NativeIndex)(nil)
	_ repositories.ProximityIndex = (*NativeIndex)(nil)
	_ repositories.EmbeddingIndex = (*NativeIndex)(nil)
)

func (x *NativeIndex) AssignClusterLabels(ctx context.Context, minPoints int, maxDistanceMeters float64) (int, error) {
	rows, err := x.reports.ListLocations(ctx)
	if err != nil {
		return 0, err
	}

	// Stable input order keeps labels stable between runs on the same data.
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID.String() < rows[j].ID.String() })

	points := make([]orb.Point, len(rows))
	for i := range rows {
		points[i] = geo.ToMercator(rows[i].Location.Point())
	}

	labels := geo.DBSCAN(points, maxDistanceMeters, minPoints)

	assignments := make([]models.ClusterLabel, len(rows))
	clusters := 0
	for i, l := range labels {
		id := models.NoiseClusterID
		if l != geo.Noise {
			id = strconv.Itoa(l)
			if l+1 > clusters {
				clusters = l + 1
			}
		}
		assignments[i] = models.ClusterLabel{ReportID: rows[i].ID, ClusterID: id}
	}

	if err := x.reports.ApplyClusterLabels(ctx, assignments); err != nil {
		return 0, err
	}
	return clusters, nil
}

func (x *NativeIndex) BuildClusterProjection(ctx context.Context) ([]models.ReportCluster, error) {
	members, err := x.reports.ListClustered(ctx)
	if err != nil {
		return nil, err
	}

	var order []string
	groups := make(map[string][]*models.Report)
	for i := range members {
		m := &members[i]
		if m.ClusterID == models.NoiseClusterID {
			continue
		}
		if _, ok := groups[m.ClusterID]; !ok {
			order = append(order, m.ClusterID)
		}
		groups[m.ClusterID] = append(groups[m.ClusterID], m)
	}
	sort.Strings(order)

	projection := make([]models.ReportCluster, 0, len(order))
	for _, id := range order {
		group := groups[id]

		points := make([]orb.Point, len(group))
		markers := make(models.ClusterMarkers, len(group))
		for i, r := range group {
			points[i] = r.Location.Point()
			markers[i] = models.MarkerFromReport(r)
		}

		hull := geo.ConvexHull(points)
		projection = append(projection, models.ReportCluster{
			ClusterID: id,
			Polygon:   models.Geometry{Geometry: hull},
			Centroid:  models.Geometry{Geometry: geo.Centroid(hull)},
			Markers:   markers,
		})
	}
	return projection, nil
}

func (x *NativeIndex) UsersWithinRadius(ctx context.Context, center models.GeoPoint, radiusMeters float64) ([]models.NearbyUser, error) {
	users, err := x.users.ListWithLocation(ctx)
	if err != nil {
		return nil, err
	}

	c := center.Point()
	var nearby []models.NearbyUser
	for _, u := range users {
		if u.CurrentLocation == nil {
			continue
		}
		d := geo.SphereDistance(c, u.CurrentLocation.Point())
		if d <= radiusMeters {
			nearby = append(nearby, models.NearbyUser{User: u, DistanceMeters: d})
		}
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		if nearby[i].DistanceMeters != nearby[j].DistanceMeters {
			return nearby[i].DistanceMeters < nearby[j].DistanceMeters
		}
		return nearby[i].ID.String() < nearby[j].ID.String()
	})
	return nearby, nil
}

// Upsert is a no-op: every search reads the current rows.
func (x *NativeIndex) Upsert(ctx context.Context, image *models.ReportImage) error {
	return nil
}

func (x *NativeIndex) Remove(ctx context.Context, imageID uuid.UUID) error {
	return nil
}

func (x *NativeIndex) Search(ctx context.Context, query []float32, threshold float64, limit int) ([]repositories.EmbeddingHit, error) {
	if err := embedding.CheckDimension(query); err != nil {
		return nil, err
	}

	images, err := x.images.ListWithFaces(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]embedding.Candidate, 0, len(images))
	reportOf := make(map[string]uuid.UUID, len(images))
	for i := range images {
		img := &images[i]
		vec := img.Embedding()
		if !img.HasFace || vec == nil {
			continue
		}
		id := img.ID.String()
		candidates = append(candidates, embedding.Candidate{ID: id, Vector: vec})
		reportOf[id] = img.ReportID
	}

	top := embedding.TopK(query, candidates, threshold, limit)
	hits := make([]repositories.EmbeddingHit, 0, len(top))
	for _, h := range top {
		imageID, err := uuid.Parse(h.ID)
		if err != nil {
			continue
		}
		hits = append(hits, repositories.EmbeddingHit{ImageID: imageID, ReportID: reportOf[h.ID], Similarity: h.Similarity})
	}
	return hits, nil
}
