package serviceimpl

import (
	"context"
	"fmt"
	"time"

	"incident-map/domain/models"
	"incident-map/domain/repositories"
	"incident-map/domain/services"
	"incident-map/pkg/logger"
	"incident-map/pkg/retry"
)

type ClusterSettings struct {
	MinPoints         int
	MaxDistanceMeters float64
	QueryTimeout      time.Duration
}

type ClusterServiceImpl struct {
	index       repositories.ClusterIndex
	clusterRepo repositories.ReportClusterRepository
	cache       services.RegionMapCache
	settings    ClusterSettings
}

// NewClusterService wires the cluster engine. cache may be nil.
func NewClusterService(
	index repositories.ClusterIndex,
	clusterRepo repositories.ReportClusterRepository,
	cache services.RegionMapCache,
	settings ClusterSettings,
) services.ClusterService {
	return &ClusterServiceImpl{
		index:       index,
		clusterRepo: clusterRepo,
		cache:       cache,
		settings:    settings,
	}
}

func (s *ClusterServiceImpl) AssignClusters(ctx context.Context, minPoints int, maxDistanceMeters float64) (int, error) {
	if minPoints < 1 {
		return 0, fmt.Errorf("%w: minPoints must be at least 1", services.ErrValidation)
	}
	if maxDistanceMeters <= 0 {
		return 0, fmt.Errorf("%w: maxDistanceMeters must be positive", services.ErrValidation)
	}

	// A label write is a mutation: one attempt only.
	clusters, err := s.index.AssignClusterLabels(ctx, minPoints, maxDistanceMeters)
	if err != nil {
		logger.ClusterError("assign_failed", "Cluster assignment failed", err, map[string]interface{}{
			"min_points":   minPoints,
			"max_distance": maxDistanceMeters,
		})
		return 0, fmt.Errorf("%w: assign clusters: %v", services.ErrUpstream, err)
	}

	logger.Cluster("assigned", "Cluster labels assigned", map[string]interface{}{
		"clusters":     clusters,
		"min_points":   minPoints,
		"max_distance": maxDistanceMeters,
	})
	return clusters, nil
}

func (s *ClusterServiceImpl) MaterializeClusters(ctx context.Context) (int, error) {
	projection, err := retry.Once(ctx, s.settings.QueryTimeout, s.index.BuildClusterProjection)
	if err != nil {
		logger.ClusterError("projection_failed", "Failed to build cluster projection", err, nil)
		return 0, fmt.Errorf("%w: build cluster projection: %v", services.ErrUpstream, err)
	}

	if err := s.clusterRepo.ReplaceAll(ctx, projection); err != nil {
		logger.ClusterError("replace_failed", "Failed to swap cluster projection", err, map[string]interface{}{"clusters": len(projection)})
		return 0, fmt.Errorf("%w: replace clusters: %v", services.ErrUpstream, err)
	}

	if s.cache != nil {
		if err := s.cache.SaveRegionMaps(ctx, projection); err != nil {
			logger.ClusterWarn("cache_save_failed", "Region map cache not updated", err, nil)
		}
	}

	logger.Cluster("materialized", "Cluster projection replaced", map[string]interface{}{"clusters": len(projection)})
	return len(projection), nil
}

func (s *ClusterServiceImpl) Recluster(ctx context.Context) (*services.ReclusterResult, error) {
	start := time.Now()

	assigned, err := s.AssignClusters(ctx, s.settings.MinPoints, s.settings.MaxDistanceMeters)
	if err != nil {
		// Materializing now would project labels that were never written.
		return nil, err
	}

	materialized, err := s.MaterializeClusters(ctx)
	if err != nil {
		return nil, err
	}

	if materialized != assigned {
		// A concurrent pass relabelled between our two steps; the next pass heals it.
		logger.ClusterWarn("label_drift", "Materialized cluster count differs from assignment", nil, map[string]interface{}{
			"assigned":     assigned,
			"materialized": materialized,
		})
	}

	return &services.ReclusterResult{Clusters: materialized, Duration: time.Since(start)}, nil
}

func (s *ClusterServiceImpl) GetRegionMaps(ctx context.Context) (*services.RegionMaps, error) {
	clusters, err := retry.Once(ctx, s.settings.QueryTimeout, s.clusterRepo.List)
	if err == nil {
		if clusters == nil {
			clusters = []models.ReportCluster{}
		}
		return &services.RegionMaps{Clusters: clusters}, nil
	}

	logger.ClusterError("list_failed", "Failed to read cluster projection", err, nil)
	if s.cache != nil {
		cached, ok, cerr := s.cache.LoadRegionMaps(ctx)
		if cerr == nil && ok {
			logger.ClusterWarn("serving_stale", "Serving last-known-good region map", err, map[string]interface{}{"clusters": len(cached)})
			return &services.RegionMaps{Clusters: cached, Stale: true}, nil
		}
		if cerr != nil {
			logger.ClusterWarn("cache_load_failed", "Region map cache unavailable", cerr, nil)
		}
	}
	return nil, fmt.Errorf("%w: region maps unavailable: %v", services.ErrUpstream, err)
}
