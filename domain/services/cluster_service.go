package services

import (
	"context"
	"time"

	"incident-map/domain/models"
)

// RegionMaps is the cluster projection served to map clients.
type RegionMaps struct {
	Clusters []models.ReportCluster `json:"clusters"`
	// Stale is set when the live table could not be read and the cached
	// last-known-good projection was served instead.
	Stale bool `json:"stale"`
}

type ReclusterResult struct {
	Clusters int           `json:"clusters"`
	Duration time.Duration `json:"duration"`
}

type ClusterService interface {
	// AssignClusters relabels every report and returns the number of clusters.
	AssignClusters(ctx context.Context, minPoints int, maxDistanceMeters float64) (int, error)
	// MaterializeClusters rebuilds and atomically swaps the cluster projection.
	MaterializeClusters(ctx context.Context) (int, error)
	// Recluster runs AssignClusters with the configured parameters, then MaterializeClusters.
	Recluster(ctx context.Context) (*ReclusterResult, error)
	GetRegionMaps(ctx context.Context) (*RegionMaps, error)
}

// RegionMapCache keeps the last projection that was successfully materialized.
type RegionMapCache interface {
	SaveRegionMaps(ctx context.Context, clusters []models.ReportCluster) error
	// LoadRegionMaps reports false when nothing has been cached yet.
	LoadRegionMaps(ctx context.Context) ([]models.ReportCluster, bool, error)
}
