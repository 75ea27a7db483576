package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"incident-map/domain/models"
	"incident-map/domain/services"
)

const regionMapKey = "incident-map:region-maps:last-good"

// regionMapSnapshot is the cached value. SavedAt lets operators see how stale it is.
type regionMapSnapshot struct {
	SavedAt  time.Time              `json:"saved_at"`
	Clusters []models.ReportCluster `json:"clusters"`
}

// RegionMapCache stores the last successfully materialized projection. It has
// no TTL: an old map is still better than none when the database is down.
type RegionMapCache struct {
	client *redis.Client
}

var _ services.RegionMapCache = (*RegionMapCache)(nil)

func NewRegionMapCache(client *RedisClient) *RegionMapCache {
	return &RegionMapCache{client: client.Client()}
}

func (c *RegionMapCache) SaveRegionMaps(ctx context.Context, clusters []models.ReportCluster) error {
	if clusters == nil {
		clusters = []models.ReportCluster{}
	}
	body, err := json.Marshal(regionMapSnapshot{SavedAt: time.Now().UTC(), Clusters: clusters})
	if err != nil {
		return fmt.Errorf("failed to encode region maps: %w", err)
	}
	return c.client.Set(ctx, regionMapKey, body, 0).Err()
}

func (c *RegionMapCache) LoadRegionMaps(ctx context.Context) ([]models.ReportCluster, bool, error) {
	body, err := c.client.Get(ctx, regionMapKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var snap regionMapSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, false, fmt.Errorf("failed to decode region maps: %w", err)
	}
	return snap.Clusters, true, nil
}
