package serviceimpl

import (
	"context"
	"errors"
	"testing"

	"incident-map/domain/models"
	"incident-map/domain/services"
)

type stubClusterIndex struct {
	log          *[]string
	assignErr    error
	projectErrs  []error
	projection   []models.ReportCluster
	assigned     int
	projectCalls int
}

func (s *stubClusterIndex) AssignClusterLabels(ctx context.Context, minPoints int, maxDistanceMeters float64) (int, error) {
	*s.log = append(*s.log, "assign")
	return s.assigned, s.assignErr
}

func (s *stubClusterIndex) BuildClusterProjection(ctx context.Context) ([]models.ReportCluster, error) {
	*s.log = append(*s.log, "project")
	s.projectCalls++
	if len(s.projectErrs) > 0 {
		err := s.projectErrs[0]
		s.projectErrs = s.projectErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return s.projection, nil
}

type stubClusterRepo struct {
	log      *[]string
	stored   []models.ReportCluster
	listErr  error
	replaced int
}

func (s *stubClusterRepo) ReplaceAll(ctx context.Context, clusters []models.ReportCluster) error {
	*s.log = append(*s.log, "replace")
	s.replaced++
	s.stored = clusters
	return nil
}

func (s *stubClusterRepo) List(ctx context.Context) ([]models.ReportCluster, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.stored, nil
}

type stubRegionCache struct {
	clusters []models.ReportCluster
	saved    bool
}

func (s *stubRegionCache) SaveRegionMaps(ctx context.Context, clusters []models.ReportCluster) error {
	s.clusters = clusters
	s.saved = true
	return nil
}

func (s *stubRegionCache) LoadRegionMaps(ctx context.Context) ([]models.ReportCluster, bool, error) {
	return s.clusters, s.saved, nil
}

func newClusterFixture() (*stubClusterIndex, *stubClusterRepo, *stubRegionCache, services.ClusterService, *[]string) {
	var log []string
	index := &stubClusterIndex{log: &log, assigned: 1, projection: []models.ReportCluster{{ClusterID: "0"}}}
	repo := &stubClusterRepo{log: &log}
	cache := &stubRegionCache{}
	svc := NewClusterService(index, repo, cache, ClusterSettings{MinPoints: 2, MaxDistanceMeters: 10000})
	return index, repo, cache, svc, &log
}

func TestReclusterAssignsBeforeMaterializing(t *testing.T) {
	_, repo, cache, svc, log := newClusterFixture()

	res, err := svc.Recluster(context.Background())
	if err != nil {
		t.Fatalf("Recluster: %v", err)
	}
	if res.Clusters != 1 {
		t.Errorf("Clusters = %d, want 1", res.Clusters)
	}

	want := []string{"assign", "project", "replace"}
	if len(*log) != len(want) {
		t.Fatalf("call order = %v, want %v", *log, want)
	}
	for i := range want {
		if (*log)[i] != want[i] {
			t.Fatalf("call order = %v, want %v", *log, want)
		}
	}
	if repo.replaced != 1 || !cache.saved {
		t.Errorf("projection not swapped and cached: replaced=%d saved=%v", repo.replaced, cache.saved)
	}
}

func TestReclusterAssignFailureSkipsMaterialize(t *testing.T) {
	index, repo, _, svc, _ := newClusterFixture()
	index.assignErr = errBoom

	_, err := svc.Recluster(context.Background())
	if !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
	if index.projectCalls != 0 || repo.replaced != 0 {
		t.Errorf("materialized after failed assignment: project=%d replace=%d", index.projectCalls, repo.replaced)
	}
}

func TestMaterializeRetriesProjectionOnce(t *testing.T) {
	index, repo, _, svc, _ := newClusterFixture()
	index.projectErrs = []error{errBoom, nil}

	n, err := svc.MaterializeClusters(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("MaterializeClusters = %d, %v", n, err)
	}
	if index.projectCalls != 2 || repo.replaced != 1 {
		t.Errorf("projectCalls=%d replaced=%d", index.projectCalls, repo.replaced)
	}

	index.projectErrs = []error{errBoom, errBoom}
	if _, err := svc.MaterializeClusters(context.Background()); !errors.Is(err, services.ErrUpstream) {
		t.Errorf("persistent failure: err = %v", err)
	}
	if repo.replaced != 1 {
		t.Error("a failed projection must not replace the table")
	}
}

func TestAssignClustersValidation(t *testing.T) {
	_, _, _, svc, log := newClusterFixture()

	tests := []struct {
		name      string
		minPoints int
		distance  float64
	}{
		{"zero minPoints", 0, 10000},
		{"zero distance", 2, 0},
		{"negative distance", 2, -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.AssignClusters(context.Background(), tt.minPoints, tt.distance); !errors.Is(err, services.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
	if len(*log) != 0 {
		t.Errorf("index touched on invalid input: %v", *log)
	}
}

func TestGetRegionMapsFallsBackToCache(t *testing.T) {
	_, repo, _, svc, _ := newClusterFixture()

	if _, err := svc.Recluster(context.Background()); err != nil {
		t.Fatalf("Recluster: %v", err)
	}

	live, err := svc.GetRegionMaps(context.Background())
	if err != nil || live.Stale || len(live.Clusters) != 1 {
		t.Fatalf("live read = %+v, %v", live, err)
	}

	repo.listErr = errBoom
	stale, err := svc.GetRegionMaps(context.Background())
	if err != nil {
		t.Fatalf("GetRegionMaps with cache: %v", err)
	}
	if !stale.Stale || len(stale.Clusters) != 1 {
		t.Errorf("stale read = %+v", stale)
	}
}

func TestGetRegionMapsWithoutCacheFails(t *testing.T) {
	var log []string
	repo := &stubClusterRepo{log: &log, listErr: errBoom}
	svc := NewClusterService(&stubClusterIndex{log: &log}, repo, nil, ClusterSettings{})

	if _, err := svc.GetRegionMaps(context.Background()); !errors.Is(err, services.ErrUpstream) {
		t.Errorf("err = %v, want ErrUpstream", err)
	}
}

func TestGetRegionMapsEmptyIsNotNil(t *testing.T) {
	var log []string
	svc := NewClusterService(&stubClusterIndex{log: &log}, &stubClusterRepo{log: &log}, nil, ClusterSettings{})

	maps, err := svc.GetRegionMaps(context.Background())
	if err != nil {
		t.Fatalf("GetRegionMaps: %v", err)
	}
	if maps.Clusters == nil {
		t.Error("empty projection should be an empty slice")
	}
}
