package serviceimpl

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"

	"incident-map/domain/models"
	"incident-map/domain/repositories"
	"incident-map/domain/services"
	"incident-map/pkg/logger"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "serviceimpl-logs")
	if err != nil {
		panic(err)
	}
	l, err := logger.NewLogger(dir, false)
	if err != nil {
		panic(err)
	}
	logger.SetDefault(l)

	code := m.Run()
	l.Close()
	os.RemoveAll(dir)
	os.Exit(code)
}

var errBoom = errors.New("boom")

// fakeReportRepo is an in-memory ReportRepository.
type fakeReportRepo struct {
	mu        sync.Mutex
	reports   map[uuid.UUID]*models.Report
	createErr error
	deleted   []uuid.UUID
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: make(map[uuid.UUID]*models.Report)}
}

func (r *fakeReportRepo) Create(ctx context.Context, report *models.Report) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	cp := *report
	r.reports[report.ID] = &cp
	return nil
}

func (r *fakeReportRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.reports[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *rep
	return &cp, nil
}

func (r *fakeReportRepo) GetWithRelations(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeReportRepo) ListByType(ctx context.Context, t models.ReportType, offset, limit int) ([]models.Report, int64, error) {
	var out []models.Report
	for _, rep := range r.sorted() {
		if rep.Type == t {
			out = append(out, rep)
		}
	}
	total := int64(len(out))
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *fakeReportRepo) Update(ctx context.Context, report *models.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reports[report.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *report
	r.reports[report.ID] = &cp
	return nil
}

func (r *fakeReportRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reports, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeReportRepo) sorted() []models.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Report, 0, len(r.reports))
	for _, rep := range r.reports {
		out = append(out, *rep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func (r *fakeReportRepo) ListLocations(ctx context.Context) ([]models.Report, error) {
	return r.sorted(), nil
}

func (r *fakeReportRepo) ListClustered(ctx context.Context) ([]models.Report, error) {
	var out []models.Report
	for _, rep := range r.sorted() {
		if rep.ClusterID != models.NoiseClusterID {
			out = append(out, rep)
		}
	}
	return out, nil
}

func (r *fakeReportRepo) ApplyClusterLabels(ctx context.Context, labels []models.ClusterLabel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range labels {
		if rep, ok := r.reports[l.ReportID]; ok {
			rep.ClusterID = l.ClusterID
		}
	}
	return nil
}

// fakeClusterService records Recluster calls.
type fakeClusterService struct {
	mu     sync.Mutex
	calls  int
	err    error
	ctxErr error
}

func (f *fakeClusterService) AssignClusters(ctx context.Context, minPoints int, maxDistanceMeters float64) (int, error) {
	return 0, nil
}

func (f *fakeClusterService) MaterializeClusters(ctx context.Context) (int, error) {
	return 0, nil
}

func (f *fakeClusterService) Recluster(ctx context.Context) (*services.ReclusterResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.ctxErr = ctx.Err()
	if f.err != nil {
		return nil, f.err
	}
	return &services.ReclusterResult{}, nil
}

func (f *fakeClusterService) GetRegionMaps(ctx context.Context) (*services.RegionMaps, error) {
	return &services.RegionMaps{}, nil
}

// fakeAlertService returns a canned resolution.
type fakeAlertService struct {
	resolution *services.AlertResolution
	err        error
	resolved   int
	dispatched int
}

func (f *fakeAlertService) ResolveAlertRecipients(ctx context.Context, creatorID uuid.UUID, location models.GeoPoint, radiusMeters float64) (*services.AlertResolution, error) {
	f.resolved++
	if f.err != nil {
		return nil, f.err
	}
	return f.resolution, nil
}

func (f *fakeAlertService) DispatchAlert(ctx context.Context, report *models.Report, recipients []services.AlertRecipient) error {
	f.dispatched++
	return nil
}

// fakeImageRepo is an in-memory ReportImageRepository; Report is filled from reports.
type fakeImageRepo struct {
	mu      sync.Mutex
	images  map[uuid.UUID]*models.ReportImage
	reports *fakeReportRepo
}

func newFakeImageRepo(reports *fakeReportRepo) *fakeImageRepo {
	return &fakeImageRepo{images: make(map[uuid.UUID]*models.ReportImage), reports: reports}
}

func (r *fakeImageRepo) Create(ctx context.Context, image *models.ReportImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if image.ID == uuid.Nil {
		image.ID = uuid.New()
	}
	cp := *image
	r.images[image.ID] = &cp
	return nil
}

func (r *fakeImageRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ReportImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *img
	return &cp, nil
}

func (r *fakeImageRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ReportImage, error) {
	var out []models.ReportImage
	for _, id := range ids {
		img, err := r.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if r.reports != nil {
			img.Report, _ = r.reports.GetByID(ctx, img.ReportID)
		}
		out = append(out, *img)
	}
	return out, nil
}

func (r *fakeImageRepo) GetByURL(ctx context.Context, imageURL string) (*models.ReportImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, img := range r.images {
		if img.ImageURL == imageURL {
			cp := *img
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeImageRepo) ListByReport(ctx context.Context, reportID uuid.UUID) ([]models.ReportImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ReportImage
	for _, img := range r.images {
		if img.ReportID == reportID {
			out = append(out, *img)
		}
	}
	return out, nil
}

func (r *fakeImageRepo) ListWithFaces(ctx context.Context) ([]models.ReportImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ReportImage
	for _, img := range r.images {
		if img.HasFace {
			out = append(out, *img)
		}
	}
	return out, nil
}

func (r *fakeImageRepo) Update(ctx context.Context, image *models.ReportImage) error {
	return r.Create(ctx, image)
}

func (r *fakeImageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.images, id)
	return nil
}

// fakeEmbeddingIndex returns canned hits and records index writes.
type fakeEmbeddingIndex struct {
	hits     []repositories.EmbeddingHit
	err      error
	searches int

	// last search arguments
	threshold float64
	limit     int
	upserted  []uuid.UUID
	removed   []uuid.UUID
}

func (f *fakeEmbeddingIndex) Upsert(ctx context.Context, image *models.ReportImage) error {
	f.upserted = append(f.upserted, image.ID)
	return nil
}

func (f *fakeEmbeddingIndex) Remove(ctx context.Context, imageID uuid.UUID) error {
	f.removed = append(f.removed, imageID)
	return nil
}

func (f *fakeEmbeddingIndex) Search(ctx context.Context, query []float32, threshold float64, limit int) ([]repositories.EmbeddingHit, error) {
	f.searches++
	f.threshold, f.limit = threshold, limit
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

// fakeEmbedder returns vec for every image.
type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, imageData []byte, filename string) ([]float32, error) {
	f.calls++
	return f.vec, f.err
}

// fakeStorage hands out predictable URLs.
type fakeStorage struct {
	uploads  []string
	deleted  []string
	replaced []string
	err      error
}

func (f *fakeStorage) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	url := "http://objects/" + filename
	f.uploads = append(f.uploads, url)
	return url, nil
}

func (f *fakeStorage) Replace(ctx context.Context, url string, data []byte, contentType string) (string, error) {
	f.replaced = append(f.replaced, url)
	return url, nil
}

func (f *fakeStorage) DeleteByURL(ctx context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

func vec128(first float32) []float32 {
	v := make([]float32, 128)
	v[0] = first
	return v
}
