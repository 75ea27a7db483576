package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"incident-map/domain/models"
	"incident-map/domain/repositories"
	"incident-map/pkg/logger"
	"incident-map/pkg/retry"
)

func TestMain(m *testing.M) {
	dir, _ := os.MkdirTemp("", "worker-logs")
	if l, err := logger.NewLogger(dir, false); err == nil {
		logger.SetDefault(l)
	}
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

type faceImages struct {
	repositories.ReportImageRepository
	images []models.ReportImage
	err    error
}

func (f *faceImages) ListWithFaces(ctx context.Context) ([]models.ReportImage, error) {
	return f.images, f.err
}

type flakyIndex struct {
	repositories.EmbeddingIndex
	mu       sync.Mutex
	calls    map[uuid.UUID]int
	failures map[uuid.UUID]error // returned on the first call only
	always   map[uuid.UUID]error
}

func (x *flakyIndex) Upsert(ctx context.Context, image *models.ReportImage) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.calls[image.ID]++
	if err, ok := x.always[image.ID]; ok {
		return err
	}
	if err, ok := x.failures[image.ID]; ok && x.calls[image.ID] == 1 {
		return err
	}
	return nil
}

func newFaceImages(n int) []models.ReportImage {
	images := make([]models.ReportImage, n)
	for i := range images {
		images[i] = models.ReportImage{ID: uuid.New(), Name: fmt.Sprintf("img-%d.jpg", i)}
		images[i].SetEmbedding(make([]float32, 128))
	}
	return images
}

func newTestWorker(images []models.ReportImage, index *flakyIndex) *IndexWorker {
	w := NewIndexWorker(&faceImages{images: images}, index, 0)
	w.baseRetryDelay = time.Millisecond
	return w
}

func TestReindexRetriesTransientFailures(t *testing.T) {
	images := newFaceImages(6)
	index := &flakyIndex{
		calls:    map[uuid.UUID]int{},
		failures: map[uuid.UUID]error{images[0].ID: errors.New("connection reset")},
		always:   map[uuid.UUID]error{images[1].ID: fmt.Errorf("bad vector: %w", retry.ErrPermanent)},
	}
	w := newTestWorker(images, index)

	result, err := w.Reindex(context.Background())
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if result.Total != 6 || result.Indexed != 5 || result.Failed != 1 {
		t.Errorf("result = %+v, want 6 total, 5 indexed, 1 failed", result)
	}
	if index.calls[images[0].ID] != 2 {
		t.Errorf("transient failure attempts = %d, want 2", index.calls[images[0].ID])
	}
	if index.calls[images[1].ID] != 1 {
		t.Errorf("permanent failure attempts = %d, want 1", index.calls[images[1].ID])
	}
}

func TestReindexListError(t *testing.T) {
	w := NewIndexWorker(&faceImages{err: errors.New("db down")}, &flakyIndex{calls: map[uuid.UUID]int{}}, 0)
	if _, err := w.Reindex(context.Background()); err == nil {
		t.Fatal("expected list error")
	}
}

func TestReindexSkipsWhenCircuitOpen(t *testing.T) {
	images := newFaceImages(1)
	index := &flakyIndex{calls: map[uuid.UUID]int{}}
	w := newTestWorker(images, index)
	for i := 0; i < 10; i++ {
		w.circuitBreaker.RecordFailure()
	}

	if _, err := w.Reindex(context.Background()); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if len(index.calls) != 0 {
		t.Errorf("index called while circuit open")
	}
}

func TestCircuitBreakerHalfOpens(t *testing.T) {
	cb := NewCircuitBreaker(2, 10*time.Millisecond)
	cb.RecordFailure()
	if cb.IsOpen() {
		t.Fatal("open below threshold")
	}
	cb.RecordFailure()
	if !cb.IsOpen() {
		t.Fatal("closed at threshold")
	}
	time.Sleep(20 * time.Millisecond)
	if cb.IsOpen() {
		t.Error("still open after reset timeout")
	}
	cb.RecordSuccess()
	if cb.GetFailures() != 0 {
		t.Errorf("failures = %d after success", cb.GetFailures())
	}
}

func TestStartWithZeroIntervalIsNoop(t *testing.T) {
	w := newTestWorker(nil, &flakyIndex{calls: map[uuid.UUID]int{}})
	w.Start()
	if w.IsRunning() {
		t.Error("worker started with zero interval")
	}
	w.Stop()
}
