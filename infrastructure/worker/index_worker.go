package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"incident-map/domain/models"
	"incident-map/domain/repositories"
	"incident-map/pkg/logger"
	"incident-map/pkg/retry"
)

// IndexWorker reconciles an external embedding index with the report_images
// table. Rows are the source of truth; an index write that failed after the row
// committed is repaired on the next pass.
type IndexWorker struct {
	imageRepo repositories.ReportImageRepository
	index     repositories.EmbeddingIndex

	// Worker control
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.Mutex
	passMu    sync.Mutex

	// Configuration
	pollInterval   time.Duration
	maxConcurrent  int
	maxRetries     int
	baseRetryDelay time.Duration

	circuitBreaker *CircuitBreaker
}

// CircuitBreaker stops passes after repeated failures until resetTimeout elapses.
type CircuitBreaker struct {
	failures     int32
	threshold    int32
	resetTimeout time.Duration
	lastFailure  time.Time
	mu           sync.RWMutex
}

func NewCircuitBreaker(threshold int32, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
	}
}

// IsOpen returns true if circuit is open (should not proceed)
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if atomic.LoadInt32(&cb.failures) >= cb.threshold {
		// half-open once the timeout has passed
		return time.Since(cb.lastFailure) <= cb.resetTimeout
	}
	return false
}

func (cb *CircuitBreaker) RecordSuccess() {
	atomic.StoreInt32(&cb.failures, 0)
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	atomic.AddInt32(&cb.failures, 1)
	cb.lastFailure = time.Now()
}

func (cb *CircuitBreaker) GetFailures() int32 {
	return atomic.LoadInt32(&cb.failures)
}

// ReindexResult summarizes one reconciliation pass.
type ReindexResult struct {
	Total    int           `json:"total"`
	Indexed  int           `json:"indexed"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

var ErrCircuitOpen = errors.New("embedding index circuit open")

func NewIndexWorker(imageRepo repositories.ReportImageRepository, index repositories.EmbeddingIndex, pollInterval time.Duration) *IndexWorker {
	return &IndexWorker{
		imageRepo:      imageRepo,
		index:          index,
		pollInterval:   pollInterval,
		maxConcurrent:  4,
		maxRetries:     2,
		baseRetryDelay: time.Second,
		circuitBreaker: NewCircuitBreaker(10, time.Minute),
	}
}

func (w *IndexWorker) Start() {
	w.mu.Lock()
	if w.isRunning || w.pollInterval <= 0 {
		w.mu.Unlock()
		return
	}
	w.isRunning = true
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run()

	logger.Face("index_worker_started", "Embedding index worker started", map[string]interface{}{"interval": w.pollInterval.String()})
}

func (w *IndexWorker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	logger.Face("index_worker_stopped", "Embedding index worker stopped", nil)
}

func (w *IndexWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}

func (w *IndexWorker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Reindex(w.ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.FaceError("index_sync_failed", "Embedding index pass failed", err, nil)
			}
		}
	}
}

// Reindex pushes every image with a face into the index. Passes never overlap.
func (w *IndexWorker) Reindex(ctx context.Context) (*ReindexResult, error) {
	if w.circuitBreaker.IsOpen() {
		logger.Warn(logger.CategoryFace, "index_circuit_open", "Skipping index pass", map[string]interface{}{"failures": w.circuitBreaker.GetFailures()})
		return nil, ErrCircuitOpen
	}

	w.passMu.Lock()
	defer w.passMu.Unlock()

	start := time.Now()
	images, err := w.imageRepo.ListWithFaces(ctx)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, w.maxConcurrent)
	var failed int32

	for i := range images {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		}
		wg.Add(1)

		go func(img *models.ReportImage) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := w.upsertWithRetry(ctx, img); err != nil {
				atomic.AddInt32(&failed, 1)
				w.circuitBreaker.RecordFailure()
				logger.FaceError("index_upsert_failed", "Failed to index image", err, map[string]interface{}{"image_id": img.ID.String()})
				return
			}
			w.circuitBreaker.RecordSuccess()
		}(&images[i])
	}
	wg.Wait()

	result := &ReindexResult{
		Total:    len(images),
		Indexed:  len(images) - int(failed),
		Failed:   int(failed),
		Duration: time.Since(start),
	}
	logger.Face("index_sync_done", "Embedding index pass complete", map[string]interface{}{
		"total":       result.Total,
		"failed":      result.Failed,
		"duration_ms": result.Duration.Milliseconds(),
	})
	return result, nil
}

func (w *IndexWorker) upsertWithRetry(ctx context.Context, img *models.ReportImage) error {
	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			delay := w.baseRetryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = w.index.Upsert(ctx, img)
		if lastErr == nil || errors.Is(lastErr, retry.ErrPermanent) {
			return lastErr
		}
	}
	return lastErr
}
