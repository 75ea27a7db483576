package faceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"incident-map/domain/services"
	"incident-map/pkg/embedding"
	"incident-map/pkg/retry"
)

// EmbeddingClient talks to the face embedding service
type EmbeddingClient struct {
	baseURL    string
	httpClient *http.Client
}

// EmbeddingResponse is what /api/face/embedding answers. A present but null or
// empty vector means the image has no face; a missing vector is a protocol error.
type EmbeddingResponse struct {
	Vector json.RawMessage `json:"vector"`
	Error  string          `json:"error,omitempty"`
}

// ErrMalformedResponse is a 200 answer that carries neither a vector nor a no-face signal.
var ErrMalformedResponse = errors.New("malformed embedding response")

// HealthResponse is the response from health check
type HealthResponse struct {
	Status  string `json:"status"`
	Model   string `json:"model"`
	Version string `json:"version"`
}

var _ services.Embedder = (*EmbeddingClient)(nil)

// NewEmbeddingClient creates a new embedding service client
func NewEmbeddingClient(baseURL string, timeout time.Duration) *EmbeddingClient {
	if timeout <= 0 {
		timeout = 60 * time.Second // CPU inference is slow
	}
	return &EmbeddingClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Embed uploads the image as multipart field "img" and returns its 128-d face
// vector, or nil when no face was found.
func (c *EmbeddingClient) Embed(ctx context.Context, imageData []byte, filename string) ([]float32, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("img", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/face/embedding", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		// the image itself was rejected; asking again will not help
		return nil, fmt.Errorf("%w: embedding service rejected image (status %d): %s", retry.ErrPermanent, resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service error (status %d): %s", resp.StatusCode, string(body))
	}

	return parseEmbedding(body)
}

func parseEmbedding(body []byte) ([]float32, error) {
	var result EmbeddingResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("%w: service reported %q", ErrMalformedResponse, result.Error)
	}
	if len(result.Vector) == 0 {
		return nil, fmt.Errorf("%w: no vector field", ErrMalformedResponse)
	}
	if string(result.Vector) == "null" {
		return nil, nil
	}

	var vec []float32
	if err := json.Unmarshal(result.Vector, &vec); err != nil {
		return nil, fmt.Errorf("%w: vector: %v", ErrMalformedResponse, err)
	}
	if len(vec) == 0 {
		return nil, nil
	}
	if err := embedding.CheckDimension(vec); err != nil {
		return nil, fmt.Errorf("%w: %v", retry.ErrPermanent, err)
	}
	return vec, nil
}

// Health checks if the embedding service is healthy
func (c *EmbeddingClient) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call health API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}

	var result HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}

// IsAvailable checks if the embedding service is available
func (c *EmbeddingClient) IsAvailable(ctx context.Context) bool {
	health, err := c.Health(ctx)
	if err != nil {
		return false
	}
	return health.Status == "ok"
}

// Disabled is the Embedder used when FACE_API_ENABLED is off: every image is
// stored without a face.
type Disabled struct{}

func (Disabled) Embed(ctx context.Context, imageData []byte, filename string) ([]float32, error) {
	return nil, nil
}
