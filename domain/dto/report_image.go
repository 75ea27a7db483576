package dto

import (
	"time"

	"github.com/google/uuid"
)

type ReportImageResponse struct {
	ID        uuid.UUID `json:"id"`
	ReportID  uuid.UUID `json:"report_id"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"image_url"`
	HasFace   bool      `json:"has_face"`
	CreatedAt time.Time `json:"created_at"`
}

// MatchVectorRequest searches with an embedding computed elsewhere. A missing
// threshold means the configured default; 0 is a real threshold.
type MatchVectorRequest struct {
	Embedding []float32 `json:"embedding" validate:"required"`
	Threshold *float64  `json:"threshold" validate:"omitempty,gte=-1,lt=1"`
	Limit     int       `json:"limit" validate:"gte=0,lte=100"`
}
