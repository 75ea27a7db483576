package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type ReportImage struct {
	ID       uuid.UUID `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ReportID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name     string    `gorm:"not null"`
	ImageURL string    `gorm:"not null;default:'/default.jpg'"`

	// 128-d face embedding; nil when no face was detected
	Encoding *pgvector.Vector `gorm:"type:vector(128)"`
	HasFace  bool             `gorm:"not null;default:false;index"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// Relations
	Report *Report `gorm:"foreignKey:ReportID"`
}

func (ReportImage) TableName() string {
	return "report_images"
}

// Embedding returns the face vector, or nil when the image has none.
func (i *ReportImage) Embedding() []float32 {
	if i.Encoding == nil {
		return nil
	}
	return i.Encoding.Slice()
}

// SetEmbedding stores v and keeps HasFace in step with it.
func (i *ReportImage) SetEmbedding(v []float32) {
	if len(v) == 0 {
		i.Encoding = nil
		i.HasFace = false
		return
	}
	vec := pgvector.NewVector(v)
	i.Encoding = &vec
	i.HasFace = true
}
