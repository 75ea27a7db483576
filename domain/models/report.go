package models

import (
	"time"

	"github.com/google/uuid"
)

type ReportType string

const (
	ReportTypeNormal ReportType = "normal"
	ReportTypeSOS    ReportType = "sos"
)

// NoiseClusterID marks a report that belongs to no cluster.
const NoiseClusterID = "-1"

type Report struct {
	ID          uuid.UUID  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name        string     `gorm:"not null"`
	Description string     `gorm:"not null"`
	Address     string     `gorm:"not null"`
	Country     string     `gorm:"not null;default:''"`
	City        string     `gorm:"not null;default:''"`
	Type        ReportType `gorm:"type:varchar(32);not null;index"`
	Location    GeoPoint   `gorm:"type:geometry(Point,4326);not null"`
	ClusterID   string     `gorm:"not null;default:'-1';index"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// Relations
	User   *User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Images []ReportImage `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE"`
}

func (Report) TableName() string {
	return "reports"
}

func (r *Report) IsSOS() bool {
	return r.Type == ReportTypeSOS
}

// ClusterLabel is one report's DBSCAN assignment.
type ClusterLabel struct {
	ReportID  uuid.UUID
	ClusterID string
}
