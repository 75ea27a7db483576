package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// ReportCluster is a materialized cluster: hull, centroid and member markers.
type ReportCluster struct {
	ClusterID string         `gorm:"primaryKey" json:"cluster_id"`
	Polygon   Geometry       `gorm:"type:jsonb;not null" json:"polygon"`
	Centroid  Geometry       `gorm:"type:jsonb;not null" json:"centroid"`
	Markers   ClusterMarkers `gorm:"type:jsonb;not null" json:"markers"`
}

func (ReportCluster) TableName() string {
	return "report_clusters"
}

type MarkerUser struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

type MarkerImage struct {
	ID       uuid.UUID `json:"id"`
	ImageURL string    `json:"imageUrl"`
	Name     string    `json:"name"`
	HasFace  bool      `json:"hasFace"`
}

// ClusterMarker describes one member report of a cluster.
type ClusterMarker struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	Address   string        `json:"address"`
	Type      ReportType    `json:"type"`
	Longitude float64       `json:"longitude"`
	Latitude  float64       `json:"latitude"`
	User      *MarkerUser   `json:"user"`
	Images    []MarkerImage `json:"images"`
}

type ClusterMarkers []ClusterMarker

func (ClusterMarkers) GormDataType() string {
	return "jsonb"
}

func (m ClusterMarkers) Value() (driver.Value, error) {
	if m == nil {
		m = ClusterMarkers{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *ClusterMarkers) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("cluster markers: unsupported scan type")
	}
}

// MarkerFromReport builds a marker from a report with its User and Images loaded.
func MarkerFromReport(r *Report) ClusterMarker {
	m := ClusterMarker{
		ID:        r.ID,
		Name:      r.Name,
		Address:   r.Address,
		Type:      r.Type,
		Longitude: r.Location.Lon,
		Latitude:  r.Location.Lat,
		Images:    make([]MarkerImage, 0, len(r.Images)),
	}
	if r.User != nil {
		m.User = &MarkerUser{ID: r.User.ID, Username: r.User.Username, Email: r.User.Email}
	}
	for _, img := range r.Images {
		m.Images = append(m.Images, MarkerImage{ID: img.ID, ImageURL: img.ImageURL, Name: img.Name, HasFace: img.HasFace})
	}
	return m
}
