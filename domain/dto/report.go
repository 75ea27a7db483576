package dto

import (
	"time"

	"github.com/google/uuid"

	"incident-map/domain/services"
)

// CreateReportRequest is the body of POST /reports
type CreateReportRequest struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description" validate:"required"`
	Address     string   `json:"address" validate:"required"`
	Country     string   `json:"country"`
	City        string   `json:"city"`
	Type        string   `json:"type" validate:"required,oneof=normal sos"`
	Longitude   *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Latitude    *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
}

// UpdateReportRequest is the body of PUT /reports/:id. Omitted fields are left as they are.
type UpdateReportRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string  `json:"description" validate:"omitempty,min=1"`
	Address     *string  `json:"address" validate:"omitempty,min=1"`
	Country     *string  `json:"country"`
	City        *string  `json:"city"`
	Type        *string  `json:"type" validate:"omitempty,oneof=normal sos"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
}

type ReportOwnerResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
}

type ReportResponse struct {
	ID          uuid.UUID             `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Address     string                `json:"address"`
	Country     string                `json:"country"`
	City        string                `json:"city"`
	Type        string                `json:"type"`
	Longitude   float64               `json:"longitude"`
	Latitude    float64               `json:"latitude"`
	ClusterID   string                `json:"cluster_id"`
	UserID      uuid.UUID             `json:"user_id"`
	User        *ReportOwnerResponse  `json:"user,omitempty"`
	Images      []ReportImageResponse `json:"images"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// CreateReportResponse carries the alert outcome for sos reports.
type CreateReportResponse struct {
	Report          *ReportResponse           `json:"report"`
	AlertRecipients []services.AlertRecipient `json:"alert_recipients,omitempty"`
	AlertDegraded   bool                      `json:"alert_degraded,omitempty"`
}

type ReportListResponse struct {
	Reports []ReportResponse `json:"reports"`
	Total   int64            `json:"total"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
}
