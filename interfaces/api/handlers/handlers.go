package handlers

import (
	"incident-map/domain/services"
	"incident-map/pkg/config"
)

// Services contains all the services needed for handlers
type Services struct {
	ReportService  services.ReportService
	ClusterService services.ClusterService
	FaceService    services.FaceService
	UserService    services.UserService
}

// Handlers contains all HTTP handlers
type Handlers struct {
	Report      *ReportHandler
	ReportImage *ReportImageHandler
	User        *UserHandler
	Log         *LogHandler
	Health      *HealthHandler
}

// NewHandlers wires every handler. health may be nil.
func NewHandlers(svc *Services, health *HealthHandler, cfg *config.Config) *Handlers {
	return &Handlers{
		Report:      NewReportHandler(svc.ReportService, svc.ClusterService),
		ReportImage: NewReportImageHandler(svc.FaceService, cfg.Match),
		User:        NewUserHandler(svc.UserService),
		Log:         NewLogHandler(),
		Health:      health,
	}
}
