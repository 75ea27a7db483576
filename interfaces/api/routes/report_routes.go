package routes

import (
	"github.com/gofiber/fiber/v2"

	"incident-map/interfaces/api/handlers"
)

func SetupReportRoutes(router fiber.Router, h *handlers.Handlers, protected fiber.Handler) {
	reports := router.Group("/reports")

	reports.Get("/", h.Report.GetRegionMaps)
	reports.Get("/sos", h.Report.ListSOSReports)
	reports.Get("/:id", h.Report.GetReport)
	reports.Get("/:id/images", h.ReportImage.ListReportImages)

	reports.Post("/", protected, h.Report.CreateReport)
	reports.Put("/:id", protected, h.Report.UpdateReport)
	reports.Delete("/:id", protected, h.Report.DeleteReport)
}

func SetupReportImageRoutes(router fiber.Router, h *handlers.Handlers, protected fiber.Handler) {
	images := router.Group("/report-images")

	// Matching is open: anyone may look for a missing person.
	images.Post("/match", h.ReportImage.MatchImage)
	images.Post("/match/vector", h.ReportImage.MatchVector)

	images.Post("/", protected, h.ReportImage.UploadImage)
	images.Put("/:id", protected, h.ReportImage.ReplaceImage)
	images.Delete("/:id", protected, h.ReportImage.DeleteImage)
}
