package handlers

import (
	"github.com/gofiber/fiber/v2"

	"incident-map/domain/dto"
	"incident-map/domain/services"
	"incident-map/pkg/utils"
)

type ReportHandler struct {
	reportService  services.ReportService
	clusterService services.ClusterService
}

func NewReportHandler(reportService services.ReportService, clusterService services.ClusterService) *ReportHandler {
	return &ReportHandler{
		reportService:  reportService,
		clusterService: clusterService,
	}
}

// GetRegionMaps returns every materialized cluster
// @Router /api/v1/reports [get]
func (h *ReportHandler) GetRegionMaps(c *fiber.Ctx) error {
	maps, err := h.clusterService.GetRegionMaps(c.UserContext())
	if err != nil {
		return err
	}
	if maps.Stale {
		c.Set("Warning", `110 - "region map served from cache"`)
	}
	return utils.SuccessResponse(c, "Region maps retrieved", maps)
}

// ListSOSReports returns sos reports, newest first
// @Router /api/v1/reports/sos [get]
func (h *ReportHandler) ListSOSReports(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	reports, total, err := h.reportService.ListSOSReports(c.UserContext(), page, limit)
	if err != nil {
		return err
	}

	return utils.SuccessResponse(c, "SOS reports retrieved", dto.ReportListResponse{
		Reports: dto.ReportsToResponses(reports),
		Total:   total,
		Page:    page,
		Limit:   limit,
	})
}

// @Router /api/v1/reports/{id} [get]
func (h *ReportHandler) GetReport(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	report, err := h.reportService.GetReport(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Report retrieved", dto.ReportToReportResponse(report))
}

// CreateReport stores a report, reclusters and, for sos, alerts nearby users and contacts
// @Router /api/v1/reports [post]
func (h *ReportHandler) CreateReport(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}

	var req dto.CreateReportRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.reportService.CreateReport(c.UserContext(), actor, dto.CreateReportRequestToService(&req))
	if err != nil {
		return err
	}
	return utils.CreatedResponse(c, "Report created", dto.CreateReportResultToResponse(result))
}

// @Router /api/v1/reports/{id} [put]
func (h *ReportHandler) UpdateReport(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateReportRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	report, err := h.reportService.UpdateReport(c.UserContext(), actor, id, dto.UpdateReportRequestToService(&req))
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Report updated", dto.ReportToReportResponse(report))
}

// @Router /api/v1/reports/{id} [delete]
func (h *ReportHandler) DeleteReport(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.reportService.DeleteReport(c.UserContext(), actor, id); err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Report deleted", nil)
}

// Recluster runs a clustering pass on demand
// @Router /api/v1/admin/recluster [post]
func (h *ReportHandler) Recluster(c *fiber.Ctx) error {
	result, err := h.clusterService.Recluster(c.UserContext())
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Clusters rebuilt", fiber.Map{
		"clusters":    result.Clusters,
		"duration_ms": result.Duration.Milliseconds(),
	})
}
