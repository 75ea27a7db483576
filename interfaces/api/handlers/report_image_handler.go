package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"incident-map/domain/dto"
	"incident-map/domain/services"
	"incident-map/pkg/config"
	"incident-map/pkg/embedding"
	"incident-map/pkg/utils"
)

type ReportImageHandler struct {
	faceService services.FaceService
	match       config.MatchConfig
}

func NewReportImageHandler(faceService services.FaceService, match config.MatchConfig) *ReportImageHandler {
	return &ReportImageHandler{faceService: faceService, match: match}
}

// UploadImage attaches an image to a report the caller owns
// @Accept multipart/form-data
// @Param img formData file true "Image file"
// @Param report_id formData string true "Report ID"
// @Router /api/v1/report-images [post]
func (h *ReportImageHandler) UploadImage(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}

	reportID, err := uuid.Parse(c.FormValue("report_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid report_id")
	}

	upload, err := readImage(c, "img")
	if err != nil {
		return err
	}

	image, err := h.faceService.AddImage(c.UserContext(), actor, reportID, upload)
	if err != nil {
		return err
	}
	return utils.CreatedResponse(c, "Image uploaded", dto.ReportImageToResponse(image))
}

// @Router /api/v1/report-images/{id} [put]
func (h *ReportImageHandler) ReplaceImage(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	upload, err := readImage(c, "img")
	if err != nil {
		return err
	}

	image, err := h.faceService.ReplaceImage(c.UserContext(), actor, id, upload)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Image replaced", dto.ReportImageToResponse(image))
}

// @Router /api/v1/report-images/{id} [delete]
func (h *ReportImageHandler) DeleteImage(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.faceService.DeleteImage(c.UserContext(), actor, id); err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Image deleted", nil)
}

// @Router /api/v1/reports/{id}/images [get]
func (h *ReportImageHandler) ListReportImages(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	images, err := h.faceService.ListReportImages(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Images retrieved", dto.ReportImagesToResponses(images))
}

// MatchImage finds stored faces similar to the uploaded one
// @Accept multipart/form-data
// @Param img formData file true "Image file"
// @Param threshold query number false "Similarity threshold [-1, 1)" default(0.9)
// @Param limit query int false "Max results" default(5)
// @Router /api/v1/report-images/match [post]
func (h *ReportImageHandler) MatchImage(c *fiber.Ctx) error {
	upload, err := readImage(c, "img")
	if err != nil {
		return err
	}
	var requested *float64
	if raw := c.Query("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "threshold must be a number")
		}
		requested = &v
	}
	threshold, limit, err := h.matchParams(requested, c.QueryInt("limit", 0))
	if err != nil {
		return err
	}

	matches, err := h.faceService.MatchImage(c.UserContext(), upload.Data, upload.Name, threshold, limit)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Matches retrieved", fiber.Map{
		"matches": matches,
		"count":   len(matches),
	})
}

// MatchVector is MatchImage for callers that already hold an embedding
// @Router /api/v1/report-images/match/vector [post]
func (h *ReportImageHandler) MatchVector(c *fiber.Ctx) error {
	var req dto.MatchVectorRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	threshold, limit, err := h.matchParams(req.Threshold, req.Limit)
	if err != nil {
		return err
	}

	matches, err := h.faceService.FindMatches(c.UserContext(), req.Embedding, threshold, limit)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Matches retrieved", fiber.Map{
		"matches": matches,
		"count":   len(matches),
	})
}

// matchParams applies configured defaults to an unset threshold or limit. A set
// threshold is kept as is, including 0 and negatives.
func (h *ReportImageHandler) matchParams(threshold *float64, limit int) (float64, int, error) {
	t := h.match.Threshold
	if threshold != nil {
		t = *threshold
	}
	if err := embedding.CheckThreshold(t); err != nil {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if limit <= 0 || limit > 100 {
		limit = h.match.Limit
	}
	return t, limit, nil
}
