package handlers

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"incident-map/domain/services"
	"incident-map/pkg/utils"
)

const maxImageSize = 10 * 1024 * 1024

// actorID returns the authenticated caller set by middleware.Protected.
func actorID(c *fiber.Ctx) (uuid.UUID, error) {
	user, ok := utils.CurrentUser(c)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
	}
	return user.ID, nil
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

// parseBody decodes and validates a JSON body.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := utils.ValidateStruct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// readImage loads multipart field as an image upload.
func readImage(c *fiber.Ctx, field string) (services.ImageUpload, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return services.ImageUpload{}, fiber.NewError(fiber.StatusBadRequest, "Image file is required")
	}
	if file.Size > maxImageSize {
		return services.ImageUpload{}, fiber.NewError(fiber.StatusBadRequest, "File size exceeds 10MB limit")
	}

	contentType := file.Header.Get("Content-Type")
	if !isValidImageType(contentType) {
		return services.ImageUpload{}, fiber.NewError(fiber.StatusBadRequest, "Invalid image type. Allowed: jpeg, png, webp, gif")
	}

	f, err := file.Open()
	if err != nil {
		return services.ImageUpload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageSize))
	if err != nil {
		return services.ImageUpload{}, err
	}

	return services.ImageUpload{Name: file.Filename, ContentType: contentType, Data: data}, nil
}

func isValidImageType(contentType string) bool {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp", "image/gif":
		return true
	}
	return false
}
