package handlers

import (
	"github.com/gofiber/fiber/v2"

	"incident-map/domain/dto"
	"incident-map/domain/services"
	"incident-map/pkg/utils"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// @Router /api/v1/users/me [get]
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}

	user, err := h.userService.GetUser(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "User retrieved", dto.UserToUserResponse(user))
}

// UpdateLocation records where the caller is, for proximity alerts
// @Router /api/v1/users/location [put]
func (h *UserHandler) UpdateLocation(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}

	var req dto.UpdateLocationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if err := h.userService.UpdateLocation(c.UserContext(), actor, *req.Longitude, *req.Latitude); err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Location updated", nil)
}

// @Router /api/v1/users/contacts [get]
func (h *UserHandler) ListContacts(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}

	contacts, err := h.userService.ListContacts(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Contacts retrieved", dto.UsersToUserResponses(contacts))
}

// @Router /api/v1/users/contacts/{id} [post]
func (h *UserHandler) AddContact(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	contactID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.userService.AddContact(c.UserContext(), actor, contactID); err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Contact added", nil)
}

// @Router /api/v1/users/contacts/{id} [delete]
func (h *UserHandler) RemoveContact(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	contactID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.userService.RemoveContact(c.UserContext(), actor, contactID); err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Contact removed", nil)
}
