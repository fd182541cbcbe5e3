package handler

import (
	"crm-web/internal/models"
	"crm-web/internal/service"
	"crm-web/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type ContactHandler struct {
	contactService *service.ContactService
}

func NewContactHandler(contactService *service.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// Check validates a contact list and reports likely duplicates.
func (h *ContactHandler) Check(c *fiber.Ctx) error {
	var req models.ContactCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	result := h.contactService.Check(req.Contacts)
	if !result.Valid {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(utils.Response{
			Success: false,
			Message: "Contacts need attention",
			Data:    result,
		})
	}

	return utils.SuccessResponse(c, "Contacts are valid", result)
}
