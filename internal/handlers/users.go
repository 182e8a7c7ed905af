package handlers

import (
	"github.com/arnold/memoboard-api/internal/middleware"
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) GetMe(c *fiber.Ctx) error {
	user, err := h.Users.Get(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(user)
}

func (h *Handler) UpdateMe(c *fiber.Ctx) error {
	var req models.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	user, err := h.Users.UpdateProfile(c.UserContext(), middleware.GetUserID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// RegisterDeviceToken saves the FCM token for push notifications
func (h *Handler) RegisterDeviceToken(c *fiber.Ctx) error {
	var req models.DeviceTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if err := h.Users.SetDeviceToken(c.UserContext(), middleware.GetUserID(c), req); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
