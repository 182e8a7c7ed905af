package handlers

import (
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) GetSlackConfigs(c *fiber.Ctx) error {
	owner, err := h.admin(c)
	if err != nil {
		return err
	}
	configs, err := h.Slack.List(c.UserContext(), owner)
	if err != nil {
		return err
	}
	return c.JSON(configs)
}

func (h *Handler) CreateSlackConfig(c *fiber.Ctx) error {
	owner, err := h.admin(c)
	if err != nil {
		return err
	}
	var req models.CreateSlackConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	config, err := h.Slack.Create(c.UserContext(), owner, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(config)
}

func (h *Handler) UpdateSlackConfig(c *fiber.Ctx) error {
	owner, err := h.admin(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	var req models.UpdateSlackConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	config, err := h.Slack.Update(c.UserContext(), owner, id, req)
	if err != nil {
		return err
	}
	return c.JSON(config)
}

func (h *Handler) DeleteSlackConfig(c *fiber.Ctx) error {
	owner, err := h.admin(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Slack.Delete(c.UserContext(), owner, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// TestSlackConfig sends a test message through the webhook.
func (h *Handler) TestSlackConfig(c *fiber.Ctx) error {
	owner, err := h.admin(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Slack.Test(c.UserContext(), owner, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
