package handlers

import (
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListTags(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	if target := c.Query("targetType"); target != "" {
		tags, err := h.Tags.ForTarget(c.UserContext(), owner, target, c.Query("targetId"))
		if err != nil {
			return err
		}
		return c.JSON(tags)
	}
	tags, err := h.Tags.List(c.UserContext(), owner)
	if err != nil {
		return err
	}
	return c.JSON(tags)
}

func (h *Handler) CreateTag(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	var req models.TagRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	tag, err := h.Tags.Create(c.UserContext(), owner, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(tag)
}

func (h *Handler) UpdateTag(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	var req models.TagRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	tag, err := h.Tags.Update(c.UserContext(), owner, id, req)
	if err != nil {
		return err
	}
	return c.JSON(tag)
}

func (h *Handler) DeleteTag(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Tags.Delete(c.UserContext(), owner, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *Handler) AttachTag(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	var req models.TaggingRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	tagging, err := h.Tags.Attach(c.UserContext(), owner, id, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(tagging)
}

func (h *Handler) DetachTag(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Tags.Detach(c.UserContext(), owner, id, c.Params("targetType"), c.Params("targetId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
