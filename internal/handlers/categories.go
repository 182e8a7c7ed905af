package handlers

import (
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListCategories(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	categories, err := h.Categories.List(c.UserContext(), owner)
	if err != nil {
		return err
	}
	return c.JSON(categories)
}

func (h *Handler) CreateCategory(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	var req models.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	category, err := h.Categories.Create(c.UserContext(), owner, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

func (h *Handler) UpdateCategory(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	var req models.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	category, err := h.Categories.Update(c.UserContext(), owner, id, req)
	if err != nil {
		return err
	}
	return c.JSON(category)
}

func (h *Handler) DeleteCategory(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Categories.Delete(c.UserContext(), owner, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
