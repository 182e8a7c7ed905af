package handlers

import (
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/gofiber/fiber/v2"
)

// GetComments lists the comments on ?targetType=&targetId=, oldest first.
func (h *Handler) GetComments(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	comments, err := h.Comments.List(c.UserContext(), owner, c.Query("targetType"), c.Query("targetId"))
	if err != nil {
		return err
	}
	return c.JSON(comments)
}

func (h *Handler) AddComment(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	var req models.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	comment, err := h.Comments.Create(c.UserContext(), owner, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

func (h *Handler) UpdateComment(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	var req models.UpdateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	comment, err := h.Comments.Update(c.UserContext(), owner, id, req)
	if err != nil {
		return err
	}
	return c.JSON(comment)
}

func (h *Handler) DeleteComment(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Comments.Delete(c.UserContext(), owner, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
