package handlers

import (
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListMemos(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	categoryID, err := optionalUint(c, "categoryId")
	if err != nil {
		return err
	}
	memos, err := h.Memos.List(c.UserContext(), owner, categoryID)
	if err != nil {
		return err
	}
	return c.JSON(memos)
}

func (h *Handler) CreateMemo(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	var req models.CreateMemoRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	memo, err := h.Memos.Create(c.UserContext(), owner, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(memo)
}

func (h *Handler) GetMemo(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	memo, err := h.Memos.Get(c.UserContext(), owner, c.Params("displayId"))
	if err != nil {
		return err
	}
	return c.JSON(memo)
}

func (h *Handler) UpdateMemo(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	var req models.UpdateMemoRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	memo, err := h.Memos.Update(c.UserContext(), owner, c.Params("displayId"), req)
	if err != nil {
		return err
	}
	return c.JSON(memo)
}

func (h *Handler) DeleteMemo(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	if _, err := h.Memos.Delete(c.UserContext(), owner, c.Params("displayId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *Handler) ListDeletedMemos(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	deleted, err := h.Memos.ListDeleted(c.UserContext(), owner)
	if err != nil {
		return err
	}
	return c.JSON(deleted)
}

func (h *Handler) RestoreMemo(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	memo, err := h.Memos.Restore(c.UserContext(), owner, c.Params("ref"))
	if err != nil {
		return err
	}
	return c.JSON(memo)
}

func (h *Handler) PurgeMemo(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	if err := h.Memos.Purge(c.UserContext(), owner, c.Params("ref")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
