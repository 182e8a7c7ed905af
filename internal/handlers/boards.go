package handlers

import (
	"strconv"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) GetBoards(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	var archived *bool
	if raw := c.Query("archived"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return domain.Invalid("Invalid archived filter")
		}
		archived = &v
	}
	boards, err := h.Boards.List(c.UserContext(), owner, archived)
	if err != nil {
		return err
	}
	return c.JSON(boards)
}

func (h *Handler) CreateBoard(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	var req models.CreateBoardRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	board, err := h.Boards.Create(c.UserContext(), owner, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(board)
}

func (h *Handler) GetBoard(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	board, err := h.Boards.Get(c.UserContext(), owner, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(board)
}

func (h *Handler) UpdateBoard(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	var req models.UpdateBoardRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	board, err := h.Boards.Update(c.UserContext(), owner, c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(board)
}

func (h *Handler) DeleteBoard(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	if _, err := h.Boards.Delete(c.UserContext(), owner, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *Handler) ListDeletedBoards(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	deleted, err := h.Boards.ListDeleted(c.UserContext(), owner)
	if err != nil {
		return err
	}
	return c.JSON(deleted)
}

func (h *Handler) RestoreBoard(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	board, err := h.Boards.Restore(c.UserContext(), owner, c.Params("ref"))
	if err != nil {
		return err
	}
	return c.JSON(board)
}

func (h *Handler) PurgeBoard(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	if err := h.Boards.Purge(c.UserContext(), owner, c.Params("ref")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) GetBoardItems(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	items, err := h.Boards.ListItems(c.UserContext(), owner, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(items)
}

func (h *Handler) GetDeletedBoardItems(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	items, err := h.Boards.ListDeletedItems(c.UserContext(), owner, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(items)
}

func (h *Handler) AddBoardItem(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	var req models.AddBoardItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	item, err := h.Boards.AddItem(c.UserContext(), owner, c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *Handler) RemoveBoardItem(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	if err := h.Boards.RemoveItem(c.UserContext(), owner, c.Params("id"), c.Params("itemType"), c.Params("displayId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
