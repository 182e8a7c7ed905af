package handlers

import (
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/arnold/memoboard-api/internal/services"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListTasks(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	categoryID, err := optionalUint(c, "categoryId")
	if err != nil {
		return err
	}
	tasks, err := h.Tasks.List(c.UserContext(), owner, services.TaskFilter{
		Status:     c.Query("status"),
		AssigneeID: c.Query("assigneeId"),
		CategoryID: categoryID,
	})
	if err != nil {
		return err
	}
	return c.JSON(tasks)
}

func (h *Handler) CreateTask(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	var req models.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	task, err := h.Tasks.Create(c.UserContext(), owner, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

func (h *Handler) GetTask(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	task, err := h.Tasks.Get(c.UserContext(), owner, c.Params("displayId"))
	if err != nil {
		return err
	}
	return c.JSON(task)
}

// UpdateTask answers 409 with latestData when the client's updatedAt is stale.
func (h *Handler) UpdateTask(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	var req models.UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	task, err := h.Tasks.Update(c.UserContext(), owner, c.Params("displayId"), req)
	if err != nil {
		return err
	}
	return c.JSON(task)
}

func (h *Handler) DeleteTask(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	if _, err := h.Tasks.Delete(c.UserContext(), owner, c.Params("displayId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *Handler) ListDeletedTasks(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	deleted, err := h.Tasks.ListDeleted(c.UserContext(), owner)
	if err != nil {
		return err
	}
	return c.JSON(deleted)
}

func (h *Handler) RestoreTask(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	task, err := h.Tasks.Restore(c.UserContext(), owner, c.Params("ref"))
	if err != nil {
		return err
	}
	return c.JSON(task)
}

func (h *Handler) PurgeTask(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	if err := h.Tasks.Purge(c.UserContext(), owner, c.Params("ref")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
