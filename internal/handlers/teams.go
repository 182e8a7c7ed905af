package handlers

import (
	"github.com/arnold/memoboard-api/internal/middleware"
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) CreateTeam(c *fiber.Ctx) error {
	var req models.CreateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	team, err := h.Teams.Create(c.UserContext(), middleware.GetUserID(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(team)
}

func (h *Handler) GetTeams(c *fiber.Ctx) error {
	teams, err := h.Teams.ListMine(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(teams)
}

func (h *Handler) GetTeam(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	team, err := h.Teams.Get(c.UserContext(), owner)
	if err != nil {
		return err
	}
	return c.JSON(team)
}

func (h *Handler) UpdateTeam(c *fiber.Ctx) error {
	owner, err := h.admin(c)
	if err != nil {
		return err
	}
	var req models.UpdateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	team, err := h.Teams.Update(c.UserContext(), owner, req)
	if err != nil {
		return err
	}
	return c.JSON(team)
}

func (h *Handler) DeleteTeam(c *fiber.Ctx) error {
	owner, err := h.admin(c)
	if err != nil {
		return err
	}
	if err := h.Teams.Delete(c.UserContext(), owner); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *Handler) GetMembers(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	members, err := h.Teams.ListMembers(c.UserContext(), owner)
	if err != nil {
		return err
	}
	return c.JSON(members)
}

func (h *Handler) UpdateMemberRole(c *fiber.Ctx) error {
	owner, err := h.admin(c)
	if err != nil {
		return err
	}
	var req models.UpdateMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	member, err := h.Teams.UpdateMemberRole(c.UserContext(), owner, c.Params("userId"), req)
	if err != nil {
		return err
	}
	return c.JSON(member)
}

// RemoveMember removes a member from the team (admin only)
func (h *Handler) RemoveMember(c *fiber.Ctx) error {
	owner, err := h.admin(c)
	if err != nil {
		return err
	}
	if err := h.Teams.RemoveMember(c.UserContext(), owner, c.Params("userId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// LeaveTeam removes the current user from a team
func (h *Handler) LeaveTeam(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	if err := h.Teams.Leave(c.UserContext(), owner); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
