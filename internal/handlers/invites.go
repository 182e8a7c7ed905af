package handlers

import (
	"github.com/arnold/memoboard-api/internal/middleware"
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/gofiber/fiber/v2"
)

// CreateInvite generates an invite code for a team (admin only)
func (h *Handler) CreateInvite(c *fiber.Ctx) error {
	owner, err := h.admin(c)
	if err != nil {
		return err
	}
	var req models.CreateInviteRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
	}
	invite, err := h.Teams.CreateInvite(c.UserContext(), owner, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(invite)
}

func (h *Handler) GetInvites(c *fiber.Ctx) error {
	owner, err := h.admin(c)
	if err != nil {
		return err
	}
	invites, err := h.Teams.ListInvites(c.UserContext(), owner)
	if err != nil {
		return err
	}
	return c.JSON(invites)
}

func (h *Handler) RevokeInvite(c *fiber.Ctx) error {
	owner, err := h.admin(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "inviteId")
	if err != nil {
		return err
	}
	if err := h.Teams.RevokeInvite(c.UserContext(), owner, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// PreviewInvite shows which team an invite code leads to.
func (h *Handler) PreviewInvite(c *fiber.Ctx) error {
	preview, err := h.Teams.PreviewInvite(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(preview)
}

// RequestToJoin files a join request through an invite code
func (h *Handler) RequestToJoin(c *fiber.Ctx) error {
	var req models.CreateJoinRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
	}
	request, err := h.Teams.SubmitJoinRequest(c.UserContext(), middleware.GetUserID(c), c.Params("code"), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(request)
}

func (h *Handler) GetJoinRequests(c *fiber.Ctx) error {
	owner, err := h.admin(c)
	if err != nil {
		return err
	}
	requests, err := h.Teams.ListJoinRequests(c.UserContext(), owner, c.Query("status"))
	if err != nil {
		return err
	}
	return c.JSON(requests)
}

func (h *Handler) GetMyJoinRequests(c *fiber.Ctx) error {
	requests, err := h.Teams.ListMyJoinRequests(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(requests)
}

func (h *Handler) ApproveJoinRequest(c *fiber.Ctx) error {
	owner, err := h.admin(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "requestId")
	if err != nil {
		return err
	}
	request, err := h.Teams.ApproveJoinRequest(c.UserContext(), owner, id)
	if err != nil {
		return err
	}
	return c.JSON(request)
}

func (h *Handler) RejectJoinRequest(c *fiber.Ctx) error {
	owner, err := h.admin(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "requestId")
	if err != nil {
		return err
	}
	request, err := h.Teams.RejectJoinRequest(c.UserContext(), owner, id)
	if err != nil {
		return err
	}
	return c.JSON(request)
}
