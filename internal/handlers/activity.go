package handlers

import "github.com/gofiber/fiber/v2"

// GetActivity returns paginated activity for the scope
func (h *Handler) GetActivity(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	p, l := page(c)
	activity, err := h.Activity.List(c.UserContext(), owner, p, l)
	if err != nil {
		return err
	}
	return c.JSON(activity)
}
