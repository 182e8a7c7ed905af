package handlers

import (
	"strings"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/middleware"
	"github.com/arnold/memoboard-api/internal/search"
	"github.com/gofiber/fiber/v2"
)

// SearchItems finds memos and tasks of the caller's personal space, or of
// ?teamId= when given.
func (h *Handler) SearchItems(c *fiber.Ctx) error {
	text := strings.TrimSpace(c.Query("q"))
	if text == "" {
		return domain.Invalid("Query is required")
	}

	owner := domain.Personal(middleware.GetUserID(c))
	teamID, err := optionalUint(c, "teamId")
	if err != nil {
		return err
	}
	if teamID != nil {
		if owner, err = h.Teams.Member(c.UserContext(), *teamID, owner.UserID); err != nil {
			return err
		}
	}

	var itemType domain.ItemType
	if raw := c.Query("type"); raw != "" {
		if itemType, err = domain.ParseItemType(raw); err != nil {
			return err
		}
	}

	res, err := h.Search.Search(c.UserContext(), search.Query{
		ScopeKey: owner.ScopeKey(),
		Text:     text,
		Type:     itemType,
		Limit:    c.QueryInt("limit", 20),
	})
	if err != nil {
		return err
	}
	return c.JSON(res)
}
