package handlers

import (
	"strings"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketUpgrade checks the upgrade request, validates the token and
// resolves the board the caller wants to follow. Browsers pass the token as
// ?token=; team boards also need ?teamId=.
func (h *Handler) WebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		tokenString := c.Query("token")
		if tokenString == "" {
			authHeader := c.Get("Authorization")
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				tokenString = ""
			}
		}
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authentication token",
			})
		}

		claims, err := h.Verifier.VerifyToken(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		owner := domain.Personal(claims.Subject)
		teamID, err := optionalUint(c, "teamId")
		if err != nil {
			return err
		}
		if teamID != nil {
			if owner, err = h.Teams.Member(c.UserContext(), *teamID, claims.Subject); err != nil {
				return err
			}
		}
		board, err := h.Boards.Get(c.UserContext(), owner, c.Params("id"))
		if err != nil {
			return err
		}

		c.Locals("userId", claims.Subject)
		c.Locals("boardId", board.ID)
		return c.Next()
	}
}

// HandleWebSocket subscribes the connection to its board's events until the
// client goes away.
func (h *Handler) HandleWebSocket(c *websocket.Conn) {
	boardID, ok := c.Locals("boardId").(uint)
	if !ok {
		c.Close()
		return
	}
	userID, _ := c.Locals("userId").(string)

	leave := h.Hub.Join(boardID, userID, c)
	defer leave()

	// Clients only send keepalives; reading detects the disconnect.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}
