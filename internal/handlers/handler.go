package handlers

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/middleware"
	"github.com/arnold/memoboard-api/internal/notify"
	"github.com/arnold/memoboard-api/internal/realtime"
	"github.com/arnold/memoboard-api/internal/search"
	"github.com/arnold/memoboard-api/internal/services"
	"github.com/gofiber/fiber/v2"
)

// Handler carries the services the HTTP layer calls.
type Handler struct {
	Users         *services.UserService
	Teams         *services.TeamService
	Memos         *services.MemoService
	Tasks         *services.TaskService
	Boards        *services.BoardService
	Categories    *services.CategoryService
	Tags          *services.TagService
	Comments      *services.CommentService
	Attachments   *services.AttachmentService
	Activity      *services.ActivityService
	Notifications *services.NotificationService
	Slack         *services.SlackService
	Search        *search.Service
	Mailbox       notify.Mailbox
	Hub           *realtime.Hub
	Verifier      middleware.Verifier
	Logger        *slog.Logger

	LongPollMax     time.Duration
	LongPollDefault time.Duration
}

// owner resolves the scope of the request: the caller's team when the route
// carries :teamId, the caller's personal space otherwise.
func (h *Handler) owner(c *fiber.Ctx) (domain.Owner, error) {
	userID := middleware.GetUserID(c)
	if c.Params("teamId") == "" {
		return domain.Personal(userID), nil
	}
	teamID, err := uintParam(c, "teamId")
	if err != nil {
		return domain.Owner{}, err
	}
	return h.Teams.Member(c.UserContext(), teamID, userID)
}

// admin is owner restricted to team admins.
func (h *Handler) admin(c *fiber.Ctx) (domain.Owner, error) {
	teamID, err := uintParam(c, "teamId")
	if err != nil {
		return domain.Owner{}, err
	}
	return h.Teams.Admin(c.UserContext(), teamID, middleware.GetUserID(c))
}

func uintParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, domain.Invalid("Invalid " + name)
	}
	return uint(id), nil
}

func optionalUint(c *fiber.Ctx, name string) (*uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, domain.Invalid("Invalid " + name)
	}
	v := uint(id)
	return &v, nil
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Invalid request body",
	})
}

func page(c *fiber.Ctx) (int, int) {
	p, _ := strconv.Atoi(c.Query("page", "1"))
	l, _ := strconv.Atoi(c.Query("limit", "20"))
	return p, l
}
