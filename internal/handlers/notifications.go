package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/middleware"
	"github.com/arnold/memoboard-api/internal/notify"
	"github.com/gofiber/fiber/v2"
)

// GetNotifications returns paginated notifications for the current user
func (h *Handler) GetNotifications(c *fiber.Ctx) error {
	p, l := page(c)
	notifications, err := h.Notifications.List(c.UserContext(), middleware.GetUserID(c), p, l)
	if err != nil {
		return err
	}
	return c.JSON(notifications)
}

// MarkNotificationRead marks a single notification as read
func (h *Handler) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Notifications.MarkRead(c.UserContext(), middleware.GetUserID(c), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// MarkAllRead marks all notifications as read for the current user
func (h *Handler) MarkAllRead(c *fiber.Ctx) error {
	if err := h.Notifications.MarkAllRead(c.UserContext(), middleware.GetUserID(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// WaitNotifications long-polls the caller's mailbox. ?kinds= is a comma
// separated filter and ?timeout= is in seconds, capped at the configured
// maximum.
func (h *Handler) WaitNotifications(c *fiber.Ctx) error {
	kinds, err := notify.ParseKinds(c.Query("kinds"))
	if err != nil {
		return domain.Invalid(err.Error())
	}

	timeout := h.LongPollDefault
	if seconds := c.QueryInt("timeout", -1); seconds >= 0 {
		timeout = time.Duration(seconds) * time.Second
	}
	if timeout > h.LongPollMax {
		timeout = h.LongPollMax
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
	defer cancel()

	events, err := h.Mailbox.Wait(ctx, middleware.GetUserID(c), kinds...)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"events": events})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return c.JSON(fiber.Map{"events": []notify.Event{}, "timedOut": true})
	default:
		return err
	}
}
