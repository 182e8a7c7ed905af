package routes

import (
	"github.com/arnold/memoboard-api/internal/handlers"
	"github.com/arnold/memoboard-api/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func Setup(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api")

	invites := api.Group("/invites")
	invites.Get("/:code", h.PreviewInvite)

	protected := api.Group("/", middleware.Protected(h.Verifier, h.Users))

	protected.Get("/me", h.GetMe)
	protected.Put("/me", h.UpdateMe)
	protected.Post("/device-token", h.RegisterDeviceToken)

	protected.Get("/search", h.SearchItems)

	// Notifications
	notifications := protected.Group("/notifications")
	notifications.Get("/", h.GetNotifications)
	notifications.Get("/wait", h.WaitNotifications)
	notifications.Put("/:id/read", h.MarkNotificationRead)
	notifications.Post("/read-all", h.MarkAllRead)

	// Teams
	protected.Get("/teams", h.GetTeams)
	protected.Post("/teams", h.CreateTeam)
	protected.Post("/invites/:code/join", h.RequestToJoin)
	protected.Get("/join-requests", h.GetMyJoinRequests)

	team := protected.Group("/teams/:teamId")
	team.Get("/", h.GetTeam)
	team.Put("/", h.UpdateTeam)
	team.Delete("/", h.DeleteTeam)
	team.Get("/members", h.GetMembers)
	team.Put("/members/:userId", h.UpdateMemberRole)
	team.Delete("/members/:userId", h.RemoveMember)
	team.Post("/leave", h.LeaveTeam)

	team.Get("/invites", h.GetInvites)
	team.Post("/invites", h.CreateInvite)
	team.Delete("/invites/:inviteId", h.RevokeInvite)
	team.Get("/join-requests", h.GetJoinRequests)
	team.Post("/join-requests/:requestId/approve", h.ApproveJoinRequest)
	team.Post("/join-requests/:requestId/reject", h.RejectJoinRequest)

	team.Get("/slack", h.GetSlackConfigs)
	team.Post("/slack", h.CreateSlackConfig)
	team.Put("/slack/:id", h.UpdateSlackConfig)
	team.Delete("/slack/:id", h.DeleteSlackConfig)
	team.Post("/slack/:id/test", h.TestSlackConfig)

	// Scoped resources exist once per personal space and once per team.
	scoped(protected, h)
	scoped(team, h)

	app.Get("/ws/boards/:id", h.WebSocketUpgrade(), websocket.New(h.HandleWebSocket))
}

func scoped(r fiber.Router, h *handlers.Handler) {
	memos := r.Group("/memos")
	memos.Get("/", h.ListMemos)
	memos.Post("/", h.CreateMemo)
	memos.Get("/deleted", h.ListDeletedMemos)
	memos.Post("/deleted/:ref/restore", h.RestoreMemo)
	memos.Delete("/deleted/:ref", h.PurgeMemo)
	memos.Get("/:displayId", h.GetMemo)
	memos.Put("/:displayId", h.UpdateMemo)
	memos.Delete("/:displayId", h.DeleteMemo)

	tasks := r.Group("/tasks")
	tasks.Get("/", h.ListTasks)
	tasks.Post("/", h.CreateTask)
	tasks.Get("/deleted", h.ListDeletedTasks)
	tasks.Post("/deleted/:ref/restore", h.RestoreTask)
	tasks.Delete("/deleted/:ref", h.PurgeTask)
	tasks.Get("/:displayId", h.GetTask)
	tasks.Put("/:displayId", h.UpdateTask)
	tasks.Delete("/:displayId", h.DeleteTask)

	boards := r.Group("/boards")
	boards.Get("/", h.GetBoards)
	boards.Post("/", h.CreateBoard)
	boards.Get("/deleted", h.ListDeletedBoards)
	boards.Post("/deleted/:ref/restore", h.RestoreBoard)
	boards.Delete("/deleted/:ref", h.PurgeBoard)
	boards.Get("/:id", h.GetBoard)
	boards.Put("/:id", h.UpdateBoard)
	boards.Delete("/:id", h.DeleteBoard)
	boards.Get("/:id/items", h.GetBoardItems)
	boards.Post("/:id/items", h.AddBoardItem)
	boards.Get("/:id/items/deleted", h.GetDeletedBoardItems)
	boards.Delete("/:id/items/:itemType/:displayId", h.RemoveBoardItem)

	categories := r.Group("/categories")
	categories.Get("/", h.ListCategories)
	categories.Post("/", h.CreateCategory)
	categories.Put("/:id", h.UpdateCategory)
	categories.Delete("/:id", h.DeleteCategory)

	tags := r.Group("/tags")
	tags.Get("/", h.ListTags)
	tags.Post("/", h.CreateTag)
	tags.Put("/:id", h.UpdateTag)
	tags.Delete("/:id", h.DeleteTag)
	tags.Post("/:id/targets", h.AttachTag)
	tags.Delete("/:id/targets/:targetType/:targetId", h.DetachTag)

	comments := r.Group("/comments")
	comments.Get("/", h.GetComments)
	comments.Post("/", h.AddComment)
	comments.Put("/:id", h.UpdateComment)
	comments.Delete("/:id", h.DeleteComment)

	attachments := r.Group("/attachments")
	attachments.Get("/", h.GetAttachments)
	attachments.Post("/", h.UploadAttachment)
	attachments.Get("/:id", h.DownloadAttachment)
	attachments.Delete("/:id", h.DeleteAttachment)

	r.Get("/activity", h.GetActivity)
}
