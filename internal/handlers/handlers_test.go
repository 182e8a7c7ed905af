package handlers_test

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arnold/memoboard-api/internal/database"
	"github.com/arnold/memoboard-api/internal/handlers"
	"github.com/arnold/memoboard-api/internal/lifecycle"
	"github.com/arnold/memoboard-api/internal/middleware"
	"github.com/arnold/memoboard-api/internal/notify"
	"github.com/arnold/memoboard-api/internal/realtime"
	"github.com/arnold/memoboard-api/internal/routes"
	"github.com/arnold/memoboard-api/internal/search"
	"github.com/arnold/memoboard-api/internal/secret"
	"github.com/arnold/memoboard-api/internal/services"
	"github.com/arnold/memoboard-api/internal/storage"
	"github.com/gofiber/fiber/v2"
)

const jwtSecret = "handler-test-secret"

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.Connect("file:"+t.Name()+"?mode=memory&cache=shared", logger, false)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	cipher, _ := secret.NewCipher("")
	finder := search.NewService(nil, search.NewSQL(db), logger)
	hub := realtime.NewHub(logger)
	purger := lifecycle.NewPurger(store, logger)
	dispatcher := notify.NewDispatcher(notify.NewMemoryMailbox(), db, nil, logger)

	users := services.NewUserService(db, logger)
	activity := services.NewActivityService(db, logger)
	slack := services.NewSlackService(db, cipher, logger)
	teams := services.NewTeamService(db, users, activity, dispatcher, slack, purger, logger)
	memos := services.NewMemoService(db, purger, activity, finder)
	tasks := services.NewTaskService(db, purger, teams, users, activity, dispatcher, slack, finder)

	h := &handlers.Handler{
		Users:           users,
		Teams:           teams,
		Memos:           memos,
		Tasks:           tasks,
		Boards:          services.NewBoardService(db, purger, memos, tasks, users, activity, hub, slack),
		Categories:      services.NewCategoryService(db),
		Tags:            services.NewTagService(db),
		Comments:        services.NewCommentService(db, purger, teams, users, activity, dispatcher),
		Attachments:     services.NewAttachmentService(db, store, 1<<20, logger),
		Activity:        activity,
		Notifications:   services.NewNotificationService(db),
		Slack:           slack,
		Search:          finder,
		Mailbox:         dispatcher.Mailbox(),
		Hub:             hub,
		Verifier:        middleware.NewHMACVerifier(jwtSecret),
		Logger:          logger,
		LongPollMax:     2 * time.Second,
		LongPollDefault: time.Second,
	}

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(logger)})
	routes.Setup(app, h)
	return app
}

type client struct {
	t     *testing.T
	app   *fiber.App
	token string
}

func newClient(t *testing.T, app *fiber.App, userID string) *client {
	t.Helper()
	token, err := middleware.GenerateToken(userID, userID+"@example.com", strings.ToUpper(userID), jwtSecret, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return &client{t: t, app: app, token: token}
}

// do sends a JSON request and decodes the JSON response into out when set.
func (c *client) do(method, path string, body any, out any) int {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal: %v", err)
		}
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.app.Test(req, 5000)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestMemoRoutes(t *testing.T) {
	app := newApp(t)
	ana := newClient(t, app, "ana")

	var memo struct {
		ID        uint   `json:"id"`
		DisplayID string `json:"displayId"`
		Title     string `json:"title"`
	}
	if code := ana.do("POST", "/api/memos", map[string]string{"title": "Groceries", "content": "milk"}, &memo); code != http.StatusCreated {
		t.Fatalf("create memo: status %d", code)
	}
	if memo.DisplayID != "M1" {
		t.Errorf("expected M1, got %q", memo.DisplayID)
	}

	var errBody map[string]any
	if code := ana.do("POST", "/api/memos", map[string]string{"content": "no title"}, &errBody); code != http.StatusBadRequest {
		t.Errorf("expected 400 for a missing title, got %d", code)
	}
	if errBody["issues"] == nil {
		t.Errorf("expected field issues in %v", errBody)
	}

	if code := ana.do("GET", "/api/memos/M1", nil, &memo); code != http.StatusOK || memo.Title != "Groceries" {
		t.Errorf("get memo: %d %+v", code, memo)
	}

	// Memos are private to their owner.
	ben := newClient(t, app, "ben")
	if code := ben.do("GET", "/api/memos/M1", nil, nil); code != http.StatusNotFound {
		t.Errorf("expected another user's memo to be not found, got %d", code)
	}

	if code := ana.do("DELETE", "/api/memos/M1", nil, nil); code != http.StatusOK {
		t.Fatalf("delete memo: %d", code)
	}
	var deleted []struct {
		Ref  string `json:"ref"`
		Item struct {
			DisplayID string `json:"displayId"`
		} `json:"item"`
	}
	if code := ana.do("GET", "/api/memos/deleted", nil, &deleted); code != http.StatusOK || len(deleted) != 1 {
		t.Fatalf("list deleted: %d %+v", code, deleted)
	}
	if code := ana.do("POST", "/api/memos/deleted/"+deleted[0].Ref+"/restore", nil, &memo); code != http.StatusOK {
		t.Fatalf("restore: %d", code)
	}
	if memo.DisplayID != "M1" {
		t.Errorf("restored memo has display id %q", memo.DisplayID)
	}
}

func TestBoardItemRoutes(t *testing.T) {
	app := newApp(t)
	ana := newClient(t, app, "ana")

	var board struct {
		ID   uint   `json:"id"`
		Slug string `json:"slug"`
	}
	if code := ana.do("POST", "/api/boards", map[string]string{"name": "Sprint 12"}, &board); code != http.StatusCreated {
		t.Fatalf("create board: %d", code)
	}
	if code := ana.do("POST", "/api/tasks", map[string]string{"title": "Fix login"}, nil); code != http.StatusCreated {
		t.Fatalf("create task: %d", code)
	}

	item := map[string]string{"itemType": "task", "itemId": "T1"}
	path := "/api/boards/" + board.Slug + "/items"
	if code := ana.do("POST", path, item, nil); code != http.StatusCreated {
		t.Fatalf("add item: %d", code)
	}

	var errBody map[string]any
	if code := ana.do("POST", path, item, &errBody); code != http.StatusBadRequest {
		t.Errorf("expected 400 for a duplicate, got %d", code)
	}
	if errBody["error"] != "Item already exists in board" {
		t.Errorf("unexpected error body %v", errBody)
	}

	var items []map[string]any
	if code := ana.do("GET", fmt.Sprintf("/api/boards/%d/items", board.ID), nil, &items); code != http.StatusOK || len(items) != 1 {
		t.Fatalf("list items: %d %v", code, items)
	}

	if code := ana.do("DELETE", path+"/task/T1", nil, nil); code != http.StatusOK {
		t.Errorf("remove item: %d", code)
	}
	if code := ana.do("DELETE", path+"/task/T1", nil, &errBody); code != http.StatusNotFound {
		t.Errorf("expected 404 removing twice, got %d", code)
	}
	if code := ana.do("DELETE", path+"/goal/T1", nil, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown item type, got %d", code)
	}
}

func TestTeamRoutesRequireMembership(t *testing.T) {
	app := newApp(t)
	ana := newClient(t, app, "ana")
	ben := newClient(t, app, "ben")

	var team struct {
		ID uint `json:"id"`
	}
	if code := ana.do("POST", "/api/teams", map[string]string{"name": "Platform"}, &team); code != http.StatusCreated {
		t.Fatalf("create team: %d", code)
	}

	base := fmt.Sprintf("/api/teams/%d", team.ID)
	if code := ana.do("POST", base+"/memos", map[string]string{"title": "Runbook"}, nil); code != http.StatusCreated {
		t.Errorf("member create: %d", code)
	}
	if code := ben.do("GET", base+"/memos", nil, nil); code != http.StatusForbidden {
		t.Errorf("expected 403 for a non-member, got %d", code)
	}
	if code := ana.do("GET", "/api/teams/999/memos", nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for a missing team, got %d", code)
	}

	var invite struct {
		Code string `json:"code"`
	}
	if code := ana.do("POST", base+"/invites", map[string]int{"maxUses": 1}, &invite); code != http.StatusCreated {
		t.Fatalf("create invite: %d", code)
	}
	anon := &client{t: t, app: app}
	var preview map[string]any
	if code := anon.do("GET", "/api/invites/"+invite.Code, nil, &preview); code != http.StatusOK || preview["valid"] != true {
		t.Errorf("public invite preview: %d %v", code, preview)
	}
	if code := anon.do("GET", base+"/memos", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", code)
	}
}

func TestWaitNotifications(t *testing.T) {
	app := newApp(t)
	ana := newClient(t, app, "ana")
	ben := newClient(t, app, "ben")

	var timedOut struct {
		Events   []map[string]any `json:"events"`
		TimedOut bool             `json:"timedOut"`
	}
	if code := ben.do("GET", "/api/notifications/wait?timeout=0", nil, &timedOut); code != http.StatusOK {
		t.Fatalf("wait: %d", code)
	}
	if !timedOut.TimedOut || timedOut.Events == nil || len(timedOut.Events) != 0 {
		t.Errorf("expected an empty timed out response, got %+v", timedOut)
	}

	if code := ben.do("GET", "/api/notifications/wait?kinds=bogus", nil, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown kind, got %d", code)
	}

	// Put ben on a team and assign him a task.
	var team struct {
		ID uint `json:"id"`
	}
	ana.do("POST", "/api/teams", map[string]string{"name": "Ops"}, &team)
	var invite struct {
		Code string `json:"code"`
	}
	ana.do("POST", fmt.Sprintf("/api/teams/%d/invites", team.ID), map[string]int{}, &invite)
	var request struct {
		ID uint `json:"id"`
	}
	if code := ben.do("POST", "/api/invites/"+invite.Code+"/join", map[string]string{}, &request); code != http.StatusCreated {
		t.Fatalf("join request: %d", code)
	}
	if code := ana.do("POST", fmt.Sprintf("/api/teams/%d/join-requests/%d/approve", team.ID, request.ID), nil, nil); code != http.StatusOK {
		t.Fatalf("approve: %d", code)
	}

	// The approval is queued for ben; drain it.
	var got struct {
		Events []struct {
			Kind string `json:"kind"`
		} `json:"events"`
	}
	if code := ben.do("GET", "/api/notifications/wait?timeout=1&kinds=join_request.status", nil, &got); code != http.StatusOK {
		t.Fatalf("wait approval: %d", code)
	}
	if len(got.Events) != 1 || got.Events[0].Kind != "join_request.status" {
		t.Fatalf("expected the approval event, got %+v", got)
	}

	if code := ana.do("POST", fmt.Sprintf("/api/teams/%d/tasks", team.ID), map[string]string{"title": "On call", "assigneeId": "ben"}, nil); code != http.StatusCreated {
		t.Fatalf("assign task: %d", code)
	}
	if code := ben.do("GET", "/api/notifications/wait?timeout=1&kinds=task.assigned", nil, &got); code != http.StatusOK {
		t.Fatalf("wait assignment: %d", code)
	}
	if len(got.Events) != 1 || got.Events[0].Kind != "task.assigned" {
		t.Errorf("expected the assignment event, got %+v", got)
	}

	var inbox struct {
		Total  int64 `json:"total"`
		Unread int64 `json:"unread"`
	}
	if code := ben.do("GET", "/api/notifications", nil, &inbox); code != http.StatusOK {
		t.Fatalf("inbox: %d", code)
	}
	if inbox.Total != 2 || inbox.Unread != 2 {
		t.Errorf("expected two unread notifications, got %+v", inbox)
	}
}
