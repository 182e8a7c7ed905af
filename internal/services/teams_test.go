package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/arnold/memoboard-api/internal/notify"
)

func TestJoinFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "admin", "Ada")
	e.user(t, "u2", "Ben")
	e.user(t, "u3", "Cy")

	teamID := e.team(t, "admin")
	admin := domain.TeamScope(teamID, "admin", domain.RoleAdmin)

	invite, err := e.teams.CreateInvite(ctx, admin, models.CreateInviteRequest{MaxUses: 1})
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}
	if len(invite.Code) != 12 {
		t.Errorf("unexpected invite code %q", invite.Code)
	}

	preview, err := e.teams.PreviewInvite(ctx, invite.Code)
	if err != nil || !preview.Valid || preview.TeamID != teamID {
		t.Fatalf("preview: %+v %v", preview, err)
	}

	request, err := e.teams.SubmitJoinRequest(ctx, "u2", invite.Code, models.CreateJoinRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := e.teams.SubmitJoinRequest(ctx, "u2", invite.Code, models.CreateJoinRequest{}); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected a second pending request rejected, got %v", err)
	}
	if got := e.notes.For("admin"); len(got) != 1 || got[0].Kind != notify.KindJoinRequestCreated {
		t.Errorf("admin not told about the request: %+v", got)
	}

	// u3 asks before the single use is consumed.
	late, err := e.teams.SubmitJoinRequest(ctx, "u3", invite.Code, models.CreateJoinRequest{})
	if err != nil {
		t.Fatalf("submit u3: %v", err)
	}

	approved, err := e.teams.ApproveJoinRequest(ctx, admin, request.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != models.JoinApproved {
		t.Errorf("unexpected status %q", approved.Status)
	}
	if ok, _ := e.teams.IsMember(ctx, teamID, "u2"); !ok {
		t.Error("approved user is not a member")
	}
	if got := e.notes.For("u2"); len(got) != 1 || got[0].Kind != notify.KindJoinRequestStatus {
		t.Errorf("requester not told about approval: %+v", got)
	}

	_, err = e.teams.ApproveJoinRequest(ctx, admin, late.ID)
	var gone *domain.GoneError
	if !errors.As(err, &gone) {
		t.Fatalf("expected gone once the invite is used up, got %v", err)
	}
	if ok, _ := e.teams.IsMember(ctx, teamID, "u3"); ok {
		t.Error("u3 joined through an exhausted invite")
	}

	if _, err := e.teams.SubmitJoinRequest(ctx, "u4", invite.Code, models.CreateJoinRequest{}); !errors.As(err, &gone) {
		t.Errorf("expected gone for a new request on an exhausted invite, got %v", err)
	}
	if _, err := e.teams.PreviewInvite(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected unknown code not found, got %v", err)
	}
}

func TestTeamGuards(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	teamID := e.team(t, "admin", "member")

	if _, err := e.teams.Member(ctx, teamID, "stranger"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected forbidden for a non-member, got %v", err)
	}
	if _, err := e.teams.Member(ctx, teamID+100, "admin"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found for a missing team, got %v", err)
	}
	if _, err := e.teams.Admin(ctx, teamID, "member"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected forbidden for a plain member, got %v", err)
	}
	owner, err := e.teams.Admin(ctx, teamID, "admin")
	if err != nil || !owner.IsAdmin() || owner.ScopeKey() != domain.TeamScopeKey(teamID) {
		t.Errorf("unexpected admin owner %+v %v", owner, err)
	}
}

func TestCommentMentions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1", "Ana")
	e.user(t, "u2", "Ben")
	teamID := e.team(t, "u1", "u2")
	owner := domain.TeamScope(teamID, "u1", domain.RoleAdmin)

	task, err := e.tasks.Create(ctx, owner, models.CreateTaskRequest{Title: "Design review"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	_, err = e.comments.Create(ctx, owner, models.CreateCommentRequest{
		TargetType: "task", TargetDisplayID: task.DisplayID, Content: "see this", Mentions: []string{"u9"},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected non-member mention rejected, got %v", err)
	}

	comment, err := e.comments.Create(ctx, owner, models.CreateCommentRequest{
		TargetType: "task", TargetDisplayID: task.DisplayID, Content: "@Ben see this", Mentions: []string{"u2", "u1", "u2"},
	})
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if comment.User.ID != "u1" {
		t.Errorf("author not loaded: %+v", comment.User)
	}
	if got := comment.MentionedUserIDs(); len(got) != 2 {
		t.Errorf("expected mentions deduplicated, got %v", got)
	}
	if got := e.notes.For("u2"); len(got) != 1 || got[0].Kind != notify.KindCommentMention {
		t.Errorf("mentioned user not notified: %+v", got)
	}
	if got := e.notes.For("u1"); len(got) != 0 {
		t.Errorf("author notified about their own mention: %+v", got)
	}

	_, err = e.comments.Create(ctx, owner, models.CreateCommentRequest{TargetType: "task", TargetDisplayID: "T42", Content: "lost"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected a missing target rejected, got %v", err)
	}

	member := domain.TeamScope(teamID, "u2", domain.RoleMember)
	text := "edited"
	if _, err := e.comments.Update(ctx, member, comment.ID, models.UpdateCommentRequest{Content: text}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected forbidden editing another user's comment, got %v", err)
	}
	if err := e.comments.Delete(ctx, member, comment.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected forbidden deleting another user's comment, got %v", err)
	}
	if err := e.comments.Delete(ctx, owner, comment.ID); err != nil {
		t.Fatalf("delete own comment: %v", err)
	}
	list, err := e.comments.List(ctx, owner, "task", task.DisplayID)
	if err != nil || len(list) != 0 {
		t.Errorf("comment still listed: %v %v", list, err)
	}
}

type webhook struct {
	mu    sync.Mutex
	texts []string
	fail  bool
	done  chan struct{}
}

func (w *webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var msg struct {
		Text string `json:"text"`
	}
	json.Unmarshal(body, &msg)

	w.mu.Lock()
	w.texts = append(w.texts, msg.Text)
	fail := w.fail
	w.mu.Unlock()
	defer func() { w.done <- struct{}{} }()

	if fail {
		http.Error(rw, "invalid_token", http.StatusForbidden)
		return
	}
	rw.Write([]byte("ok"))
}

func (w *webhook) failing() {
	w.mu.Lock()
	w.fail = true
	w.mu.Unlock()
}

func TestSlackConfigAndPost(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	hook := &webhook{done: make(chan struct{}, 4)}
	srv := httptest.NewServer(hook)
	defer srv.Close()

	teamID := e.team(t, "admin")
	admin := domain.TeamScope(teamID, "admin", domain.RoleAdmin)

	view, err := e.slack.Create(ctx, admin, models.CreateSlackConfigRequest{WebhookURL: srv.URL + "/services/T000/B000/XXXX"})
	if err != nil {
		t.Fatalf("create config: %v", err)
	}
	var stored models.SlackConfig
	if err := e.db.First(&stored, view.ID).Error; err != nil {
		t.Fatalf("load config: %v", err)
	}
	if stored.WebhookURL == srv.URL+"/services/T000/B000/XXXX" {
		t.Error("webhook url stored in plain text")
	}

	board, err := e.boards.Create(ctx, admin, models.CreateBoardRequest{Name: "Launch"})
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	memo, _ := e.memos.Create(ctx, admin, models.CreateMemoRequest{Title: "Checklist"})
	if _, err := e.boards.AddItem(ctx, admin, board.Slug, models.AddBoardItemRequest{ItemType: "memo", ItemID: memo.DisplayID}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	<-hook.done
	e.slack.Wait()

	hook.mu.Lock()
	if len(hook.texts) != 1 || hook.texts[0] != "*admin* added M1 to board *Launch*" {
		t.Errorf("unexpected slack messages %q", hook.texts)
	}
	hook.mu.Unlock()

	if err := e.slack.Test(ctx, admin, view.ID); err != nil {
		t.Fatalf("test message: %v", err)
	}
	<-hook.done

	hook.failing()
	err = e.slack.Test(ctx, admin, view.ID)
	<-hook.done
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected a rejected webhook reported as invalid, got %v", err)
	}

	if _, err := e.slack.Create(ctx, admin, models.CreateSlackConfigRequest{WebhookURL: "not a url"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected invalid url rejected, got %v", err)
	}
}

func TestApproveRejectsExpiredInvite(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "admin", "Ada")
	e.user(t, "u2", "Ben")
	teamID := e.team(t, "admin")
	admin := domain.TeamScope(teamID, "admin", domain.RoleAdmin)

	start := time.Now()
	e.teams.now = func() time.Time { return start }

	invite, err := e.teams.CreateInvite(ctx, admin, models.CreateInviteRequest{ExpiresInHours: 1})
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}
	request, err := e.teams.SubmitJoinRequest(ctx, "u2", invite.Code, models.CreateJoinRequest{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	e.teams.now = func() time.Time { return start.Add(2 * time.Hour) }
	_, err = e.teams.ApproveJoinRequest(ctx, admin, request.ID)
	var gone *domain.GoneError
	if !errors.As(err, &gone) {
		t.Fatalf("expected gone for an expired invite, got %v", err)
	}
	if ok, _ := e.teams.IsMember(ctx, teamID, "u2"); ok {
		t.Error("u2 joined through an expired invite")
	}

	var stored models.TeamInvite
	if err := e.db.First(&stored, invite.ID).Error; err != nil {
		t.Fatalf("load invite: %v", err)
	}
	if stored.UsedCount != 0 {
		t.Errorf("expired invite use consumed: %d", stored.UsedCount)
	}
	var pending models.JoinRequest
	if err := e.db.First(&pending, request.ID).Error; err != nil {
		t.Fatalf("load request: %v", err)
	}
	if pending.Status != models.JoinPending {
		t.Errorf("request decided despite the failure: %q", pending.Status)
	}
}

func TestApproveKeepsExistingMembership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "admin", "Ada")
	e.user(t, "u2", "Ben")
	teamID := e.team(t, "admin")
	admin := domain.TeamScope(teamID, "admin", domain.RoleAdmin)

	invite, err := e.teams.CreateInvite(ctx, admin, models.CreateInviteRequest{})
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}
	request, err := e.teams.SubmitJoinRequest(ctx, "u2", invite.Code, models.CreateJoinRequest{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// u2 became a member some other way while the request was pending.
	if err := e.db.Create(&models.TeamMember{TeamID: teamID, UserID: "u2", Role: domain.RoleMember}).Error; err != nil {
		t.Fatalf("add member: %v", err)
	}

	approved, err := e.teams.ApproveJoinRequest(ctx, admin, request.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != models.JoinApproved {
		t.Errorf("unexpected status %q", approved.Status)
	}
	var members int64
	e.db.Model(&models.TeamMember{}).Where("team_id = ? AND user_id = ?", teamID, "u2").Count(&members)
	if members != 1 {
		t.Errorf("expected one membership row, got %d", members)
	}
}

func TestSlackConfigUpdateReturnsStoredRow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	teamID := e.team(t, "admin")
	admin := domain.TeamScope(teamID, "admin", domain.RoleAdmin)

	view, err := e.slack.Create(ctx, admin, models.CreateSlackConfigRequest{WebhookURL: "https://hooks.example.com/services/T1/B1/first"})
	if err != nil {
		t.Fatalf("create config: %v", err)
	}

	off := false
	url := "https://hooks.example.com/services/T1/B1/second"
	updated, err := e.slack.Update(ctx, admin, view.ID, models.UpdateSlackConfigRequest{WebhookURL: &url, Enabled: &off})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Enabled {
		t.Error("expected the config disabled in the response")
	}
	if updated.WebhookHint != "…second" {
		t.Errorf("response carries the old webhook: %q", updated.WebhookHint)
	}
}
