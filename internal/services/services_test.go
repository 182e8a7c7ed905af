package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/arnold/memoboard-api/internal/database"
	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/lifecycle"
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/arnold/memoboard-api/internal/notify"
	"github.com/arnold/memoboard-api/internal/secret"
	"gorm.io/gorm"
)

type recorder struct {
	mu     sync.Mutex
	events map[string][]notify.Event
}

func (r *recorder) Notify(_ context.Context, userID string, event notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = map[string][]notify.Event{}
	}
	r.events[userID] = append(r.events[userID], event)
}

func (r *recorder) For(userID string) []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events[userID]...)
}

type published struct {
	BoardID   uint
	EventType string
}

type eventLog struct {
	mu  sync.Mutex
	got []published
}

func (e *eventLog) Publish(boardID uint, _ string, eventType string, _ any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.got = append(e.got, published{BoardID: boardID, EventType: eventType})
}

type env struct {
	db         *gorm.DB
	users      *UserService
	teams      *TeamService
	memos      *MemoService
	tasks      *TaskService
	boards     *BoardService
	comments   *CommentService
	categories *CategoryService
	slack      *SlackService
	notes      *recorder
	events     *eventLog
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect("file:"+name+"?mode=memory&cache=shared", discard(), false)
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
	return db
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testDB(t)
	logger := discard()

	cipher, err := secret.NewCipher("test-secret")
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	purger := lifecycle.NewPurger(nil, logger)
	activity := NewActivityService(db, logger)
	users := NewUserService(db, logger)
	slack := NewSlackService(db, cipher, logger)
	t.Cleanup(slack.Wait)

	notes := &recorder{}
	events := &eventLog{}
	teams := NewTeamService(db, users, activity, notes, slack, purger, logger)
	memos := NewMemoService(db, purger, activity, nil)
	tasks := NewTaskService(db, purger, teams, users, activity, notes, slack, nil)

	return &env{
		db:         db,
		users:      users,
		teams:      teams,
		memos:      memos,
		tasks:      tasks,
		boards:     NewBoardService(db, purger, memos, tasks, users, activity, events, slack),
		comments:   NewCommentService(db, purger, teams, users, activity, notes),
		categories: NewCategoryService(db),
		slack:      slack,
		notes:      notes,
		events:     events,
	}
}

func (e *env) user(t *testing.T, id, name string) {
	t.Helper()
	if _, err := e.users.Provision(context.Background(), Identity{Subject: id, Email: id + "@example.com", Name: name}); err != nil {
		t.Fatalf("provision %s: %v", id, err)
	}
}

// team creates a team administered by adminID and adds the given members.
func (e *env) team(t *testing.T, adminID string, members ...string) uint {
	t.Helper()
	summary, err := e.teams.Create(context.Background(), adminID, models.CreateTeamRequest{Name: "Crew " + adminID})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	for _, m := range members {
		if err := e.db.Create(&models.TeamMember{TeamID: summary.ID, UserID: m, Role: domain.RoleMember}).Error; err != nil {
			t.Fatalf("add member %s: %v", m, err)
		}
	}
	return summary.ID
}
