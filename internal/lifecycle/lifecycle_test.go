package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arnold/memoboard-api/internal/database"
	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/models"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect("file:"+name+"?mode=memory&cache=shared", slog.New(slog.NewTextHandler(io.Discard, nil)), false)
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

type memStore struct {
	mu      sync.Mutex
	deleted []string
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, key)
	return nil
}

func taskLifecycle(db *gorm.DB, purger *Purger) *Flag[models.Task] {
	return NewFlag[models.Task](db, Options{
		Target:        domain.TargetTask,
		Resource:      "Task",
		KeyColumn:     "display_id",
		TouchOnDelete: true,
		Purger:        purger,
	}, Hooks[models.Task]{})
}

func memoLifecycle(db *gorm.DB, purger *Purger) *Archive[models.Memo, models.DeletedMemo] {
	return NewArchive(db, Options{
		Target:    domain.TargetMemo,
		Resource:  "Memo",
		KeyColumn: "display_id",
		Purger:    purger,
	}, Codec[models.Memo, models.DeletedMemo]{
		Archive: models.ArchiveMemo,
		Revive:  models.ReviveMemo,
		View:    models.DeletedMemo.View,
	}, Hooks[models.Memo]{})
}

func seedTask(t *testing.T, db *gorm.DB, owner domain.Owner, seq int, title string) models.Task {
	t.Helper()
	task := models.Task{
		ScopeKey:   owner.ScopeKey(),
		UserID:     owner.UserID,
		TeamID:     owner.TeamIDPtr(),
		DisplaySeq: seq,
		DisplayID:  "T" + string(rune('0'+seq)),
		Title:      title,
		Status:     models.TaskTodo,
		Priority:   models.PriorityMedium,
	}
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return task
}

func seedMemo(t *testing.T, db *gorm.DB, owner domain.Owner, seq int, title string) models.Memo {
	t.Helper()
	memo := models.Memo{
		ScopeKey:   owner.ScopeKey(),
		UserID:     owner.UserID,
		TeamID:     owner.TeamIDPtr(),
		DisplaySeq: seq,
		DisplayID:  "M" + string(rune('0'+seq)),
		Title:      title,
		Content:    "body of " + title,
	}
	if err := db.Create(&memo).Error; err != nil {
		t.Fatalf("seed memo: %v", err)
	}
	return memo
}

func TestFlagDeleteRestoreKeepsIdentity(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	owner := domain.TeamScope(7, "u1", domain.RoleMember)
	lc := taskLifecycle(db, nil)

	task := seedTask(t, db, owner, 1, "Write report")

	deleted, err := lc.Delete(ctx, owner, task.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted.DeletedAt.Valid {
		t.Fatal("expected deleted_at to be set")
	}

	var active int64
	db.Model(&models.Task{}).Where("scope_key = ?", owner.ScopeKey()).Count(&active)
	if active != 0 {
		t.Fatalf("expected no active tasks, got %d", active)
	}

	list, err := lc.ListDeleted(ctx, owner)
	if err != nil {
		t.Fatalf("list deleted: %v", err)
	}
	if len(list) != 1 || list[0].Ref != "T1" {
		t.Fatalf("unexpected deleted listing: %+v", list)
	}

	restored, err := lc.Restore(ctx, owner, "T1")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.ID != task.ID || restored.DisplayID != task.DisplayID {
		t.Errorf("restore changed identity: got id=%d key=%s, want id=%d key=%s",
			restored.ID, restored.DisplayID, task.ID, task.DisplayID)
	}
	if restored.DeletedAt.Valid {
		t.Error("restored task still flagged deleted")
	}
}

func TestFlagConcurrentDeleteSucceedsOnce(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	owner := domain.TeamScope(3, "u1", domain.RoleMember)
	lc := taskLifecycle(db, nil)
	task := seedTask(t, db, owner, 1, "Shared")

	const racers = 2
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = lc.Delete(ctx, owner, task.ID)
		}(i)
	}
	wg.Wait()

	var ok, notFound int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrNotFound):
			notFound++
			if err.Error() != "Team task not found" {
				t.Errorf("unexpected message %q", err.Error())
			}
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || notFound != 1 {
		t.Fatalf("expected one success and one not found, got %d and %d", ok, notFound)
	}
}

func TestFlagRestoreRequiresDeletedRow(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	owner := domain.Personal("u1")
	lc := taskLifecycle(db, nil)
	seedTask(t, db, owner, 1, "Still active")

	_, err := lc.Restore(ctx, owner, "T1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found restoring an active task, got %v", err)
	}
}

func TestFlagPurgeRemovesDependents(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	owner := domain.Personal("u1")
	store := &memStore{}
	lc := taskLifecycle(db, NewPurger(store, slog.New(slog.NewTextHandler(io.Discard, nil))))
	task := seedTask(t, db, owner, 1, "Purge me")

	comment := models.Comment{ScopeKey: owner.ScopeKey(), UserID: "u1", TargetType: domain.TargetTask, TargetDisplayID: "T1", Content: "hi"}
	if err := db.Create(&comment).Error; err != nil {
		t.Fatalf("seed comment: %v", err)
	}
	attachments := []models.Attachment{
		{ScopeKey: owner.ScopeKey(), UserID: "u1", TargetType: domain.TargetTask, TargetDisplayID: "T1", FileName: "a.txt", StorageKey: "k/a"},
		{ScopeKey: owner.ScopeKey(), UserID: "u1", TargetType: domain.TargetComment, TargetDisplayID: strconv.FormatUint(uint64(comment.ID), 10), FileName: "b.txt", StorageKey: "k/b"},
	}
	if err := db.Create(&attachments).Error; err != nil {
		t.Fatalf("seed attachments: %v", err)
	}

	if _, err := lc.Delete(ctx, owner, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := lc.Purge(ctx, owner, "T1"); err != nil {
		t.Fatalf("purge: %v", err)
	}

	var n int64
	db.Unscoped().Model(&models.Task{}).Count(&n)
	if n != 0 {
		t.Errorf("expected task row gone, found %d", n)
	}
	db.Model(&models.Comment{}).Count(&n)
	if n != 0 {
		t.Errorf("expected comments gone, found %d", n)
	}
	db.Model(&models.Attachment{}).Count(&n)
	if n != 0 {
		t.Errorf("expected attachments gone, found %d", n)
	}
	if len(store.deleted) != 2 {
		t.Errorf("expected two blobs removed, got %v", store.deleted)
	}

	_, err := lc.Purge(ctx, owner, "T1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected second purge to be not found, got %v", err)
	}
}

func TestArchiveRestoreAssignsNewID(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	owner := domain.Personal("u1")
	lc := memoLifecycle(db, nil)
	memo := seedMemo(t, db, owner, 1, "Groceries")

	if _, err := lc.Delete(ctx, owner, memo.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var active int64
	db.Unscoped().Model(&models.Memo{}).Count(&active)
	if active != 0 {
		t.Fatalf("expected memo row moved out, found %d", active)
	}

	list, err := lc.ListDeleted(ctx, owner)
	if err != nil {
		t.Fatalf("list deleted: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one archived memo, got %d", len(list))
	}
	if list[0].Item.ID != memo.ID || list[0].Item.DisplayID != "M1" {
		t.Errorf("archived view lost identity: %+v", list[0].Item)
	}

	restored, err := lc.Restore(ctx, owner, list[0].Ref)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.ID == memo.ID {
		t.Errorf("expected a new id, got the old one %d", memo.ID)
	}
	if restored.DisplayID != memo.DisplayID || restored.Title != memo.Title || restored.Content != memo.Content {
		t.Errorf("restored memo differs: %+v", restored)
	}

	var archived int64
	db.Model(&models.DeletedMemo{}).Count(&archived)
	if archived != 0 {
		t.Errorf("expected archive emptied, found %d", archived)
	}
}

func TestArchivePurgeTwiceIsNotFound(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	owner := domain.Personal("u1")
	lc := memoLifecycle(db, nil)
	memo := seedMemo(t, db, owner, 1, "Old idea")

	if _, err := lc.Delete(ctx, owner, memo.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, err := lc.ListDeleted(ctx, owner)
	if err != nil || len(list) != 1 {
		t.Fatalf("list deleted: %v %v", list, err)
	}

	if _, err := lc.Purge(ctx, owner, list[0].Ref); err != nil {
		t.Fatalf("purge: %v", err)
	}
	_, err = lc.Purge(ctx, owner, list[0].Ref)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err.Error() != "Memo not found" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestListDeletedNewestFirstWithCommentCounts(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	owner := domain.Personal("u1")

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	lc := NewFlag[models.Task](db, Options{
		Target:    domain.TargetTask,
		Resource:  "Task",
		KeyColumn: "display_id",
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
	}, Hooks[models.Task]{})

	first := seedTask(t, db, owner, 1, "First")
	second := seedTask(t, db, owner, 2, "Second")
	for i := 0; i < 3; i++ {
		c := models.Comment{ScopeKey: owner.ScopeKey(), UserID: "u1", TargetType: domain.TargetTask, TargetDisplayID: "T1", Content: "note"}
		if err := db.Create(&c).Error; err != nil {
			t.Fatalf("seed comment: %v", err)
		}
	}

	if _, err := lc.Delete(ctx, owner, first.ID); err != nil {
		t.Fatalf("delete first: %v", err)
	}
	if _, err := lc.Delete(ctx, owner, second.ID); err != nil {
		t.Fatalf("delete second: %v", err)
	}

	list, err := lc.ListDeleted(ctx, owner)
	if err != nil {
		t.Fatalf("list deleted: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list))
	}
	if list[0].Ref != "T2" || list[1].Ref != "T1" {
		t.Errorf("expected newest deletion first, got %s then %s", list[0].Ref, list[1].Ref)
	}
	if list[1].CommentCount != 3 || list[0].CommentCount != 0 {
		t.Errorf("unexpected comment counts: T2=%d T1=%d", list[0].CommentCount, list[1].CommentCount)
	}

	other, err := lc.ListDeleted(ctx, domain.Personal("u2"))
	if err != nil {
		t.Fatalf("list other scope: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("deleted rows leaked across scopes: %+v", other)
	}
}
