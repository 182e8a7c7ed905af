package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/arnold/memoboard-api/internal/notify"
)

func TestTaskDeleteRestoreKeepsDisplayID(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := domain.Personal("u1")

	task, err := e.tasks.Create(ctx, owner, models.CreateTaskRequest{Title: "Renew passport"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.DisplayID != "T1" || task.Status != models.TaskTodo || task.Priority != models.PriorityMedium {
		t.Fatalf("unexpected defaults: %+v", task)
	}

	if _, err := e.tasks.Delete(ctx, owner, "T1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := e.tasks.Get(ctx, owner, "T1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("deleted task still readable: %v", err)
	}

	// A deleted task keeps its number; the next task does not reuse it.
	next, err := e.tasks.Create(ctx, owner, models.CreateTaskRequest{Title: "Book flights"})
	if err != nil {
		t.Fatalf("create next: %v", err)
	}
	if next.DisplayID != "T2" {
		t.Errorf("expected T2, got %s", next.DisplayID)
	}

	restored, err := e.tasks.Restore(ctx, owner, "T1")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.ID != task.ID || restored.DisplayID != "T1" {
		t.Errorf("restore changed identity: %+v", restored)
	}
}

func TestTaskDeleteTwiceIsNotFound(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	teamID := e.team(t, "u1")
	owner := domain.TeamScope(teamID, "u1", domain.RoleAdmin)

	if _, err := e.tasks.Create(ctx, owner, models.CreateTaskRequest{Title: "Shared"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.tasks.Delete(ctx, owner, "T1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err := e.tasks.Delete(ctx, owner, "T1")
	if !errors.Is(err, domain.ErrNotFound) || err.Error() != "Team task not found" {
		t.Fatalf("expected team task not found, got %v", err)
	}
}

func TestTaskUpdateRejectsStaleWrite(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := domain.Personal("u1")

	task, err := e.tasks.Create(ctx, owner, models.CreateTaskRequest{Title: "Draft budget"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	seen := task.UpdatedAt
	title := "Budget v2"
	first, err := e.tasks.Update(ctx, owner, "T1", models.UpdateTaskRequest{Title: &title, UpdatedAt: &seen})
	if err != nil {
		t.Fatalf("fresh update: %v", err)
	}

	old := seen.Add(-time.Second)
	status := models.TaskCompleted
	_, err = e.tasks.Update(ctx, owner, "T1", models.UpdateTaskRequest{Status: &status, UpdatedAt: &old})
	var stale *domain.StaleError
	if !errors.As(err, &stale) {
		t.Fatalf("expected a stale error, got %v", err)
	}
	if stale.StatusCode() != 409 {
		t.Errorf("expected 409, got %d", stale.StatusCode())
	}
	latest, ok := stale.Latest.(models.Task)
	if !ok || latest.Title != "Budget v2" {
		t.Errorf("expected the stored task in the error, got %#v", stale.Latest)
	}

	stored, err := e.tasks.Get(ctx, owner, "T1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != models.TaskTodo || stored.CompletedAt != nil {
		t.Errorf("stale write modified the task: %+v", stored)
	}
	if !stored.UpdatedAt.Equal(first.UpdatedAt) {
		t.Errorf("stale write touched updated_at")
	}
}

func TestTaskCompletionStampsCompletedAt(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := domain.Personal("u1")

	if _, err := e.tasks.Create(ctx, owner, models.CreateTaskRequest{Title: "Water plants"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	done := models.TaskCompleted
	task, err := e.tasks.Update(ctx, owner, "T1", models.UpdateTaskRequest{Status: &done})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if task.CompletedAt == nil {
		t.Fatal("expected completedAt to be set")
	}

	todo := models.TaskTodo
	task, err = e.tasks.Update(ctx, owner, "T1", models.UpdateTaskRequest{Status: &todo})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if task.CompletedAt != nil {
		t.Error("expected completedAt cleared when reopened")
	}
}

func TestTaskAssignee(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1", "Ana")
	e.user(t, "u2", "Ben")

	other := "u2"
	_, err := e.tasks.Create(ctx, domain.Personal("u1"), models.CreateTaskRequest{Title: "Mine", AssigneeID: &other})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("personal task assigned to someone else: %v", err)
	}

	teamID := e.team(t, "u1", "u2")
	owner := domain.TeamScope(teamID, "u1", domain.RoleAdmin)
	task, err := e.tasks.Create(ctx, owner, models.CreateTaskRequest{Title: "Review PR", AssigneeID: &other})
	if err != nil {
		t.Fatalf("create assigned: %v", err)
	}

	got := e.notes.For("u2")
	if len(got) != 1 || got[0].Kind != notify.KindTaskAssigned {
		t.Fatalf("expected one assignment event, got %+v", got)
	}
	if got[0].Data["taskId"] != task.DisplayID {
		t.Errorf("event points at %v, want %s", got[0].Data["taskId"], task.DisplayID)
	}

	stranger := "u9"
	_, err = e.tasks.Create(ctx, owner, models.CreateTaskRequest{Title: "Nope", AssigneeID: &stranger})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected non-member assignee rejected, got %v", err)
	}
}

func TestMemoDisplayIDsSkipArchived(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := domain.Personal("u1")

	memo, err := e.memos.Create(ctx, owner, models.CreateMemoRequest{Title: "First", Content: `<p>ok</p><script>alert(1)</script>`})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if memo.Content != "<p>ok</p>" {
		t.Errorf("content not sanitized: %q", memo.Content)
	}
	if _, err := e.memos.Delete(ctx, owner, memo.DisplayID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	next, err := e.memos.Create(ctx, owner, models.CreateMemoRequest{Title: "Second"})
	if err != nil {
		t.Fatalf("create next: %v", err)
	}
	if next.DisplayID != "M2" {
		t.Errorf("archived memo number was reused: %s", next.DisplayID)
	}
}

func TestCategoryDeleteClearsItems(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := domain.Personal("u1")

	cat, err := e.categories.Create(ctx, owner, models.CategoryRequest{Name: "Work"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := e.categories.Create(ctx, owner, models.CategoryRequest{Name: "Work"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected duplicate category conflict, got %v", err)
	}

	task, err := e.tasks.Create(ctx, owner, models.CreateTaskRequest{Title: "Report", CategoryID: &cat.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := e.categories.Delete(ctx, owner, cat.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	stored, err := e.tasks.Get(ctx, owner, task.DisplayID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if stored.CategoryID != nil {
		t.Errorf("expected category cleared, got %d", *stored.CategoryID)
	}

	foreign := cat.ID
	if _, err := e.tasks.Create(ctx, domain.Personal("u2"), models.CreateTaskRequest{Title: "x", CategoryID: &foreign}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("category from another scope accepted: %v", err)
	}
}

func TestTaskUpdateRejectsNewerVersion(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := domain.Personal("u1")

	task, err := e.tasks.Create(ctx, owner, models.CreateTaskRequest{Title: "Plan offsite"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Any mismatch is a conflict, not only an older timestamp.
	ahead := task.UpdatedAt.Add(time.Hour)
	title := "Plan retreat"
	_, err = e.tasks.Update(ctx, owner, "T1", models.UpdateTaskRequest{Title: &title, UpdatedAt: &ahead})
	var stale *domain.StaleError
	if !errors.As(err, &stale) {
		t.Fatalf("expected a stale error for a mismatching updatedAt, got %v", err)
	}

	stored, err := e.tasks.Get(ctx, owner, "T1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Title != "Plan offsite" {
		t.Errorf("mismatching write modified the task: %q", stored.Title)
	}

	exact := stored.UpdatedAt
	if _, err := e.tasks.Update(ctx, owner, "T1", models.UpdateTaskRequest{Title: &title, UpdatedAt: &exact}); err != nil {
		t.Errorf("matching updatedAt rejected: %v", err)
	}
}

func TestTaskUpdateClearsNullableFields(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := domain.Personal("u1")

	cat, err := e.categories.Create(ctx, owner, models.CategoryRequest{Name: "Home"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	due := time.Now().Add(24 * time.Hour)
	self := "u1"
	if _, err := e.tasks.Create(ctx, owner, models.CreateTaskRequest{
		Title: "Fix sink", DueDate: &due, AssigneeID: &self, CategoryID: &cat.ID,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	task, err := e.tasks.Update(ctx, owner, "T1", models.UpdateTaskRequest{
		ClearDueDate: true, ClearAssignee: true, ClearCategory: true,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if task.DueDate != nil || task.AssigneeID != nil || task.CategoryID != nil {
		t.Errorf("cleared fields still set in response: due=%v assignee=%v category=%v",
			task.DueDate, task.AssigneeID, task.CategoryID)
	}

	stored, err := e.tasks.Get(ctx, owner, "T1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.DueDate != nil || stored.AssigneeID != nil || stored.CategoryID != nil {
		t.Errorf("cleared fields still stored: %+v", stored)
	}
}

func TestMemoUpdateClearsCategory(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := domain.Personal("u1")

	cat, err := e.categories.Create(ctx, owner, models.CategoryRequest{Name: "Recipes"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := e.memos.Create(ctx, owner, models.CreateMemoRequest{Title: "Soup", CategoryID: &cat.ID}); err != nil {
		t.Fatalf("create: %v", err)
	}

	memo, err := e.memos.Update(ctx, owner, "M1", models.UpdateMemoRequest{ClearCategory: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if memo.CategoryID != nil {
		t.Errorf("expected category cleared in response, got %d", *memo.CategoryID)
	}

	stored, err := e.memos.Get(ctx, owner, "M1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.CategoryID != nil {
		t.Errorf("expected category cleared in store, got %d", *stored.CategoryID)
	}
}
