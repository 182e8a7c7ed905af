package services

import (
	"context"
	"fmt"
	"time"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/lifecycle"
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/arnold/memoboard-api/internal/notify"
	"github.com/arnold/memoboard-api/internal/search"
	"gorm.io/gorm"
)

// TaskService manages tasks. Tasks are flagged deleted in every scope.
type TaskService struct {
	db        *gorm.DB
	teams     *TeamService
	users     *UserService
	activity  *ActivityService
	notifier  Notifier
	slack     *SlackService
	index     Indexer
	lifecycle lifecycle.Lifecycle[models.Task]
	now       func() time.Time
}

func NewTaskService(db *gorm.DB, purger *lifecycle.Purger, teams *TeamService, users *UserService, activity *ActivityService, notifier Notifier, slack *SlackService, index Indexer) *TaskService {
	if index == nil {
		index = nopIndexer{}
	}
	return &TaskService{
		db:       db,
		teams:    teams,
		users:    users,
		activity: activity,
		notifier: notifier,
		slack:    slack,
		index:    index,
		lifecycle: lifecycle.NewFlag(db, lifecycle.Options{
			Target:        domain.TargetTask,
			Resource:      "Task",
			KeyColumn:     "display_id",
			TouchOnDelete: true,
			Purger:        purger,
		}, itemHooks[models.Task](domain.ItemTask)),
		now: time.Now,
	}
}

// Lifecycle returns the deletion strategy for tasks, which is the same in
// every scope.
func (s *TaskService) Lifecycle(domain.Owner) lifecycle.Lifecycle[models.Task] {
	return s.lifecycle
}

type TaskFilter struct {
	Status     string
	AssigneeID string
	CategoryID *uint
}

func (s *TaskService) record(t models.Task) search.Record {
	return search.NewRecord(t.ScopeKey, domain.ItemTask, t.DisplayID, t.Title, t.Description, t.UpdatedAt)
}

func (s *TaskService) checkAssignee(ctx context.Context, owner domain.Owner, assigneeID *string) error {
	if assigneeID == nil {
		return nil
	}
	if !owner.IsTeam() {
		if *assigneeID != owner.UserID {
			return domain.Invalid("Personal tasks can only be assigned to yourself")
		}
		return nil
	}
	ok, err := s.teams.IsMember(ctx, owner.TeamID, *assigneeID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Invalid("Assignee must be a team member")
	}
	return nil
}

func (s *TaskService) checkCategory(ctx context.Context, owner domain.Owner, id *uint) error {
	if id == nil {
		return nil
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("id = ? AND scope_key = ?", *id, owner.ScopeKey()).
		Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return domain.Invalid("Category not found")
	}
	return nil
}

func (s *TaskService) Create(ctx context.Context, owner domain.Owner, req models.CreateTaskRequest) (*models.Task, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, owner, req.AssigneeID); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, owner, req.CategoryID); err != nil {
		return nil, err
	}

	task := models.Task{
		ScopeKey:    owner.ScopeKey(),
		UserID:      owner.UserID,
		TeamID:      owner.TeamIDPtr(),
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		AssigneeID:  req.AssigneeID,
		CategoryID:  req.CategoryID,
	}
	if task.Status == "" {
		task.Status = models.TaskTodo
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.Status == models.TaskCompleted {
		now := s.now()
		task.CompletedAt = &now
	}

	err := createWithDisplayID(s.db.WithContext(ctx), "T", owner.ScopeKey(),
		[]any{&models.Task{}},
		func(seq int, displayID string) {
			task.ID = 0
			task.DisplaySeq = seq
			task.DisplayID = displayID
		},
		func(tx *gorm.DB) error { return tx.Create(&task).Error },
	)
	if err != nil {
		return nil, err
	}

	s.activity.Log(ctx, owner, ActionCreated, domain.TargetTask, task.DisplayID, map[string]any{"title": task.Title})
	s.index.Index(s.record(task))
	if task.AssigneeID != nil {
		s.assigned(ctx, owner, task)
	}
	return &task, nil
}

func (s *TaskService) Get(ctx context.Context, owner domain.Owner, displayID string) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).
		Where("scope_key = ? AND display_id = ?", owner.ScopeKey(), displayID).
		First(&task).Error
	if err != nil {
		return nil, notFoundOr(err, owner.Label("Task")+" not found")
	}
	return &task, nil
}

// List returns active tasks, most recently updated first.
func (s *TaskService) List(ctx context.Context, owner domain.Owner, f TaskFilter) ([]models.Task, error) {
	q := s.db.WithContext(ctx).Where("scope_key = ?", owner.ScopeKey())
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.AssigneeID != "" {
		q = q.Where("assignee_id = ?", f.AssigneeID)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	tasks := []models.Task{}
	err := q.Order("updated_at DESC, created_at DESC").Find(&tasks).Error
	return tasks, err
}

// Update applies a partial update. When req.UpdatedAt is set and does not
// match the stored row, the update is rejected with a StaleError carrying
// the stored row.
func (s *TaskService) Update(ctx context.Context, owner domain.Owner, displayID string, req models.UpdateTaskRequest) (*models.Task, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, owner, req.AssigneeID); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, owner, req.CategoryID); err != nil {
		return nil, err
	}

	var (
		task        models.Task
		oldAssignee *string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("scope_key = ? AND display_id = ?", owner.ScopeKey(), displayID).First(&task).Error; err != nil {
			return notFoundOr(err, owner.Label("Task")+" not found")
		}
		if req.UpdatedAt != nil && versionMismatch(task.UpdatedAt, *req.UpdatedAt) {
			return &domain.StaleError{
				Message: owner.Label("Task") + " was modified by someone else",
				Latest:  task,
			}
		}
		oldAssignee = task.AssigneeID

		updates := taskUpdates(task, req, s.now())
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).Updates(updates).Error; err != nil {
			return err
		}
		// Reload into a zero value: First leaves pointer fields set when
		// the column is now NULL.
		var fresh models.Task
		if err := tx.First(&fresh, task.ID).Error; err != nil {
			return err
		}
		task = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activity.Log(ctx, owner, ActionUpdated, domain.TargetTask, task.DisplayID, nil)
	s.index.Index(s.record(task))
	if task.AssigneeID != nil && (oldAssignee == nil || *oldAssignee != *task.AssigneeID) {
		s.assigned(ctx, owner, task)
	}
	return &task, nil
}

func taskUpdates(task models.Task, req models.UpdateTaskRequest, now time.Time) map[string]any {
	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.Status != nil && *req.Status != task.Status {
		updates["status"] = *req.Status
		if *req.Status == models.TaskCompleted {
			updates["completed_at"] = now
		} else {
			updates["completed_at"] = nil
		}
	}
	if req.ClearDueDate {
		updates["due_date"] = nil
	} else if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if req.ClearAssignee {
		updates["assignee_id"] = nil
	} else if req.AssigneeID != nil {
		updates["assignee_id"] = *req.AssigneeID
	}
	if req.ClearCategory {
		updates["category_id"] = nil
	} else if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	return updates
}

// versionMismatch reports whether the client's updatedAt differs from the
// stored one at millisecond precision, the resolution clients round-trip
// through JSON.
func versionMismatch(stored, seen time.Time) bool {
	return !stored.Truncate(time.Millisecond).Equal(seen.Truncate(time.Millisecond))
}

// assigned tells the assignee about the task and posts to the team's Slack.
func (s *TaskService) assigned(ctx context.Context, owner domain.Owner, task models.Task) {
	assignee := *task.AssigneeID
	actor := s.users.Handle(ctx, owner.UserID)

	if assignee != owner.UserID && s.notifier != nil {
		s.notifier.Notify(ctx, assignee, notify.NewEvent(notify.KindTaskAssigned,
			"New task assigned",
			fmt.Sprintf("%s assigned you %s: %s", actor, task.DisplayID, task.Title),
			map[string]any{"taskId": task.DisplayID, "teamId": owner.TeamID},
		))
	}
	if owner.IsTeam() {
		s.slack.Post(ctx, owner.TeamID, nil, fmt.Sprintf("*%s* assigned %s *%s* to %s",
			actor, task.DisplayID, task.Title, s.users.Handle(ctx, assignee)))
	}
}

// Delete accepts a display id or a numeric id.
func (s *TaskService) Delete(ctx context.Context, owner domain.Owner, ident string) (*models.Task, error) {
	id, _, err := resolveItem(s.db.WithContext(ctx), owner.ScopeKey(), domain.ItemTask, ident)
	if err != nil {
		return nil, notFoundOr(err, owner.Label("Task")+" not found")
	}
	task, err := s.lifecycle.Delete(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	s.activity.Log(ctx, owner, ActionDeleted, domain.TargetTask, task.DisplayID, map[string]any{"title": task.Title})
	s.index.Remove(task.ScopeKey, domain.ItemTask, task.DisplayID)
	return &task, nil
}

func (s *TaskService) ListDeleted(ctx context.Context, owner domain.Owner) ([]lifecycle.Deleted[models.Task], error) {
	return s.lifecycle.ListDeleted(ctx, owner)
}

func (s *TaskService) Restore(ctx context.Context, owner domain.Owner, displayID string) (*models.Task, error) {
	task, err := s.lifecycle.Restore(ctx, owner, displayID)
	if err != nil {
		return nil, err
	}
	s.activity.Log(ctx, owner, ActionRestored, domain.TargetTask, task.DisplayID, nil)
	s.index.Index(s.record(task))
	return &task, nil
}

func (s *TaskService) Purge(ctx context.Context, owner domain.Owner, displayID string) error {
	task, err := s.lifecycle.Purge(ctx, owner, displayID)
	if err != nil {
		return err
	}
	s.activity.Log(ctx, owner, ActionPurged, domain.TargetTask, task.DisplayID, map[string]any{"title": task.Title})
	s.index.Remove(owner.ScopeKey(), domain.ItemTask, task.DisplayID)
	return nil
}
