package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Task is always soft-deleted in place, personal or team.
type Task struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	DisplayID   string         `json:"displayId" gorm:"not null;uniqueIndex:idx_tasks_scope_display"`
	DisplaySeq  int            `json:"-" gorm:"not null;default:0"`
	ScopeKey    string         `json:"-" gorm:"not null;uniqueIndex:idx_tasks_scope_display;index"`
	UserID      string         `json:"userId" gorm:"not null;index"`
	TeamID      *uint          `json:"teamId" gorm:"index"`
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description" gorm:"type:text"`
	Status      TaskStatus     `json:"status" gorm:"not null;default:'todo';index"`
	Priority    TaskPriority   `json:"priority" gorm:"not null;default:'medium'"`
	DueDate     *time.Time     `json:"dueDate"`
	AssigneeID  *string        `json:"assigneeId" gorm:"index"`
	CategoryID  *uint          `json:"categoryId" gorm:"index"`
	CompletedAt *time.Time     `json:"completedAt"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"deletedAt" gorm:"index"`
}

func (t Task) RecordID() uint    { return t.ID }
func (t Task) RecordKey() string { return t.DisplayID }

func (t Task) DeletedTime() time.Time {
	if t.DeletedAt.Valid {
		return t.DeletedAt.Time
	}
	return time.Time{}
}

var taskStatuses = []interface{}{TaskTodo, TaskInProgress, TaskCompleted}
var taskPriorities = []interface{}{PriorityLow, PriorityMedium, PriorityHigh}

type CreateTaskRequest struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"dueDate"`
	AssigneeID  *string      `json:"assigneeId"`
	CategoryID  *uint        `json:"categoryId"`
}

func (r CreateTaskRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Length(0, 20000)),
		validation.Field(&r.Status, validation.In(taskStatuses...)),
		validation.Field(&r.Priority, validation.In(taskPriorities...)),
		validation.Field(&r.AssigneeID, validation.NilOrNotEmpty),
	)
}

// UpdateTaskRequest carries the client's last seen UpdatedAt for the
// optimistic-lock check.
type UpdateTaskRequest struct {
	Title         *string       `json:"title"`
	Description   *string       `json:"description"`
	Status        *TaskStatus   `json:"status"`
	Priority      *TaskPriority `json:"priority"`
	DueDate       *time.Time    `json:"dueDate"`
	ClearDueDate  bool          `json:"clearDueDate"`
	AssigneeID    *string       `json:"assigneeId"`
	ClearAssignee bool          `json:"clearAssignee"`
	CategoryID    *uint         `json:"categoryId"`
	ClearCategory bool          `json:"clearCategory"`
	UpdatedAt     *time.Time    `json:"updatedAt"`
}

func (r UpdateTaskRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Length(0, 20000)),
		validation.Field(&r.Status, validation.NilOrNotEmpty, validation.In(taskStatuses...)),
		validation.Field(&r.Priority, validation.NilOrNotEmpty, validation.In(taskPriorities...)),
		validation.Field(&r.AssigneeID, validation.NilOrNotEmpty),
	)
}
