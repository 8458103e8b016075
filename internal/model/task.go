package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidStatus   = errors.New("model: invalid task status")
	ErrInvalidPriority = errors.New("model: invalid task priority")
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// IsClosed reports whether a task in this status should no longer fire
// reminders or appear in digests.
func (s TaskStatus) IsClosed() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
	PriorityNone   Priority = "NONE"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow, PriorityNone:
		return true
	default:
		return false
	}
}

// Task is either a regular task, a recurring template (IsRecurring=true,
// never itself due), or a generated occurrence (ParentTaskID set,
// IsRecurring always false).
type Task struct {
	ID               string
	UserID           string
	Title            string
	Description      string
	Notes            string
	Status           TaskStatus
	Priority         Priority
	DueDate          *time.Time
	IsRecurring      bool
	RecurrenceRule   string
	ParentTaskID     string
	ListID           string
	ColumnID         string
	EstimatedMinutes int
	CreatedAt        time.Time
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if strings.TrimSpace(t.UserID) == "" {
		return errors.New("model: task user_id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("model: task title is required")
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if t.CreatedAt.IsZero() {
		return errors.New("model: task created_at is required")
	}
	if t.IsRecurring && strings.TrimSpace(t.RecurrenceRule) == "" {
		return errors.New("model: recurrence_rule is required when task is recurring")
	}
	if t.IsRecurring && t.ParentTaskID != "" {
		return errors.New("model: a generated occurrence must not be recurring")
	}
	return nil
}
