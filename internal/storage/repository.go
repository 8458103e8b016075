package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("storage: not found")

type Repository interface {
	CreateTask(ctx context.Context, in Task) error
	GetTask(ctx context.Context, id string) (Task, error)
	UpdateTask(ctx context.Context, in Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error)
	// HasOccurrenceOn reports whether a generated occurrence of the given
	// template already exists with a due date inside day's calendar day.
	HasOccurrenceOn(ctx context.Context, parentTaskID string, day time.Time) (bool, error)

	CreateReminder(ctx context.Context, in Reminder) error
	GetReminder(ctx context.Context, id string) (Reminder, error)
	UpdateReminder(ctx context.Context, in Reminder) error
	DeleteReminder(ctx context.Context, id string) error
	ListReminders(ctx context.Context, filter ReminderListFilter) ([]Reminder, error)
	// ListDueReminders returns untriggered time reminders with
	// remind_at <= now, oldest first.
	ListDueReminders(ctx context.Context, now time.Time) ([]Reminder, error)
	MarkReminderTriggered(ctx context.Context, id string, at time.Time) error

	CreateIntegration(ctx context.Context, in Integration) error
	GetIntegration(ctx context.Context, id string) (Integration, error)
	ActiveIntegration(ctx context.Context, userID, provider string) (Integration, error)
	ListActiveIntegrations(ctx context.Context, provider string) ([]Integration, error)
	// DeactivateIntegration flips is_active off and clears tokens; the
	// row is kept so a later reconnect reuses the same record.
	DeactivateIntegration(ctx context.Context, id string) error

	CreateNotification(ctx context.Context, in Notification) error
	ListNotifications(ctx context.Context, filter NotificationListFilter) ([]Notification, error)

	CreateTag(ctx context.Context, in Tag) error
	ListTags(ctx context.Context) ([]Tag, error)
	ListTaskTagIDs(ctx context.Context, taskID string) ([]string, error)
	SetTaskTags(ctx context.Context, taskID string, tagIDs []string) error
}
