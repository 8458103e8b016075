package jobs

import (
	"github.com/marwanayman128/TaskFlow-sub001/internal/model"
	"github.com/marwanayman128/TaskFlow-sub001/internal/storage"
)

// Storage rows cross into model values at the write and send boundaries
// so the model invariants are enforced at runtime, not only by the
// dashboard that authored the rows.

func taskModel(t storage.Task) model.Task {
	return model.Task{
		ID:               t.ID,
		UserID:           t.UserID,
		Title:            t.Title,
		Description:      t.Description,
		Notes:            t.Notes,
		Status:           model.TaskStatus(t.Status),
		Priority:         model.Priority(t.Priority),
		DueDate:          t.DueDate,
		IsRecurring:      t.IsRecurring,
		RecurrenceRule:   t.RecurrenceRule,
		ParentTaskID:     t.ParentTaskID,
		ListID:           t.ListID,
		ColumnID:         t.ColumnID,
		EstimatedMinutes: t.EstimatedMinutes,
		CreatedAt:        t.CreatedAt,
	}
}

func notificationModel(n storage.Notification) model.Notification {
	return model.Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		TaskID:    n.TaskID,
		Title:     n.Title,
		Body:      n.Body,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

func integrationModel(i storage.Integration) model.Integration {
	return model.Integration{
		ID:           i.ID,
		UserID:       i.UserID,
		Provider:     model.Provider(i.Provider),
		ExternalID:   i.ExternalID,
		IsActive:     i.IsActive,
		AccessToken:  i.AccessToken,
		RefreshToken: i.RefreshToken,
		ExpiresAt:    i.ExpiresAt,
		CreatedAt:    i.CreatedAt,
	}
}
