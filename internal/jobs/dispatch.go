package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/marwanayman128/TaskFlow-sub001/internal/channel"
	"github.com/marwanayman128/TaskFlow-sub001/internal/model"
	"github.com/marwanayman128/TaskFlow-sub001/internal/storage"
)

// Providers tried for an external send, in order. The first one with an
// active integration and a configured sender wins.
var dispatchProviders = []string{
	string(model.ProviderWhatsApp),
	string(model.ProviderTelegram),
}

type DispatchResult struct {
	Processed int `json:"processed"`
	Closed    int `json:"closed"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// DispatchReminders runs one dispatch pass: every due untriggered time
// reminder is marked triggered exactly once. The in-app notification is
// the durable channel; the external send is attempted once and its
// failure is not retried on a later tick.
func (r *Runner) DispatchReminders(ctx context.Context) (DispatchResult, error) {
	now := r.now()
	due, err := r.repo.ListDueReminders(ctx, now)
	if err != nil {
		return DispatchResult{}, fmt.Errorf("list due reminders: %w", err)
	}

	var res DispatchResult
	for _, rem := range due {
		res.Processed++
		if err := r.dispatchOne(ctx, rem, &res); err != nil {
			res.Failed++
			r.logger.Error("reminder dispatch failed", "reminder", rem.ID, "error", err)
		}
	}
	r.logger.Info("reminder dispatch pass done",
		"processed", res.Processed, "closed", res.Closed,
		"delivered", res.Delivered, "failed", res.Failed)
	return res, nil
}

func (r *Runner) dispatchOne(ctx context.Context, rem storage.Reminder, res *DispatchResult) error {
	now := r.now()

	task, err := r.repo.GetTask(ctx, rem.TaskID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Task deleted out from under the reminder: close silently.
			if err := r.repo.MarkReminderTriggered(ctx, rem.ID, now); err != nil {
				return fmt.Errorf("close orphaned reminder: %w", err)
			}
			res.Closed++
			return nil
		}
		return fmt.Errorf("resolve task: %w", err)
	}

	if model.TaskStatus(task.Status).IsClosed() {
		if err := r.repo.MarkReminderTriggered(ctx, rem.ID, now); err != nil {
			return fmt.Errorf("close stale reminder: %w", err)
		}
		res.Closed++
		return nil
	}

	msg := reminderMessage(task, r.taskLink(task.ID))
	note := storage.Notification{
		ID:        uuid.NewString(),
		UserID:    rem.UserID,
		TaskID:    task.ID,
		Title:     msg.Title,
		Body:      msg.Body,
		CreatedAt: now,
	}
	if err := notificationModel(note).Validate(); err != nil {
		return fmt.Errorf("compose notification: %w", err)
	}
	if err := r.repo.CreateNotification(ctx, note); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}

	if r.attemptExternalSend(ctx, rem.UserID, msg) {
		res.Delivered++
	}

	if err := r.repo.MarkReminderTriggered(ctx, rem.ID, now); err != nil {
		return fmt.Errorf("mark triggered: %w", err)
	}
	return nil
}

// attemptExternalSend makes at most one delivery attempt against the
// user's first usable channel integration.
func (r *Runner) attemptExternalSend(ctx context.Context, userID string, msg channel.Message) bool {
	for _, provider := range dispatchProviders {
		sender := r.senderFor(provider)
		if sender == nil {
			continue
		}
		integ, err := r.repo.ActiveIntegration(ctx, userID, provider)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				r.logger.Warn("integration lookup failed", "user", userID, "provider", provider, "error", err)
			}
			continue
		}
		if err := integrationModel(integ).Validate(); err != nil {
			r.logger.Warn("skipping malformed integration", "integration", integ.ID, "error", err)
			continue
		}
		return sender.Send(ctx, integ.ExternalID, msg)
	}
	return false
}

func reminderMessage(task storage.Task, link string) channel.Message {
	body := task.Description
	if body == "" {
		body = "This task is due."
	}
	return channel.Message{
		Title:   "Reminder: " + task.Title,
		Body:    body,
		TaskRef: task.Title,
		DueAt:   task.DueDate,
		Link:    link,
	}
}
