package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidReminderKind = errors.New("model: invalid reminder kind")

type ReminderKind string

const (
	ReminderKindTime     ReminderKind = "TIME"
	ReminderKindLocation ReminderKind = "LOCATION"
)

func (k ReminderKind) IsValid() bool {
	switch k {
	case ReminderKindTime, ReminderKindLocation:
		return true
	default:
		return false
	}
}

// Reminder fires at most once: IsTriggered flips false->true exactly
// once and the dispatch query never re-selects a triggered reminder.
type Reminder struct {
	ID          string
	TaskID      string
	UserID      string
	Kind        ReminderKind
	RemindAt    *time.Time
	Location    string
	IsTriggered bool
	TriggeredAt *time.Time
	CreatedAt   time.Time
}

func (r Reminder) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("model: reminder id is required")
	}
	if strings.TrimSpace(r.TaskID) == "" {
		return errors.New("model: reminder task_id is required")
	}
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("model: reminder user_id is required")
	}
	if !r.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidReminderKind, r.Kind)
	}
	if r.Kind == ReminderKindTime && r.RemindAt == nil {
		return errors.New("model: remind_at is required for a time reminder")
	}
	if r.Kind == ReminderKindLocation && strings.TrimSpace(r.Location) == "" {
		return errors.New("model: location is required for a location reminder")
	}
	if r.IsTriggered && r.TriggeredAt == nil {
		return errors.New("model: triggered_at is required when reminder is triggered")
	}
	if !r.IsTriggered && r.TriggeredAt != nil {
		return errors.New("model: triggered_at must be nil when reminder is untriggered")
	}
	return nil
}
