package model

import (
	"errors"
	"strings"
	"time"
)

// Notification is the durable in-app record written for every
// dispatched reminder, independent of external delivery outcome.
type Notification struct {
	ID        string
	UserID    string
	TaskID    string
	Title     string
	Body      string
	Read      bool
	CreatedAt time.Time
}

func (n Notification) Validate() error {
	if strings.TrimSpace(n.ID) == "" {
		return errors.New("model: notification id is required")
	}
	if strings.TrimSpace(n.UserID) == "" {
		return errors.New("model: notification user_id is required")
	}
	if strings.TrimSpace(n.Title) == "" {
		return errors.New("model: notification title is required")
	}
	if n.CreatedAt.IsZero() {
		return errors.New("model: notification created_at is required")
	}
	return nil
}
