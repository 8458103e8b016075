package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidProvider = errors.New("model: invalid integration provider")

type Provider string

const (
	ProviderWhatsApp       Provider = "whatsapp"
	ProviderTelegram       Provider = "telegram"
	ProviderGoogleCalendar Provider = "google_calendar"
)

func (p Provider) IsValid() bool {
	switch p {
	case ProviderWhatsApp, ProviderTelegram, ProviderGoogleCalendar:
		return true
	default:
		return false
	}
}

// Integration links a user to an external channel. Disconnecting
// deactivates the row and clears its tokens; rows are never deleted.
type Integration struct {
	ID           string
	UserID       string
	Provider     Provider
	ExternalID   string
	IsActive     bool
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	CreatedAt    time.Time
}

func (i Integration) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return errors.New("model: integration id is required")
	}
	if strings.TrimSpace(i.UserID) == "" {
		return errors.New("model: integration user_id is required")
	}
	if !i.Provider.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidProvider, i.Provider)
	}
	if strings.TrimSpace(i.ExternalID) == "" {
		return errors.New("model: integration external_id is required")
	}
	if i.CreatedAt.IsZero() {
		return errors.New("model: integration created_at is required")
	}
	return nil
}
