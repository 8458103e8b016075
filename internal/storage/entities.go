package storage

import "time"

type Task struct {
	ID               string
	UserID           string
	Title            string
	Description      string
	Notes            string
	Status           string
	Priority         string
	DueDate          *time.Time
	IsRecurring      bool
	RecurrenceRule   string
	ParentTaskID     string
	ListID           string
	ColumnID         string
	EstimatedMinutes int
	CreatedAt        time.Time
}

type Reminder struct {
	ID          string
	TaskID      string
	UserID      string
	Kind        string
	RemindAt    *time.Time
	Location    string
	IsTriggered bool
	TriggeredAt *time.Time
	CreatedAt   time.Time
}

type Integration struct {
	ID           string
	UserID       string
	Provider     string
	ExternalID   string
	IsActive     bool
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	CreatedAt    time.Time
}

type Notification struct {
	ID        string
	UserID    string
	TaskID    string
	Title     string
	Body      string
	Read      bool
	CreatedAt time.Time
}

type Tag struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type TaskListFilter struct {
	UserID      string
	Status      string
	IsRecurring *bool
	DueFrom     *time.Time
	DueTo       *time.Time
	Limit       int
	Offset      int
}

type ReminderListFilter struct {
	TaskID    string
	UserID    string
	Triggered *bool
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

type NotificationListFilter struct {
	UserID string
	Unread *bool
	Limit  int
	Offset int
}
