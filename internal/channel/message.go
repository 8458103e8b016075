// Package channel delivers formatted notifications over external
// transports. Senders report delivery as a bare bool: false means "not
// delivered, do not retry within this tick", and no transport error
// ever reaches the caller.
package channel

import (
	"context"
	"html"
	"strings"
	"time"
)

// Message carries the channel-independent fields of one notification.
type Message struct {
	Title   string
	Body    string
	TaskRef string
	DueAt   *time.Time
	Link    string
}

type Sender interface {
	Name() string
	IsConfigured() bool
	Send(ctx context.Context, to string, msg Message) bool
}

const dueLayout = "Mon, 02 Jan 15:04"

// FormatWhatsApp renders with WhatsApp emphasis markers.
func FormatWhatsApp(msg Message) string {
	var b strings.Builder
	b.WriteString("*" + msg.Title + "*")
	if msg.Body != "" {
		b.WriteString("\n\n" + msg.Body)
	}
	if msg.TaskRef != "" {
		b.WriteString("\n\n_" + msg.TaskRef + "_")
	}
	if msg.DueAt != nil {
		b.WriteString("\nDue: " + msg.DueAt.Format(dueLayout))
	}
	if msg.Link != "" {
		b.WriteString("\n" + msg.Link)
	}
	return b.String()
}

// FormatTelegram renders HTML with user-supplied fields escaped.
func FormatTelegram(msg Message) string {
	var b strings.Builder
	b.WriteString("<b>" + html.EscapeString(msg.Title) + "</b>")
	if msg.Body != "" {
		b.WriteString("\n\n" + html.EscapeString(msg.Body))
	}
	if msg.TaskRef != "" {
		b.WriteString("\n\n<i>" + html.EscapeString(msg.TaskRef) + "</i>")
	}
	if msg.DueAt != nil {
		b.WriteString("\nDue: " + msg.DueAt.Format(dueLayout))
	}
	if msg.Link != "" {
		b.WriteString("\n" + html.EscapeString(msg.Link))
	}
	return b.String()
}
