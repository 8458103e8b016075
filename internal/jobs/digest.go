package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/marwanayman128/TaskFlow-sub001/internal/channel"
	"github.com/marwanayman128/TaskFlow-sub001/internal/model"
	"github.com/marwanayman128/TaskFlow-sub001/internal/storage"
)

type DigestResult struct {
	Considered int `json:"considered"`
	Sent       int `json:"sent"`
}

type digestEntry struct {
	task     storage.Task
	at       *time.Time
	location string
}

// ComposeDigests sends each WhatsApp-connected user one summary of
// their day. A failure for one user never blocks the next.
func (r *Runner) ComposeDigests(ctx context.Context) (DigestResult, error) {
	provider := string(model.ProviderWhatsApp)
	integrations, err := r.repo.ListActiveIntegrations(ctx, provider)
	if err != nil {
		return DigestResult{}, fmt.Errorf("list integrations: %w", err)
	}

	sender := r.senderFor(provider)
	var res DigestResult
	for _, integ := range integrations {
		res.Considered++
		if sender == nil {
			continue
		}
		if err := integrationModel(integ).Validate(); err != nil {
			r.logger.Warn("skipping malformed integration", "integration", integ.ID, "error", err)
			continue
		}
		text, err := r.composeFor(ctx, integ.UserID)
		if err != nil {
			r.logger.Error("digest composition failed", "user", integ.UserID, "error", err)
			continue
		}
		if text == "" {
			continue
		}
		if sender.Send(ctx, integ.ExternalID, channel.Message{Title: "Your TaskFlow day", Body: text}) {
			res.Sent++
		}
	}
	r.logger.Info("digest pass done", "considered", res.Considered, "sent", res.Sent)
	return res, nil
}

// composeFor gathers tasks due today, tasks with a time reminder today,
// and every recurring template the user owns. Including all templates
// regardless of whether today is a real occurrence matches the
// dashboard's long-standing digest behavior.
func (r *Runner) composeFor(ctx context.Context, userID string) (string, error) {
	now := r.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	entries := make(map[string]digestEntry)

	dueToday, err := r.repo.ListTasks(ctx, storage.TaskListFilter{
		UserID: userID, DueFrom: &dayStart, DueTo: &dayEnd,
	})
	if err != nil {
		return "", fmt.Errorf("tasks due today: %w", err)
	}
	for _, task := range dueToday {
		if task.IsRecurring || model.TaskStatus(task.Status).IsClosed() {
			continue
		}
		entries[task.ID] = digestEntry{task: task, at: task.DueDate}
	}

	reminders, err := r.repo.ListReminders(ctx, storage.ReminderListFilter{
		UserID: userID, From: &dayStart, To: &dayEnd,
	})
	if err != nil {
		return "", fmt.Errorf("reminders today: %w", err)
	}
	for _, rem := range reminders {
		if rem.Kind != string(model.ReminderKindTime) {
			continue
		}
		task, err := r.repo.GetTask(ctx, rem.TaskID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return "", fmt.Errorf("resolve reminded task: %w", err)
		}
		if model.TaskStatus(task.Status).IsClosed() {
			continue
		}
		if _, seen := entries[task.ID]; !seen {
			entries[task.ID] = digestEntry{task: task, at: rem.RemindAt, location: rem.Location}
		}
	}

	isRecurring := true
	templates, err := r.repo.ListTasks(ctx, storage.TaskListFilter{
		UserID: userID, IsRecurring: &isRecurring,
	})
	if err != nil {
		return "", fmt.Errorf("recurring templates: %w", err)
	}
	for _, tpl := range templates {
		if _, seen := entries[tpl.ID]; !seen {
			entries[tpl.ID] = digestEntry{task: tpl}
		}
	}

	if len(entries) == 0 {
		return "", nil
	}
	return renderDigest(now, sortedEntries(entries)), nil
}

var priorityRank = map[string]int{
	string(model.PriorityHigh):   0,
	string(model.PriorityMedium): 1,
	string(model.PriorityLow):    2,
	string(model.PriorityNone):   3,
}

var priorityGlyph = map[string]string{
	string(model.PriorityHigh):   "🔴",
	string(model.PriorityMedium): "🟡",
	string(model.PriorityLow):    "🟢",
	string(model.PriorityNone):   "⚪",
}

func sortedEntries(entries map[string]digestEntry) []digestEntry {
	out := make([]digestEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := priorityRank[out[i].task.Priority], priorityRank[out[j].task.Priority]
		if ri != rj {
			return ri < rj
		}
		ti, tj := out[i].at, out[j].at
		switch {
		case ti != nil && tj != nil && !ti.Equal(*tj):
			return ti.Before(*tj)
		case ti != nil && tj == nil:
			return true
		case ti == nil && tj != nil:
			return false
		}
		return out[i].task.Title < out[j].task.Title
	})
	return out
}

func renderDigest(now time.Time, entries []digestEntry) string {
	var b strings.Builder
	b.WriteString("Good morning! ☀️ Here's your day for " + now.Format("Monday, 2 Jan") + ":\n")

	highCount := 0
	for _, entry := range entries {
		glyph, ok := priorityGlyph[entry.task.Priority]
		if !ok {
			glyph = "⚪"
		}
		line := "\n" + glyph + " " + entry.task.Title
		if entry.at != nil {
			line += " — " + entry.at.Format("15:04")
		}
		if entry.location != "" {
			line += " 📍 " + entry.location
		}
		if entry.task.IsRecurring {
			line += " 🔁"
		}
		b.WriteString(line)
		if entry.task.Priority == string(model.PriorityHigh) {
			highCount++
		}
	}

	if highCount > 0 {
		b.WriteString(fmt.Sprintf("\n\n⚡ %d high-priority task(s) today.", highCount))
	}
	b.WriteString("\n\nHave a productive day!")
	return b.String()
}
