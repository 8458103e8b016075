package jobs

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/marwanayman128/TaskFlow-sub001/internal/storage"
)

func TestDigestComposesOneMessagePerUser(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	dueToday := time.Date(2026, 8, 3, 14, 0, 0, 0, time.UTC)
	remindToday := time.Date(2026, 8, 3, 16, 30, 0, 0, time.UTC)
	dueTomorrow := time.Date(2026, 8, 4, 14, 0, 0, 0, time.UTC)

	env.seedTask(t, storage.Task{ID: "task-due", Title: "Board review", Priority: "HIGH", DueDate: &dueToday})
	env.seedTask(t, storage.Task{ID: "task-done", Title: "Closed item", Status: "COMPLETED", DueDate: &dueToday})
	env.seedTask(t, storage.Task{ID: "task-later", Title: "Not today", DueDate: &dueTomorrow})
	env.seedTask(t, storage.Task{ID: "task-reminded", Title: "Call the vendor", Priority: "LOW"})
	env.seedReminder(t, storage.Reminder{ID: "rem-1", TaskID: "task-reminded", RemindAt: &remindToday})
	// Recurring templates always appear, occurrence or not.
	env.seedTask(t, storage.Task{
		ID: "tpl-1", Title: "Monthly budget", Priority: "NONE",
		IsRecurring: true, RecurrenceRule: "FREQ=MONTHLY;BYMONTHDAY=28",
	})

	env.seedIntegration(t, storage.Integration{
		ID: "int-1", UserID: "user-1", Provider: "whatsapp", ExternalID: "15550102020", IsActive: true,
	})

	res, err := env.runner.ComposeDigests(ctx)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if res.Considered != 1 || res.Sent != 1 {
		t.Fatalf("unexpected result: %#v", res)
	}
	if len(env.whatsapp.sent) != 1 {
		t.Fatalf("unexpected sends: %#v", env.whatsapp.sent)
	}

	body := env.whatsapp.sent[0].msg.Body
	for _, want := range []string{
		"Monday, 3 Aug",
		"🔴 Board review — 14:00",
		"🟢 Call the vendor — 16:30",
		"⚪ Monthly budget 🔁",
		"⚡ 1 high-priority task(s) today.",
		"Have a productive day!",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("digest missing %q:\n%s", want, body)
		}
	}
	for _, reject := range []string{"Closed item", "Not today"} {
		if strings.Contains(body, reject) {
			t.Fatalf("digest includes %q:\n%s", reject, body)
		}
	}

	// High priority sorts before low and none.
	if strings.Index(body, "Board review") > strings.Index(body, "Call the vendor") {
		t.Fatalf("priority ordering broken:\n%s", body)
	}
}

func TestDigestFailureDoesNotBlockNextUser(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	dueToday := time.Date(2026, 8, 3, 14, 0, 0, 0, time.UTC)

	env.seedTask(t, storage.Task{ID: "task-a", UserID: "user-a", Title: "Alpha", DueDate: &dueToday})
	env.seedTask(t, storage.Task{ID: "task-b", UserID: "user-b", Title: "Beta", DueDate: &dueToday})
	env.seedIntegration(t, storage.Integration{
		ID: "int-a", UserID: "user-a", Provider: "whatsapp", ExternalID: "111", IsActive: true,
		CreatedAt: testNow.Add(-2 * time.Hour),
	})
	env.seedIntegration(t, storage.Integration{
		ID: "int-b", UserID: "user-b", Provider: "whatsapp", ExternalID: "222", IsActive: true,
		CreatedAt: testNow.Add(-time.Hour),
	})
	env.whatsapp.failTo = map[string]bool{"111": true}

	res, err := env.runner.ComposeDigests(ctx)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if res.Considered != 2 || res.Sent != 1 {
		t.Fatalf("unexpected result: %#v", res)
	}
	if len(env.whatsapp.sent) != 1 || env.whatsapp.sent[0].to != "222" {
		t.Fatalf("second user not reached: %#v", env.whatsapp.sent)
	}
}

func TestDigestSkipsMalformedIntegration(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	dueToday := time.Date(2026, 8, 3, 14, 0, 0, 0, time.UTC)

	env.seedTask(t, storage.Task{ID: "task-due", Title: "Board review", DueDate: &dueToday})
	env.seedIntegration(t, storage.Integration{
		ID: "int-broken", UserID: "user-1", Provider: "whatsapp", ExternalID: "", IsActive: true,
	})

	res, err := env.runner.ComposeDigests(ctx)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if res.Considered != 1 || res.Sent != 0 {
		t.Fatalf("unexpected result: %#v", res)
	}
	if len(env.whatsapp.sent) != 0 {
		t.Fatalf("digest sent to malformed integration: %#v", env.whatsapp.sent)
	}
}

func TestDigestSkipsUsersWithNothingToReport(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	env.seedIntegration(t, storage.Integration{
		ID: "int-1", UserID: "user-empty", Provider: "whatsapp", ExternalID: "333", IsActive: true,
	})

	res, err := env.runner.ComposeDigests(ctx)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if res.Considered != 1 || res.Sent != 0 {
		t.Fatalf("unexpected result: %#v", res)
	}
	if len(env.whatsapp.sent) != 0 {
		t.Fatalf("empty digest sent: %#v", env.whatsapp.sent)
	}
}
