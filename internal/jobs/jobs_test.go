package jobs

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/marwanayman128/TaskFlow-sub001/internal/channel"
	"github.com/marwanayman128/TaskFlow-sub001/internal/storage"
)

var testNow = time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)

type sentMessage struct {
	to  string
	msg channel.Message
}

type fakeSender struct {
	name       string
	configured bool
	failTo     map[string]bool
	sent       []sentMessage
}

func (s *fakeSender) Name() string       { return s.name }
func (s *fakeSender) IsConfigured() bool { return s.configured }

func (s *fakeSender) Send(ctx context.Context, to string, msg channel.Message) bool {
	if s.failTo[to] {
		return false
	}
	s.sent = append(s.sent, sentMessage{to: to, msg: msg})
	return true
}

type testEnv struct {
	runner   *Runner
	repo     *storage.SQLiteRepository
	whatsapp *fakeSender
	telegram *fakeSender
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "jobs-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := storage.MigrateUp(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo, err := storage.NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}

	whatsapp := &fakeSender{name: "whatsapp", configured: true}
	telegram := &fakeSender{name: "telegram", configured: true}
	runner := NewRunner(Deps{
		Logger:  slog.New(slog.DiscardHandler),
		Repo:    repo,
		Senders: map[string]channel.Sender{"whatsapp": whatsapp, "telegram": telegram},
		Now:     func() time.Time { return testNow },
		AppURL:  "https://app.example.com",
	})
	return &testEnv{runner: runner, repo: repo, whatsapp: whatsapp, telegram: telegram}
}

func (e *testEnv) seedTask(t *testing.T, task storage.Task) {
	t.Helper()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = testNow.Add(-48 * time.Hour)
	}
	if task.Status == "" {
		task.Status = "TODO"
	}
	if task.Priority == "" {
		task.Priority = "MEDIUM"
	}
	if task.UserID == "" {
		task.UserID = "user-1"
	}
	if err := e.repo.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("seed task %s: %v", task.ID, err)
	}
}

func (e *testEnv) seedReminder(t *testing.T, rem storage.Reminder) {
	t.Helper()
	if rem.CreatedAt.IsZero() {
		rem.CreatedAt = testNow.Add(-48 * time.Hour)
	}
	if rem.Kind == "" {
		rem.Kind = "TIME"
	}
	if rem.UserID == "" {
		rem.UserID = "user-1"
	}
	if err := e.repo.CreateReminder(context.Background(), rem); err != nil {
		t.Fatalf("seed reminder %s: %v", rem.ID, err)
	}
}

func (e *testEnv) seedIntegration(t *testing.T, integ storage.Integration) {
	t.Helper()
	if integ.CreatedAt.IsZero() {
		integ.CreatedAt = testNow.Add(-48 * time.Hour)
	}
	if err := e.repo.CreateIntegration(context.Background(), integ); err != nil {
		t.Fatalf("seed integration %s: %v", integ.ID, err)
	}
}

func (e *testEnv) notifications(t *testing.T, userID string) []storage.Notification {
	t.Helper()
	out, err := e.repo.ListNotifications(context.Background(), storage.NotificationListFilter{UserID: userID})
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	return out
}

func TestRunnerDefaultClockWholeSeconds(t *testing.T) {
	runner := NewRunner(Deps{})
	now := runner.now()
	if now.Nanosecond() != 0 {
		t.Fatalf("default clock carries sub-second precision: %v", now)
	}
	if now.Location() != time.UTC {
		t.Fatalf("default clock not UTC: %v", now)
	}
}

func TestDispatchDueReminder(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	remindAt := testNow.Add(-time.Minute)

	env.seedTask(t, storage.Task{ID: "task-1", Title: "Ship the release"})
	env.seedReminder(t, storage.Reminder{ID: "rem-1", TaskID: "task-1", RemindAt: &remindAt})
	env.seedIntegration(t, storage.Integration{
		ID: "int-1", UserID: "user-1", Provider: "whatsapp", ExternalID: "15550102020", IsActive: true,
	})

	res, err := env.runner.DispatchReminders(ctx)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Processed != 1 || res.Delivered != 1 || res.Closed != 0 || res.Failed != 0 {
		t.Fatalf("unexpected result: %#v", res)
	}

	notifs := env.notifications(t, "user-1")
	if len(notifs) != 1 || notifs[0].Title != "Reminder: Ship the release" {
		t.Fatalf("unexpected notifications: %#v", notifs)
	}
	if len(env.whatsapp.sent) != 1 || env.whatsapp.sent[0].to != "15550102020" {
		t.Fatalf("unexpected external sends: %#v", env.whatsapp.sent)
	}
	if env.whatsapp.sent[0].msg.Link != "https://app.example.com/tasks/task-1" {
		t.Fatalf("unexpected deep link: %q", env.whatsapp.sent[0].msg.Link)
	}

	rem, err := env.repo.GetReminder(ctx, "rem-1")
	if err != nil {
		t.Fatalf("get reminder: %v", err)
	}
	if !rem.IsTriggered || rem.TriggeredAt == nil || !rem.TriggeredAt.Equal(testNow) {
		t.Fatalf("reminder not marked triggered: %#v", rem)
	}

	// At-most-once: a second pass finds nothing.
	res, err = env.runner.DispatchReminders(ctx)
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if res.Processed != 0 {
		t.Fatalf("triggered reminder re-selected: %#v", res)
	}
	if len(env.notifications(t, "user-1")) != 1 {
		t.Fatal("duplicate notification written")
	}
}

func TestDispatchStaleReminderClosedSilently(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	remindAt := testNow.Add(-time.Minute)

	env.seedTask(t, storage.Task{ID: "task-done", Title: "Old chore", Status: "COMPLETED"})
	env.seedReminder(t, storage.Reminder{ID: "rem-stale", TaskID: "task-done", RemindAt: &remindAt})

	res, err := env.runner.DispatchReminders(ctx)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Processed != 1 || res.Closed != 1 || res.Delivered != 0 {
		t.Fatalf("unexpected result: %#v", res)
	}
	if len(env.notifications(t, "user-1")) != 0 {
		t.Fatal("stale reminder produced a notification")
	}

	rem, err := env.repo.GetReminder(ctx, "rem-stale")
	if err != nil {
		t.Fatalf("get reminder: %v", err)
	}
	if !rem.IsTriggered {
		t.Fatal("stale reminder left untriggered")
	}
}

func TestDispatchMarksTriggeredEvenWhenSendFails(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	remindAt := testNow.Add(-time.Minute)
	env.whatsapp.failTo = map[string]bool{"15550102020": true}

	env.seedTask(t, storage.Task{ID: "task-1", Title: "Flaky delivery"})
	env.seedReminder(t, storage.Reminder{ID: "rem-1", TaskID: "task-1", RemindAt: &remindAt})
	env.seedIntegration(t, storage.Integration{
		ID: "int-1", UserID: "user-1", Provider: "whatsapp", ExternalID: "15550102020", IsActive: true,
	})

	res, err := env.runner.DispatchReminders(ctx)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Processed != 1 || res.Delivered != 0 || res.Failed != 0 {
		t.Fatalf("unexpected result: %#v", res)
	}
	if len(env.notifications(t, "user-1")) != 1 {
		t.Fatal("in-app notification missing despite failed external send")
	}

	rem, err := env.repo.GetReminder(ctx, "rem-1")
	if err != nil {
		t.Fatalf("get reminder: %v", err)
	}
	if !rem.IsTriggered {
		t.Fatal("failed external send blocked the trigger mark")
	}
}

func TestDispatchSkipsMalformedIntegration(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	remindAt := testNow.Add(-time.Minute)

	env.seedTask(t, storage.Task{ID: "task-1", Title: "Ship the release"})
	env.seedReminder(t, storage.Reminder{ID: "rem-1", TaskID: "task-1", RemindAt: &remindAt})
	env.seedIntegration(t, storage.Integration{
		ID: "int-broken", UserID: "user-1", Provider: "whatsapp", ExternalID: "", IsActive: true,
	})

	res, err := env.runner.DispatchReminders(ctx)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Processed != 1 || res.Delivered != 0 || res.Failed != 0 {
		t.Fatalf("unexpected result: %#v", res)
	}
	if len(env.whatsapp.sent) != 0 {
		t.Fatalf("send attempted against malformed integration: %#v", env.whatsapp.sent)
	}
	if len(env.notifications(t, "user-1")) != 1 {
		t.Fatal("in-app notification missing")
	}

	rem, err := env.repo.GetReminder(ctx, "rem-1")
	if err != nil {
		t.Fatalf("get reminder: %v", err)
	}
	if !rem.IsTriggered {
		t.Fatal("reminder left untriggered")
	}
}

func TestDispatchRejectsUncomposableNotification(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	remindAt := testNow.Add(-time.Minute)

	env.seedTask(t, storage.Task{ID: "task-1", Title: "Ship the release"})
	env.seedReminder(t, storage.Reminder{ID: "rem-blank", TaskID: "task-1", UserID: " ", RemindAt: &remindAt})

	res, err := env.runner.DispatchReminders(ctx)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Processed != 1 || res.Failed != 1 {
		t.Fatalf("unexpected result: %#v", res)
	}
	if len(env.notifications(t, " ")) != 0 {
		t.Fatal("invalid notification was written")
	}

	rem, err := env.repo.GetReminder(ctx, "rem-blank")
	if err != nil {
		t.Fatalf("get reminder: %v", err)
	}
	if rem.IsTriggered {
		t.Fatal("reminder marked triggered without a durable notification")
	}
}

func TestDispatchFallsThroughToTelegram(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	remindAt := testNow.Add(-time.Minute)
	env.whatsapp.configured = false

	env.seedTask(t, storage.Task{ID: "task-1", Title: "Cross-channel"})
	env.seedReminder(t, storage.Reminder{ID: "rem-1", TaskID: "task-1", RemindAt: &remindAt})
	env.seedIntegration(t, storage.Integration{
		ID: "int-tg", UserID: "user-1", Provider: "telegram", ExternalID: "424242", IsActive: true,
	})

	res, err := env.runner.DispatchReminders(ctx)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Delivered != 1 {
		t.Fatalf("unexpected result: %#v", res)
	}
	if len(env.telegram.sent) != 1 || env.telegram.sent[0].to != "424242" {
		t.Fatalf("unexpected telegram sends: %#v", env.telegram.sent)
	}
}

type notificationFailRepo struct {
	storage.Repository
	failUser string
}

func (r *notificationFailRepo) CreateNotification(ctx context.Context, in storage.Notification) error {
	if in.UserID == r.failUser {
		return context.DeadlineExceeded
	}
	return r.Repository.CreateNotification(ctx, in)
}

func TestDispatchIsolatesPerItemFailures(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	remindAt := testNow.Add(-time.Minute)

	env.seedTask(t, storage.Task{ID: "task-bad", UserID: "user-bad", Title: "Poison"})
	env.seedTask(t, storage.Task{ID: "task-good", UserID: "user-good", Title: "Healthy"})
	env.seedReminder(t, storage.Reminder{ID: "rem-bad", TaskID: "task-bad", UserID: "user-bad", RemindAt: &remindAt})
	env.seedReminder(t, storage.Reminder{ID: "rem-good", TaskID: "task-good", UserID: "user-good", RemindAt: &remindAt})

	runner := NewRunner(Deps{
		Logger:  slog.New(slog.DiscardHandler),
		Repo:    &notificationFailRepo{Repository: env.repo, failUser: "user-bad"},
		Senders: map[string]channel.Sender{},
		Now:     func() time.Time { return testNow },
	})

	res, err := runner.DispatchReminders(ctx)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Processed != 2 || res.Failed != 1 {
		t.Fatalf("unexpected result: %#v", res)
	}

	bad, err := env.repo.GetReminder(ctx, "rem-bad")
	if err != nil {
		t.Fatalf("get bad reminder: %v", err)
	}
	if bad.IsTriggered {
		t.Fatal("failed reminder was marked triggered")
	}
	good, err := env.repo.GetReminder(ctx, "rem-good")
	if err != nil {
		t.Fatalf("get good reminder: %v", err)
	}
	if !good.IsTriggered {
		t.Fatal("healthy reminder blocked by the failing one")
	}
}
