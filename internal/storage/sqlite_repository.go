package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteTimeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) CreateTask(ctx context.Context, in Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, title, description, notes, status, priority, due_date, is_recurring, recurrence_rule, parent_task_id, list_id, column_id, estimated_minutes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.Title, in.Description, in.Notes, in.Status, in.Priority,
		nullTime(in.DueDate), boolInt(in.IsRecurring), in.RecurrenceRule, nullString(in.ParentTaskID),
		in.ListID, in.ColumnID, in.EstimatedMinutes, mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id string) (Task, error) {
	row := r.db.QueryRowContext(ctx, taskSelect+` WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	return task, nil
}

func (r *SQLiteRepository) UpdateTask(ctx context.Context, in Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, notes = ?, status = ?, priority = ?, due_date = ?, is_recurring = ?, recurrence_rule = ?, parent_task_id = ?, list_id = ?, column_id = ?, estimated_minutes = ?
		WHERE id = ?`,
		in.Title, in.Description, in.Notes, in.Status, in.Priority,
		nullTime(in.DueDate), boolInt(in.IsRecurring), in.RecurrenceRule, nullString(in.ParentTaskID),
		in.ListID, in.ColumnID, in.EstimatedMinutes, in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

const taskSelect = `SELECT id, user_id, title, description, notes, status, priority, due_date, is_recurring, recurrence_rule, parent_task_id, list_id, column_id, estimated_minutes, created_at FROM tasks`

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error) {
	query := taskSelect
	clauses := make([]string, 0, 5)
	args := make([]any, 0, 7)
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.IsRecurring != nil {
		clauses = append(clauses, "is_recurring = ?")
		args = append(args, boolInt(*filter.IsRecurring))
	}
	if filter.DueFrom != nil {
		clauses = append(clauses, "due_date >= ?")
		args = append(args, mustTime(*filter.DueFrom))
	}
	if filter.DueTo != nil {
		clauses = append(clauses, "due_date < ?")
		args = append(args, mustTime(*filter.DueTo))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) HasOccurrenceOn(ctx context.Context, parentTaskID string, day time.Time) (bool, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM tasks
		WHERE parent_task_id = ? AND due_date >= ? AND due_date < ?`,
		parentTaskID, mustTime(dayStart), mustTime(dayEnd),
	)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *SQLiteRepository) CreateReminder(ctx context.Context, in Reminder) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reminders (id, task_id, user_id, kind, remind_at, location, is_triggered, triggered_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.TaskID, in.UserID, in.Kind, nullTime(in.RemindAt), in.Location,
		boolInt(in.IsTriggered), nullTime(in.TriggeredAt), mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetReminder(ctx context.Context, id string) (Reminder, error) {
	row := r.db.QueryRowContext(ctx, reminderSelect+` WHERE id = ?`, id)
	item, err := scanReminder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Reminder{}, ErrNotFound
		}
		return Reminder{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) UpdateReminder(ctx context.Context, in Reminder) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reminders
		SET task_id = ?, user_id = ?, kind = ?, remind_at = ?, location = ?, is_triggered = ?, triggered_at = ?
		WHERE id = ?`,
		in.TaskID, in.UserID, in.Kind, nullTime(in.RemindAt), in.Location,
		boolInt(in.IsTriggered), nullTime(in.TriggeredAt), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteReminder(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

const reminderSelect = `SELECT id, task_id, user_id, kind, remind_at, location, is_triggered, triggered_at, created_at FROM reminders`

func (r *SQLiteRepository) ListReminders(ctx context.Context, filter ReminderListFilter) ([]Reminder, error) {
	query := reminderSelect
	clauses := make([]string, 0, 5)
	args := make([]any, 0, 7)
	if filter.TaskID != "" {
		clauses = append(clauses, "task_id = ?")
		args = append(args, filter.TaskID)
	}
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Triggered != nil {
		clauses = append(clauses, "is_triggered = ?")
		args = append(args, boolInt(*filter.Triggered))
	}
	if filter.From != nil {
		clauses = append(clauses, "remind_at >= ?")
		args = append(args, mustTime(*filter.From))
	}
	if filter.To != nil {
		clauses = append(clauses, "remind_at < ?")
		args = append(args, mustTime(*filter.To))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY remind_at ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Reminder, 0)
	for rows.Next() {
		item, scanErr := scanReminder(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListDueReminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	rows, err := r.db.QueryContext(ctx, reminderSelect+`
		WHERE kind = 'TIME' AND is_triggered = 0 AND remind_at IS NOT NULL AND remind_at <= ?
		ORDER BY remind_at ASC`, mustTime(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Reminder, 0)
	for rows.Next() {
		item, scanErr := scanReminder(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkReminderTriggered(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reminders SET is_triggered = 1, triggered_at = ? WHERE id = ?`,
		mustTime(at), id,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) CreateIntegration(ctx context.Context, in Integration) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO integrations (id, user_id, provider, external_id, is_active, access_token, refresh_token, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.Provider, in.ExternalID, boolInt(in.IsActive),
		in.AccessToken, in.RefreshToken, nullTime(in.ExpiresAt), mustTime(in.CreatedAt),
	)
	return err
}

const integrationSelect = `SELECT id, user_id, provider, external_id, is_active, access_token, refresh_token, expires_at, created_at FROM integrations`

func (r *SQLiteRepository) GetIntegration(ctx context.Context, id string) (Integration, error) {
	row := r.db.QueryRowContext(ctx, integrationSelect+` WHERE id = ?`, id)
	item, err := scanIntegration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Integration{}, ErrNotFound
		}
		return Integration{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) ActiveIntegration(ctx context.Context, userID, provider string) (Integration, error) {
	row := r.db.QueryRowContext(ctx, integrationSelect+`
		WHERE user_id = ? AND provider = ? AND is_active = 1
		ORDER BY created_at DESC LIMIT 1`, userID, provider)
	item, err := scanIntegration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Integration{}, ErrNotFound
		}
		return Integration{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) ListActiveIntegrations(ctx context.Context, provider string) ([]Integration, error) {
	rows, err := r.db.QueryContext(ctx, integrationSelect+`
		WHERE provider = ? AND is_active = 1 ORDER BY created_at ASC`, provider)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Integration, 0)
	for rows.Next() {
		item, scanErr := scanIntegration(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeactivateIntegration(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE integrations
		SET is_active = 0, access_token = '', refresh_token = '', expires_at = NULL
		WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) CreateNotification(ctx context.Context, in Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, task_id, title, body, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.TaskID, in.Title, in.Body, boolInt(in.Read), mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) ListNotifications(ctx context.Context, filter NotificationListFilter) ([]Notification, error) {
	query := `SELECT id, user_id, task_id, title, body, read, created_at FROM notifications`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Unread != nil {
		clauses = append(clauses, "read = ?")
		args = append(args, boolInt(!*filter.Unread))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Notification, 0)
	for rows.Next() {
		var item Notification
		var read int
		var created string
		if err := rows.Scan(&item.ID, &item.UserID, &item.TaskID, &item.Title, &item.Body, &read, &created); err != nil {
			return nil, err
		}
		createdAt, err := parseRequiredTime(created)
		if err != nil {
			return nil, err
		}
		item.Read = read != 0
		item.CreatedAt = createdAt
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateTag(ctx context.Context, in Tag) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tags (id, name, created_at) VALUES (?, ?, ?)`,
		in.ID, in.Name, mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Tag, 0)
	for rows.Next() {
		var item Tag
		var created string
		if err := rows.Scan(&item.ID, &item.Name, &created); err != nil {
			return nil, err
		}
		createdAt, err := parseRequiredTime(created)
		if err != nil {
			return nil, err
		}
		item.CreatedAt = createdAt
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListTaskTagIDs(ctx context.Context, taskID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tag_id FROM task_tags WHERE task_id = ? ORDER BY tag_id ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SetTaskTags(ctx context.Context, taskID string, tagIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_tags WHERE task_id = ?`, taskID); err != nil {
		return err
	}
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO task_tags (task_id, tag_id) VALUES (?, ?)`, taskID, tagID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func checkRowsAffected(res sql.Result) error {
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (Task, error) {
	var out Task
	var due sql.NullString
	var recurring int
	var parent sql.NullString
	var created string
	if err := s.Scan(&out.ID, &out.UserID, &out.Title, &out.Description, &out.Notes,
		&out.Status, &out.Priority, &due, &recurring, &out.RecurrenceRule, &parent,
		&out.ListID, &out.ColumnID, &out.EstimatedMinutes, &created); err != nil {
		return Task{}, err
	}
	dueDate, err := parseNullableTime(due)
	if err != nil {
		return Task{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Task{}, err
	}
	out.DueDate = dueDate
	out.IsRecurring = recurring != 0
	out.ParentTaskID = parent.String
	out.CreatedAt = createdAt
	return out, nil
}

func scanReminder(s scanner) (Reminder, error) {
	var out Reminder
	var remindAt sql.NullString
	var triggered int
	var triggeredAt sql.NullString
	var created string
	if err := s.Scan(&out.ID, &out.TaskID, &out.UserID, &out.Kind, &remindAt,
		&out.Location, &triggered, &triggeredAt, &created); err != nil {
		return Reminder{}, err
	}
	at, err := parseNullableTime(remindAt)
	if err != nil {
		return Reminder{}, err
	}
	firedAt, err := parseNullableTime(triggeredAt)
	if err != nil {
		return Reminder{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Reminder{}, err
	}
	out.RemindAt = at
	out.IsTriggered = triggered != 0
	out.TriggeredAt = firedAt
	out.CreatedAt = createdAt
	return out, nil
}

func scanIntegration(s scanner) (Integration, error) {
	var out Integration
	var active int
	var expires sql.NullString
	var created string
	if err := s.Scan(&out.ID, &out.UserID, &out.Provider, &out.ExternalID, &active,
		&out.AccessToken, &out.RefreshToken, &expires, &created); err != nil {
		return Integration{}, err
	}
	expiresAt, err := parseNullableTime(expires)
	if err != nil {
		return Integration{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Integration{}, err
	}
	out.IsActive = active != 0
	out.ExpiresAt = expiresAt
	out.CreatedAt = createdAt
	return out, nil
}
