package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marwanayman128/TaskFlow-sub001/internal/model"
	"github.com/marwanayman128/TaskFlow-sub001/internal/recurrence"
	"github.com/marwanayman128/TaskFlow-sub001/internal/storage"
)

const expansionWindow = 24 * time.Hour

type ExpandResult struct {
	Templates int `json:"templates"`
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
}

// ExpandRecurrences materializes occurrences of every recurring
// template falling within the next 24 hours. Re-running over the same
// window is idempotent: at most one occurrence exists per template and
// calendar day.
func (r *Runner) ExpandRecurrences(ctx context.Context) (ExpandResult, error) {
	isRecurring := true
	templates, err := r.repo.ListTasks(ctx, storage.TaskListFilter{IsRecurring: &isRecurring})
	if err != nil {
		return ExpandResult{}, fmt.Errorf("list templates: %w", err)
	}

	now := r.now()
	var res ExpandResult
	for _, tpl := range templates {
		if tpl.RecurrenceRule == "" {
			continue
		}
		res.Templates++
		if err := r.expandTemplate(ctx, tpl, now, &res); err != nil {
			r.logger.Error("template expansion failed", "template", tpl.ID, "error", err)
		}
	}
	r.logger.Info("recurrence expansion pass done",
		"templates", res.Templates, "generated", res.Generated, "skipped", res.Skipped)
	return res, nil
}

func (r *Runner) expandTemplate(ctx context.Context, tpl storage.Task, now time.Time, res *ExpandResult) error {
	dtstart := tpl.CreatedAt
	if tpl.DueDate != nil {
		dtstart = *tpl.DueDate
	}

	occs, err := recurrence.OccurrencesBetween(tpl.RecurrenceRule, dtstart, now, now.Add(expansionWindow))
	if err != nil {
		// Malformed rule: skip this template, keep the batch going.
		r.logger.Warn("unparseable recurrence rule", "template", tpl.ID, "rule", tpl.RecurrenceRule, "error", err)
		return nil
	}

	for _, occ := range occs {
		exists, err := r.repo.HasOccurrenceOn(ctx, tpl.ID, occ)
		if err != nil {
			return fmt.Errorf("check occurrence on %s: %w", occ.Format("2006-01-02"), err)
		}
		if exists {
			res.Skipped++
			continue
		}
		if err := r.createOccurrence(ctx, tpl, occ, now); err != nil {
			return fmt.Errorf("create occurrence on %s: %w", occ.Format("2006-01-02"), err)
		}
		res.Generated++
	}
	return nil
}

func (r *Runner) createOccurrence(ctx context.Context, tpl storage.Task, occ, now time.Time) error {
	due := occ
	task := storage.Task{
		ID:               uuid.NewString(),
		UserID:           tpl.UserID,
		Title:            tpl.Title,
		Description:      tpl.Description,
		Notes:            tpl.Notes,
		Status:           string(model.TaskStatusTodo),
		Priority:         tpl.Priority,
		DueDate:          &due,
		IsRecurring:      false,
		ParentTaskID:     tpl.ID,
		ListID:           tpl.ListID,
		ColumnID:         tpl.ColumnID,
		EstimatedMinutes: tpl.EstimatedMinutes,
		CreatedAt:        now,
	}
	if err := taskModel(task).Validate(); err != nil {
		return fmt.Errorf("compose occurrence: %w", err)
	}
	if err := r.repo.CreateTask(ctx, task); err != nil {
		return err
	}

	tagIDs, err := r.repo.ListTaskTagIDs(ctx, tpl.ID)
	if err != nil {
		return fmt.Errorf("copy tags: %w", err)
	}
	if len(tagIDs) > 0 {
		if err := r.repo.SetTaskTags(ctx, task.ID, tagIDs); err != nil {
			return fmt.Errorf("copy tags: %w", err)
		}
	}
	return nil
}
