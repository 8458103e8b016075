// Package jobs implements the scheduler-invoked passes of the
// notification engine: reminder dispatch, recurrence expansion, and the
// daily digest. Each pass is one sequential sweep; a failing item is
// logged and skipped so it cannot poison the rest of the batch.
package jobs

import (
	"log/slog"
	"time"

	"github.com/marwanayman128/TaskFlow-sub001/internal/channel"
	"github.com/marwanayman128/TaskFlow-sub001/internal/storage"
)

// Deps carries everything a job needs. The senders map is keyed by
// integration provider.
type Deps struct {
	Logger  *slog.Logger
	Repo    storage.Repository
	Senders map[string]channel.Sender
	Now     func() time.Time
	AppURL  string
}

type Runner struct {
	logger  *slog.Logger
	repo    storage.Repository
	senders map[string]channel.Sender
	now     func() time.Time
	appURL  string
}

func NewRunner(deps Deps) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		// Whole-second timestamps keep the stored RFC3339 strings
		// comparable: a fractional now would sort after an equal
		// whole-second remind_at and defer it one tick.
		now = func() time.Time { return time.Now().UTC().Truncate(time.Second) }
	}
	return &Runner{
		logger:  logger,
		repo:    deps.Repo,
		senders: deps.Senders,
		now:     now,
		appURL:  deps.AppURL,
	}
}

func (r *Runner) taskLink(taskID string) string {
	if r.appURL == "" {
		return ""
	}
	return r.appURL + "/tasks/" + taskID
}

// senderFor returns the configured sender for a provider, or nil.
func (r *Runner) senderFor(provider string) channel.Sender {
	sender, ok := r.senders[provider]
	if !ok || sender == nil || !sender.IsConfigured() {
		return nil
	}
	return sender
}
