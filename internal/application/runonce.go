package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streakd/streakd/internal/domain/model"
	"github.com/streakd/streakd/internal/domain/port/driven"
)

// RunOnce executes the sequencer immediately for one named account, or for
// all enabled accounts when name is empty, bypassing the trigger clock.
// Accounts run sequentially, in configuration order, each isolated from the
// others' failures. Results are recorded to the job history when a store is
// provided.
func RunOnce(ctx context.Context, registry *Registry, sequencer *Sequencer, history driven.JobHistoryStore, name string) ([]*model.Job, error) {
	snap := registry.Current()

	var targets []model.Account
	if name != "" {
		account, ok := snap.Account(name)
		if !ok {
			return nil, fmt.Errorf("no account named %q", name)
		}
		targets = []model.Account{account}
	} else {
		targets = snap.Enabled()
		if len(targets) == 0 {
			return nil, fmt.Errorf("no enabled accounts")
		}
	}

	date := time.Now().Format("2006-01-02")
	jobs := make([]*model.Job, 0, len(targets))
	var succeeded int

	for _, account := range targets {
		job := sequencer.Run(ctx, account, date, "manual", snap.Version)
		jobs = append(jobs, job)
		if job.Succeeded() {
			succeeded++
		}
		if history != nil {
			if err := history.Record(ctx, job); err != nil {
				slog.Error("job history record failed", "account", job.Account, "error", err)
			}
		}
	}

	slog.Info("run-once complete", "succeeded", succeeded, "total", len(jobs))
	return jobs, nil
}
