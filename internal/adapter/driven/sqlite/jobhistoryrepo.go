package sqlite

import (
	"context"
	"fmt"

	"github.com/streakd/streakd/internal/domain/model"
	"github.com/streakd/streakd/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.JobHistoryStore = (*JobHistoryRepo)(nil)

// JobHistoryRepo is the SQLite implementation of the JobHistoryStore port.
type JobHistoryRepo struct {
	db *DB
}

// NewJobHistoryRepo creates a new JobHistoryRepo.
func NewJobHistoryRepo(db *DB) *JobHistoryRepo {
	return &JobHistoryRepo{db: db}
}

// Record persists one finished job.
func (r *JobHistoryRepo) Record(ctx context.Context, job *model.Job) error {
	const query = `INSERT INTO job_history
		(account, fire_date, time_of_day, snapshot_ver, state, step, failure_kind,
		 error, branch, path, pr_number, pr_url, merge_attempts, cleanup_failed,
		 started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Writer.ExecContext(ctx, query,
		job.Account, job.FireDate, job.TimeOfDay, job.SnapshotVer,
		string(job.State), string(job.Step), string(job.FailureKind),
		job.Err, job.Branch, job.Path, job.PRNumber, job.PRURL,
		job.MergeAttempts(), job.CleanupFailed,
		job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("record job for %q: %w", job.Account, err)
	}
	return nil
}

// ListRecent returns the most recently completed jobs, newest first.
func (r *JobHistoryRepo) ListRecent(ctx context.Context, limit int) ([]model.Job, error) {
	const query = `SELECT account, fire_date, time_of_day, snapshot_ver, state, step,
		failure_kind, error, branch, path, pr_number, pr_url, merge_attempts,
		cleanup_failed, started_at, completed_at
		FROM job_history ORDER BY id DESC LIMIT ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var j model.Job
		var state, step, kind string
		var mergeAttempts int
		if err := rows.Scan(
			&j.Account, &j.FireDate, &j.TimeOfDay, &j.SnapshotVer, &state, &step,
			&kind, &j.Err, &j.Branch, &j.Path, &j.PRNumber, &j.PRURL,
			&mergeAttempts, &j.CleanupFailed, &j.StartedAt, &j.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		j.State = model.JobState(state)
		j.Step = model.JobStep(step)
		j.FailureKind = model.FailureKind(kind)
		j.Attempts = map[model.JobStep]int{model.StepMerging: mergeAttempts}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return jobs, nil
}

// FireKeys returns the de-duplication keys of all jobs recorded on the given
// date, used to warm the trigger clock's set after a restart.
func (r *JobHistoryRepo) FireKeys(ctx context.Context, date string) ([]string, error) {
	const query = `SELECT account, fire_date, time_of_day FROM job_history WHERE fire_date = ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("list fire keys for %q: %w", date, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var account, fireDate, tod string
		if err := rows.Scan(&account, &fireDate, &tod); err != nil {
			return nil, fmt.Errorf("scan fire key row: %w", err)
		}
		keys = append(keys, model.FireKey(account, fireDate, tod))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fire key rows: %w", err)
	}
	return keys, nil
}
