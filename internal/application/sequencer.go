package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/streakd/streakd/internal/domain/model"
	"github.com/streakd/streakd/internal/domain/port/driven"
)

const branchPrefix = "auto-commit-"

// Sequencer runs one account's commit → open PR → merge → delete-branch
// sequence as an explicit state machine. Each step goes through the retrier;
// within a job, steps execute strictly in order.
type Sequencer struct {
	remotes  driven.RemoteRepoFactory
	content  driven.ContentSource
	retrier  *Retrier
	policies Policies

	now   func() time.Time
	sleep func(time.Duration)
}

// NewSequencer wires a sequencer from its collaborators.
func NewSequencer(remotes driven.RemoteRepoFactory, content driven.ContentSource, retrier *Retrier, policies Policies) *Sequencer {
	return &Sequencer{
		remotes:  remotes,
		content:  content,
		retrier:  retrier,
		policies: policies,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Run executes the full sequence for one account and returns the finished
// job. It never returns a running job: the state is done or failed, with the
// failing step and failure kind recorded.
func (s *Sequencer) Run(ctx context.Context, account model.Account, fireDate, timeOfDay string, snapshotVer int64) *model.Job {
	now := s.now()
	job := &model.Job{
		Account:     account.Name,
		FireDate:    fireDate,
		TimeOfDay:   timeOfDay,
		SnapshotVer: snapshotVer,
		State:       model.JobStateRunning,
		Attempts:    make(map[model.JobStep]int),
		StartedAt:   now,
	}

	remote := s.remotes.ForAccount(account)
	content := s.content.Generate(account, now)
	job.Path = content.Path

	// Committing. The branch name is regenerated on every attempt so a
	// "reference already exists" race gets a fresh name instead of colliding
	// again.
	job.Step = model.StepCommitting
	var result driven.CommitResult
	attempts, err := s.retrier.Invoke(ctx, "commit", s.policies.Step, func(ctx context.Context) error {
		job.Branch = branchName(account.Name, s.now())
		var cerr error
		result, cerr = remote.Commit(ctx, job.Branch, content.Path, content.Body, content.CommitMessage)
		return cerr
	})
	job.Attempts[model.StepCommitting] = attempts
	if err != nil {
		return s.fail(job, err)
	}

	if result.InitialCommit {
		// Empty destination: the content went straight to the default branch,
		// there is no feature branch to open a PR from.
		slog.Info("initial commit created, repository was empty",
			"account", account.Name, "path", content.Path, "sha", result.SHA)
		return s.done(job)
	}

	// OpeningPR.
	job.Step = model.StepOpeningPR
	var pr driven.PRHandle
	attempts, err = s.retrier.Invoke(ctx, "open_pr", s.policies.Step, func(ctx context.Context) error {
		var perr error
		pr, perr = remote.OpenPullRequest(ctx, job.Branch, content.PRTitle, content.PRBody)
		return perr
	})
	job.Attempts[model.StepOpeningPR] = attempts
	if err != nil {
		return s.fail(job, err)
	}
	job.PRNumber = pr.Number
	job.PRURL = pr.URL

	if !account.AutoMerge {
		slog.Info("pull request opened, auto-merge disabled",
			"account", account.Name, "pr", pr.Number, "url", pr.URL)
		return s.done(job)
	}

	// Merging. The settling pause lets the remote compute mergeability
	// before the first attempt.
	job.Step = model.StepMerging
	s.sleep(s.policies.SettleDelay)
	mergeTitle := fmt.Sprintf("Auto merge: %s", content.PRTitle)
	attempts, err = s.retrier.Invoke(ctx, "merge", s.policies.Merge, func(ctx context.Context) error {
		return remote.MergePullRequest(ctx, pr, mergeTitle)
	})
	job.Attempts[model.StepMerging] = attempts
	if err != nil {
		return s.fail(job, err)
	}

	if !account.DeleteBranchAfterMerge {
		return s.done(job)
	}

	// DeletingBranch. Best-effort: a failure here is logged but never flips
	// a merged job to failed.
	job.Step = model.StepDeletingBranch
	s.sleep(s.policies.SettleDelay)
	attempts, err = s.retrier.Invoke(ctx, "delete_branch", s.policies.Step, func(ctx context.Context) error {
		return remote.DeleteBranch(ctx, job.Branch)
	})
	job.Attempts[model.StepDeletingBranch] = attempts
	if err != nil {
		job.CleanupFailed = true
		slog.Warn("branch cleanup failed after merge",
			"account", account.Name, "branch", job.Branch, "error", err)
	}

	return s.done(job)
}

func (s *Sequencer) done(job *model.Job) *model.Job {
	job.State = model.JobStateDone
	job.CompletedAt = s.now()
	return job
}

func (s *Sequencer) fail(job *model.Job, err error) *model.Job {
	job.State = model.JobStateFailed
	job.CompletedAt = s.now()
	job.Err = err.Error()

	var ex *ExhaustedError
	if errors.As(err, &ex) {
		job.FailureKind = model.FailureExhausted
	} else {
		job.FailureKind = model.FailureTerminal
	}

	slog.Error("job failed",
		"account", job.Account,
		"step", string(job.Step),
		"kind", string(job.FailureKind),
		"error", err,
	)
	return job
}

// branchName builds a unique branch name from the account, a second-resolution
// timestamp, and a random suffix, so concurrent jobs and fast retries cannot
// collide on the ref namespace.
func branchName(account string, now time.Time) string {
	return fmt.Sprintf("%s%s-%s-%03d-%04d",
		branchPrefix,
		account,
		now.Format("20060102-150405"),
		now.Nanosecond()/1e6,
		1000+rand.IntN(9000),
	)
}
