package model

import "time"

// JobStep identifies a stage of the commit→PR→merge→cleanup sequence.
type JobStep string

const (
	StepCommitting     JobStep = "committing"
	StepOpeningPR      JobStep = "opening_pr"
	StepMerging        JobStep = "merging"
	StepDeletingBranch JobStep = "deleting_branch"
)

// JobState is the terminal outcome of a job.
type JobState string

const (
	JobStateRunning JobState = "running"
	JobStateDone    JobState = "done"
	JobStateFailed  JobState = "failed"
)

// FailureKind distinguishes why a job failed. Exhausted means every retry of
// a conflict-classified operation was spent; terminal means the remote
// rejected the operation for a reason retrying cannot change.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureExhausted FailureKind = "conflict_exhausted"
	FailureTerminal  FailureKind = "terminal"
)

// Job is one execution attempt for one account at one trigger instant.
// Jobs are owned exclusively by the worker running them; nothing else
// mutates a job during its lifetime.
type Job struct {
	Account     string
	FireDate    string // YYYY-MM-DD in the account's timezone
	TimeOfDay   string // HH:MM; "manual" for run-once invocations
	SnapshotVer int64  // registry snapshot version the job was created against

	State       JobState
	Step        JobStep // last step entered
	FailureKind FailureKind
	Err         string

	Branch   string
	Path     string
	PRNumber int
	PRURL    string

	// Attempts per step, keyed by JobStep. MergeAttempts is surfaced
	// separately because merge contention is the primary failure mode.
	Attempts map[JobStep]int

	// CleanupFailed records a best-effort branch-delete failure that did not
	// change the job's overall outcome.
	CleanupFailed bool

	StartedAt   time.Time
	CompletedAt time.Time
}

// MergeAttempts returns how many merge attempts the job performed.
func (j *Job) MergeAttempts() int {
	return j.Attempts[StepMerging]
}

// Succeeded reports whether the job reached a successful terminal state.
func (j *Job) Succeeded() bool {
	return j.State == JobStateDone
}

// FireKey returns the de-duplication key for the job's trigger instant.
func (j *Job) FireKey() string {
	return FireKey(j.Account, j.FireDate, j.TimeOfDay)
}

// FireKey builds the (account, date, time-of-day) de-duplication key used by
// the trigger clock and the job history store.
func FireKey(account, date, timeOfDay string) string {
	return account + "|" + date + "|" + timeOfDay
}
