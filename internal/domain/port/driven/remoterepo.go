package driven

import (
	"context"
	"errors"
	"fmt"

	"github.com/streakd/streakd/internal/domain/model"
)

// RemoteFailureKind is the structured classification a remote adapter attaches
// to a failed operation. Conflict means the remote rejected the change because
// of a concurrent state change and the operation is worth retrying; terminal
// covers everything else (auth, not-found, permissions).
type RemoteFailureKind int

const (
	RemoteFailureTerminal RemoteFailureKind = iota
	RemoteFailureConflict
)

// RemoteError is the structured failure returned by RemoteRepo operations.
// Kind is the preferred classification signal; Message is kept for the
// keyword-based fallback and for user-visible reporting.
type RemoteError struct {
	Op      string // "commit", "open_pr", "merge", "delete_branch"
	Kind    RemoteFailureKind
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// IsConflict reports whether err carries a structured conflict classification.
func IsConflict(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Kind == RemoteFailureConflict
}

// PRHandle identifies an open pull request on the destination repository.
type PRHandle struct {
	Number int
	URL    string
}

// CommitResult describes the outcome of a commit operation.
type CommitResult struct {
	SHA string
	// InitialCommit is true when the destination had no commits and the
	// content was committed directly to the default branch instead of a
	// feature branch. No PR can be opened from such a commit.
	InitialCommit bool
}

// RemoteRepo is the capability the sequencer needs against one account's
// destination repository. Implementations classify failures into RemoteError
// values; the retrier never inspects transport-level errors directly.
type RemoteRepo interface {
	// Commit writes content at path on a new branch created from the default
	// branch head, with message as the commit message.
	Commit(ctx context.Context, branch, path, content, message string) (CommitResult, error)
	// OpenPullRequest opens a PR from branch into the default branch.
	OpenPullRequest(ctx context.Context, branch, title, body string) (PRHandle, error)
	// MergePullRequest merges the PR. It succeeds idempotently if the PR was
	// already merged by a concurrent actor.
	MergePullRequest(ctx context.Context, pr PRHandle, commitTitle string) error
	// DeleteBranch removes the branch ref. Best-effort from the caller's view.
	DeleteBranch(ctx context.Context, branch string) error
}

// RemoteRepoFactory builds a RemoteRepo bound to one account's credential and
// destination. The sequencer calls it once per job.
type RemoteRepoFactory interface {
	ForAccount(account model.Account) RemoteRepo
}
