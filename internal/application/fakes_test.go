package application

import (
	"context"
	"sync"
	"time"

	"github.com/streakd/streakd/internal/domain/model"
	"github.com/streakd/streakd/internal/domain/port/driven"
)

// --- Fake remote repository ---

type commitCall struct {
	Account string
	Branch  string
	Path    string
}

// fakeRemote scripts per-attempt outcomes for each operation: errs slices are
// consumed one entry per attempt, nil meaning success; an exhausted slice also
// means success.
type fakeRemote struct {
	mu sync.Mutex

	account       string
	initialCommit bool

	commitErrs []error
	openErrs   []error
	mergeErrs  []error
	deleteErrs []error

	commits []commitCall
	opens   int
	merges  int
	deletes int
}

func popErr(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (f *fakeRemote) Commit(_ context.Context, branch, path, _, _ string) (driven.CommitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, commitCall{Account: f.account, Branch: branch, Path: path})
	if err := popErr(&f.commitErrs); err != nil {
		return driven.CommitResult{}, err
	}
	return driven.CommitResult{SHA: "abc123", InitialCommit: f.initialCommit}, nil
}

func (f *fakeRemote) OpenPullRequest(_ context.Context, _, _, _ string) (driven.PRHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if err := popErr(&f.openErrs); err != nil {
		return driven.PRHandle{}, err
	}
	return driven.PRHandle{Number: 7, URL: "https://example.com/pr/7"}, nil
}

func (f *fakeRemote) MergePullRequest(_ context.Context, _ driven.PRHandle, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merges++
	return popErr(&f.mergeErrs)
}

func (f *fakeRemote) DeleteBranch(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	return popErr(&f.deleteErrs)
}

// fakeFactory hands each account its own fakeRemote, creating empty ones on
// demand. All remotes share one call log via the factory for disjointness
// assertions.
type fakeFactory struct {
	mu      sync.Mutex
	remotes map[string]*fakeRemote
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{remotes: make(map[string]*fakeRemote)}
}

func (f *fakeFactory) remote(name string) *fakeRemote {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.remotes[name]
	if !ok {
		r = &fakeRemote{account: name}
		f.remotes[name] = r
	}
	return r
}

func (f *fakeFactory) ForAccount(account model.Account) driven.RemoteRepo {
	return f.remote(account.Name)
}

func (f *fakeFactory) allCommits() []commitCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []commitCall
	for _, r := range f.remotes {
		r.mu.Lock()
		out = append(out, r.commits...)
		r.mu.Unlock()
	}
	return out
}

// --- Fake job history store ---

type fakeHistory struct {
	mu      sync.Mutex
	records []*model.Job
	keys    []string
}

func (f *fakeHistory) Record(_ context.Context, job *model.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, job)
	return nil
}

func (f *fakeHistory) ListRecent(_ context.Context, limit int) ([]model.Job, error) {
	return nil, nil
}

func (f *fakeHistory) FireKeys(_ context.Context, _ string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys, nil
}

// --- Helpers ---

// fastPolicies removes all sleeping so tests run instantly.
func fastPolicies() Policies {
	return Policies{
		Step:        RetryPolicy{MaxAttempts: 3, Backoff: 1},
		Merge:       RetryPolicy{MaxAttempts: 8, Backoff: 1},
		SettleDelay: 0,
		JitterMin:   0,
		JitterMax:   0,
	}
}

func newTestSequencer(factory driven.RemoteRepoFactory) *Sequencer {
	retrier := NewRetrier(nil)
	retrier.sleep = func(time.Duration) {}
	seq := NewSequencer(factory, &stubContent{}, retrier, fastPolicies())
	seq.sleep = func(time.Duration) {}
	return seq
}

// stubContent mirrors the production generator's account-scoped path contract
// without the markdown noise.
type stubContent struct{}

func (stubContent) Generate(account model.Account, now time.Time) driven.Content {
	return driven.Content{
		Path:          "users/" + account.Name + "/daily_commits/" + now.Format("2006/01/2006-01-02") + ".md",
		Body:          "note",
		CommitMessage: "auto commit",
		PRTitle:       "auto pr",
		PRBody:        "body",
	}
}
