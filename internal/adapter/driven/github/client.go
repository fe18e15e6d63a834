// Package github implements the RemoteRepo port using the go-github library.
package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/streakd/streakd/internal/domain/model"
	"github.com/streakd/streakd/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.RemoteRepo        = (*Client)(nil)
	_ driven.RemoteRepoFactory = (*Factory)(nil)
)

// Factory builds per-account clients. Each account gets its own transport
// stack so tokens are never shared between accounts.
type Factory struct{}

// NewFactory creates the production client factory.
func NewFactory() *Factory { return &Factory{} }

// ForAccount builds a RemoteRepo bound to the account's token and destination.
func (f *Factory) ForAccount(account model.Account) driven.RemoteRepo {
	return NewClient(account)
}

// Client implements the driven.RemoteRepo port for one account against one
// destination repository.
type Client struct {
	gh          *gh.Client
	owner       string
	repo        string
	authorName  string
	authorEmail string

	mu            sync.Mutex
	defaultBranch string // resolved lazily; "" until first use
}

// NewClient creates a GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. oauth2 (per-account static token source)
func NewClient(account model.Account) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, rateLimitClient)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: account.Token})
	httpClient := oauth2.NewClient(ctx, ts)

	owner, repo := splitRepo(account.RepoFullName)
	return &Client{
		gh:          gh.NewClient(httpClient),
		owner:       owner,
		repo:        repo,
		authorName:  account.Username,
		authorEmail: account.Email,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, account model.Account) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	owner, repo := splitRepo(account.RepoFullName)
	return &Client{
		gh:          client,
		owner:       owner,
		repo:        repo,
		authorName:  account.Username,
		authorEmail: account.Email,
	}, nil
}

// Commit writes content at path on a new branch created from the default
// branch head, using the git data API (blob → tree → commit → ref). When the
// destination has no commits at all, the commit is created parentless
// directly on the default branch and InitialCommit is set.
func (c *Client) Commit(ctx context.Context, branch, path, content, message string) (driven.CommitResult, error) {
	baseSHA, empty, err := c.head(ctx)
	if err != nil {
		return driven.CommitResult{}, err
	}

	blob, _, err := c.gh.Git.CreateBlob(ctx, c.owner, c.repo, gh.Blob{
		Content:  gh.Ptr(base64.StdEncoding.EncodeToString([]byte(content))),
		Encoding: gh.Ptr("base64"),
	})
	if err != nil {
		return driven.CommitResult{}, c.classify("commit", err)
	}

	baseTree := ""
	if !empty {
		baseCommit, _, err := c.gh.Git.GetCommit(ctx, c.owner, c.repo, baseSHA)
		if err != nil {
			return driven.CommitResult{}, c.classify("commit", err)
		}
		baseTree = baseCommit.GetTree().GetSHA()
	}

	tree, _, err := c.gh.Git.CreateTree(ctx, c.owner, c.repo, baseTree, []*gh.TreeEntry{{
		Path: gh.Ptr(path),
		Mode: gh.Ptr("100644"),
		Type: gh.Ptr("blob"),
		SHA:  blob.SHA,
	}})
	if err != nil {
		return driven.CommitResult{}, c.classify("commit", err)
	}

	author := &gh.CommitAuthor{
		Name:  gh.Ptr(c.authorName),
		Email: gh.Ptr(c.authorEmail),
	}
	newCommit := &gh.Commit{
		Message:   gh.Ptr(message),
		Tree:      tree,
		Author:    author,
		Committer: author,
	}
	if !empty {
		newCommit.Parents = []*gh.Commit{{SHA: gh.Ptr(baseSHA)}}
	}

	commit, _, err := c.gh.Git.CreateCommit(ctx, c.owner, c.repo, *newCommit, nil)
	if err != nil {
		return driven.CommitResult{}, c.classify("commit", err)
	}

	ref := "refs/heads/" + branch
	if empty {
		ref = "refs/heads/" + c.branch()
	}
	_, _, err = c.gh.Git.CreateRef(ctx, c.owner, c.repo, gh.CreateRef{
		Ref: ref,
		SHA: commit.GetSHA(),
	})
	if err != nil {
		return driven.CommitResult{}, c.classify("commit", err)
	}

	return driven.CommitResult{SHA: commit.GetSHA(), InitialCommit: empty}, nil
}

// OpenPullRequest opens a PR from branch into the default branch.
func (c *Client) OpenPullRequest(ctx context.Context, branch, title, body string) (driven.PRHandle, error) {
	pr, _, err := c.gh.PullRequests.Create(ctx, c.owner, c.repo, &gh.NewPullRequest{
		Title: gh.Ptr(title),
		Body:  gh.Ptr(body),
		Head:  gh.Ptr(branch),
		Base:  gh.Ptr(c.branch()),
	})
	if err != nil {
		return driven.PRHandle{}, c.classify("open_pr", err)
	}
	return driven.PRHandle{Number: pr.GetNumber(), URL: pr.GetHTMLURL()}, nil
}

// MergePullRequest merges the PR with the merge method. It succeeds
// idempotently if a concurrent actor already merged the PR.
func (c *Client) MergePullRequest(ctx context.Context, pr driven.PRHandle, commitTitle string) error {
	current, _, err := c.gh.PullRequests.Get(ctx, c.owner, c.repo, pr.Number)
	if err == nil && current.GetMerged() {
		return nil
	}

	_, _, err = c.gh.PullRequests.Merge(ctx, c.owner, c.repo, pr.Number, "", &gh.PullRequestOptions{
		CommitTitle: commitTitle,
		MergeMethod: "merge",
	})
	if err == nil {
		return nil
	}

	// The merge may have raced with another actor; re-check before reporting.
	if recheck, _, gerr := c.gh.PullRequests.Get(ctx, c.owner, c.repo, pr.Number); gerr == nil && recheck.GetMerged() {
		return nil
	}
	return c.classify("merge", err)
}

// DeleteBranch removes the branch ref.
func (c *Client) DeleteBranch(ctx context.Context, branch string) error {
	if _, err := c.gh.Git.DeleteRef(ctx, c.owner, c.repo, "heads/"+branch); err != nil {
		return c.classify("delete_branch", err)
	}
	return nil
}

// head returns the default branch's head SHA, or empty=true when the
// repository has no commits yet.
func (c *Client) head(ctx context.Context) (sha string, empty bool, err error) {
	branch := c.branch()
	ref, resp, err := c.gh.Git.GetRef(ctx, c.owner, c.repo, "heads/"+branch)
	if err == nil {
		return ref.GetObject().GetSHA(), false, nil
	}
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		// Either the branch name is stale (main vs master) or the repository
		// is empty. Re-resolve the default branch once before concluding.
		if fresh := c.resolveDefaultBranch(ctx); fresh != branch {
			ref, _, err2 := c.gh.Git.GetRef(ctx, c.owner, c.repo, "heads/"+fresh)
			if err2 == nil {
				return ref.GetObject().GetSHA(), false, nil
			}
		}
		return "", true, nil
	}
	return "", false, c.classify("commit", err)
}

// branch returns the cached default branch name, resolving it on first use.
func (c *Client) branch() string {
	c.mu.Lock()
	cached := c.defaultBranch
	c.mu.Unlock()
	if cached != "" {
		return cached
	}
	return c.resolveDefaultBranch(context.Background())
}

func (c *Client) resolveDefaultBranch(ctx context.Context) string {
	name := "main"
	if repo, _, err := c.gh.Repositories.Get(ctx, c.owner, c.repo); err == nil && repo.GetDefaultBranch() != "" {
		name = repo.GetDefaultBranch()
	}
	c.mu.Lock()
	c.defaultBranch = name
	c.mu.Unlock()
	return name
}

// conflictStatusMessages disambiguates 405/422 responses: those statuses
// cover both permanent rejections and concurrent-modification races, so the
// response message decides.
var conflictStatusMessages = []string{
	"reference already exists",
	"base branch was modified",
	"merge conflict",
	"not mergeable",
	"is not a valid ref",
	"but expected",
}

// classify maps a go-github error to the structured RemoteError the retrier
// consumes. 409 is always a conflict; 405 and 422 are conflicts only when the
// message carries a concurrent-modification signature; everything else is
// terminal.
func (c *Client) classify(op string, err error) *driven.RemoteError {
	kind := driven.RemoteFailureTerminal
	message := err.Error()

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		if ghErr.Message != "" {
			message = ghErr.Message
		}
		switch ghErr.Response.StatusCode {
		case http.StatusConflict:
			kind = driven.RemoteFailureConflict
		case http.StatusMethodNotAllowed, http.StatusUnprocessableEntity:
			lower := strings.ToLower(message)
			for _, sig := range conflictStatusMessages {
				if strings.Contains(lower, sig) {
					kind = driven.RemoteFailureConflict
					break
				}
			}
		}
	}

	return &driven.RemoteError{Op: op, Kind: kind, Message: message, Err: err}
}

// splitRepo splits "owner/repo" into its parts. Validation guarantees the
// destination is present; a missing slash yields owner == destination so the
// API error surfaces the misconfiguration.
func splitRepo(fullName string) (owner, repo string) {
	owner, repo, found := strings.Cut(fullName, "/")
	if !found {
		return fullName, fullName
	}
	return owner, repo
}
