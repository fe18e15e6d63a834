package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/streakd/streakd/internal/domain/port/driven"
)

// RetryPolicy bounds one operation's retry loop. Delays are drawn uniformly
// from [DelayMin, DelayMax] and grow by Backoff raised to the attempt index.
type RetryPolicy struct {
	MaxAttempts int
	DelayMin    time.Duration
	DelayMax    time.Duration
	Backoff     float64
}

// ExhaustedError reports that every attempt of a conflict-classified
// operation was spent. It is a different failure kind than a terminal error:
// the remote never rejected the operation outright, it just kept losing races.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: conflict retries exhausted after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// defaultConflictKeywords is the fallback classifier for remote errors that
// carry no structured kind. It is a tunable policy table, not a fixed
// algorithm; entries are matched as lowercase substrings.
var defaultConflictKeywords = []string{
	"conflict",
	"not mergeable",
	"base branch was modified",
	"merge conflict",
	"pull request is not mergeable",
	"reference already exists",
	"reference does not exist",
	"but expected",
	"stale",
}

// Retrier wraps remote operations with classification-driven retry.
// Conflict-classified failures are retried with jittered, backoff-scaled
// delays; any other failure is surfaced immediately after one attempt, since
// retrying cannot change the outcome of a bad credential or a missing repo.
type Retrier struct {
	keywords []string
	sleep    func(time.Duration)
}

// NewRetrier creates a retrier with the given conflict keyword list; nil
// selects the default table.
func NewRetrier(keywords []string) *Retrier {
	if keywords == nil {
		keywords = defaultConflictKeywords
	}
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return &Retrier{keywords: lowered, sleep: time.Sleep}
}

// Invoke runs fn up to policy.MaxAttempts times and returns the number of
// attempts actually performed along with the final outcome: nil, a terminal
// error, or an *ExhaustedError when the conflict budget was spent.
func (r *Retrier) Invoke(ctx context.Context, op string, policy RetryPolicy, fn func(context.Context) error) (int, error) {
	var err error
	attempts := 0

	for i := 0; i < policy.MaxAttempts; i++ {
		if i > 0 {
			r.sleep(r.delay(policy, i))
		}
		attempts++

		err = fn(ctx)
		if err == nil {
			return attempts, nil
		}
		if !r.isConflict(err) {
			return attempts, err
		}
	}

	return attempts, &ExhaustedError{Op: op, Attempts: attempts, Err: err}
}

// isConflict prefers the adapter's structured classification; keyword
// substring matching applies only when no structured signal exists.
func (r *Retrier) isConflict(err error) bool {
	var re *driven.RemoteError
	if errors.As(err, &re) {
		return re.Kind == driven.RemoteFailureConflict
	}
	msg := strings.ToLower(err.Error())
	for _, k := range r.keywords {
		if strings.Contains(msg, k) {
			return true
		}
	}
	return false
}

// delay draws a jittered delay for the given attempt index (1-based for the
// first retry), scaled by the policy's backoff factor.
func (r *Retrier) delay(policy RetryPolicy, attempt int) time.Duration {
	base := policy.DelayMin
	if policy.DelayMax > policy.DelayMin {
		base += time.Duration(rand.Int64N(int64(policy.DelayMax - policy.DelayMin)))
	}
	backoff := policy.Backoff
	if backoff <= 0 {
		backoff = 1
	}
	return time.Duration(float64(base) * math.Pow(backoff, float64(attempt-1)))
}
