package driven

import (
	"time"

	"github.com/streakd/streakd/internal/domain/model"
)

// Content is the material for one commit: the account-scoped file path, the
// file body, and the commit/PR text.
type Content struct {
	Path          string
	Body          string
	CommitMessage string
	PRTitle       string
	PRBody        string
}

// ContentSource produces the content for a given (account, timestamp) pair.
// Implementations must keep Path account-scoped: the account name is always a
// path segment so two accounts never touch the same file.
type ContentSource interface {
	Generate(account model.Account, now time.Time) Content
}
