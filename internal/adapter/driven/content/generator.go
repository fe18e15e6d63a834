// Package content generates the daily commit material for an account.
package content

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"time"

	"github.com/streakd/streakd/internal/domain/model"
	"github.com/streakd/streakd/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ContentSource = (*Generator)(nil)

var (
	activities = []string{
		"Learning a new technology", "Refactoring", "Performance tuning",
		"Documentation updates", "Writing test cases", "Bug fixing",
		"Feature development", "Code review", "Architecture design",
		"Technical research",
	}
	technologies = []string{
		"Python", "JavaScript", "Go", "Rust", "TypeScript",
		"React", "Vue", "Docker", "Kubernetes", "Redis",
	}
	reflections = []string{
		"Code is poetry; every line is a brushstroke.",
		"Keep learning, never stop.",
		"Elegant code is the best documentation.",
		"Simplicity is the ultimate sophistication.",
		"Code quality beats quantity.",
	}
)

// Generator produces a markdown daily note at an account-scoped path. Output
// is deterministic for a given (account, day) pair so retries within one job
// commit identical content.
type Generator struct{}

// NewGenerator creates the default content generator.
func NewGenerator() *Generator { return &Generator{} }

// Generate builds the commit content for the account at the given instant.
// The path always includes the account name as a segment: no two accounts
// ever target the same file, which removes path-level merge conflicts
// structurally, independent of timing.
func (g *Generator) Generate(account model.Account, now time.Time) driven.Content {
	date := now.Format("2006-01-02")
	rng := rand.New(rand.NewPCG(seed(account.Name, date), 0))

	activity := activities[rng.IntN(len(activities))]
	tech := technologies[rng.IntN(len(technologies))]
	reflection := reflections[rng.IntN(len(reflections))]

	body := fmt.Sprintf(`# Daily commit log - %s

## %s

### Activity
- **Focus**: %s
- **Stack**: %s
- **Committed at**: %s
- **Account**: %s

### Reflection
%s

---
*Generated at %s*
`,
		account.Name, date, activity, tech,
		now.Format("15:04:05"), account.Name,
		reflection, now.Format(time.RFC3339),
	)

	return driven.Content{
		Path:          fmt.Sprintf("users/%s/daily_commits/%s/%s.md", account.Name, now.Format("2006/01"), date),
		Body:          body,
		CommitMessage: fmt.Sprintf("Auto commit on %s - keep the streak alive", date),
		PRTitle:       fmt.Sprintf("Auto PR on %s - daily contribution", date),
		PRBody: fmt.Sprintf(`Automated pull request.

- Date: %s
- Time: %s
- Account: %s
`, date, now.Format("15:04:05"), account.Name),
	}
}

func seed(account, date string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(account))
	h.Write([]byte{'|'})
	h.Write([]byte(date))
	return h.Sum64()
}
