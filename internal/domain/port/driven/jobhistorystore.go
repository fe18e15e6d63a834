package driven

import (
	"context"

	"github.com/streakd/streakd/internal/domain/model"
)

// JobHistoryStore persists one structured result per completed or failed job.
// The trigger clock also reads it at startup to warm the daily de-duplication
// set, so a restart within the same day does not re-fire already-run slots.
type JobHistoryStore interface {
	Record(ctx context.Context, job *model.Job) error
	ListRecent(ctx context.Context, limit int) ([]model.Job, error)
	// FireKeys returns the de-duplication keys of all jobs recorded for the
	// given date (YYYY-MM-DD).
	FireKeys(ctx context.Context, date string) ([]string, error)
}
