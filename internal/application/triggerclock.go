package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/streakd/streakd/internal/domain/model"
	"github.com/streakd/streakd/internal/domain/port/driven"
)

// RunRequest asks the coordinator to execute one account's job for one
// trigger instant. It carries the account value and snapshot version so the
// job keeps running against the configuration it was created with even if
// the registry is swapped mid-flight.
type RunRequest struct {
	Account     model.Account
	FireDate    string
	TimeOfDay   string
	SnapshotVer int64
}

// TriggerClock wakes at a fixed cadence, determines which accounts are due in
// their own timezone, and enqueues run requests. A per-(account, date,
// time-of-day) de-duplication set, cleared on date rollover, prevents the
// same slot from firing twice inside one minute window. The set is owned
// exclusively by the clock.
type TriggerClock struct {
	registry *Registry
	enqueue  func(RunRequest)
	history  driven.JobHistoryStore // optional warm start; may be nil
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	fired     map[string]struct{}
	firedDate string // process-local date the set was last cleared on
}

// NewTriggerClock creates a clock that polls the registry every interval and
// hands due accounts to enqueue. interval <= 0 defaults to one minute.
func NewTriggerClock(registry *Registry, enqueue func(RunRequest), history driven.JobHistoryStore, interval time.Duration) *TriggerClock {
	if interval <= 0 {
		interval = time.Minute
	}
	return &TriggerClock{
		registry: registry,
		enqueue:  enqueue,
		history:  history,
		interval: interval,
		now:      time.Now,
		fired:    make(map[string]struct{}),
	}
}

// Start runs the clock loop until the context is canceled. It warms the
// de-duplication set from the job history first, so a restart within the same
// day does not re-fire slots that already ran.
func (c *TriggerClock) Start(ctx context.Context) {
	c.warm(ctx)
	c.Tick(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("trigger clock stopped")
			return
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Tick evaluates every enabled account in the current snapshot against the
// current minute and enqueues the due ones. Exported for manual invocation in
// tests; production code goes through Start.
func (c *TriggerClock) Tick(ctx context.Context) {
	now := c.now()
	c.rollover(now)

	snap := c.registry.Current()
	var due int

	for _, account := range snap.Enabled() {
		times, err := ResolveTimes(account)
		if err != nil {
			// Validation should have caught this at load time; report, never
			// let one account block the others.
			slog.Error("schedule resolution failed", "account", account.Name, "error", err)
			continue
		}

		local := now.In(account.Location())
		tod := local.Format("15:04")
		date := local.Format("2006-01-02")

		for _, t := range times {
			if t != tod {
				continue
			}
			if !c.markFired(model.FireKey(account.Name, date, t)) {
				continue
			}
			due++
			c.enqueue(RunRequest{
				Account:     account,
				FireDate:    date,
				TimeOfDay:   t,
				SnapshotVer: snap.Version,
			})
		}
	}

	if due > 0 {
		slog.Info("trigger tick", "due", due, "snapshot", snap.Version)
	}
}

// warm seeds the de-duplication set from jobs already recorded today.
func (c *TriggerClock) warm(ctx context.Context) {
	if c.history == nil {
		return
	}
	date := c.now().Format("2006-01-02")
	keys, err := c.history.FireKeys(ctx, date)
	if err != nil {
		slog.Warn("dedupe warm start failed", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.firedDate = date
	for _, k := range keys {
		c.fired[k] = struct{}{}
	}
	if len(keys) > 0 {
		slog.Info("dedupe set warmed from job history", "date", date, "slots", len(keys))
	}
}

// markFired records the key and reports whether it was newly marked.
func (c *TriggerClock) markFired(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, seen := c.fired[key]; seen {
		return false
	}
	c.fired[key] = struct{}{}
	return true
}

// rollover clears the set when the process-local date changes. Keys embed the
// account-local date, so clearing is pure hygiene and never re-enables a slot
// that already fired on its own calendar day.
func (c *TriggerClock) rollover(now time.Time) {
	date := now.Format("2006-01-02")
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.firedDate == date {
		return
	}
	c.firedDate = date
	c.fired = make(map[string]struct{})
}
