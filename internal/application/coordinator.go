package application

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/streakd/streakd/internal/domain/model"
	"github.com/streakd/streakd/internal/domain/port/driven"
)

// Coordinator runs due accounts' jobs on a bounded worker pool. Concurrency
// is deliberately capped: the remote rate-limits, and accounts may share a
// destination. Each worker takes one request at a time from a FIFO queue;
// when the queue is deeper than the pool, requests wait — none is dropped.
type Coordinator struct {
	sequencer *Sequencer
	history   driven.JobHistoryStore // may be nil
	workers   int
	jitterMin time.Duration
	jitterMax time.Duration

	queue chan RunRequest
	sleep func(time.Duration)
	wg    sync.WaitGroup
}

// NewCoordinator creates a pool of workers workers fed by a FIFO queue.
// workers <= 0 defaults to 3.
func NewCoordinator(sequencer *Sequencer, history driven.JobHistoryStore, workers int, policies Policies) *Coordinator {
	if workers <= 0 {
		workers = 3
	}
	return &Coordinator{
		sequencer: sequencer,
		history:   history,
		workers:   workers,
		jitterMin: policies.JitterMin,
		jitterMax: policies.JitterMax,
		queue:     make(chan RunRequest, 256),
		sleep:     time.Sleep,
	}
}

// Enqueue appends a run request to the FIFO queue. It blocks if the queue is
// full; the trigger clock tolerates that because requests are delayed, never
// dropped.
func (c *Coordinator) Enqueue(req RunRequest) {
	c.queue <- req
}

// Start launches the worker pool. Workers stop accepting new requests when
// the context is canceled, but a job already started runs to completion:
// shutdown never cancels in-flight jobs.
func (c *Coordinator) Start(ctx context.Context) {
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i)
	}
}

// Wait blocks until all workers have exited.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) worker(ctx context.Context, id int) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-c.queue:
			c.run(ctx, id, req)
		}
	}
}

// run executes one request. The jittered pre-job delay desynchronizes
// accounts that fired in the same minute against a shared destination.
func (c *Coordinator) run(ctx context.Context, worker int, req RunRequest) {
	c.sleep(c.jitter())

	// In-flight jobs outlive shutdown and reloads; detach from cancellation.
	jobCtx := context.WithoutCancel(ctx)

	slog.Info("job starting",
		"worker", worker,
		"account", req.Account.Name,
		"slot", req.TimeOfDay,
		"snapshot", req.SnapshotVer,
	)

	job := c.sequencer.Run(jobCtx, req.Account, req.FireDate, req.TimeOfDay, req.SnapshotVer)
	c.report(jobCtx, job)
}

// report logs the structured result and persists it to the job history.
func (c *Coordinator) report(ctx context.Context, job *model.Job) {
	if job.Succeeded() {
		slog.Info("job done",
			"account", job.Account,
			"step", string(job.Step),
			"pr", job.PRNumber,
			"merge_attempts", job.MergeAttempts(),
			"cleanup_failed", job.CleanupFailed,
			"duration", job.CompletedAt.Sub(job.StartedAt).Round(time.Millisecond),
		)
	} else {
		slog.Error("job failed",
			"account", job.Account,
			"step", string(job.Step),
			"kind", string(job.FailureKind),
			"error", job.Err,
		)
	}

	if c.history == nil {
		return
	}
	if err := c.history.Record(ctx, job); err != nil {
		slog.Error("job history record failed", "account", job.Account, "error", err)
	}
}

func (c *Coordinator) jitter() time.Duration {
	if c.jitterMax <= c.jitterMin {
		return c.jitterMin
	}
	return c.jitterMin + time.Duration(rand.Int64N(int64(c.jitterMax-c.jitterMin)))
}
