package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/obsctl/obsctl/internal/catalog"
	"github.com/obsctl/obsctl/internal/deadletter"
	"github.com/obsctl/obsctl/internal/telemetry"
	"github.com/obsctl/obsctl/pkg/log"
)

const deadLetterBatchSize = 20

// Housekeeping runs periodic maintenance independent of the cooperative
// 1s scheduler loop: retrying dead-lettered frame uploads, and reporting
// the dead-letter depth gauge. It owns its own gocron.Scheduler, separate from the
// Scheduler's own Run loop, since these jobs run on minute-or-longer
// cadences rather than once per sweep.
type Housekeeping struct {
	gc      gocron.Scheduler
	store   *deadletter.Store
	catalog *catalog.Client
}

// NewHousekeeping constructs and starts a Housekeeping instance. retryEvery
// controls how often dead-lettered uploads are retried.
func NewHousekeeping(store *deadletter.Store, cat *catalog.Client, retryEvery time.Duration) (*Housekeeping, error) {
	gc, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	h := &Housekeeping{gc: gc, store: store, catalog: cat}

	if retryEvery <= 0 {
		retryEvery = time.Minute
	}
	if _, err := gc.NewJob(gocron.DurationJob(retryEvery), gocron.NewTask(h.retryDeadLetters)); err != nil {
		return nil, err
	}
	if _, err := gc.NewJob(gocron.DurationJob(5*time.Minute), gocron.NewTask(h.reportDeadLetterDepth)); err != nil {
		return nil, err
	}

	gc.Start()
	return h, nil
}

// retryDeadLetters resends the oldest unacked frame uploads to the
// catalog, acking on success and bumping the retry counter on failure,
// per spec.md §5's redesign note that dead-lettered uploads are retried
// rather than lost.
func (h *Housekeeping) retryDeadLetters() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	entries, err := h.store.Pending(ctx, deadLetterBatchSize)
	if err != nil {
		log.Warnf("housekeeping: list pending dead letters: %v", err)
		return
	}

	for _, e := range entries {
		if err := h.catalog.AddFrame(ctx, e.JobID, e.Frame, e.JDObs); err != nil {
			log.Warnf("housekeeping: retry dead letter %d (job %s) failed: %v", e.ID, e.JobID, err)
			if berr := h.store.BumpRetry(ctx, e.ID); berr != nil {
				log.Warnf("housekeeping: bump retry count for %d: %v", e.ID, berr)
			}
			continue
		}
		if err := h.store.Ack(ctx, e.ID); err != nil {
			log.Warnf("housekeeping: ack dead letter %d: %v", e.ID, err)
		}
	}
}

// reportDeadLetterDepth publishes the current unacked dead-letter count
// as a gauge, so operators can alert on a growing backlog.
func (h *Housekeeping) reportDeadLetterDepth() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entries, err := h.store.Pending(ctx, 10000)
	if err != nil {
		log.Warnf("housekeeping: count pending dead letters: %v", err)
		return
	}
	telemetry.Metrics.SetDeadLetterDepth(len(entries))
}

// Shutdown stops the housekeeping scheduler.
func (h *Housekeeping) Shutdown() error {
	return h.gc.Shutdown()
}
