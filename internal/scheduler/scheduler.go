// Package scheduler implements the outer control loop: translating
// queued catalog jobs into event trees, arbitrating priority, driving
// exactly one event at a time toward completion, and writing job
// lifecycle transitions back to the catalog, per spec section 4.4.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/obsctl/obsctl/internal/astro"
	"github.com/obsctl/obsctl/internal/catalog"
	"github.com/obsctl/obsctl/internal/events"
	"github.com/obsctl/obsctl/internal/telemetry"
	"github.com/obsctl/obsctl/pkg/log"
)

// Devices names the four controlled instruments, resolved once at
// startup from configuration.
type Devices struct {
	Mount    string
	Camera   string
	Focuser  string
	Wheel    string
}

// Scheduler owns the in-memory event map; it is the sole mutator of
// that map, per spec section 5's shared-resource policy.
type Scheduler struct {
	conn      events.Conn
	catalog   *catalog.Client
	env       *events.Env
	devices   Devices
	period    time.Duration
	publisher *telemetry.Publisher

	active map[string]events.Event // job id -> event
}

// New constructs a Scheduler. period defaults to 1s (spec section 4.4
// outer loop, floored by config.SweepInterval). publisher may be nil; a
// nil publisher is equivalent to one returned by telemetry.Connect("", "").
func New(c events.Conn, cat *catalog.Client, env *events.Env, devices Devices, period time.Duration, publisher *telemetry.Publisher) *Scheduler {
	if period <= 0 {
		period = time.Second
	}
	return &Scheduler{
		conn:      c,
		catalog:   cat,
		env:       env,
		devices:   devices,
		period:    period,
		publisher: publisher,
		active:    map[string]events.Event{},
	}
}

// Run loops until ctx is canceled, sweeping at approximately s.period,
// measuring elapsed work and sleeping the remainder, per spec section 5.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		start := time.Now()
		if err := s.sweep(ctx); err != nil {
			log.Warnf("scheduler: sweep error: %v", err)
		}
		elapsed := time.Since(start)
		telemetry.Metrics.ObserveSweepDuration(elapsed)
		if elapsed < s.period {
			select {
			case <-time.After(s.period - elapsed):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// sweep runs one full intake/sort/sweep/dispatch cycle.
func (s *Scheduler) sweep(ctx context.Context) error {
	if err := s.intake(ctx); err != nil {
		return fmt.Errorf("scheduler: intake: %w", err)
	}

	ids := s.sortedIDs()

	var runner events.Event
	var candidateID string
	var candidate events.Event

	for _, id := range ids {
		ev := s.active[id]

		job, err := s.catalog.GetJob(ctx, id)
		if err != nil {
			log.Warnf("scheduler: job %s vanished from catalog, canceling event: %v", id, err)
			_ = ev.Cancel(ctx, s.conn, s.env, &catalog.Job{ID: id})
			delete(s.active, id)
			continue
		}

		if err := ev.Update(ctx, s.conn, s.env, job); err != nil {
			log.Debugf("scheduler: job %s update: %v", id, err)
		}

		status := ev.Status()
		telemetry.Metrics.ObserveEventTransition(eventKind(ev), string(status))

		switch status {
		case events.StatusFinished:
			job.CaptureStatus = catalog.StatusFinished
			job.AppendLog(s.env.Now(), astro.JulianDateUTC(s.env.Now()), "Finished")
			s.writeback(ctx, job)
			delete(s.active, id)
		case events.StatusFailed:
			job.CaptureStatus = catalog.StatusFailed
			job.AppendLog(s.env.Now(), astro.JulianDateUTC(s.env.Now()), "Failed")
			s.writeback(ctx, job)
			delete(s.active, id)
		case events.StatusRunning:
			runner = ev
			if job.CaptureStatus != catalog.StatusRunning {
				job.CaptureStatus = catalog.StatusRunning
				s.writeback(ctx, job)
			}
		case events.StatusCanceling:
			runner = ev
			if job.CaptureStatus != catalog.StatusRunning {
				job.CaptureStatus = catalog.StatusRunning
				s.writeback(ctx, job)
			}
		case events.StatusNotReady:
			// leave in map
		case events.StatusReady:
			if candidate == nil {
				jdNow := astro.JulianDateUTC(s.env.Now())
				if job.JDEnd != nil && *job.JDEnd < jdNow {
					job.CaptureStatus = catalog.StatusExpired
					s.writeback(ctx, job)
					_ = ev.Cancel(ctx, s.conn, s.env, job)
					delete(s.active, id)
					continue
				}
				candidateID = id
				candidate = ev
			}
		}
	}

	if runner == nil && candidate != nil {
		job, err := s.catalog.GetJob(ctx, candidateID)
		if err != nil {
			return nil
		}
		job.CaptureStatus = catalog.StatusRunning
		s.writeback(ctx, job)
		if err := candidate.Trigger(ctx, s.conn, s.env, job); err != nil {
			log.Warnf("scheduler: trigger %s: %v", candidateID, err)
			job.CaptureStatus = catalog.StatusFailed
			s.writeback(ctx, job)
			delete(s.active, candidateID)
		}
	}

	return nil
}

// eventKind names an event's concrete type for telemetry labels, since
// events.Event exposes no Kind() method of its own.
func eventKind(ev events.Event) string {
	switch ev.(type) {
	case *events.Slew:
		return "slew"
	case *events.SetFilter:
		return "set-filter"
	case *events.Capture:
		return "capture"
	case *events.Series:
		return "series"
	case *events.TimeConstrained:
		return "time-constrained"
	case *events.Delay:
		return "delay"
	default:
		return "unknown"
	}
}

// sortedIDs returns active job ids ordered by descending event priority,
// per spec section 4.4 step 2.
func (s *Scheduler) sortedIDs() []string {
	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.active[ids[i]].Priority() > s.active[ids[j]].Priority()
	})
	return ids
}

// writeback is the single choke point for catalog mutations, per spec
// section 4.4.
func (s *Scheduler) writeback(ctx context.Context, job *catalog.Job) {
	fields := map[string]interface{}{
		"capture_status": string(job.CaptureStatus),
		"log":            job.Log,
	}
	if job.Solve != "" {
		fields["solve"] = string(job.Solve)
	}
	if job.Frame != nil {
		fields["frame"] = *job.Frame
	}
	if err := s.catalog.UpdateJob(ctx, job.ID, fields); err != nil {
		log.Warnf("scheduler: writeback for job %s failed: %v", job.ID, err)
		return
	}
	telemetry.Metrics.ObserveJobTransition(string(job.CaptureStatus))
	s.publisher.PublishJobTransition(job.ID, job.Cmd, string(job.CaptureStatus), job.Priority, s.env.Now())
}

// intake fetches queued jobs and inserts newly-seen ones into the
// active map, per spec section 4.4 step 1.
func (s *Scheduler) intake(ctx context.Context) error {
	jobs, err := s.catalog.GetJobs(ctx, map[string]string{"capture_status": string(catalog.StatusQueued)})
	if err != nil {
		return err
	}

	nowJD := astro.JulianDateUTC(s.env.Now())

	for i := range jobs {
		job := &jobs[i]
		if _, seen := s.active[job.ID]; seen {
			continue
		}

		switch job.CaptureStatus {
		case catalog.StatusFinished, catalog.StatusFailed:
			continue
		case catalog.StatusRunning:
			job.CaptureStatus = catalog.StatusFailed
			job.AppendLog(s.env.Now(), nowJD, "Job was running, but no event found.")
			s.writeback(ctx, job)
			continue
		}

		if job.JDEnd != nil && *job.JDEnd < nowJD {
			job.CaptureStatus = catalog.StatusExpired
			s.writeback(ctx, job)
			continue
		}

		ev, err := parseJob(job, s.devices)
		if err != nil {
			job.CaptureStatus = catalog.StatusFailed
			job.AppendLog(s.env.Now(), nowJD, err.Error())
			s.writeback(ctx, job)
			continue
		}

		s.active[job.ID] = ev
	}

	return nil
}
