package events

import (
	"context"
	"time"

	"github.com/obsctl/obsctl/internal/astro"
	"github.com/obsctl/obsctl/internal/catalog"
	"github.com/obsctl/obsctl/pkg/log"
)

// TimeConstrained wraps any Event with an optional {start, end} Julian-date
// window, gating readiness and canceling the inner event once the window
// closes before it ever ran, per spec section 4.3.
type TimeConstrained struct {
	inner   Event
	startJD *float64
	endJD   *float64
	status  Status
}

// NewTimeConstrained wraps inner with an optional start/end Julian-date
// window. Either bound may be nil for unconstrained.
func NewTimeConstrained(inner Event, startJD, endJD *float64) *TimeConstrained {
	return &TimeConstrained{inner: inner, startJD: startJD, endJD: endJD, status: StatusReady}
}

func (t *TimeConstrained) Status() Status         { return t.status }
func (t *TimeConstrained) Priority() int          { return t.inner.Priority() }
func (t *TimeConstrained) MaxTime() time.Duration { return t.inner.MaxTime() }
func (t *TimeConstrained) JobID() string          { return t.inner.JobID() }

func (t *TimeConstrained) Trigger(ctx context.Context, c Conn, env *Env, job *catalog.Job) error {
	if err := t.inner.Trigger(ctx, c, env, job); err != nil {
		t.status = StatusFailed
		return err
	}
	t.status = t.inner.Status()
	return nil
}

func (t *TimeConstrained) Update(ctx context.Context, c Conn, env *Env, job *catalog.Job) error {
	if t.status == StatusFinished || t.status == StatusFailed {
		return nil
	}

	if t.status == StatusReady || t.status == StatusNotReady {
		nowJD := astro.JulianDateUTC(env.Now())
		if t.startJD != nil && nowJD < *t.startJD {
			t.status = StatusNotReady
			return nil
		}
		if t.endJD != nil && nowJD > *t.endJD {
			job.AppendLog(env.Now(), nowJD, "Event Ready after max time constraint met")
			if err := t.inner.Cancel(ctx, c, env, job); err != nil {
				log.Warnf("events: time-window cancel for job %s: %v", job.ID, err)
			}
			t.status = StatusFailed
			return nil
		}
		t.status = StatusReady
		return nil
	}

	if err := t.inner.Update(ctx, c, env, job); err != nil {
		t.status = StatusFailed
		return err
	}
	t.status = t.inner.Status()
	return nil
}

func (t *TimeConstrained) Cancel(ctx context.Context, c Conn, env *Env, job *catalog.Job) error {
	err := t.inner.Cancel(ctx, c, env, job)
	t.status = StatusFailed
	return err
}
