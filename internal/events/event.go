// Package events implements the event state machine shared by every
// hardware operation: a uniform contract that polls external state to
// decide completion, supports composition into ordered series, and
// enforces per-event time caps, per spec section 4.3.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/obsctl/obsctl/internal/astro"
	"github.com/obsctl/obsctl/internal/catalog"
	"github.com/obsctl/obsctl/internal/conn"
	"github.com/obsctl/obsctl/internal/deadletter"
	"github.com/obsctl/obsctl/internal/state"
	"github.com/obsctl/obsctl/pkg/log"
)

// Conn is the slice of *conn.Connection's behavior events depend on.
// Events are written against this interface rather than the concrete
// type so they can be exercised against a fake in tests without a real
// socket; *conn.Connection satisfies it structurally.
type Conn interface {
	State() (*state.State, error)
	SetValue(device, property string, values map[string]interface{}, opts conn.SetValueOpts) error
}

// Status is a node in the event state machine:
//
//	not-ready -> ready -> running -> finished
//	                         |
//	                         +-> canceling -> failed
//	ready -> failed (explicit cancel or timeout)
type Status string

const (
	StatusNotReady  Status = "not-ready"
	StatusReady     Status = "ready"
	StatusRunning   Status = "running"
	StatusFinished  Status = "finished"
	StatusCanceling Status = "canceling"
	StatusFailed    Status = "failed"
)

// ErrTimeout is the sentinel for max_time exhaustion, per spec section 7
// event-timeout.
var ErrTimeout = errors.New("events: time limit exceeded")

// Env bundles the external collaborators an event's trigger/update/cancel
// may need besides the device connection, which is passed separately: the
// catalog client, a fire-and-forget dead-letter sink for failed frame
// uploads (spec section 5's image-upload offloading, section 9's redesign
// note), and the clock.
type Env struct {
	Catalog    *catalog.Client
	DeadLetter *deadletter.Store
	Clock      func() time.Time
}

// Now returns the current time, defaulting to time.Now when Clock is
// unset; tests set Clock to a fixed function for determinism.
func (e *Env) Now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

// Event is the uniform contract every leaf and composite (series,
// time-constrained) operation implements, per spec section 4.3.
type Event interface {
	Status() Status
	Priority() int
	MaxTime() time.Duration
	JobID() string

	// Trigger fires on the ready->running transition. Precondition:
	// Status() == StatusReady.
	Trigger(ctx context.Context, c Conn, env *Env, job *catalog.Job) error

	// Update consults external state to decide progress; a no-op once
	// Finished or Failed.
	Update(ctx context.Context, c Conn, env *Env, job *catalog.Job) error

	// Cancel best-effort aborts the operation; always ends at Failed.
	Cancel(ctx context.Context, c Conn, env *Env, job *catalog.Job) error
}

// base holds the fields and timeout bookkeeping common to every leaf
// event, per spec section 3's Event record shape.
type base struct {
	priority  int
	maxTime   time.Duration
	jobID     string
	status    Status
	startedAt time.Time
}

func newBase(jobID string, priority int, maxTime time.Duration) base {
	return base{jobID: jobID, priority: priority, maxTime: maxTime, status: StatusReady}
}

func (b *base) Status() Status       { return b.status }
func (b *base) Priority() int        { return b.priority }
func (b *base) MaxTime() time.Duration { return b.maxTime }
func (b *base) JobID() string        { return b.jobID }

// checkTimeout enforces the max_time cap: if running and the cap has
// elapsed, cancels and fails with the documented message, per spec
// section 4.3 update.
func checkTimeout(ctx context.Context, b *base, c Conn, env *Env, job *catalog.Job, cancel func(context.Context, Conn, *Env, *catalog.Job) error) (bool, error) {
	if b.status != StatusRunning {
		return false, nil
	}
	if env.Now().Sub(b.startedAt) <= b.maxTime {
		return false, nil
	}
	if err := cancel(ctx, c, env, job); err != nil {
		log.Warnf("events: cancel during timeout for job %s: %v", job.ID, err)
	}
	b.status = StatusFailed
	job.AppendLog(env.Now(), astro.JulianDateUTC(env.Now()), "Failed to complete within the time limit")
	return true, fmt.Errorf("%w: job %s", ErrTimeout, job.ID)
}
