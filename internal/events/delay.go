package events

import (
	"context"
	"time"

	"github.com/obsctl/obsctl/internal/catalog"
)

// Delay waits a fixed duration with no hardware or catalog interaction.
type Delay struct {
	base
	Seconds float64
	endTime time.Time
}

// NewDelay constructs a ready Delay event.
func NewDelay(jobID string, priority int, seconds float64) *Delay {
	return &Delay{base: newBase(jobID, priority, time.Duration(seconds*float64(time.Second))+5*time.Second), Seconds: seconds}
}

func (d *Delay) Trigger(ctx context.Context, c Conn, env *Env, job *catalog.Job) error {
	now := env.Now()
	d.startedAt = now
	d.endTime = now.Add(time.Duration(d.Seconds * float64(time.Second)))
	d.status = StatusRunning
	return nil
}

func (d *Delay) Update(ctx context.Context, c Conn, env *Env, job *catalog.Job) error {
	if d.status == StatusFinished || d.status == StatusFailed {
		return nil
	}
	if done, err := checkTimeout(ctx, &d.base, c, env, job, d.Cancel); done {
		return err
	}
	if !env.Now().Before(d.endTime) {
		d.status = StatusFinished
	}
	return nil
}

func (d *Delay) Cancel(ctx context.Context, c Conn, env *Env, job *catalog.Job) error {
	d.status = StatusFailed
	return nil
}
