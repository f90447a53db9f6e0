package events

import (
	"fmt"
	"context"
	"time"

	"github.com/obsctl/obsctl/internal/astro"
	"github.com/obsctl/obsctl/internal/catalog"
	"github.com/obsctl/obsctl/internal/conn"
)

// SetFilter drives the filter wheel to the slot named by Name, resolving
// the name through the wheel's FILTER_NAME map.
type SetFilter struct {
	base
	Wheel       string
	Name        string
	targetIndex float64
}

// NewSetFilter constructs a ready SetFilter event.
func NewSetFilter(jobID string, priority int, wheel, name string) *SetFilter {
	return &SetFilter{base: newBase(jobID, priority, 30*time.Second), Wheel: wheel, Name: name}
}

func (f *SetFilter) Trigger(ctx context.Context, c Conn, env *Env, job *catalog.Job) error {
	f.startedAt = env.Now()

	snap, err := c.State()
	if err != nil {
		return f.fail(env, job, err)
	}
	names := snap.Vector(f.Wheel, "FILTER_NAME")
	if names == nil {
		return f.fail(env, job, fmt.Errorf("events: %s/FILTER_NAME not yet defined", f.Wheel))
	}
	index := -1
	for i, t := range names.Texts() {
		if t.Value == f.Name {
			index = i + 1
			break
		}
	}
	if index == -1 {
		return f.fail(env, job, fmt.Errorf("events: unknown filter %q on %s", f.Name, f.Wheel))
	}
	f.targetIndex = float64(index)

	slot := snap.Vector(f.Wheel, "FILTER_SLOT")
	if slot != nil {
		if cur, ok := slot.Number("FILTER_SLOT_VALUE"); ok && cur.Value == f.targetIndex {
			f.status = StatusFinished
			return nil
		}
	}

	err = c.SetValue(f.Wheel, "FILTER_SLOT", map[string]interface{}{"FILTER_SLOT_VALUE": f.targetIndex}, conn.SetValueOpts{Block: false})
	if err != nil {
		return f.fail(env, job, err)
	}
	f.status = StatusRunning
	return nil
}

func (f *SetFilter) Update(ctx context.Context, c Conn, env *Env, job *catalog.Job) error {
	if f.status == StatusFinished || f.status == StatusFailed {
		return nil
	}
	if done, err := checkTimeout(ctx, &f.base, c, env, job, f.Cancel); done {
		return err
	}

	snap, err := c.State()
	if err != nil {
		return nil
	}
	slot := snap.Vector(f.Wheel, "FILTER_SLOT")
	if slot == nil {
		return nil
	}
	if cur, ok := slot.Number("FILTER_SLOT_VALUE"); ok && cur.Value == f.targetIndex {
		f.status = StatusFinished
	}
	return nil
}

func (f *SetFilter) Cancel(ctx context.Context, c Conn, env *Env, job *catalog.Job) error {
	f.status = StatusFailed
	return nil
}

func (f *SetFilter) fail(env *Env, job *catalog.Job, cause error) error {
	f.status = StatusFailed
	job.AppendLog(env.Now(), astro.JulianDateUTC(env.Now()), cause.Error())
	return cause
}
