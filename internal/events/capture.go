package events

import (
	"context"
	"time"

	"github.com/obsctl/obsctl/internal/astro"
	"github.com/obsctl/obsctl/internal/catalog"
	"github.com/obsctl/obsctl/internal/conn"
	"github.com/obsctl/obsctl/internal/fitsio"
	"github.com/obsctl/obsctl/pkg/log"
)

// Capture exposes the camera for Duration seconds and forwards the
// resulting frame to the catalog once it appears in the CCD1 blob
// vector. The upload itself is fire-and-forget (spec section 5, section
// 9 redesign note): Capture does not wait on it to decide completion.
type Capture struct {
	base
	Camera   string
	Duration float64
	baseline time.Time
}

// NewCapture constructs a ready Capture event.
func NewCapture(jobID string, priority int, camera string, duration float64) *Capture {
	maxTime := time.Duration(duration*float64(time.Second)) + 5*time.Second
	return &Capture{base: newBase(jobID, priority, maxTime), Camera: camera, Duration: duration}
}

func (cap *Capture) Trigger(ctx context.Context, c Conn, env *Env, job *catalog.Job) error {
	cap.startedAt = env.Now()

	snap, err := c.State()
	if err != nil {
		return cap.fail(env, job, err)
	}
	if v := snap.Vector(cap.Camera, "CCD1"); v != nil {
		cap.baseline = v.Stamp
	}

	err = c.SetValue(cap.Camera, "CCD_EXPOSURE", map[string]interface{}{"CCD_EXPOSURE_VALUE": cap.Duration}, conn.SetValueOpts{Block: false})
	if err != nil {
		return cap.fail(env, job, err)
	}
	cap.status = StatusRunning
	return nil
}

func (cap *Capture) Update(ctx context.Context, c Conn, env *Env, job *catalog.Job) error {
	if cap.status == StatusFinished || cap.status == StatusFailed {
		return nil
	}
	if done, err := checkTimeout(ctx, &cap.base, c, env, job, cap.Cancel); done {
		return err
	}

	snap, err := c.State()
	if err != nil {
		return nil
	}
	v := snap.Vector(cap.Camera, "CCD1")
	if v == nil || v.Stamp.Equal(cap.baseline) {
		return nil
	}

	blobs := v.Blobs()
	if len(blobs) == 0 {
		return nil
	}
	frame := blobs[0].Bytes

	jdObs := astro.JulianDateUTC(v.Stamp)
	if hdr, err := fitsio.ReadHeader(frame); err == nil {
		if t, err := hdr.DateObs(); err == nil {
			jdObs = astro.JulianDateUTC(t)
		}
	}

	job.Solve = catalog.SolveUnsolved
	go forwardFrame(env, job.ID, frame, jdObs)

	cap.status = StatusFinished
	return nil
}

// forwardFrame runs detached from the scheduler loop so a slow or failed
// catalog upload never blocks sweep progress. A failed upload is
// recorded to the dead-letter store for later retry instead of being
// silently lost.
func forwardFrame(env *Env, jobID string, frame []byte, jdObs float64) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := env.Catalog.AddFrame(ctx, jobID, frame, jdObs); err != nil {
		log.Warnf("events: add_frame(%s) failed, dead-lettering: %v", jobID, err)
		if env.DeadLetter != nil {
			if derr := env.DeadLetter.Record(context.Background(), jobID, err.Error(), frame, jdObs); derr != nil {
				log.Errorf("events: dead-letter record(%s) failed: %v", jobID, derr)
			}
		}
	}
}

func (cap *Capture) Cancel(ctx context.Context, c Conn, env *Env, job *catalog.Job) error {
	err := c.SetValue(cap.Camera, "CCD_ABORT_EXPOSURE", map[string]interface{}{"ABORT": true}, conn.SetValueOpts{Block: false})
	cap.status = StatusFailed
	return err
}

func (cap *Capture) fail(env *Env, job *catalog.Job, cause error) error {
	cap.status = StatusFailed
	job.AppendLog(env.Now(), astro.JulianDateUTC(env.Now()), cause.Error())
	return cause
}
