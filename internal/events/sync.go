package events

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/obsctl/obsctl/internal/astro"
	"github.com/obsctl/obsctl/internal/catalog"
	"github.com/obsctl/obsctl/internal/conn"
	"github.com/obsctl/obsctl/internal/fitsio"
)

// pollSchedule is the _SyncInner back-off: five attempts at 0.5s then
// five at 2s, ten total, per spec section 4.3.
var pollSchedule = func() []time.Duration {
	s := make([]time.Duration, 0, 10)
	for i := 0; i < 5; i++ {
		s = append(s, 500*time.Millisecond)
	}
	for i := 0; i < 5; i++ {
		s = append(s, 2*time.Second)
	}
	return s
}()

// NewSync builds the Sync event: a series of [Capture(1s), _SyncInner],
// per spec section 4.3.
func NewSync(jobID string, priority int, mount, camera string) (*Series, error) {
	return NewSeries([]Event{
		NewCapture(jobID, priority, camera, 1.0),
		newSyncInner(jobID, priority, mount),
	})
}

// syncInner polls the catalog for the plate-solver's verdict on the
// frame Capture just forwarded, then resyncs the mount's coordinate to
// the solved field center once available. Polling is a suspension point
// inside the scheduler loop (spec section 5); it runs synchronously
// across the whole back-off schedule within one Update call, since the
// scheduler only ever runs one event at a time regardless.
type syncInner struct {
	base
	Mount string
}

func newSyncInner(jobID string, priority int, mount string) *syncInner {
	return &syncInner{base: newBase(jobID, priority, 30*time.Second), Mount: mount}
}

func (s *syncInner) Trigger(ctx context.Context, c Conn, env *Env, job *catalog.Job) error {
	s.startedAt = env.Now()
	s.status = StatusRunning
	return nil
}

func (s *syncInner) Update(ctx context.Context, c Conn, env *Env, job *catalog.Job) error {
	if s.status == StatusFinished || s.status == StatusFailed {
		return nil
	}
	if done, err := checkTimeout(ctx, &s.base, c, env, job, s.Cancel); done {
		return err
	}

	for _, wait := range pollSchedule {
		fresh, err := env.Catalog.GetJob(ctx, job.ID)
		if err != nil {
			time.Sleep(wait)
			continue
		}

		switch fresh.Solve {
		case catalog.SolveSolved:
			if err := s.resync(ctx, c, env, fresh); err != nil {
				return s.fail(env, job, err)
			}
			job.Solve = fresh.Solve
			job.Frame = fresh.Frame
			s.status = StatusFinished
			return nil
		case catalog.SolveFailed, catalog.SolveDontSolve:
			return s.fail(env, job, fmt.Errorf("events: plate solve did not succeed: %s", fresh.Solve))
		default:
			time.Sleep(wait)
		}
	}

	return s.fail(env, job, fmt.Errorf("events: plate solve timed out"))
}

func (s *syncInner) resync(ctx context.Context, c Conn, env *Env, job *catalog.Job) error {
	if job.Frame == nil {
		return fmt.Errorf("events: solved job %s has no frame URL", job.ID)
	}
	raw, err := fetchFrame(ctx, *job.Frame)
	if err != nil {
		return err
	}
	hdr, err := fitsio.ReadHeader(raw)
	if err != nil {
		return fmt.Errorf("events: parse solved frame header: %w", err)
	}
	raDeg, decDeg, err := hdr.FieldCenter()
	if err != nil {
		return fmt.Errorf("events: read WCS center: %w", err)
	}

	jd := astro.JulianDateUTC(env.Now())
	target := astro.J2000ToJNow(astro.NewVector3(raDeg, decDeg), jd)
	targetRADeg, targetDecDeg := target.RADec()

	if err := c.SetValue(s.Mount, "ON_COORD_SET", map[string]interface{}{"SYNC": true}, conn.DefaultSetValueOpts()); err != nil {
		return err
	}
	return c.SetValue(s.Mount, "EQUATORIAL_EOD_COORD", map[string]interface{}{
		"RA":  astro.DegreesToHours(targetRADeg),
		"DEC": targetDecDeg,
	}, conn.DefaultSetValueOpts())
}

// fetchFrame downloads a (possibly gzip-compressed) FITS frame from the
// catalog's stored URL.
func fetchFrame(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("events: build frame request: %w", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("events: fetch frame: %w", err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("events: read frame body: %w", err)
	}
	if len(raw) >= 2 && raw[0] == 0x1f && raw[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("events: open gzip frame: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	}
	return raw, nil
}

func (s *syncInner) Cancel(ctx context.Context, c Conn, env *Env, job *catalog.Job) error {
	s.status = StatusFailed
	return nil
}

func (s *syncInner) fail(env *Env, job *catalog.Job, cause error) error {
	s.status = StatusFailed
	job.AppendLog(env.Now(), astro.JulianDateUTC(env.Now()), cause.Error())
	return cause
}
