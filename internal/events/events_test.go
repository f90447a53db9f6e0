package events

import (
	"context"
	"testing"
	"time"

	"github.com/obsctl/obsctl/internal/astro"
	"github.com/obsctl/obsctl/internal/catalog"
	"github.com/obsctl/obsctl/internal/conn"
	"github.com/obsctl/obsctl/internal/state"
)

// fakeConn is an in-memory stand-in for *conn.Connection, letting leaf
// events be exercised without a real socket.
type fakeConn struct {
	snap    *state.State
	setErr  error
	setLog  []string
}

func (f *fakeConn) State() (*state.State, error) { return f.snap.Snapshot(), nil }

// SetValue only records the call; it deliberately does not mutate the
// mirror, since in the real Connection a write is only reflected once
// the remote daemon echoes it back asynchronously. Tests that need a
// converged mirror apply it explicitly, simulating that echo.
func (f *fakeConn) SetValue(device, property string, values map[string]interface{}, opts conn.SetValueOpts) error {
	f.setLog = append(f.setLog, device+"/"+property)
	return f.setErr
}

func newFakeSnapWithCoord(ra, dec float64) *state.State {
	s := state.New()
	v := state.NewVector("mount", "EQUATORIAL_EOD_COORD", state.KindNumber)
	v.SetNumber(state.NumberElement{Name: "RA", Value: ra, Min: 0, Max: 24})
	v.SetNumber(state.NumberElement{Name: "DEC", Value: dec, Min: -90, Max: 90})
	s.DefineVector(v)

	onCoordSet := state.NewVector("mount", "ON_COORD_SET", state.KindSwitch)
	onCoordSet.Rule = state.RuleOneOfMany
	onCoordSet.SetSwitch(state.SwitchElement{Name: "SLEW", Value: state.SwitchOn})
	onCoordSet.SetSwitch(state.SwitchElement{Name: "TRACK", Value: state.SwitchOff})
	onCoordSet.SetSwitch(state.SwitchElement{Name: "SYNC", Value: state.SwitchOff})
	s.DefineVector(onCoordSet)
	return s
}

func testEnv() *Env {
	return &Env{Clock: func() time.Time { return time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC) }}
}

// TestSlewFinishesWhenAlreadyConverged implements S3's converged case:
// trigger transitions directly to finished when current pointing is
// already within the threshold of the J2000-precessed target.
func TestSlewFinishesWhenAlreadyConverged(t *testing.T) {
	env := &Env{Clock: func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }}

	// Target 75 deg RA (= 5h), 45 deg dec in J2000; current pointing is set
	// to that target precessed to the trigger date.
	tgt := astro.J2000ToJNow(astro.NewVector3(75.0, 45.0), astro.JulianDateUTC(env.Now()))
	raDeg, decDeg := tgt.RADec()
	c := &fakeConn{snap: newFakeSnapWithCoord(raDeg/15.0, decDeg)}
	ev := NewSlew("job-1", 1, "mount", 75.0, 45.0)
	job := &catalog.Job{ID: "job-1"}

	if err := ev.Trigger(context.Background(), c, env, job); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if ev.Status() != StatusFinished {
		t.Fatalf("expected immediate finish on convergence, got %s", ev.Status())
	}
}

// TestSlewRunsThenConverges implements S3's non-converged case: trigger
// issues wire writes and update only finishes once the mirrored
// coordinate converges.
func TestSlewRunsThenConverges(t *testing.T) {
	env := testEnv()
	c := &fakeConn{snap: newFakeSnapWithCoord(0.0, 0.0)}
	ev := NewSlew("job-1", 1, "mount", 75.0, 45.0)
	job := &catalog.Job{ID: "job-1"}

	if err := ev.Trigger(context.Background(), c, env, job); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if ev.Status() != StatusRunning {
		t.Fatalf("expected running after trigger, got %s", ev.Status())
	}

	if err := ev.Update(context.Background(), c, env, job); err != nil {
		t.Fatalf("update: %v", err)
	}
	if ev.Status() != StatusRunning {
		t.Fatalf("expected still running before convergence, got %s", ev.Status())
	}

	raDeg, decDeg := ev.target.RADec()
	v := c.snap.Vector("mount", "EQUATORIAL_EOD_COORD")
	e, _ := v.Number("RA")
	e.Value = raDeg / 15.0
	v.SetNumber(e)
	e, _ = v.Number("DEC")
	e.Value = decDeg
	v.SetNumber(e)

	if err := ev.Update(context.Background(), c, env, job); err != nil {
		t.Fatalf("update: %v", err)
	}
	if ev.Status() != StatusFinished {
		t.Fatalf("expected finished after convergence, got %s", ev.Status())
	}
}

// TestSeriesStopsOnSubEventFailure implements S5: a failing SetFilter
// must stop the series before Capture ever triggers.
func TestSeriesStopsOnSubEventFailure(t *testing.T) {
	env := testEnv()
	s := state.New()
	wheel := state.NewVector("wheel", "FILTER_NAME", state.KindText)
	wheel.SetText(state.TextElement{Name: "SLOT_1", Value: "R"})
	s.DefineVector(wheel)
	c := &fakeConn{snap: s}

	job := &catalog.Job{ID: "job-5"}
	badFilter := NewSetFilter("job-5", 1, "wheel", "Z") // unknown filter name
	capture := NewCapture("job-5", 1, "camera", 10)

	series, err := NewSeries([]Event{badFilter, capture})
	if err != nil {
		t.Fatalf("new series: %v", err)
	}

	if err := series.Trigger(context.Background(), c, env, job); err == nil {
		t.Fatal("expected trigger error from unknown filter")
	}
	if series.Status() != StatusFailed {
		t.Fatalf("expected series failed, got %s", series.Status())
	}
	if capture.Status() == StatusRunning || capture.Status() == StatusFinished {
		t.Fatalf("capture must never have triggered, got %s", capture.Status())
	}
	if job.Log == "" {
		t.Fatal("expected job log to record the failure")
	}
}

// TestTimeConstrainedGatesOnStart verifies the not-ready gate.
func TestTimeConstrainedGatesOnStart(t *testing.T) {
	env := testEnv()
	c := &fakeConn{snap: state.New()}
	job := &catalog.Job{ID: "job-7"}

	far := 9999999.0
	delay := NewDelay("job-7", 1, 1)
	wrapped := NewTimeConstrained(delay, &far, nil)

	if err := wrapped.Update(context.Background(), c, env, job); err != nil {
		t.Fatalf("update: %v", err)
	}
	if wrapped.Status() != StatusNotReady {
		t.Fatalf("expected not-ready before window start, got %s", wrapped.Status())
	}
}

// TestTimeConstrainedCancelsPastWindowEnd verifies the expiry path.
func TestTimeConstrainedCancelsPastWindowEnd(t *testing.T) {
	env := testEnv()
	c := &fakeConn{snap: state.New()}
	job := &catalog.Job{ID: "job-8"}

	past := 0.0
	delay := NewDelay("job-8", 1, 1)
	wrapped := NewTimeConstrained(delay, nil, &past)

	if err := wrapped.Update(context.Background(), c, env, job); err != nil {
		t.Fatalf("update: %v", err)
	}
	if wrapped.Status() != StatusFailed {
		t.Fatalf("expected failed past window end, got %s", wrapped.Status())
	}
}
