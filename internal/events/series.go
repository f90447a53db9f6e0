package events

import (
	"context"
	"fmt"
	"time"

	"github.com/obsctl/obsctl/internal/catalog"
)

// Series composes an ordered, non-empty list of sub-events that share a
// job id into a single Event. trigger fires the first sub-event; update
// advances the cursor and triggers the next sub-event immediately once
// the current one finishes, so finished-to-running transitions chain
// within one sweep instead of waiting a poll round.
type Series struct {
	events   []Event
	cursor   int
	jobID    string
	priority int
	maxTime  time.Duration
	status   Status
	startedAt time.Time
}

// NewSeries builds a Series from a non-empty ordered sub-event list. All
// sub-events must share one job id, per spec section 3.
func NewSeries(subEvents []Event) (*Series, error) {
	if len(subEvents) == 0 {
		return nil, fmt.Errorf("events: series requires at least one sub-event")
	}
	jobID := subEvents[0].JobID()
	var total time.Duration
	for _, e := range subEvents {
		if e.JobID() != jobID {
			return nil, fmt.Errorf("events: series mixes job ids %q and %q", jobID, e.JobID())
		}
		total += e.MaxTime()
	}
	return &Series{
		events:   subEvents,
		jobID:    jobID,
		priority: subEvents[0].Priority(),
		maxTime:  total + 10*time.Second,
		status:   StatusReady,
	}, nil
}

func (s *Series) Status() Status         { return s.status }
func (s *Series) Priority() int          { return s.priority }
func (s *Series) MaxTime() time.Duration { return s.maxTime }
func (s *Series) JobID() string          { return s.jobID }

func (s *Series) Trigger(ctx context.Context, c Conn, env *Env, job *catalog.Job) error {
	s.startedAt = env.Now()
	s.cursor = 0
	cur := s.events[0]
	if err := cur.Trigger(ctx, c, env, job); err != nil {
		s.status = StatusFailed
		return err
	}
	if cur.Status() == StatusFinished {
		s.status = StatusRunning
		return s.Update(ctx, c, env, job)
	}
	s.status = cur.Status()
	return nil
}

func (s *Series) Update(ctx context.Context, c Conn, env *Env, job *catalog.Job) error {
	if s.status == StatusFinished || s.status == StatusFailed {
		return nil
	}

	cur := s.events[s.cursor]
	if err := cur.Update(ctx, c, env, job); err != nil {
		s.status = StatusFailed
		return err
	}

	for cur.Status() == StatusFinished {
		if s.cursor == len(s.events)-1 {
			s.status = StatusFinished
			return nil
		}
		s.cursor++
		cur = s.events[s.cursor]
		if err := cur.Trigger(ctx, c, env, job); err != nil {
			s.status = StatusFailed
			return err
		}
	}

	s.status = cur.Status()
	return nil
}

func (s *Series) Cancel(ctx context.Context, c Conn, env *Env, job *catalog.Job) error {
	cur := s.events[s.cursor]
	err := cur.Cancel(ctx, c, env, job)
	s.status = StatusFailed
	return err
}
