// Package catalog is the client for the external job-catalog service: a
// document collection of imaging jobs with file-attachment support, per
// spec section 6. The core only ever reads and updates documents through
// this client; it never deletes jobs.
package catalog

import (
	"strconv"
	"time"
)

// CaptureStatus is the job's lifecycle status. Values are persisted by
// name; spec section 9 notes the source has conflicting numeric mappings
// across duplicates, which is harmless once the values are string-keyed.
type CaptureStatus string

const (
	StatusQueued   CaptureStatus = "queued"
	StatusRunning  CaptureStatus = "running"
	StatusFailed   CaptureStatus = "failed"
	StatusFinished CaptureStatus = "finished"
	StatusExpired  CaptureStatus = "expired"
)

// SolveStatus is the plate-solver's verdict on a captured frame.
type SolveStatus string

const (
	SolveUnsolved    SolveStatus = "unsolved"
	SolveSolved      SolveStatus = "solved"
	SolveFailed      SolveStatus = "solve-failed"
	SolveDontSolve   SolveStatus = "don't-solve"
)

// Job is a record in the external catalog, per spec section 3.
type Job struct {
	ID       string        `json:"id"`
	Cmd      string        `json:"cmd"`
	Priority int           `json:"priority"`
	Duration float64       `json:"duration"`
	Filter   string        `json:"filter"`

	JDStart *float64 `json:"jd_start,omitempty"`
	JDEnd   *float64 `json:"jd_end,omitempty"`

	CaptureStatus CaptureStatus `json:"capture_status"`
	Solve         SolveStatus   `json:"solve,omitempty"`

	Frame  *string  `json:"frame,omitempty"`
	JDObs  *float64 `json:"jd_obs,omitempty"`
	Log    string   `json:"log,omitempty"`
}

// AppendLog appends a timestamped line to the job's log, per spec section
// 4.4 writebacks: "<iso-utc> - <julian-date> - <message>".
func (j *Job) AppendLog(now time.Time, jd float64, message string) {
	line := now.UTC().Format(time.RFC3339) + " - " + formatJD(jd) + " - " + message
	if j.Log == "" {
		j.Log = line
	} else {
		j.Log = j.Log + "\n" + line
	}
}

func formatJD(jd float64) string {
	return strconv.FormatFloat(jd, 'f', 5, 64)
}
