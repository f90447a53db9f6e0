package scheduler

import (
	"fmt"
	"strings"

	"github.com/obsctl/obsctl/internal/catalog"
	"github.com/obsctl/obsctl/internal/events"
)

// parseJob translates a queued catalog job into its event tree, per spec
// section 4.4.1. Unknown verbs are rejected outright rather than guessed
// at; the catalog only ever holds the verbs this scheduler understands.
func parseJob(job *catalog.Job, devices Devices) (events.Event, error) {
	fields := strings.Fields(job.Cmd)
	if len(fields) == 0 {
		return nil, fmt.Errorf("scheduler: job %s has an empty cmd", job.ID)
	}

	var inner events.Event
	var err error

	switch fields[0] {
	case "STATIC":
		inner, err = parseStatic(job, devices, fields)
	case "SYNC_INPLACE":
		inner, err = parseSyncInplace(job, devices)
	default:
		return nil, fmt.Errorf("scheduler: job %s has unknown verb %q", job.ID, fields[0])
	}
	if err != nil {
		return nil, err
	}

	return events.NewTimeConstrained(inner, job.JDStart, job.JDEnd), nil
}

// parseStatic builds "STATIC ra dec": slew to the target, then for every
// requested filter character set the wheel and capture one exposure, all
// sharing the job's priority and id, per spec section 4.4.1.
func parseStatic(job *catalog.Job, devices Devices, fields []string) (events.Event, error) {
	if len(fields) != 3 {
		return nil, fmt.Errorf("scheduler: job %s STATIC wants \"STATIC ra dec\", got %q", job.ID, job.Cmd)
	}
	var raDeg, decDeg float64
	if _, err := fmt.Sscanf(fields[1], "%g", &raDeg); err != nil {
		return nil, fmt.Errorf("scheduler: job %s STATIC ra %q: %w", job.ID, fields[1], err)
	}
	if _, err := fmt.Sscanf(fields[2], "%g", &decDeg); err != nil {
		return nil, fmt.Errorf("scheduler: job %s STATIC dec %q: %w", job.ID, fields[2], err)
	}

	sub := []events.Event{events.NewSlew(job.ID, job.Priority, devices.Mount, raDeg, decDeg)}

	filters := job.Filter
	if filters == "" {
		sub = append(sub, events.NewCapture(job.ID, job.Priority, devices.Camera, job.Duration))
	} else {
		for _, ch := range filters {
			sub = append(sub, events.NewSetFilter(job.ID, job.Priority, devices.Wheel, string(ch)))
			sub = append(sub, events.NewCapture(job.ID, job.Priority, devices.Camera, job.Duration))
		}
	}

	return events.NewSeries(sub)
}

// parseSyncInplace builds "SYNC_INPLACE": set the requested filter, then
// capture-and-plate-solve in place to correct the mount's coordinate
// model, per spec section 4.4.1.
func parseSyncInplace(job *catalog.Job, devices Devices) (events.Event, error) {
	sync, err := events.NewSync(job.ID, job.Priority, devices.Mount, devices.Camera)
	if err != nil {
		return nil, err
	}
	if job.Filter == "" {
		return sync, nil
	}
	setFilter := events.NewSetFilter(job.ID, job.Priority, devices.Wheel, job.Filter)
	return events.NewSeries([]events.Event{setFilter, sync})
}
