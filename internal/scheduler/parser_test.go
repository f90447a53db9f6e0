package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsctl/obsctl/internal/catalog"
	"github.com/obsctl/obsctl/internal/events"
)

func testDevices() Devices {
	return Devices{Mount: "mount", Camera: "camera", Focuser: "focuser", Wheel: "wheel"}
}

func TestParseJobStaticBuildsTimeConstrainedEvent(t *testing.T) {
	start, end := 2461000.0, 2461001.0
	job := &catalog.Job{
		ID: "job-1", Cmd: "STATIC 10.5 -20.0", Priority: 3, Filter: "RG",
		Duration: 30, JDStart: &start, JDEnd: &end,
	}

	ev, err := parseJob(job, testDevices())
	require.NoError(t, err)

	tc, ok := ev.(*events.TimeConstrained)
	require.True(t, ok, "expected a *events.TimeConstrained, got %T", ev)
	assert.Equal(t, "job-1", tc.JobID())
	assert.Equal(t, 3, tc.Priority())
}

func TestParseJobStaticWithoutFilterCapturesOnce(t *testing.T) {
	job := &catalog.Job{ID: "job-2", Cmd: "STATIC 0 0", Priority: 1, Duration: 10}

	ev, err := parseJob(job, testDevices())
	require.NoError(t, err)
	assert.Equal(t, "job-2", ev.JobID())
}

func TestParseJobStaticRejectsWrongArgCount(t *testing.T) {
	job := &catalog.Job{ID: "job-3", Cmd: "STATIC 10.5"}
	_, err := parseJob(job, testDevices())
	assert.Error(t, err)
}

func TestParseJobStaticRejectsBadCoordinate(t *testing.T) {
	job := &catalog.Job{ID: "job-4", Cmd: "STATIC notanumber 0"}
	_, err := parseJob(job, testDevices())
	assert.Error(t, err)
}

func TestParseJobSyncInplaceWithFilter(t *testing.T) {
	job := &catalog.Job{ID: "job-5", Cmd: "SYNC_INPLACE", Priority: 2, Filter: "L"}

	ev, err := parseJob(job, testDevices())
	require.NoError(t, err)
	assert.Equal(t, "job-5", ev.JobID())
	assert.Equal(t, 2, ev.Priority())
}

func TestParseJobSyncInplaceWithoutFilter(t *testing.T) {
	job := &catalog.Job{ID: "job-6", Cmd: "SYNC_INPLACE"}
	_, err := parseJob(job, testDevices())
	require.NoError(t, err)
}

func TestParseJobRejectsUnknownVerb(t *testing.T) {
	for _, cmd := range []string{"FOCUS 100", "HOME", "SSO_STATE", "BOGUS 1 2"} {
		job := &catalog.Job{ID: "job-x", Cmd: cmd}
		_, err := parseJob(job, testDevices())
		assert.Errorf(t, err, "expected %q to be rejected", cmd)
	}
}

func TestParseJobRejectsEmptyCmd(t *testing.T) {
	job := &catalog.Job{ID: "job-empty", Cmd: ""}
	_, err := parseJob(job, testDevices())
	assert.Error(t, err)
}
