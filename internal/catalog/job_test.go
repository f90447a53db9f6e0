package catalog

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestAppendLogFormatsTimestampAndJD(t *testing.T) {
	var j Job
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	j.AppendLog(now, 2461250.0, "Finished")

	if !strings.Contains(j.Log, "2026-07-29T12:00:00Z") {
		t.Fatalf("log missing timestamp: %q", j.Log)
	}
	if !strings.Contains(j.Log, "2461250.00000") {
		t.Fatalf("log missing julian date: %q", j.Log)
	}
	if !strings.HasSuffix(j.Log, "Finished") {
		t.Fatalf("log missing message: %q", j.Log)
	}
}

func TestAppendLogAccumulatesLines(t *testing.T) {
	var j Job
	now := time.Unix(0, 0).UTC()
	j.AppendLog(now, 0, "first")
	j.AppendLog(now, 0, "second")

	lines := strings.Split(j.Log, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), j.Log)
	}
}

func TestJobSerializesEnumsBySymbolicName(t *testing.T) {
	j := Job{ID: "j1", CaptureStatus: StatusRunning, Solve: SolveUnsolved}
	raw, err := json.Marshal(j)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"capture_status":"running"`) {
		t.Fatalf("expected symbolic capture_status, got %s", raw)
	}
	if !strings.Contains(string(raw), `"solve":"unsolved"`) {
		t.Fatalf("expected symbolic solve, got %s", raw)
	}
}
